package capture

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/klauspost/pgzip"
	"github.com/pkg/errors"

	"github.com/opcap/opcap/internal/config"
)

// ConverterFrame is one frame read from a converter-format file: a
// direction marker and the raw (not yet reframed) bundle bytes that
// followed it (spec.md §6).
type ConverterFrame struct {
	Direction config.Direction
	Bytes     []byte
}

var gzipMagic = [2]byte{0x1f, 0x8b}

// ReadConverterFile reads the `'<'/'>'` + little-endian length + raw bytes
// framing spec.md §6 describes. If the stream begins with a gzip magic, it
// is transparently ungzipped first via the teacher's compression library
// (github.com/klauspost/pgzip), since converter output is commonly shipped
// compressed.
func ReadConverterFile(r io.Reader) ([]ConverterFrame, error) {
	br := bufio.NewReader(r)
	peek, err := br.Peek(2)
	if err == nil && peek[0] == gzipMagic[0] && peek[1] == gzipMagic[1] {
		zr, err := pgzip.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "capture: open gzip converter file")
		}
		defer zr.Close()
		br = bufio.NewReader(zr)
	}

	var frames []ConverterFrame
	for {
		marker, err := br.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "capture: read direction marker")
		}

		var dir config.Direction
		switch marker {
		case '<':
			dir = config.DirectionServer
		case '>':
			dir = config.DirectionClient
		default:
			return nil, errors.Errorf("capture: unexpected direction marker %q", marker)
		}

		var lenBuf [4]byte
		if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
			return nil, errors.Wrap(err, "capture: read frame length")
		}
		n := binary.LittleEndian.Uint32(lenBuf[:])

		payload := make([]byte, n)
		if _, err := io.ReadFull(br, payload); err != nil {
			return nil, errors.Wrap(err, "capture: read frame body")
		}

		frames = append(frames, ConverterFrame{Direction: dir, Bytes: payload})
	}
	return frames, nil
}
