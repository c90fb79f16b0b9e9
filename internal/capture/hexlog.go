package capture

import (
	"bufio"
	"encoding/hex"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/opcap/opcap/internal/config"
)

// HexLogFrame is one parsed line of the analyzer's alternative text-logged
// input form (spec.md §6).
type HexLogFrame struct {
	Timestamp time.Time
	Direction config.Direction
	Bytes     []byte
}

const hexLogTimeLayout = "2006-01-02 15:04:05.000"

// ReadHexLog parses lines of the form
// `YYYY-MM-DD HH:MM:SS.fff[<|>][hex bytes]`, where the direction marker
// immediately follows the millisecond field.
func ReadHexLog(r io.Reader) ([]HexLogFrame, error) {
	var frames []HexLogFrame
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" {
			continue
		}

		if len(line) < len(hexLogTimeLayout)+1 {
			return nil, errors.Errorf("capture: hex log line %d too short", lineNo)
		}

		ts, err := time.Parse(hexLogTimeLayout, line[:len(hexLogTimeLayout)])
		if err != nil {
			return nil, errors.Wrapf(err, "capture: hex log line %d timestamp", lineNo)
		}

		rest := line[len(hexLogTimeLayout):]
		marker := rest[0]
		var dir config.Direction
		switch marker {
		case '<':
			dir = config.DirectionServer
		case '>':
			dir = config.DirectionClient
		default:
			return nil, errors.Errorf("capture: hex log line %d unexpected direction marker %q", lineNo, marker)
		}

		hexPart := strings.TrimSpace(rest[1:])
		raw, err := hex.DecodeString(hexPart)
		if err != nil {
			return nil, errors.Wrapf(err, "capture: hex log line %d hex decode", lineNo)
		}

		frames = append(frames, HexLogFrame{Timestamp: ts, Direction: dir, Bytes: raw})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "capture: scan hex log")
	}
	return frames, nil
}
