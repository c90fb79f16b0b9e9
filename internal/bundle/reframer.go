package bundle

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"io"

	"github.com/dreadl0ck/cryptoutils"
	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/opcap/opcap/internal/config"
	"github.com/opcap/opcap/internal/metrics"
	"github.com/opcap/opcap/internal/transport"
	"github.com/opcap/opcap/internal/types"
)

// Standard library zlib is used rather than a third-party implementation:
// the wire format is plain RFC 1950 zlib framing, and none of the
// teacher's or the pack's compression libraries (klauspost/pgzip,
// evilsocket/islazy) target that format — pgzip is gzip-framed and is used
// instead for transparently ungzipping converter log files in the capture
// package, a different layer of this system.

// Emitted is one reframed bundle, tagged with the connection and direction
// it came from. ID is a per-emit correlation id, useful for tying a log
// line or metrics sample back to the exact bundle that produced it.
type Emitted struct {
	ID        string
	Key       transport.ConnectionKey
	From      transport.Endpoint
	Direction config.Direction
	Bundle    Bundle
}

// EmitFunc receives each fully-framed, decompressed bundle as it's
// detached from its direction's rolling buffer.
type EmitFunc func(Emitted)

// dirState is the rolling buffer for one (connection, direction) pair.
type dirState struct {
	buf []byte
}

// Reframer implements spec.md §4.2: it consumes the byte streams the
// transport reassembler emits per direction and detaches discrete bundles
// from each direction's rolling buffer.
type Reframer struct {
	rev   *config.Revision
	dirOf func(transport.ConnectionKey, transport.Endpoint) config.Direction
	Emit  EmitFunc
	log   *zap.Logger

	states map[transport.Endpoint]*dirState
}

// NewReframer builds a Reframer against revision rev. dirOf classifies
// which side of a connection an endpoint plays (server or client); the
// caller typically derives this from which endpoint initiated the
// connection, or from a well-known port.
func NewReframer(rev *config.Revision, dirOf func(transport.ConnectionKey, transport.Endpoint) config.Direction, emit EmitFunc, log *zap.Logger) *Reframer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reframer{
		rev:    rev,
		dirOf:  dirOf,
		Emit:   emit,
		log:    log,
		states: make(map[transport.Endpoint]*dirState),
	}
}

// Feed is a transport.EmitFunc: wire it directly as the Reassembler's Emit
// callback.
func (r *Reframer) Feed(key transport.ConnectionKey, from transport.Endpoint, data []byte) {
	st, ok := r.states[from]
	if !ok {
		st = &dirState{}
		r.states[from] = st
	}
	st.buf = append(st.buf, data...)

	for {
		if len(st.buf) < types.BundleHeaderSize {
			return
		}

		var sig [16]byte
		copy(sig[:], st.buf[:16])
		if sig != r.rev.Signature1 && sig != r.rev.Signature2 {
			// Resynchronize: count and log the skipped byte, then advance by
			// one. The skipped byte is not passed to Emit.
			metrics.BundleDiagnostics.Inc()
			r.log.Debug("bundle resync", zap.Any("key", key), zap.String("endpoint", from.Addr))
			st.buf = st.buf[1:]
			continue
		}

		hdr, err := types.ParseBundleHeader(st.buf)
		if err != nil {
			// Signature matched but header itself doesn't fit; wait for
			// more data.
			return
		}
		if int(hdr.Size) < types.BundleHeaderSize {
			// Malformed declared size under a matching signature: treat as
			// noise and resync by one byte.
			metrics.BundleDiagnostics.Inc()
			st.buf = st.buf[1:]
			continue
		}
		if len(st.buf) < int(hdr.Size) {
			// Buffer is short: retain the tail as leftover for the next Feed.
			return
		}

		raw := st.buf[:hdr.Size]
		st.buf = st.buf[hdr.Size:]

		body := raw[types.BundleHeaderSize:]
		if hdr.Flags.Deflated() {
			inflated, err := inflate(body)
			if err != nil {
				metrics.BundleDropped.WithLabelValues("inflate_failed").Inc()
				r.log.Debug("bundle inflate failed", zap.Error(err))
				continue
			}
			body = inflated
		}

		if r.Emit != nil {
			r.log.Debug("bundle framed", zap.String("hash", hex.EncodeToString(cryptoutils.MD5Data(body))))
			r.Emit(Emitted{
				ID:        xid.New().String(),
				Key:       key,
				From:      from,
				Direction: r.dirOf(key, from),
				Bundle:    Bundle{Header: hdr, Body: body},
			})
		}
	}
}

func inflate(body []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
