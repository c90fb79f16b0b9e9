package transport

import (
	"go.uber.org/zap"

	"github.com/opcap/opcap/internal/metrics"
)

// EmitFunc receives the bytes a direction of a connection has produced, in
// strict arrival order, with no byte ever repeated (spec.md §3 invariant).
type EmitFunc func(key ConnectionKey, from Endpoint, data []byte)

// Reassembler reconstructs per-connection, per-direction byte streams from
// a sequence of TCP segments (spec.md §4.1). It performs no I/O and holds
// no goroutines: Feed is called synchronously, once per captured segment,
// and drives Emit before returning.
type Reassembler struct {
	conns map[ConnectionKey]*Connection
	Emit  EmitFunc
	log   *zap.Logger
}

// NewReassembler builds a Reassembler that reports reconstructed bytes via
// emit. log may be nil, in which case a no-op logger is used.
func NewReassembler(emit EmitFunc, log *zap.Logger) *Reassembler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reassembler{
		conns: make(map[ConnectionKey]*Connection),
		Emit:  emit,
		log:   log,
	}
}

// Feed processes one captured TCP segment, per spec.md §4.1's algorithm.
func (r *Reassembler) Feed(seg Segment) {
	key := NewConnectionKey(seg.Src, seg.Dst)

	switch {
	case seg.Flags.has(FlagRST):
		if _, ok := r.conns[key]; ok {
			delete(r.conns, key)
			metrics.ReassemblyConnectionsActive.Dec()
			r.log.Debug("connection reset", zap.Any("key", key))
		}
		return

	case seg.Flags.has(FlagSYN) && !seg.Flags.has(FlagACK):
		conn, ok := r.conns[key]
		if !ok {
			conn = newConnection(key)
			r.conns[key] = conn
			metrics.ReassemblyConnectionsActive.Inc()
			r.log.Debug("new connection", zap.Any("key", key), zap.String("initiator", seg.Src.Addr))
		}
		stream := conn.streamFor(seg.Src)
		stream.expectedSeq = seg.Seq + 1 // the SYN itself consumes one sequence number
		stream.expectedKnown = true
		return

	case seg.Flags.has(FlagSYN) && seg.Flags.has(FlagACK):
		conn, ok := r.conns[key]
		if !ok {
			// SYN-ACK for a connection we never saw the SYN of: nothing to
			// attach it to.
			return
		}
		stream := conn.streamFor(seg.Src)
		stream.expectedSeq = seg.Seq + 1
		stream.expectedKnown = true
		return
	}

	conn, ok := r.conns[key]
	if !ok {
		// Data with no prior SYN: still track it, per the edge policy —
		// queued data is picked up once expected_seq becomes known.
		conn = newConnection(key)
		r.conns[key] = conn
		metrics.ReassemblyConnectionsActive.Inc()
	}

	stream := conn.streamFor(seg.Src)

	if seg.Flags.has(FlagFIN) && seg.Flags.has(FlagACK) {
		stream.finSeen = true
		if len(seg.Payload) == 0 {
			if conn.closed() {
				delete(r.conns, key)
				metrics.ReassemblyConnectionsActive.Dec()
				r.log.Debug("connection closed", zap.Any("key", key))
			}
			return
		}
		// fall through: a FIN-ACK may still carry a final chunk of data.
	}

	if len(seg.Payload) > 0 {
		r.feedData(conn, stream, seg)
	}

	if seg.Flags.has(FlagFIN) && seg.Flags.has(FlagACK) && conn.closed() {
		delete(r.conns, key)
		metrics.ReassemblyConnectionsActive.Dec()
		r.log.Debug("connection closed", zap.Any("key", key))
	}
}

func (r *Reassembler) feedData(conn *Connection, stream *ConnectionStream, seg Segment) {
	if !stream.expectedKnown {
		// First segment observed for this stream establishes the baseline
		// (spec.md §3: "unknown until the first in-order segment is
		// observed").
		stream.expectedSeq = seg.Seq
		stream.expectedKnown = true
	}

	if seqLess(seg.Seq, stream.expectedSeq) {
		// Already-passed sequence number: retransmission, ignore.
		r.log.Debug("ignoring retransmission", zap.Uint32("seq", seg.Seq), zap.Uint32("expected", stream.expectedSeq))
		return
	}

	stream.pending[seg.Seq] = pendingSegment{payload: seg.Payload, nextSeq: seg.NextSeq}

	var emitted []byte
	for {
		p, ok := stream.pending[stream.expectedSeq]
		if !ok {
			break
		}
		delete(stream.pending, stream.expectedSeq)
		emitted = append(emitted, p.payload...)
		stream.expectedSeq = p.nextSeq
	}

	if len(emitted) > 0 {
		metrics.ReassemblyBytesEmitted.WithLabelValues(directionLabel(conn, stream)).Add(float64(len(emitted)))
		if r.Emit != nil {
			r.Emit(conn.Key, stream.Endpoint, emitted)
		}
	}
}

func directionLabel(conn *Connection, stream *ConnectionStream) string {
	if stream.Endpoint == conn.Key.A {
		return "a-to-b"
	}
	return "b-to-a"
}

// seqLess reports whether a precedes b, treating sequence numbers as
// unsigned 32-bit values that do not wrap within a single capture (the
// corpus this implementation targets never runs long enough to wrap).
func seqLess(a, b uint32) bool {
	return a < b
}

// Connections returns the number of connections currently tracked. Useful
// for tests and CLI progress reporting.
func (r *Reassembler) Connections() int {
	return len(r.conns)
}
