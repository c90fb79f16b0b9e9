package transport

// pendingSegment is one out-of-order segment awaiting its turn to drain,
// keyed by its starting sequence number in ConnectionStream.pending.
type pendingSegment struct {
	payload []byte
	nextSeq uint32
}

// ConnectionStream is the per-endpoint reassembly state described in
// spec.md §3. The framing "leftover" field named in the data model lives
// one layer up, in bundle.Reframer's rolling buffer — keeping it here too
// would just be dead state, since the reassembler never produces partial
// application packets itself.
type ConnectionStream struct {
	Endpoint Endpoint

	expectedSeq   uint32
	expectedKnown bool
	pending       map[uint32]pendingSegment
	finSeen       bool
}

func newConnectionStream(ep Endpoint) *ConnectionStream {
	return &ConnectionStream{
		Endpoint: ep,
		pending:  make(map[uint32]pendingSegment),
	}
}

// Connection is a pair of ConnectionStreams plus the atomic close
// condition from spec.md §3.
type Connection struct {
	Key     ConnectionKey
	streams map[Endpoint]*ConnectionStream
}

func newConnection(key ConnectionKey) *Connection {
	return &Connection{
		Key: key,
		streams: map[Endpoint]*ConnectionStream{
			key.A: newConnectionStream(key.A),
			key.B: newConnectionStream(key.B),
		},
	}
}

func (c *Connection) streamFor(ep Endpoint) *ConnectionStream {
	return c.streams[ep]
}

// closed reports whether both directions have seen FIN-ACK. RST is not
// tracked here: Reassembler.Feed drops the connection on RST directly.
func (c *Connection) closed() bool {
	for _, s := range c.streams {
		if !s.finSeen {
			return false
		}
	}
	return true
}
