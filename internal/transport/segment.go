// Package transport reconstructs byte-ordered, bidirectional application
// streams from out-of-order TCP segments (spec.md §4.1), tracking
// connection lifecycle via SYN/FIN/RST.
package transport

import "time"

// TCPFlags mirrors the subset of TCP control bits the reassembler cares
// about.
type TCPFlags uint8

const (
	FlagSYN TCPFlags = 1 << iota
	FlagACK
	FlagFIN
	FlagRST
)

func (f TCPFlags) has(bit TCPFlags) bool { return f&bit != 0 }

// Endpoint is one side of a TCP connection.
type Endpoint struct {
	Addr string
	Port uint16
}

// Segment is one captured TCP segment, matching the pcap-like input
// described in spec.md §6: (src, dst, seq, next_seq, flags, payload).
type Segment struct {
	Src, Dst  Endpoint
	Seq       uint32
	NextSeq   uint32
	Flags     TCPFlags
	Payload   []byte
	Timestamp time.Time
}
