package transport

import (
	"reflect"
	"testing"
)

func ep(addr string, port uint16) Endpoint { return Endpoint{Addr: addr, Port: port} }

// TestReassemblyOutOfOrderWithRetransmission mirrors spec.md §8 scenario
// S1: out-of-order segments drain in sequence order once the gap closes,
// and an already-passed sequence number (a retransmission) is ignored.
func TestReassemblyOutOfOrderWithRetransmission(t *testing.T) {
	client, server := ep("10.0.0.1", 51000), ep("10.0.0.2", 6000)

	var got [][]byte
	r := NewReassembler(func(key ConnectionKey, from Endpoint, data []byte) {
		got = append(got, append([]byte(nil), data...))
	}, nil)

	r.Feed(Segment{Src: client, Dst: server, Seq: 1000, NextSeq: 1001, Flags: FlagSYN})

	// Out-of-order arrivals: seq 1011 and 1006 both precede the gap-filler
	// at 1001, so they queue.
	r.Feed(Segment{Src: client, Dst: server, Seq: 1011, NextSeq: 1012, Payload: []byte("!")})
	r.Feed(Segment{Src: client, Dst: server, Seq: 1006, NextSeq: 1011, Payload: []byte("WORLD")})

	// A retransmission of an already-passed sequence number must be
	// ignored once the real gap-filler arrives.
	r.Feed(Segment{Src: client, Dst: server, Seq: 1001, NextSeq: 1006, Payload: []byte("HELLO")})
	r.Feed(Segment{Src: client, Dst: server, Seq: 1001, NextSeq: 1006, Payload: []byte("XXXXX")})

	want := [][]byte{[]byte("HELLOWORLD!")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestReassemblyUnknownExpectedSeqQueuesUntilEstablished(t *testing.T) {
	client, server := ep("10.0.0.1", 51000), ep("10.0.0.2", 6000)

	var got [][]byte
	r := NewReassembler(func(key ConnectionKey, from Endpoint, data []byte) {
		got = append(got, append([]byte(nil), data...))
	}, nil)

	// No SYN observed: the first segment for this stream establishes the
	// baseline expected_seq itself.
	r.Feed(Segment{Src: client, Dst: server, Seq: 500, NextSeq: 505, Payload: []byte("ABCDE")})
	r.Feed(Segment{Src: client, Dst: server, Seq: 505, NextSeq: 508, Payload: []byte("FGH")})

	want := [][]byte{[]byte("ABCDE"), []byte("FGH")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestReassemblyRSTDropsConnection(t *testing.T) {
	client, server := ep("10.0.0.1", 51000), ep("10.0.0.2", 6000)

	r := NewReassembler(func(ConnectionKey, Endpoint, []byte) {}, nil)
	r.Feed(Segment{Src: client, Dst: server, Seq: 1000, NextSeq: 1001, Flags: FlagSYN})
	if r.Connections() != 1 {
		t.Fatalf("expected 1 connection, got %d", r.Connections())
	}
	r.Feed(Segment{Src: client, Dst: server, Seq: 1001, Flags: FlagRST})
	if r.Connections() != 0 {
		t.Fatalf("expected connection to be dropped after RST, got %d", r.Connections())
	}
}

func TestReassemblyFinAckBothDirectionsCloses(t *testing.T) {
	client, server := ep("10.0.0.1", 51000), ep("10.0.0.2", 6000)

	r := NewReassembler(func(ConnectionKey, Endpoint, []byte) {}, nil)
	r.Feed(Segment{Src: client, Dst: server, Seq: 1000, NextSeq: 1001, Flags: FlagSYN})
	r.Feed(Segment{Src: server, Dst: client, Seq: 2000, NextSeq: 2001, Flags: FlagSYN | FlagACK})

	r.Feed(Segment{Src: client, Dst: server, Seq: 1001, NextSeq: 1002, Flags: FlagFIN | FlagACK})
	if r.Connections() != 1 {
		t.Fatalf("connection should remain open after one-sided FIN, got %d conns", r.Connections())
	}

	r.Feed(Segment{Src: server, Dst: client, Seq: 2001, NextSeq: 2002, Flags: FlagFIN | FlagACK})
	if r.Connections() != 0 {
		t.Fatalf("connection should close after both-sided FIN-ACK, got %d conns", r.Connections())
	}
}

func TestReassemblyRetransmissionAfterDrainIsIgnored(t *testing.T) {
	client, server := ep("10.0.0.1", 51000), ep("10.0.0.2", 6000)

	var got []byte
	r := NewReassembler(func(key ConnectionKey, from Endpoint, data []byte) {
		got = append(got, data...)
	}, nil)

	r.Feed(Segment{Src: client, Dst: server, Seq: 100, NextSeq: 105, Payload: []byte("AAAAA")})
	r.Feed(Segment{Src: client, Dst: server, Seq: 100, NextSeq: 105, Payload: []byte("ZZZZZ")})
	r.Feed(Segment{Src: client, Dst: server, Seq: 105, NextSeq: 110, Payload: []byte("BBBBB")})

	if string(got) != "AAAAABBBBB" {
		t.Fatalf("got %q, want AAAAABBBBB", got)
	}
}
