package bundle

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"testing"

	"github.com/opcap/opcap/internal/config"
	"github.com/opcap/opcap/internal/transport"
	"github.com/opcap/opcap/internal/types"
)

func encodeBundleHeader(sig [16]byte, size uint32, flags types.BundleFlags, msgCount uint16) []byte {
	buf := make([]byte, types.BundleHeaderSize)
	copy(buf[0:16], sig[:])
	binary.LittleEndian.PutUint32(buf[16:20], size)
	binary.LittleEndian.PutUint16(buf[28:30], uint16(flags))
	binary.LittleEndian.PutUint16(buf[30:32], msgCount)
	return buf
}

func encodeMessageHeader(size uint32, src, dst uint32, typ types.MessageType) []byte {
	buf := make([]byte, types.MessageHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], size)
	binary.LittleEndian.PutUint32(buf[4:8], src)
	binary.LittleEndian.PutUint32(buf[8:12], dst)
	binary.LittleEndian.PutUint16(buf[12:14], uint16(typ))
	return buf
}

// plainBundle builds one un-deflated bundle containing a single
// MessageTypeKeepAlive message of no extra payload.
func plainBundle(rev *config.Revision) []byte {
	msg := encodeMessageHeader(uint32(types.MessageHeaderSize), 1, 2, types.MessageTypeKeepAlive)
	size := uint32(types.BundleHeaderSize + len(msg))
	hdr := encodeBundleHeader(rev.Signature1, size, 0, 1)
	return append(hdr, msg...)
}

func TestReframerExtractsFramedBundle(t *testing.T) {
	rev := config.Default()
	key := transport.ConnectionKey{A: transport.Endpoint{Addr: "a", Port: 1}, B: transport.Endpoint{Addr: "b", Port: 2}}
	from := key.A

	var got []Emitted
	rf := NewReframer(rev, func(transport.ConnectionKey, transport.Endpoint) config.Direction { return config.DirectionServer }, func(e Emitted) {
		got = append(got, e)
	}, nil)

	b := plainBundle(rev)
	rf.Feed(key, from, b)

	if len(got) != 1 {
		t.Fatalf("expected 1 bundle emitted, got %d", len(got))
	}
	if got[0].Bundle.Header.MessageCount != 1 {
		t.Fatalf("expected message count 1, got %d", got[0].Bundle.Header.MessageCount)
	}
	msgs, err := Messages(got[0].Bundle.Body)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 split message, got %d", len(msgs))
	}
}

func TestReframerSplitsAcrossTwoFeeds(t *testing.T) {
	rev := config.Default()
	key := transport.ConnectionKey{A: transport.Endpoint{Addr: "a", Port: 1}, B: transport.Endpoint{Addr: "b", Port: 2}}
	from := key.A

	var got []Emitted
	rf := NewReframer(rev, func(transport.ConnectionKey, transport.Endpoint) config.Direction { return config.DirectionServer }, func(e Emitted) {
		got = append(got, e)
	}, nil)

	b := plainBundle(rev)
	rf.Feed(key, from, b[:10])
	if len(got) != 0 {
		t.Fatalf("expected no bundle emitted on partial header, got %d", len(got))
	}
	rf.Feed(key, from, b[10:])
	if len(got) != 1 {
		t.Fatalf("expected 1 bundle emitted once complete, got %d", len(got))
	}
}

func TestReframerResyncsOnBadSignature(t *testing.T) {
	rev := config.Default()
	key := transport.ConnectionKey{A: transport.Endpoint{Addr: "a", Port: 1}, B: transport.Endpoint{Addr: "b", Port: 2}}
	from := key.A

	var got []Emitted
	rf := NewReframer(rev, func(transport.ConnectionKey, transport.Endpoint) config.Direction { return config.DirectionServer }, func(e Emitted) {
		got = append(got, e)
	}, nil)

	noise := []byte{0x01, 0x02, 0x03}
	b := append(noise, plainBundle(rev)...)
	rf.Feed(key, from, b)

	if len(got) != 1 {
		t.Fatalf("expected 1 bundle emitted after resync, got %d", len(got))
	}
}

func TestReframerInflatesDeflatedBody(t *testing.T) {
	rev := config.Default()
	key := transport.ConnectionKey{A: transport.Endpoint{Addr: "a", Port: 1}, B: transport.Endpoint{Addr: "b", Port: 2}}
	from := key.A

	msg := encodeMessageHeader(uint32(types.MessageHeaderSize), 1, 2, types.MessageTypeKeepAlive)

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	zw.Write(msg)
	zw.Close()

	size := uint32(types.BundleHeaderSize + compressed.Len())
	hdr := encodeBundleHeader(rev.Signature1, size, types.FlagDeflated, 1)
	b := append(hdr, compressed.Bytes()...)

	var got []Emitted
	rf := NewReframer(rev, func(transport.ConnectionKey, transport.Endpoint) config.Direction { return config.DirectionServer }, func(e Emitted) {
		got = append(got, e)
	}, nil)
	rf.Feed(key, from, b)

	if len(got) != 1 {
		t.Fatalf("expected 1 bundle emitted, got %d", len(got))
	}
	if !bytes.Equal(got[0].Bundle.Body, msg) {
		t.Fatalf("inflated body mismatch: got %x want %x", got[0].Bundle.Body, msg)
	}
}

func TestReframerDropsOnInflateFailure(t *testing.T) {
	rev := config.Default()
	key := transport.ConnectionKey{A: transport.Endpoint{Addr: "a", Port: 1}, B: transport.Endpoint{Addr: "b", Port: 2}}
	from := key.A

	garbage := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	size := uint32(types.BundleHeaderSize + len(garbage))
	hdr := encodeBundleHeader(rev.Signature1, size, types.FlagDeflated, 1)
	b := append(hdr, garbage...)

	var got []Emitted
	rf := NewReframer(rev, func(transport.ConnectionKey, transport.Endpoint) config.Direction { return config.DirectionServer }, func(e Emitted) {
		got = append(got, e)
	}, nil)
	rf.Feed(key, from, b)

	if len(got) != 0 {
		t.Fatalf("expected 0 bundles emitted on inflate failure, got %d", len(got))
	}
}
