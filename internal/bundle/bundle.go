// Package bundle reframes a reassembled byte stream into discrete
// application packets ("bundles") and splits each bundle's body into its
// constituent messages (spec.md §4.2).
package bundle

import (
	"github.com/opcap/opcap/internal/types"
)

// Bundle is one fully-framed, already-inflated application packet, ready
// for the dispatcher.
type Bundle struct {
	Header types.BundleHeader
	Body   []byte
}

// Message is one message slice located within a Bundle's body, still
// carrying its own header at the front.
type Message struct {
	Header types.MessageHeader
	Raw    []byte // header + payload, exactly Header.Size bytes
}

// Messages splits a bundle's inflated body into its constituent messages,
// per spec.md §3: "sum(message.size) == body_length; violation is a decode
// error."
func Messages(body []byte) ([]Message, error) {
	var out []Message
	off := 0
	for off < len(body) {
		mh, err := types.ParseMessageHeader(body[off:])
		if err != nil {
			return nil, err
		}
		if mh.Size < types.MessageHeaderSize || off+int(mh.Size) > len(body) {
			return nil, types.ErrShortBuffer
		}
		out = append(out, Message{
			Header: mh,
			Raw:    body[off : off+int(mh.Size)],
		})
		off += int(mh.Size)
	}
	return out, nil
}
