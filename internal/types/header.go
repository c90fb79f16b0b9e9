// Package types defines the wire-level structures of the captured protocol:
// bundle and message envelopes, and the fixed-layout IPC payload schemas
// carried inside them. Every type here is decoded from a byte slice with
// explicit bounds checks; none of it retains a reference to the backing
// buffer after Parse returns.
package types

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrShortBuffer is returned by any Parse function when the input slice is
// too small to contain the structure being decoded.
var ErrShortBuffer = errors.New("opcap/types: buffer too short")

const (
	// BundleHeaderSize is the fixed size in bytes of BundleHeader on the wire.
	BundleHeaderSize = 16 + 4 + 8 + 2 + 2 + 2 // signature, size, timestamp, flags, messageCount, padding

	// MessageHeaderSize is the fixed size of the common message header.
	MessageHeaderSize = 4 + 4 + 4 + 2 + 2 // size, sourceActorID, targetActorID, type, then two bytes that hold type1 in an IPC message

	// IPCHeaderExtraSize is the size of the fields appended to MessageHeader
	// when the message type is MessageTypeIPC.
	IPCHeaderExtraSize = 2 + 2 + 4 + 2 // opcode, padding, serverEpoch, padding

	// IPCHeaderSize is MessageHeaderSize + IPCHeaderExtraSize.
	IPCHeaderSize = MessageHeaderSize + IPCHeaderExtraSize
)

// MessageType identifies the kind of payload a message envelope carries.
type MessageType uint16

const (
	MessageTypeIPC        MessageType = 0x0003
	MessageTypeKeepAlive  MessageType = 0x0007
	MessageTypeKeepAliveAck MessageType = 0x0008
)

// BundleFlags carries per-bundle boolean options.
type BundleFlags uint16

// FlagDeflated reports whether the bundle body is zlib-deflated.
const FlagDeflated BundleFlags = 0x01

func (f BundleFlags) Deflated() bool { return f&FlagDeflated != 0 }

// SignatureV1 and SignatureV2 are the two magic byte sequences this revision
// of the protocol accepts at the start of a bundle. Both are
// protocol-revision-specific and kept here only as compiled-in defaults;
// config.Revision can carry a different pair when decoding an older or
// newer capture.
var (
	SignatureV1 = [16]byte{0x52, 0x28, 0x1A, 0x45, 0x0C, 0xF6, 0x8B, 0x3D, 0x6E, 0x9A, 0x11, 0x72, 0x4F, 0xC3, 0x55, 0x08}
	SignatureV2 = [16]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xFF, 0xFF, 0xFF, 0xFF}
)

// BundleHeader is the fixed header at the start of every bundle.
type BundleHeader struct {
	Signature    [16]byte
	Size         uint32
	Timestamp    uint64 // milliseconds since UNIX epoch
	Flags        BundleFlags
	MessageCount uint16
}

// MatchesSignature reports whether h.Signature is one of the two accepted
// constants for the given revision signatures.
func (h BundleHeader) MatchesSignature(sig1, sig2 [16]byte) bool {
	return h.Signature == sig1 || h.Signature == sig2
}

// ParseBundleHeader decodes a BundleHeader from the start of buf.
func ParseBundleHeader(buf []byte) (BundleHeader, error) {
	var h BundleHeader
	if len(buf) < BundleHeaderSize {
		return h, ErrShortBuffer
	}
	copy(h.Signature[:], buf[0:16])
	h.Size = binary.LittleEndian.Uint32(buf[16:20])
	h.Timestamp = binary.LittleEndian.Uint64(buf[20:28])
	h.Flags = BundleFlags(binary.LittleEndian.Uint16(buf[28:30]))
	h.MessageCount = binary.LittleEndian.Uint16(buf[30:32])
	return h, nil
}

// MessageHeader is the common header shared by every message in a bundle
// body, regardless of type.
type MessageHeader struct {
	Size           uint32
	SourceActorID  uint32
	TargetActorID  uint32
	Type           MessageType
}

// ParseMessageHeader decodes the common header at the start of buf.
func ParseMessageHeader(buf []byte) (MessageHeader, error) {
	var h MessageHeader
	if len(buf) < MessageHeaderSize {
		return h, ErrShortBuffer
	}
	h.Size = binary.LittleEndian.Uint32(buf[0:4])
	h.SourceActorID = binary.LittleEndian.Uint32(buf[4:8])
	h.TargetActorID = binary.LittleEndian.Uint32(buf[8:12])
	h.Type = MessageType(binary.LittleEndian.Uint16(buf[12:14]))
	return h, nil
}

// IPCHeader extends MessageHeader with the fields present when
// Type == MessageTypeIPC.
type IPCHeader struct {
	MessageHeader
	Type1       uint16
	Opcode      uint16
	ServerEpoch uint32
}

// Type1IPC is the required value of IPCHeader.Type1 for a well-formed IPC
// message.
const Type1IPC = 0x14

// ParseIPCHeader decodes the extended IPC header at the start of buf. The
// caller must have already confirmed MessageHeader.Type == MessageTypeIPC.
func ParseIPCHeader(buf []byte) (IPCHeader, error) {
	var h IPCHeader
	mh, err := ParseMessageHeader(buf)
	if err != nil {
		return h, err
	}
	if len(buf) < IPCHeaderSize {
		return h, ErrShortBuffer
	}
	h.MessageHeader = mh
	h.Type1 = binary.LittleEndian.Uint16(buf[14:16])
	h.Opcode = binary.LittleEndian.Uint16(buf[16:18])
	h.ServerEpoch = binary.LittleEndian.Uint32(buf[20:24])
	return h, nil
}

// ActorID returns the actor a message concerns: the message header's
// source actor id. Most per-actor IPC handlers key off this.
func (h IPCHeader) ActorID() uint32 { return h.SourceActorID }

// LoginActorID returns the locally logged-in character's actor id, carried
// on every IPC message as the target actor id. The actor tracker latches
// this from the first observed IPC (spec.md §4.4, InitZone rule).
func (h IPCHeader) LoginActorID() uint32 { return h.TargetActorID }

// PayloadBytes returns the IPC payload slice for a message whose header
// starts at buf[0]: the bytes from the end of the header to the declared
// message size.
func PayloadBytes(buf []byte, size uint32) ([]byte, error) {
	if uint32(len(buf)) < size || size < IPCHeaderSize {
		return nil, ErrShortBuffer
	}
	return buf[IPCHeaderSize:size], nil
}
