package types

import "encoding/binary"

// ChatType mirrors the wire chat channel codes; the chat tracker maps a
// subset of these to its normalized ChatRecord.Channel.
type ChatType uint16

const (
	ChatTypeSay    ChatType = 0x0A
	ChatTypeShout  ChatType = 0x0B
	ChatTypeParty  ChatType = 0x0E
	ChatTypeFC     ChatType = 0x18
	ChatTypeTell   ChatType = 0x0C
	ChatTypeYell   ChatType = 0x1E
)

const chatMessageSize = 1024

// Chat is the IPC payload for the Chat opcode.
type Chat struct {
	ChatType    ChatType
	CharacterID uint32
	WorldID     uint16
	Name        string
	Message     string
}

func ParseChat(buf []byte) (Chat, error) {
	var p Chat
	const fixed = 2 + 2 /*pad*/ + 4 + 2 + 2 /*pad*/
	if len(buf) < fixed+nameFieldSize+chatMessageSize {
		return p, ErrShortBuffer
	}
	off := 0
	p.ChatType = ChatType(binary.LittleEndian.Uint16(buf[off:]))
	off += 4
	p.CharacterID = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	p.WorldID = binary.LittleEndian.Uint16(buf[off:])
	off += 4
	p.Name = readFixedString(buf[off : off+nameFieldSize])
	off += nameFieldSize
	p.Message = readFixedString(buf[off : off+chatMessageSize])
	return p, nil
}

// ChatParty is the IPC payload for ChatParty.
type ChatParty struct {
	PartyID     uint32
	CharacterID uint32
	WorldID     uint16
	Name        string
	Message     string
}

func ParseChatParty(buf []byte) (ChatParty, error) {
	var p ChatParty
	const fixed = 4 + 4 + 2 + 2 /*pad*/
	if len(buf) < fixed+nameFieldSize+chatMessageSize {
		return p, ErrShortBuffer
	}
	off := 0
	p.PartyID = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	p.CharacterID = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	p.WorldID = binary.LittleEndian.Uint16(buf[off:])
	off += 4
	p.Name = readFixedString(buf[off : off+nameFieldSize])
	off += nameFieldSize
	p.Message = readFixedString(buf[off : off+chatMessageSize])
	return p, nil
}

// ChatTell is the IPC payload for ChatTell: a received /tell.
type ChatTell struct {
	WorldID uint16
	Name    string
	Message string
}

func ParseChatTell(buf []byte) (ChatTell, error) {
	var p ChatTell
	const fixed = 2 + 2 /*pad*/
	if len(buf) < fixed+nameFieldSize+chatMessageSize {
		return p, ErrShortBuffer
	}
	off := 0
	p.WorldID = binary.LittleEndian.Uint16(buf[off:])
	off += fixed
	p.Name = readFixedString(buf[off : off+nameFieldSize])
	off += nameFieldSize
	p.Message = readFixedString(buf[off : off+chatMessageSize])
	return p, nil
}

// RequestChat is the client-direction payload for RequestChat.
type RequestChat struct {
	ChatType ChatType
	Message  string
}

func ParseRequestChat(buf []byte) (RequestChat, error) {
	var p RequestChat
	const fixed = 2 + 2 /*pad*/
	if len(buf) < fixed+chatMessageSize {
		return p, ErrShortBuffer
	}
	p.ChatType = ChatType(binary.LittleEndian.Uint16(buf[0:2]))
	p.Message = readFixedString(buf[fixed : fixed+chatMessageSize])
	return p, nil
}

// RequestChatParty is the client-direction payload for RequestChatParty.
type RequestChatParty struct {
	PartyID uint32
	Message string
}

func ParseRequestChatParty(buf []byte) (RequestChatParty, error) {
	var p RequestChatParty
	const fixed = 4
	if len(buf) < fixed+chatMessageSize {
		return p, ErrShortBuffer
	}
	p.PartyID = binary.LittleEndian.Uint32(buf[0:4])
	p.Message = readFixedString(buf[fixed : fixed+chatMessageSize])
	return p, nil
}

// RequestTell is the client-direction payload for RequestTell.
type RequestTell struct {
	WorldID    uint16
	TargetName string
	Message    string
}

func ParseRequestTell(buf []byte) (RequestTell, error) {
	var p RequestTell
	const fixed = 2 + 2 /*pad*/
	if len(buf) < fixed+nameFieldSize+chatMessageSize {
		return p, ErrShortBuffer
	}
	off := 0
	p.WorldID = binary.LittleEndian.Uint16(buf[off:])
	off += fixed
	p.TargetName = readFixedString(buf[off : off+nameFieldSize])
	off += nameFieldSize
	p.Message = readFixedString(buf[off : off+chatMessageSize])
	return p, nil
}

// RequestMove and RequestMoveInstance are client-direction position
// updates; they share ActorPositionUpdate's layout and its parser
// (spec.md §4.4).
type RequestMove = ActorPositionUpdate
type RequestMoveInstance = ActorPositionUpdate
