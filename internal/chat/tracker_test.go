package chat

import (
	"encoding/binary"
	"testing"

	"github.com/opcap/opcap/internal/actor"
	"github.com/opcap/opcap/internal/bundle"
	"github.com/opcap/opcap/internal/config"
	"github.com/opcap/opcap/internal/dispatch"
	"github.com/opcap/opcap/internal/types"
)

func encodeIPCMessage(opcode uint16, src, dst uint32, payload []byte) []byte {
	size := uint32(types.IPCHeaderSize + len(payload))
	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:4], size)
	binary.LittleEndian.PutUint32(buf[4:8], src)
	binary.LittleEndian.PutUint32(buf[8:12], dst)
	binary.LittleEndian.PutUint16(buf[12:14], uint16(types.MessageTypeIPC))
	binary.LittleEndian.PutUint16(buf[14:16], types.Type1IPC)
	binary.LittleEndian.PutUint16(buf[16:18], opcode)
	copy(buf[types.IPCHeaderSize:], payload)
	return buf
}

func chatPartyPayload(partyID uint32, msg string) []byte {
	buf := make([]byte, 4+4+2+2+32+1024)
	binary.LittleEndian.PutUint32(buf[0:4], partyID)
	copy(buf[4+4+2+2+32:], msg)
	return buf
}

func TestChatPartyMatchesCurrentPartyIsPartyChannel(t *testing.T) {
	rev := config.Default()
	b := dispatch.NewBuilder(rev)
	tr := actor.NewTracker()
	tr.PartyID = 55

	var got []Record
	ct := NewTracker(tr, func(r Record) { got = append(got, r) })
	ct.Register(b, config.DirectionServer, config.DirectionClient)
	d := b.Build()

	op, _ := rev.OpcodeFor(config.DirectionServer, "ChatParty")
	msg := encodeIPCMessage(op, 1, 0, chatPartyPayload(55, "hi"))
	d.Dispatch(config.DirectionServer, bundle.Bundle{Body: msg})

	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].Channel != ChannelParty {
		t.Fatalf("expected Party channel, got %v", got[0].Channel)
	}
}

func TestChatPartyMismatchedIDAliasesToFreeCompany(t *testing.T) {
	rev := config.Default()
	b := dispatch.NewBuilder(rev)
	tr := actor.NewTracker()
	tr.PartyID = 55

	var got []Record
	ct := NewTracker(tr, func(r Record) { got = append(got, r) })
	ct.Register(b, config.DirectionServer, config.DirectionClient)
	d := b.Build()

	op, _ := rev.OpcodeFor(config.DirectionServer, "ChatParty")
	msg := encodeIPCMessage(op, 1, 0, chatPartyPayload(99, "hi"))
	d.Dispatch(config.DirectionServer, bundle.Bundle{Body: msg})

	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].Channel != ChannelFreeCompany {
		t.Fatalf("expected FreeCompany channel for mismatched party id, got %v", got[0].Channel)
	}
}

func requestChatPartyPayload(partyID uint32, msg string) []byte {
	buf := make([]byte, 4+1024)
	binary.LittleEndian.PutUint32(buf[0:4], partyID)
	copy(buf[4:], msg)
	return buf
}

func TestRequestChatPartyMismatchedIDAliasesToFreeCompany(t *testing.T) {
	rev := config.Default()
	b := dispatch.NewBuilder(rev)
	tr := actor.NewTracker()
	tr.PartyID = 55

	var got []Record
	ct := NewTracker(tr, func(r Record) { got = append(got, r) })
	ct.Register(b, config.DirectionServer, config.DirectionClient)
	d := b.Build()

	op, ok := rev.OpcodeFor(config.DirectionClient, "RequestChatParty")
	if !ok {
		t.Fatal("RequestChatParty not in default revision")
	}
	msg := encodeIPCMessage(op, 1, 0, requestChatPartyPayload(99, "hi"))
	d.Dispatch(config.DirectionClient, bundle.Bundle{Body: msg})

	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].Channel != ChannelFreeCompany {
		t.Fatalf("expected FreeCompany channel for mismatched party id, got %v", got[0].Channel)
	}
}

func TestRequestTellSynthesizesFromLoggedInActor(t *testing.T) {
	rev := config.Default()
	b := dispatch.NewBuilder(rev)
	tr := actor.NewTracker()

	var got []Record
	ct := NewTracker(tr, func(r Record) { got = append(got, r) })
	tr.Register(b, config.DirectionServer, config.DirectionClient)
	ct.Register(b, config.DirectionServer, config.DirectionClient)
	d := b.Build()

	// Latch the login actor id via any server IPC first (actor tracker's
	// wildcard handler).
	statsOp, _ := rev.OpcodeFor(config.DirectionServer, "ActorStats")
	d.Dispatch(config.DirectionServer, bundle.Bundle{Body: encodeIPCMessage(statsOp, 7, 7, make([]byte, 8))})

	tellOp, ok := rev.OpcodeFor(config.DirectionClient, "RequestTell")
	if !ok {
		t.Fatal("RequestTell not in default revision")
	}
	payload := make([]byte, 2+2+32+1024)
	copy(payload[4:4+32], "Target")
	copy(payload[4+32:], "hello there")
	d.Dispatch(config.DirectionClient, bundle.Bundle{Body: encodeIPCMessage(tellOp, 1, 2, payload)})

	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if !got[0].HasFromActor || got[0].FromActorID != 7 {
		t.Fatalf("expected from actor id 7, got %+v", got[0])
	}
	if got[0].Channel != ChannelTell {
		t.Fatalf("expected Tell channel, got %v", got[0].Channel)
	}
}
