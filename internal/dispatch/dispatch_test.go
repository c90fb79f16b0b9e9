package dispatch

import (
	"encoding/binary"
	"testing"

	"github.com/opcap/opcap/internal/bundle"
	"github.com/opcap/opcap/internal/config"
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

func TestDispatchInvokesRegisteredHandlerOnce(t *testing.T) {
	rev := config.Default()
	op, ok := rev.OpcodeFor(config.DirectionServer, "ActorDespawn")
	if !ok {
		t.Fatal("ActorDespawn not in default revision")
	}

	b := NewBuilder(rev)
	calls := 0
	var lastPayload types.ActorDespawn
	decode := func(raw []byte) (types.ActorDespawn, error) { return types.ParseActorDespawn(raw) }
	Register(b, config.DirectionServer, []string{"ActorDespawn"}, decode, func(bh types.BundleHeader, ih types.IPCHeader, v types.ActorDespawn) {
		calls++
		lastPayload = v
	})
	Register(b, config.DirectionServer, []string{"ActorDespawn"}, decode, func(bh types.BundleHeader, ih types.IPCHeader, v types.ActorDespawn) {
		calls++
	})
	d := b.Build()

	payload := make([]byte, 8)
	binary.LittleEndian.PutUint32(payload[4:8], 777)
	msg := encodeIPCMessage(op, 1, 2, payload)

	err := d.Dispatch(config.DirectionServer, bundle.Bundle{Body: msg})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 handler invocations, got %d", calls)
	}
	if lastPayload.SpawnID != 777 {
		t.Fatalf("expected SpawnID 777, got %d", lastPayload.SpawnID)
	}
}

func TestDispatchWildcardSeesEveryIPCMessage(t *testing.T) {
	rev := config.Default()
	op, _ := rev.OpcodeFor(config.DirectionServer, "ActorDespawn")

	b := NewBuilder(rev)
	var seen int
	RegisterWildcard(b, config.DirectionServer, func(types.BundleHeader, types.IPCHeader, []byte) {
		seen++
	})
	d := b.Build()

	msg := encodeIPCMessage(op, 1, 2, make([]byte, 4))
	d.Dispatch(config.DirectionServer, bundle.Bundle{Body: msg})

	if seen != 1 {
		t.Fatalf("expected wildcard to see 1 message, got %d", seen)
	}
}

func TestDispatchUnknownOpcodeSkipped(t *testing.T) {
	rev := config.Default()
	b := NewBuilder(rev)
	d := b.Build()

	msg := encodeIPCMessage(0xFFFF, 1, 2, nil)
	if err := d.Dispatch(config.DirectionServer, bundle.Bundle{Body: msg}); err != nil {
		t.Fatalf("Dispatch should not error on unknown opcode: %v", err)
	}
}

func TestDispatchActorControlRoutesByCategory(t *testing.T) {
	rev := config.Default()
	op, ok := rev.OpcodeFor(config.DirectionServer, "ActorControl")
	if !ok {
		t.Fatal("ActorControl not in default revision")
	}

	b := NewBuilder(rev)
	b.ActorControlOpcodeNames("ActorControl", "ActorControlSelf", "ActorControlTarget")

	var gotDeath bool
	RegisterActorControl(b, types.ActorControlDeath, func(s types.ActorControlStub) (types.ActorControlDeathPayload, error) {
		return s.AsDeath(), nil
	}, func(bh types.BundleHeader, ih types.IPCHeader, v types.ActorControlDeathPayload) {
		gotDeath = true
	})
	d := b.Build()

	stub := make([]byte, 16)
	binary.LittleEndian.PutUint16(stub[0:2], uint16(types.ActorControlDeath))
	msg := encodeIPCMessage(op, 1, 2, stub)

	d.Dispatch(config.DirectionServer, bundle.Bundle{Body: msg})
	if !gotDeath {
		t.Fatal("expected death handler to fire")
	}
}
