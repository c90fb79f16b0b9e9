package effect

import (
	"testing"

	"github.com/opcap/opcap/internal/types"
)

func TestEffectCorrelationEmitsOnePerTargetResult(t *testing.T) {
	var events []Event
	c := NewCorrelator(func(e Event) { events = append(events, e) })

	c.onAnnounce(types.BundleHeader{Timestamp: 1000}, types.IPCHeader{MessageHeader: types.MessageHeader{SourceActorID: 1}}, types.EffectStub{
		ActionID:         777,
		GlobalSequenceID: 42,
		EffectsPerTarget: map[uint32][]types.ActionEffect{
			10: {{KnownEffectType: types.EffectTypeDamage, Value: 100}},
			20: {{KnownEffectType: types.EffectTypeDamage, Value: 50}},
		},
	})

	if c.Pending() != 1 {
		t.Fatalf("expected 1 pending entry, got %d", c.Pending())
	}

	c.onResult(types.BundleHeader{Timestamp: 1001}, types.IPCHeader{MessageHeader: types.MessageHeader{SourceActorID: 10}}, types.EffectResult{GlobalSequenceID: 42})
	if len(events) != 1 {
		t.Fatalf("expected 1 event after first result, got %d", len(events))
	}
	if events[0].Amount != -100 {
		t.Fatalf("expected damage amount -100, got %d", events[0].Amount)
	}
	if events[0].ActionID != 777 {
		t.Fatalf("expected action id 777 carried from announcement, got %d", events[0].ActionID)
	}
	if c.Pending() != 1 {
		t.Fatalf("expected pending entry to survive partial result, got %d pending", c.Pending())
	}

	c.onResult(types.BundleHeader{Timestamp: 1002}, types.IPCHeader{MessageHeader: types.MessageHeader{SourceActorID: 20}}, types.EffectResult{GlobalSequenceID: 42})
	if len(events) != 2 {
		t.Fatalf("expected 2 events total, got %d", len(events))
	}
	if c.Pending() != 0 {
		t.Fatalf("expected pending entry removed once all targets resolved, got %d", c.Pending())
	}
}

func TestEffectResultUnknownSeqIDDroppedSilently(t *testing.T) {
	var events []Event
	c := NewCorrelator(func(e Event) { events = append(events, e) })

	c.onResult(types.BundleHeader{}, types.IPCHeader{MessageHeader: types.MessageHeader{SourceActorID: 10}}, types.EffectResult{GlobalSequenceID: 999})

	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestEffectResultUnknownTargetDroppedSilently(t *testing.T) {
	var events []Event
	c := NewCorrelator(func(e Event) { events = append(events, e) })

	c.onAnnounce(types.BundleHeader{}, types.IPCHeader{MessageHeader: types.MessageHeader{SourceActorID: 1}}, types.EffectStub{
		GlobalSequenceID: 1,
		EffectsPerTarget: map[uint32][]types.ActionEffect{10: {{KnownEffectType: types.EffectTypeDamage, Value: 1}}},
	})
	c.onResult(types.BundleHeader{}, types.IPCHeader{MessageHeader: types.MessageHeader{SourceActorID: 999}}, types.EffectResult{GlobalSequenceID: 1})

	if len(events) != 0 {
		t.Fatalf("expected no events for unknown target, got %d", len(events))
	}
	if c.Pending() != 1 {
		t.Fatalf("expected pending entry to remain since target 10 wasn't resolved, got %d", c.Pending())
	}
}

func TestDeathCancelsPendingEntriesFromSource(t *testing.T) {
	var events []Event
	c := NewCorrelator(func(e Event) { events = append(events, e) })

	c.onAnnounce(types.BundleHeader{}, types.IPCHeader{MessageHeader: types.MessageHeader{SourceActorID: 5}}, types.EffectStub{
		GlobalSequenceID: 1,
		EffectsPerTarget: map[uint32][]types.ActionEffect{10: {{KnownEffectType: types.EffectTypeDamage, Value: 1}}},
	})
	c.onAnnounce(types.BundleHeader{}, types.IPCHeader{MessageHeader: types.MessageHeader{SourceActorID: 6}}, types.EffectStub{
		GlobalSequenceID: 2,
		EffectsPerTarget: map[uint32][]types.ActionEffect{11: {{KnownEffectType: types.EffectTypeDamage, Value: 1}}},
	})

	c.onDeath(5)

	if c.Pending() != 1 {
		t.Fatalf("expected only source-6's pending entry to survive, got %d pending", c.Pending())
	}
	if _, ok := c.pending[1]; ok {
		t.Fatal("expected pending entry for dead source to be removed")
	}
	if _, ok := c.pending[2]; !ok {
		t.Fatal("expected pending entry for surviving source to remain")
	}
}

func TestEffectOverTimeEmitsSignedAmount(t *testing.T) {
	var events []Event
	c := NewCorrelator(func(e Event) { events = append(events, e) })

	c.onOverTime(types.BundleHeader{}, types.IPCHeader{MessageHeader: types.MessageHeader{SourceActorID: 77}}, types.ActorControlEffectOverTimePayload{
		EffectType:    types.EffectTypeHeal,
		Amount:        25,
		SourceActorID: 1,
	})

	if len(events) != 1 || events[0].Amount != 25 || events[0].Target != 77 {
		t.Fatalf("unexpected events: %+v", events)
	}
}
