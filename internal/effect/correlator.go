// Package effect reproduces the client-visible sequence in which an
// action announces its intended effects and later receives per-target
// confirmations (spec.md §4.5).
package effect

import (
	"time"

	"github.com/opcap/opcap/internal/config"
	"github.com/opcap/opcap/internal/dispatch"
	"github.com/opcap/opcap/internal/metrics"
	"github.com/opcap/opcap/internal/types"
)

// Event is a domain-level effect application: a signed HP delta applied to
// target, attributed to source and the action that caused it.
type Event struct {
	Timestamp time.Time
	Source    uint32
	Target    uint32
	Amount    int32 // negative for damage, positive for heal
	ActionID  types.ActionID
}

// PendingEffect correlates one effect announcement with the per-target
// results still outstanding (spec.md §3).
type PendingEffect struct {
	GlobalSequenceID uint32
	Timestamp        time.Time
	Source           uint32
	ActionID         types.ActionID
	EffectsPerTarget map[uint32][]types.ActionEffect
}

// EmitFunc receives each domain effect event as it's resolved.
type EmitFunc func(Event)

// Correlator implements spec.md §4.5. It holds no reference to
// actor.Tracker and never mutates actor state; actors are identified only
// by the IPC header actor ids documented below.
//
// Open Question resolution (see DESIGN.md): effects_per_target is popped
// by the IPC message header's actor id (types.IPCHeader.ActorID), per
// original_source/src/manager/effect_manager.py — not by any field inside
// the EffectResult payload itself.
type Correlator struct {
	pending map[uint32]*PendingEffect
	Emit    EmitFunc
}

// NewCorrelator builds an empty correlator reporting resolved events to
// emit.
func NewCorrelator(emit EmitFunc) *Correlator {
	return &Correlator{pending: make(map[uint32]*PendingEffect), Emit: emit}
}

// Register wires the Effect01/08/16/24/32 announcement family, EffectResult,
// and the ActorControl EffectOverTime/Death sub-dispatches into b.
func (c *Correlator) Register(b *dispatch.Builder, serverDir config.Direction) {
	announce := func(name string, fanOut types.EffectTargetFanOut) {
		dispatch.Register(b, serverDir, []string{name}, func(raw []byte) (types.EffectStub, error) {
			return types.ParseEffectStub(raw, fanOut)
		}, func(bh types.BundleHeader, ih types.IPCHeader, p types.EffectStub) {
			c.onAnnounce(bh, ih, p)
		})
	}
	announce("Effect01", types.FanOut01)
	announce("Effect08", types.FanOut08)
	announce("Effect16", types.FanOut16)
	announce("Effect24", types.FanOut24)
	announce("Effect32", types.FanOut32)

	dispatch.Register(b, serverDir, []string{"EffectResult"}, types.ParseEffectResult, func(bh types.BundleHeader, ih types.IPCHeader, p types.EffectResult) {
		c.onResult(bh, ih, p)
	})

	dispatch.RegisterActorControl(b, types.ActorControlEffectOverTime, func(s types.ActorControlStub) (types.ActorControlEffectOverTimePayload, error) {
		return s.AsEffectOverTime(), nil
	}, func(bh types.BundleHeader, ih types.IPCHeader, p types.ActorControlEffectOverTimePayload) {
		c.onOverTime(bh, ih, p)
	})

	dispatch.RegisterActorControl(b, types.ActorControlDeath, func(s types.ActorControlStub) (types.ActorControlDeathPayload, error) {
		return s.AsDeath(), nil
	}, func(bh types.BundleHeader, ih types.IPCHeader, p types.ActorControlDeathPayload) {
		c.onDeath(ih.ActorID())
	})
}

func (c *Correlator) onAnnounce(bh types.BundleHeader, ih types.IPCHeader, p types.EffectStub) {
	c.pending[p.GlobalSequenceID] = &PendingEffect{
		GlobalSequenceID: p.GlobalSequenceID,
		Timestamp:        time.UnixMilli(int64(bh.Timestamp)),
		Source:           ih.ActorID(), // the announcing message's own header actor id
		ActionID:         p.ActionID,
		EffectsPerTarget: p.EffectsPerTarget,
	}
	metrics.PendingEffects.Set(float64(len(c.pending)))
}

func (c *Correlator) onResult(bh types.BundleHeader, ih types.IPCHeader, p types.EffectResult) {
	pe, ok := c.pending[p.GlobalSequenceID]
	if !ok {
		return // out-of-order or lost announcement: drop silently
	}

	target := ih.ActorID()
	effects, ok := pe.EffectsPerTarget[target]
	if !ok {
		return // EffectResult references a target not in the announcement
	}
	delete(pe.EffectsPerTarget, target)
	if len(pe.EffectsPerTarget) == 0 {
		delete(c.pending, p.GlobalSequenceID)
		metrics.PendingEffects.Set(float64(len(c.pending)))
	}

	ts := time.UnixMilli(int64(bh.Timestamp))
	for _, e := range effects {
		affected := target
		if e.EffectOnSource {
			affected = pe.Source
		}
		switch e.KnownEffectType {
		case types.EffectTypeDamage:
			c.emit(Event{Timestamp: ts, Source: pe.Source, Target: affected, Amount: -e.Value, ActionID: pe.ActionID})
		case types.EffectTypeHeal:
			c.emit(Event{Timestamp: ts, Source: pe.Source, Target: affected, Amount: e.Value, ActionID: pe.ActionID})
		}
	}
}

func (c *Correlator) onOverTime(bh types.BundleHeader, ih types.IPCHeader, p types.ActorControlEffectOverTimePayload) {
	amount := int32(p.Amount)
	switch p.EffectType {
	case types.EffectTypeDamage:
		amount = -amount
	case types.EffectTypeHeal:
		// amount stays positive
	default:
		return
	}
	c.emit(Event{
		Timestamp: time.UnixMilli(int64(bh.Timestamp)),
		Source:    p.SourceActorID,
		Target:    ih.ActorID(),
		Amount:    amount,
	})
}

// onDeath cancels every pending entry announced by the now-dead actor
// (spec.md §4.5: "a death on the source discards all pending entries for
// that source").
func (c *Correlator) onDeath(dyingActorID uint32) {
	for seq, pe := range c.pending {
		if pe.Source == dyingActorID {
			delete(c.pending, seq)
		}
	}
	metrics.PendingEffects.Set(float64(len(c.pending)))
}

func (c *Correlator) emit(e Event) {
	if c.Emit != nil {
		c.Emit(e)
	}
}

// Pending returns the number of effect announcements still awaiting
// results, for tests and CLI progress reporting.
func (c *Correlator) Pending() int { return len(c.pending) }
