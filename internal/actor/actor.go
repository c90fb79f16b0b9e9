// Package actor maintains the actor table: the single source of truth for
// actor state that the effect correlator and chat tracker read but never
// mutate (spec.md §5, "Shared-resource policy").
package actor

import (
	"time"

	"github.com/opcap/opcap/internal/types"
)

// StatusEffect is one addressable status-effect slot on an Actor
// (spec.md §3).
type StatusEffect struct {
	EffectID      uint16
	Param         uint16
	Expiry        time.Time // zero value means "never"
	SourceActorID uint32
}

// Never reports whether the slot's expiry is the "never expires" sentinel.
func (s StatusEffect) Never() bool { return s.Expiry.IsZero() }

// Actor is the mutable per-actor record (spec.md §3). Every field besides
// ID is optional until some opcode sets it.
type Actor struct {
	ID uint32

	SpawnID      uint32
	HomeWorldID  uint16
	X, Y, Z      float32
	Rotation     float32
	HP, MaxHP    uint32
	MP, MaxMP    uint16
	OwnerID      uint32
	Name         string
	ZoneID       uint16
	BNPCNameID   uint32
	ClassOrJob   uint8
	Level        uint8
	SyncedLevel  uint8
	ShieldRatio  float64 // [0,1]
	Aggroed      bool
	LastUpdated  time.Time

	StatusEffects []StatusEffect

	// OutgoingEnmity maps target actor id to an enmity percent, from the
	// most recent AggroList.
	OutgoingEnmity map[uint32]uint8
}

func newActor(id uint32) *Actor {
	return &Actor{ID: id, OutgoingEnmity: make(map[uint32]uint8)}
}

// growSlots grows a.StatusEffects to at least i+1, filling newly created
// slots with the neutral zero value (spec.md §3: "sparse-growable").
func (a *Actor) growSlots(i int) {
	for len(a.StatusEffects) <= i {
		a.StatusEffects = append(a.StatusEffects, StatusEffect{})
	}
}

func (a *Actor) setSlotFromWire(i int, w types.StatusEffectWire, now time.Time) {
	a.growSlots(i)
	s := StatusEffect{EffectID: w.EffectID, Param: w.Param, SourceActorID: w.SourceActorID}
	if w.Duration > 0 {
		s.Expiry = now.Add(time.Duration(w.Duration * float32(time.Second)))
	}
	a.StatusEffects[i] = s
}

func (a *Actor) setSlotFromModification(m types.StatusEffectModificationInfo, now time.Time) {
	i := int(m.Index)
	a.growSlots(i)
	s := StatusEffect{EffectID: m.EffectID, Param: m.Param, SourceActorID: m.SourceActorID}
	if m.Duration > 0 {
		s.Expiry = now.Add(time.Duration(m.Duration * float32(time.Second)))
	}
	a.StatusEffects[i] = s
}

func (a *Actor) replaceSlotsFromList(list []types.StatusEffectWire, now time.Time) {
	for i, w := range list {
		a.setSlotFromWire(i, w, now)
	}
}
