package types

import "encoding/binary"

// EffectTargetFanOut is the maximum number of per-target effect lists an
// Effect* opcode variant carries; the variant name (Effect01/08/16/24/32)
// names exactly this limit.
type EffectTargetFanOut int

const (
	FanOut01 EffectTargetFanOut = 1
	FanOut08 EffectTargetFanOut = 8
	FanOut16 EffectTargetFanOut = 16
	FanOut24 EffectTargetFanOut = 24
	FanOut32 EffectTargetFanOut = 32
)

// effectsPerTargetEntrySize is the fixed size of one target's effect-list
// slot: a target actor id, an entry count, and up to 8 ActionEffect
// entries (unused slots carry KnownEffectType == EffectTypeUnknown).
const actionEffectsPerTarget = 8

const effectsPerTargetEntrySize = 4 + 4 /*pad+count*/ + actionEffectsPerTarget*actionEffectSize

// ActionID identifies the ability/spell/weaponskill an effect announcement
// originated from.
type ActionID uint32

// EffectStub is the common payload shape of the Effect01/08/16/24/32
// opcode family: an announced action, its global sequence id, and the
// per-target effect lists the effect correlator will later match against
// EffectResult messages.
type EffectStub struct {
	ActionID               ActionID
	GlobalSequenceID       uint32
	TargetCount            uint16
	EffectsPerTarget       map[uint32][]ActionEffect
}

// ParseEffectStub decodes an EffectStub payload with the given target
// fan-out (the wire layout differs only in how many per-target slots are
// present).
func ParseEffectStub(buf []byte, fanOut EffectTargetFanOut) (EffectStub, error) {
	var p EffectStub
	const fixed = 4 + 4 + 2 + 2 /*pad*/
	n := int(fanOut)
	if len(buf) < fixed+n*effectsPerTargetEntrySize {
		return p, ErrShortBuffer
	}
	p.ActionID = ActionID(binary.LittleEndian.Uint32(buf[0:4]))
	p.GlobalSequenceID = binary.LittleEndian.Uint32(buf[4:8])
	p.TargetCount = binary.LittleEndian.Uint16(buf[8:10])

	p.EffectsPerTarget = make(map[uint32][]ActionEffect, n)
	off := fixed
	for i := 0; i < n; i++ {
		entryOff := off + i*effectsPerTargetEntrySize
		targetID := binary.LittleEndian.Uint32(buf[entryOff:])
		count := buf[entryOff+4]
		effects, err := ParseActionEffectList(buf[entryOff+8:], int(count))
		if err != nil {
			return p, err
		}
		if len(effects) == 0 {
			continue
		}
		if targetID == 0 {
			continue
		}
		p.EffectsPerTarget[targetID] = effects
	}
	return p, nil
}

// ActorControlCategory is the nested 16-bit discriminator carried by every
// ActorControl/ActorControlSelf/ActorControlTarget message.
type ActorControlCategory uint16

const (
	ActorControlClassJobChange  ActorControlCategory = 0x0142
	ActorControlAggroCategory   ActorControlCategory = 0x0212
	ActorControlEffectOverTime  ActorControlCategory = 0x016D
	ActorControlDeath           ActorControlCategory = 0x0006
)

// ActorControlStub is the common stub every ActorControl* payload decodes
// to before its category selects a concrete sub-payload.
type ActorControlStub struct {
	Category ActorControlCategory
	Param1   uint32
	Param2   uint32
	Param3   uint32
}

func ParseActorControlStub(buf []byte) (ActorControlStub, error) {
	var p ActorControlStub
	if len(buf) < 2+2+4+4+4 {
		return p, ErrShortBuffer
	}
	p.Category = ActorControlCategory(binary.LittleEndian.Uint16(buf[0:2]))
	p.Param1 = binary.LittleEndian.Uint32(buf[4:8])
	p.Param2 = binary.LittleEndian.Uint32(buf[8:12])
	p.Param3 = binary.LittleEndian.Uint32(buf[12:16])
	return p, nil
}

// ActorControlClassJobChangePayload is the sub-payload for category
// ActorControlClassJobChange.
type ActorControlClassJobChangePayload struct {
	ClassOrJob uint8
}

func (s ActorControlStub) AsClassJobChange() ActorControlClassJobChangePayload {
	return ActorControlClassJobChangePayload{ClassOrJob: uint8(s.Param1)}
}

// ActorControlAggroPayload is the sub-payload for the aggro category.
type ActorControlAggroPayload struct {
	Aggroed bool
}

func (s ActorControlStub) AsAggro() ActorControlAggroPayload {
	return ActorControlAggroPayload{Aggroed: s.Param1 != 0}
}

// ActorControlEffectOverTimePayload is the sub-payload for the
// damage/heal-over-time category.
type ActorControlEffectOverTimePayload struct {
	BuffID        uint32
	EffectType    KnownEffectType
	Amount        uint32
	SourceActorID uint32
}

func (s ActorControlStub) AsEffectOverTime() ActorControlEffectOverTimePayload {
	return ActorControlEffectOverTimePayload{
		BuffID:        s.Param1,
		EffectType:    KnownEffectType(s.Param2 & 0xFF),
		Amount:        s.Param2 >> 8,
		SourceActorID: s.Param3,
	}
}

// ActorControlDeathPayload is the sub-payload for the death category. The
// dying actor's id is the ActorControl message's own header actor id, not
// a param, so this type carries none.
type ActorControlDeathPayload struct{}

func (s ActorControlStub) AsDeath() ActorControlDeathPayload { return ActorControlDeathPayload{} }
