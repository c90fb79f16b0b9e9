package types

import "encoding/binary"

const nameFieldSize = 32

// ActorStats is the IPC payload for the ActorStats opcode: a bare HP/MP
// update for the actor named by the message header's actor id.
type ActorStats struct {
	HP uint32
	MP uint16
}

func ParseActorStats(buf []byte) (ActorStats, error) {
	var p ActorStats
	if len(buf) < 8 {
		return p, ErrShortBuffer
	}
	p.HP = binary.LittleEndian.Uint32(buf[0:4])
	p.MP = binary.LittleEndian.Uint16(buf[4:6])
	return p, nil
}

// ActorSpawn is the IPC payload for a player-character spawn (ActorSpawn).
type ActorSpawn struct {
	SpawnID       uint32
	OwnerID       uint32
	HomeWorldID   uint16
	BNPCNameID    uint32
	ClassOrJob    uint8
	Level         uint8
	HP, MaxHP     uint32
	MP, MaxMP     uint16
	Name          string
	Position      PositionVector
	StatusEffects []StatusEffectWire
}

// statusEffectSlotCount is the fixed number of slots embedded in spawn and
// status-effect-list payloads.
const statusEffectSlotCount = 30

func ParseActorSpawn(buf []byte) (ActorSpawn, error) {
	var p ActorSpawn
	const fixed = 4 + 4 + 2 + 4 + 1 + 1 + 4 + 4 + 2 + 2
	if len(buf) < fixed+nameFieldSize+statusEffectSlotCount*statusEffectWireSize+positionVectorSize {
		return p, ErrShortBuffer
	}
	off := 0
	p.SpawnID = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	p.OwnerID = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	p.HomeWorldID = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	p.BNPCNameID = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	p.ClassOrJob = buf[off]
	off++
	p.Level = buf[off]
	off++
	p.HP = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	p.MaxHP = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	p.MP = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	p.MaxMP = binary.LittleEndian.Uint16(buf[off:])
	off += 2

	p.Name = readFixedString(buf[off : off+nameFieldSize])
	off += nameFieldSize

	effects, err := ParseStatusEffectList(buf[off:], statusEffectSlotCount)
	if err != nil {
		return p, err
	}
	p.StatusEffects = effects
	off += statusEffectSlotCount * statusEffectWireSize

	pos, err := parsePositionVector(buf[off:])
	if err != nil {
		return p, err
	}
	p.Position = pos

	return p, nil
}

// ActorSpawnNpc is the IPC payload shared by ActorSpawnNpc and
// ActorSpawnNpc2: identical field layout to ActorSpawn, minus a persistent
// home world (NPCs have none, per actor_manager.py setting home_world_id=0).
type ActorSpawnNpc struct {
	SpawnID       uint32
	OwnerID       uint32
	BNPCNameID    uint32
	ClassOrJob    uint8
	Level         uint8
	HP, MaxHP     uint32
	MP, MaxMP     uint16
	Name          string
	Position      PositionVector
	StatusEffects []StatusEffectWire
}

func ParseActorSpawnNpc(buf []byte) (ActorSpawnNpc, error) {
	var p ActorSpawnNpc
	const fixed = 4 + 4 + 4 + 1 + 1 + 4 + 4 + 2 + 2
	if len(buf) < fixed+nameFieldSize+statusEffectSlotCount*statusEffectWireSize+positionVectorSize {
		return p, ErrShortBuffer
	}
	off := 0
	p.SpawnID = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	p.OwnerID = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	p.BNPCNameID = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	p.ClassOrJob = buf[off]
	off++
	p.Level = buf[off]
	off++
	p.HP = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	p.MaxHP = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	p.MP = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	p.MaxMP = binary.LittleEndian.Uint16(buf[off:])
	off += 2

	p.Name = readFixedString(buf[off : off+nameFieldSize])
	off += nameFieldSize

	effects, err := ParseStatusEffectList(buf[off:], statusEffectSlotCount)
	if err != nil {
		return p, err
	}
	p.StatusEffects = effects
	off += statusEffectSlotCount * statusEffectWireSize

	pos, err := parsePositionVector(buf[off:])
	if err != nil {
		return p, err
	}
	p.Position = pos

	return p, nil
}

// ActorDespawn is the IPC payload for ActorDespawn.
type ActorDespawn struct {
	ActorID uint32
	SpawnID uint32
}

func ParseActorDespawn(buf []byte) (ActorDespawn, error) {
	var p ActorDespawn
	if len(buf) < 8 {
		return p, ErrShortBuffer
	}
	p.ActorID = binary.LittleEndian.Uint32(buf[0:4])
	p.SpawnID = binary.LittleEndian.Uint32(buf[4:8])
	return p, nil
}

// ActorPositionUpdate is the shared payload shape for ActorSetPos,
// ActorMove, RequestMoveInstance and RequestMove: just a position and
// rotation.
type ActorPositionUpdate struct {
	Position PositionVector
}

func ParseActorPositionUpdate(buf []byte) (ActorPositionUpdate, error) {
	var p ActorPositionUpdate
	pos, err := parsePositionVector(buf)
	if err != nil {
		return p, err
	}
	p.Position = pos
	return p, nil
}

// ActorModelEquip is the IPC payload for ActorModelEquip.
type ActorModelEquip struct {
	ClassOrJob uint8
	Level      uint8
}

func ParseActorModelEquip(buf []byte) (ActorModelEquip, error) {
	var p ActorModelEquip
	if len(buf) < 2 {
		return p, ErrShortBuffer
	}
	p.ClassOrJob = buf[0]
	p.Level = buf[1]
	return p, nil
}

// PlayerParams is the IPC payload for PlayerParams: only the two fields the
// actor tracker consumes (max HP/MP) are modeled.
type PlayerParams struct {
	HP uint32
	MP uint16
}

func ParsePlayerParams(buf []byte) (PlayerParams, error) {
	var p PlayerParams
	if len(buf) < 6 {
		return p, ErrShortBuffer
	}
	p.HP = binary.LittleEndian.Uint32(buf[0:4])
	p.MP = binary.LittleEndian.Uint16(buf[4:6])
	return p, nil
}

// AggroEntry is one row of an AggroList payload.
type AggroEntry struct {
	ActorID       uint32
	EnmityPercent uint8
}

const aggroEntrySize = 4 + 1 + 3 /*pad*/

// AggroList is the IPC payload for AggroList.
type AggroList struct {
	EntryCount uint8
	Entries    []AggroEntry
}

const aggroListMaxEntries = 32

func ParseAggroList(buf []byte) (AggroList, error) {
	var p AggroList
	if len(buf) < 4+aggroListMaxEntries*aggroEntrySize {
		return p, ErrShortBuffer
	}
	p.EntryCount = buf[0]
	off := 4
	n := int(p.EntryCount)
	if n > aggroListMaxEntries {
		n = aggroListMaxEntries
	}
	p.Entries = make([]AggroEntry, 0, n)
	for i := 0; i < n; i++ {
		eoff := off + i*aggroEntrySize
		p.Entries = append(p.Entries, AggroEntry{
			ActorID:       binary.LittleEndian.Uint32(buf[eoff:]),
			EnmityPercent: buf[eoff+4],
		})
	}
	return p, nil
}

// InitZone is the IPC payload for InitZone.
type InitZone struct {
	ZoneID   uint16
	Position PositionVector
}

func ParseInitZone(buf []byte) (InitZone, error) {
	var p InitZone
	if len(buf) < 2+positionVectorSize {
		return p, ErrShortBuffer
	}
	p.ZoneID = binary.LittleEndian.Uint16(buf[0:2])
	pos, err := parsePositionVector(buf[4:])
	if err != nil {
		return p, err
	}
	p.Position = pos
	return p, nil
}

// EffectResult is the IPC payload for EffectResult: a snapshot of the
// affected actor's vitals, plus the sparse status-effect modification
// entries, and the global sequence id correlating this result with a
// pending effect announcement.
type EffectResult struct {
	GlobalSequenceID uint32
	HP, MaxHP        uint32
	MP               uint16
	ShieldPercentage uint8
	EntryCount       uint8
	Entries          []StatusEffectModificationInfo
}

const effectResultMaxEntries = 4

func ParseEffectResult(buf []byte) (EffectResult, error) {
	var p EffectResult
	const fixed = 4 + 4 + 4 + 2 + 1 + 1
	if len(buf) < fixed+effectResultMaxEntries*statusEffectModSize {
		return p, ErrShortBuffer
	}
	off := 0
	p.GlobalSequenceID = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	p.HP = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	p.MaxHP = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	p.MP = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	p.ShieldPercentage = buf[off]
	off++
	p.EntryCount = buf[off]
	off++

	n := int(p.EntryCount)
	if n > effectResultMaxEntries {
		n = effectResultMaxEntries
	}
	entries, err := ParseStatusEffectModificationList(buf[off:], n)
	if err != nil {
		return p, err
	}
	p.Entries = entries
	return p, nil
}

// ActorStatusEffectList is the shared payload for ActorStatusEffectList,
// ActorStatusEffectList2 and ActorStatusEffectListBoss.
type ActorStatusEffectList struct {
	Level            uint8
	ClassOrJob       uint8
	HP, MaxHP        uint32
	MP, MaxMP        uint16
	ShieldPercentage uint8
	Effects          []StatusEffectWire
}

func ParseActorStatusEffectList(buf []byte) (ActorStatusEffectList, error) {
	var p ActorStatusEffectList
	const fixed = 1 + 1 + 4 + 4 + 2 + 2 + 1 + 3 /*pad*/
	if len(buf) < fixed+statusEffectSlotCount*statusEffectWireSize {
		return p, ErrShortBuffer
	}
	off := 0
	p.Level = buf[off]
	off++
	p.ClassOrJob = buf[off]
	off++
	p.HP = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	p.MaxHP = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	p.MP = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	p.MaxMP = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	p.ShieldPercentage = buf[off]
	off += 4 // shield byte + 3 pad

	effects, err := ParseStatusEffectList(buf[off:], statusEffectSlotCount)
	if err != nil {
		return p, err
	}
	p.Effects = effects
	return p, nil
}

// PartyMember is one row embedded in a PartyList payload.
type PartyMember struct {
	CharacterID uint32
	HP, MaxHP   uint32
	MP, MaxMP   uint16
	ZoneID      uint16
	ClassOrJob  uint8
	Level       uint8
	Name        string
}

const partyMemberSize = 4 + 4 + 4 + 2 + 2 + 2 + 1 + 1 + 2 /*pad*/ + nameFieldSize

func parsePartyMember(buf []byte) (PartyMember, error) {
	var m PartyMember
	if len(buf) < partyMemberSize {
		return m, ErrShortBuffer
	}
	off := 0
	m.CharacterID = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	m.HP = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	m.MaxHP = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	m.MP = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	m.MaxMP = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	m.ZoneID = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	m.ClassOrJob = buf[off]
	off++
	m.Level = buf[off]
	off += 3 // level byte + 2 pad
	m.Name = readFixedString(buf[off : off+nameFieldSize])
	return m, nil
}

const partyListMaxMembers = 8

// PartyList is the IPC payload for PartyList.
type PartyList struct {
	PartyID  uint32
	PartySize uint8
	Members  []PartyMember
}

func ParsePartyList(buf []byte) (PartyList, error) {
	var p PartyList
	const fixed = 4 + 4 /*pad+size*/
	if len(buf) < fixed+partyListMaxMembers*partyMemberSize {
		return p, ErrShortBuffer
	}
	p.PartyID = binary.LittleEndian.Uint32(buf[0:4])
	p.PartySize = buf[4]
	off := fixed
	n := int(p.PartySize)
	if n > partyListMaxMembers {
		n = partyListMaxMembers
	}
	p.Members = make([]PartyMember, 0, n)
	for i := 0; i < n; i++ {
		m, err := parsePartyMember(buf[off+i*partyMemberSize:])
		if err != nil {
			return p, err
		}
		p.Members = append(p.Members, m)
	}
	return p, nil
}

// PartyModify is the IPC payload for PartyModify.
type PartyModify struct {
	PartySize uint8
}

func ParsePartyModify(buf []byte) (PartyModify, error) {
	var p PartyModify
	if len(buf) < 1 {
		return p, ErrShortBuffer
	}
	p.PartySize = buf[0]
	return p, nil
}

// AllianceMember is one row embedded in an AllianceList payload.
type AllianceMember struct {
	CharacterID uint32
	HomeWorldID uint16
	ClassOrJob  uint8
	HP, MaxHP   uint32
	Name        string
}

const allianceMemberSize = 4 + 2 + 1 + 1 /*pad*/ + 4 + 4 + nameFieldSize

func parseAllianceMember(buf []byte) (AllianceMember, error) {
	var m AllianceMember
	if len(buf) < allianceMemberSize {
		return m, ErrShortBuffer
	}
	off := 0
	m.CharacterID = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	m.HomeWorldID = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	m.ClassOrJob = buf[off]
	off += 2 // class byte + pad
	m.HP = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	m.MaxHP = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	m.Name = readFixedString(buf[off : off+nameFieldSize])
	return m, nil
}

const allianceListMaxMembers = 24

// AllianceList is the IPC payload for AllianceList.
type AllianceList struct {
	Members []AllianceMember
}

func ParseAllianceList(buf []byte) (AllianceList, error) {
	var p AllianceList
	if len(buf) < allianceListMaxMembers*allianceMemberSize {
		return p, ErrShortBuffer
	}
	p.Members = make([]AllianceMember, 0, allianceListMaxMembers)
	for i := 0; i < allianceListMaxMembers; i++ {
		m, err := parseAllianceMember(buf[i*allianceMemberSize:])
		if err != nil {
			return p, err
		}
		p.Members = append(p.Members, m)
	}
	return p, nil
}
