package actor

import (
	"time"

	"github.com/opcap/opcap/internal/config"
	"github.com/opcap/opcap/internal/dispatch"
	"github.com/opcap/opcap/internal/types"
)

// PartyMember mirrors the wire roster entry; members with CharacterID == 0
// are opaque name-only rows (spec.md §4.4).
type PartyMember struct {
	CharacterID uint32
	Name        string
	HP, MaxHP   uint32
	ClassOrJob  uint8
	Level       uint8
}

// AllianceMember mirrors PartyMember for the 24-slot alliance roster.
type AllianceMember struct {
	CharacterID uint32
	Name        string
	HomeWorldID uint16
}

// Tracker is the actor table: an id-indexed lookup of Actor records plus
// the auxiliary indexes (spawn id, party, alliance) spec.md §5's Memory
// discipline describes.
type Tracker struct {
	actors  map[uint32]*Actor
	bySpawn map[uint32]*Actor

	LoginActorID uint32
	loginLatched bool

	PartyID      uint32
	PartyMembers []PartyMember
	Alliance     []AllianceMember
}

// NewTracker builds an empty actor table.
func NewTracker() *Tracker {
	return &Tracker{
		actors:  make(map[uint32]*Actor),
		bySpawn: make(map[uint32]*Actor),
	}
}

// Get returns the actor record for id, if any has been observed.
func (t *Tracker) Get(id uint32) (*Actor, bool) {
	a, ok := t.actors[id]
	return a, ok
}

// Login returns the logged-in character's own actor record, if latched.
func (t *Tracker) Login() (*Actor, bool) {
	if !t.loginLatched {
		return nil, false
	}
	return t.Get(t.LoginActorID)
}

func (t *Tracker) actorFor(id uint32) *Actor {
	a, ok := t.actors[id]
	if !ok {
		a = newActor(id)
		t.actors[id] = a
	}
	return a
}

func bundleTime(h types.BundleHeader) time.Time {
	return time.UnixMilli(int64(h.Timestamp))
}

// Register wires every actor-table handler named in spec.md §4.4 into b.
// serverDir is the direction server IPC messages arrive on (the tracker
// only observes server-originated state opcodes); clientDir carries the
// client-direction movement echoes noted below.
func (t *Tracker) Register(b *dispatch.Builder, serverDir, clientDir config.Direction) {
	dispatch.RegisterWildcard(b, serverDir, func(bh types.BundleHeader, ih types.IPCHeader, payload []byte) {
		if !t.loginLatched {
			t.LoginActorID = ih.LoginActorID()
			t.loginLatched = true
		}
	})

	dispatch.Register(b, serverDir, []string{"ActorStats"}, types.ParseActorStats, func(bh types.BundleHeader, ih types.IPCHeader, p types.ActorStats) {
		a := t.actorFor(ih.ActorID())
		a.HP = p.HP
		a.MP = p.MP
		a.LastUpdated = bundleTime(bh)
	})

	dispatch.Register(b, serverDir, []string{"ActorSpawn"}, types.ParseActorSpawn, func(bh types.BundleHeader, ih types.IPCHeader, p types.ActorSpawn) {
		a := t.actorFor(ih.ActorID())
		a.SpawnID = p.SpawnID
		a.OwnerID = p.OwnerID
		a.HomeWorldID = p.HomeWorldID
		a.BNPCNameID = p.BNPCNameID
		a.ClassOrJob = p.ClassOrJob
		a.Level = p.Level
		a.HP, a.MaxHP = p.HP, p.MaxHP
		a.MP, a.MaxMP = p.MP, p.MaxMP
		a.Name = p.Name
		a.X, a.Y, a.Z, a.Rotation = p.Position.X, p.Position.Y, p.Position.Z, p.Position.Rotation
		a.replaceSlotsFromList(p.StatusEffects, bundleTime(bh))
		a.LastUpdated = bundleTime(bh)
		t.bySpawn[p.SpawnID] = a
	})

	registerNpcSpawn := func(name string) {
		dispatch.Register(b, serverDir, []string{name}, types.ParseActorSpawnNpc, func(bh types.BundleHeader, ih types.IPCHeader, p types.ActorSpawnNpc) {
			a := t.actorFor(ih.ActorID())
			a.SpawnID = p.SpawnID
			a.OwnerID = p.OwnerID
			a.BNPCNameID = p.BNPCNameID
			a.ClassOrJob = p.ClassOrJob
			a.Level = p.Level
			a.HP, a.MaxHP = p.HP, p.MaxHP
			a.MP, a.MaxMP = p.MP, p.MaxMP
			a.Name = p.Name
			a.X, a.Y, a.Z, a.Rotation = p.Position.X, p.Position.Y, p.Position.Z, p.Position.Rotation
			a.replaceSlotsFromList(p.StatusEffects, bundleTime(bh))
			a.LastUpdated = bundleTime(bh)
			t.bySpawn[p.SpawnID] = a
		})
	}
	registerNpcSpawn("ActorSpawnNpc")
	registerNpcSpawn("ActorSpawnNpc2")

	dispatch.Register(b, serverDir, []string{"ActorDespawn"}, types.ParseActorDespawn, func(bh types.BundleHeader, ih types.IPCHeader, p types.ActorDespawn) {
		if a, ok := t.bySpawn[p.SpawnID]; ok {
			a.LastUpdated = bundleTime(bh)
		}
		delete(t.bySpawn, p.SpawnID)
	})

	positionHandler := func(bh types.BundleHeader, ih types.IPCHeader, p types.ActorPositionUpdate) {
		a := t.actorFor(ih.ActorID())
		a.X, a.Y, a.Z, a.Rotation = p.Position.X, p.Position.Y, p.Position.Z, p.Position.Rotation
		a.LastUpdated = bundleTime(bh)
	}
	dispatch.Register(b, serverDir, []string{"ActorSetPos", "ActorMove"}, types.ParseActorPositionUpdate, positionHandler)
	dispatch.Register(b, clientDir, []string{"RequestMove", "RequestMoveInstance"}, types.ParseActorPositionUpdate, positionHandler)

	dispatch.Register(b, serverDir, []string{"ActorModelEquip"}, types.ParseActorModelEquip, func(bh types.BundleHeader, ih types.IPCHeader, p types.ActorModelEquip) {
		a := t.actorFor(ih.ActorID())
		a.ClassOrJob = p.ClassOrJob
		a.Level = p.Level
		a.LastUpdated = bundleTime(bh)
	})

	dispatch.Register(b, serverDir, []string{"PlayerParams"}, types.ParsePlayerParams, func(bh types.BundleHeader, ih types.IPCHeader, p types.PlayerParams) {
		a := t.actorFor(ih.ActorID())
		a.MaxHP = p.HP
		a.MaxMP = p.MP
		a.LastUpdated = bundleTime(bh)
	})

	dispatch.Register(b, serverDir, []string{"AggroList"}, types.ParseAggroList, func(bh types.BundleHeader, ih types.IPCHeader, p types.AggroList) {
		a := t.actorFor(ih.ActorID())
		a.OutgoingEnmity = make(map[uint32]uint8, len(p.Entries))
		for _, e := range p.Entries {
			a.OutgoingEnmity[e.ActorID] = e.EnmityPercent
		}
		a.LastUpdated = bundleTime(bh)
	})

	dispatch.Register(b, serverDir, []string{"InitZone"}, types.ParseInitZone, func(bh types.BundleHeader, ih types.IPCHeader, p types.InitZone) {
		t.bySpawn = make(map[uint32]*Actor)
		if login, ok := t.Login(); ok {
			login.ZoneID = p.ZoneID
			login.X, login.Y, login.Z, login.Rotation = p.Position.X, p.Position.Y, p.Position.Z, p.Position.Rotation
			login.LastUpdated = bundleTime(bh)
		}
	})

	dispatch.Register(b, serverDir, []string{"EffectResult"}, types.ParseEffectResult, func(bh types.BundleHeader, ih types.IPCHeader, p types.EffectResult) {
		a := t.actorFor(ih.ActorID())
		a.HP, a.MaxHP = p.HP, p.MaxHP
		a.MP = p.MP
		a.ShieldRatio = float64(p.ShieldPercentage) / 100
		for _, m := range p.Entries {
			a.setSlotFromModification(m, bundleTime(bh))
		}
		a.LastUpdated = bundleTime(bh)
	})

	statusListHandler := func(bh types.BundleHeader, ih types.IPCHeader, p types.ActorStatusEffectList) {
		a := t.actorFor(ih.ActorID())
		a.Level = p.Level
		a.ClassOrJob = p.ClassOrJob
		a.HP, a.MaxHP = p.HP, p.MaxHP
		a.MP, a.MaxMP = p.MP, p.MaxMP
		a.ShieldRatio = float64(p.ShieldPercentage) / 100
		a.replaceSlotsFromList(p.Effects, bundleTime(bh))
		a.LastUpdated = bundleTime(bh)
	}
	dispatch.Register(b, serverDir, []string{"ActorStatusEffectList", "ActorStatusEffectList2", "ActorStatusEffectListBoss"}, types.ParseActorStatusEffectList, statusListHandler)

	dispatch.Register(b, serverDir, []string{"PartyList"}, types.ParsePartyList, func(bh types.BundleHeader, ih types.IPCHeader, p types.PartyList) {
		t.PartyID = p.PartyID
		members := make([]PartyMember, 0, len(p.Members))
		for _, m := range p.Members {
			members = append(members, PartyMember{
				CharacterID: m.CharacterID,
				Name:        m.Name,
				HP:          m.HP,
				MaxHP:       m.MaxHP,
				ClassOrJob:  m.ClassOrJob,
				Level:       m.Level,
			})
		}
		t.PartyMembers = members
	})

	dispatch.Register(b, serverDir, []string{"PartyModify"}, types.ParsePartyModify, func(bh types.BundleHeader, ih types.IPCHeader, p types.PartyModify) {
		if int(p.PartySize) < len(t.PartyMembers) {
			t.PartyMembers = t.PartyMembers[:p.PartySize]
		}
	})

	dispatch.Register(b, serverDir, []string{"AllianceList"}, types.ParseAllianceList, func(bh types.BundleHeader, ih types.IPCHeader, p types.AllianceList) {
		members := make([]AllianceMember, 0, len(p.Members))
		for _, m := range p.Members {
			members = append(members, AllianceMember{
				CharacterID: m.CharacterID,
				Name:        m.Name,
				HomeWorldID: m.HomeWorldID,
			})
		}
		t.Alliance = members
	})

	b.ActorControlOpcodeNames("ActorControl", "ActorControlSelf", "ActorControlTarget")

	dispatch.RegisterActorControl(b, types.ActorControlClassJobChange, func(s types.ActorControlStub) (types.ActorControlClassJobChangePayload, error) {
		return s.AsClassJobChange(), nil
	}, func(bh types.BundleHeader, ih types.IPCHeader, p types.ActorControlClassJobChangePayload) {
		a := t.actorFor(ih.ActorID())
		a.ClassOrJob = p.ClassOrJob
		a.LastUpdated = bundleTime(bh)
	})

	dispatch.RegisterActorControl(b, types.ActorControlAggroCategory, func(s types.ActorControlStub) (types.ActorControlAggroPayload, error) {
		return s.AsAggro(), nil
	}, func(bh types.BundleHeader, ih types.IPCHeader, p types.ActorControlAggroPayload) {
		a := t.actorFor(ih.ActorID())
		a.Aggroed = p.Aggroed
		a.LastUpdated = bundleTime(bh)
	})

	dispatch.RegisterActorControl(b, types.ActorControlEffectOverTime, func(s types.ActorControlStub) (types.ActorControlEffectOverTimePayload, error) {
		return s.AsEffectOverTime(), nil
	}, func(bh types.BundleHeader, ih types.IPCHeader, p types.ActorControlEffectOverTimePayload) {
		a := t.actorFor(ih.ActorID())
		switch p.EffectType {
		case types.EffectTypeDamage:
			a.HP = clampU32(int64(a.HP)-int64(p.Amount), 0, a.MaxHP)
		case types.EffectTypeHeal:
			a.HP = clampU32(int64(a.HP)+int64(p.Amount), 0, a.MaxHP)
		}
		a.LastUpdated = bundleTime(bh)
	})
}

func clampU32(v int64, lo, hi uint32) uint32 {
	if v < int64(lo) {
		return lo
	}
	if v > int64(hi) {
		return hi
	}
	return uint32(v)
}
