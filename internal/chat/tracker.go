// Package chat normalizes six opcode variants into one uniform
// ChatRecord (spec.md §4.6).
package chat

import (
	"github.com/opcap/opcap/internal/actor"
	"github.com/opcap/opcap/internal/config"
	"github.com/opcap/opcap/internal/dispatch"
	"github.com/opcap/opcap/internal/metrics"
	"github.com/opcap/opcap/internal/types"
)

// Channel is the normalized chat channel a ChatRecord belongs to.
type Channel uint8

const (
	ChannelSay Channel = iota
	ChannelShout
	ChannelYell
	ChannelParty
	ChannelFreeCompany
	ChannelTellReceive
	ChannelTell
)

func (c Channel) String() string {
	switch c {
	case ChannelSay:
		return "Say"
	case ChannelShout:
		return "Shout"
	case ChannelYell:
		return "Yell"
	case ChannelParty:
		return "Party"
	case ChannelFreeCompany:
		return "FreeCompany"
	case ChannelTellReceive:
		return "TellReceive"
	case ChannelTell:
		return "Tell"
	default:
		return "Unknown"
	}
}

// Record is the uniform chat view derived from any of the six source
// opcode variants (spec.md §3).
type Record struct {
	Channel      Channel
	FromActorID  uint32
	HasFromActor bool
	FromName     string
	FromWorldID  uint16
	HasFromWorld bool
	Message      string
	ToName       string
	ToWorldID    uint16
}

// EmitFunc receives each normalized chat record.
type EmitFunc func(Record)

func channelFromWireType(t types.ChatType) Channel {
	switch t {
	case types.ChatTypeShout:
		return ChannelShout
	case types.ChatTypeYell:
		return ChannelYell
	default:
		return ChannelSay
	}
}

// Tracker wires the chat opcode family into a dispatch.Builder and emits
// normalized Records. It reads actor.Tracker for the logged-in actor's
// identity when synthesizing from_* fields on client-direction request
// opcodes, but never mutates the actor table (spec.md §5).
type Tracker struct {
	actors *actor.Tracker
	Emit   EmitFunc
}

// NewTracker builds a chat tracker that resolves the logged-in actor's
// identity from actors.
func NewTracker(actors *actor.Tracker, emit EmitFunc) *Tracker {
	return &Tracker{actors: actors, Emit: emit}
}

// Register wires every chat opcode handler named in spec.md §4.6 into b.
func (t *Tracker) Register(b *dispatch.Builder, serverDir, clientDir config.Direction) {
	dispatch.Register(b, serverDir, []string{"Chat"}, types.ParseChat, func(bh types.BundleHeader, ih types.IPCHeader, p types.Chat) {
		t.emit(Record{
			Channel:      channelFromWireType(p.ChatType),
			FromActorID:  p.CharacterID,
			HasFromActor: true,
			FromName:     p.Name,
			FromWorldID:  p.WorldID,
			HasFromWorld: true,
			Message:      p.Message,
		})
	})

	dispatch.Register(b, serverDir, []string{"ChatParty"}, types.ParseChatParty, func(bh types.BundleHeader, ih types.IPCHeader, p types.ChatParty) {
		ch := ChannelFreeCompany
		if t.actors != nil && p.PartyID == t.actors.PartyID {
			ch = ChannelParty
		}
		t.emit(Record{
			Channel:      ch,
			FromActorID:  p.CharacterID,
			HasFromActor: true,
			FromName:     p.Name,
			FromWorldID:  p.WorldID,
			HasFromWorld: true,
			Message:      p.Message,
		})
	})

	dispatch.Register(b, serverDir, []string{"ChatTell"}, types.ParseChatTell, func(bh types.BundleHeader, ih types.IPCHeader, p types.ChatTell) {
		t.emit(Record{
			Channel:      ChannelTellReceive,
			FromName:     p.Name,
			FromWorldID:  p.WorldID,
			HasFromWorld: true,
			Message:      p.Message,
		})
	})

	dispatch.Register(b, clientDir, []string{"RequestChat"}, types.ParseRequestChat, func(bh types.BundleHeader, ih types.IPCHeader, p types.RequestChat) {
		rec := Record{Channel: channelFromWireType(p.ChatType), Message: p.Message}
		t.fillFromLogin(&rec)
		t.emit(rec)
	})

	dispatch.Register(b, clientDir, []string{"RequestChatParty"}, types.ParseRequestChatParty, func(bh types.BundleHeader, ih types.IPCHeader, p types.RequestChatParty) {
		ch := ChannelFreeCompany
		if t.actors != nil && p.PartyID == t.actors.PartyID {
			ch = ChannelParty
		}
		rec := Record{Channel: ch, Message: p.Message}
		t.fillFromLogin(&rec)
		t.emit(rec)
	})

	dispatch.Register(b, clientDir, []string{"RequestTell"}, types.ParseRequestTell, func(bh types.BundleHeader, ih types.IPCHeader, p types.RequestTell) {
		rec := Record{
			Channel:   ChannelTell,
			Message:   p.Message,
			ToName:    p.TargetName,
			ToWorldID: p.WorldID,
		}
		t.fillFromLogin(&rec)
		t.emit(rec)
	})
}

func (t *Tracker) fillFromLogin(rec *Record) {
	if t.actors == nil {
		return
	}
	a, ok := t.actors.Login()
	if !ok {
		return
	}
	rec.FromActorID = a.ID
	rec.HasFromActor = true
	rec.FromName = a.Name
	rec.FromWorldID = a.HomeWorldID
	rec.HasFromWorld = true
}

func (t *Tracker) emit(r Record) {
	metrics.ChatRecords.WithLabelValues(r.Channel.String()).Inc()
	if t.Emit != nil {
		t.Emit(r)
	}
}
