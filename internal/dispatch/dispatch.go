// Package dispatch routes decoded IPC payloads from a bundle to the
// handlers registered for their opcode (spec.md §4.3). Registration is a
// construction-time list built via Builder, not a decorator or reflection
// mechanism: Build() freezes the table a Dispatcher runs against.
package dispatch

import (
	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"

	"github.com/opcap/opcap/internal/bundle"
	"github.com/opcap/opcap/internal/config"
	"github.com/opcap/opcap/internal/metrics"
	"github.com/opcap/opcap/internal/types"
)

// decodeFunc decodes a raw IPC payload into an opaque value; the concrete
// type is whatever the opcode's Register[T] call closed over.
type decodeFunc func([]byte) (any, error)

// handlerFunc is the type-erased form of a registered handler; Register[T]
// produces one by wrapping a typed callback with a type assertion.
type handlerFunc func(types.BundleHeader, types.IPCHeader, any)

type wildcardFunc func(types.BundleHeader, types.IPCHeader, []byte)

type actorControlDecodeFunc func(types.ActorControlStub) (any, error)
type actorControlHandlerFunc func(types.BundleHeader, types.IPCHeader, any)

type opcodeEntry struct {
	decode   decodeFunc
	handlers []handlerFunc
}

type categoryEntry struct {
	decode   actorControlDecodeFunc
	handlers []actorControlHandlerFunc
}

// Builder accumulates registrations and produces an immutable Dispatcher.
type Builder struct {
	rev *config.Revision

	byDirection [2]map[string]*opcodeEntry
	wildcards   [2][]wildcardFunc
	categories  map[types.ActorControlCategory]*categoryEntry

	actorControlNames map[string]bool // opcode names routed to the actor-control sub-dispatch
}

// NewBuilder starts a dispatcher build against rev's opcode tables.
func NewBuilder(rev *config.Revision) *Builder {
	return &Builder{
		rev: rev,
		byDirection: [2]map[string]*opcodeEntry{
			config.DirectionServer: make(map[string]*opcodeEntry),
			config.DirectionClient: make(map[string]*opcodeEntry),
		},
		categories:        make(map[types.ActorControlCategory]*categoryEntry),
		actorControlNames: make(map[string]bool),
	}
}

func (b *Builder) entryFor(dir config.Direction, opcodeName string) *opcodeEntry {
	e, ok := b.byDirection[dir][opcodeName]
	if !ok {
		e = &opcodeEntry{}
		b.byDirection[dir][opcodeName] = e
	}
	return e
}

// Register wires handler to fire whenever any of opcodeNames arrives on
// dir. decode is called at most once per message regardless of how many
// handlers are registered for the same opcode name; every handler sees the
// same decoded instance (spec.md §4.3: "Exactly one decoded payload is
// produced per (opcode, message)").
func Register[T any](b *Builder, dir config.Direction, opcodeNames []string, decode func([]byte) (T, error), handler func(types.BundleHeader, types.IPCHeader, T)) {
	wrappedDecode := func(raw []byte) (any, error) { return decode(raw) }
	wrappedHandler := func(h types.BundleHeader, ih types.IPCHeader, v any) { handler(h, ih, v.(T)) }

	for _, name := range opcodeNames {
		e := b.entryFor(dir, name)
		e.decode = wrappedDecode
		e.handlers = append(e.handlers, wrappedHandler)
	}
}

// RegisterWildcard wires handler to fire with the raw payload bytes of
// every IPC message seen on dir, regardless of opcode. Used for init-like
// side effects such as latching the logged-in actor id from the first
// observed message.
func RegisterWildcard(b *Builder, dir config.Direction, handler func(types.BundleHeader, types.IPCHeader, []byte)) {
	b.wildcards[dir] = append(b.wildcards[dir], handler)
}

// RegisterActorControl wires handler to fire when an ActorControl*
// message's nested category matches. decode is called at most once per
// message per category, mirroring Register's decode-once-invoke-many rule.
func RegisterActorControl[T any](b *Builder, category types.ActorControlCategory, decode func(types.ActorControlStub) (T, error), handler func(types.BundleHeader, types.IPCHeader, T)) {
	e, ok := b.categories[category]
	if !ok {
		e = &categoryEntry{}
		b.categories[category] = e
	}
	e.decode = func(stub types.ActorControlStub) (any, error) { return decode(stub) }
	e.handlers = append(e.handlers, func(h types.BundleHeader, ih types.IPCHeader, v any) { handler(h, ih, v.(T)) })
}

// ActorControlOpcodeNames records the symbolic opcode names that carry an
// ActorControlStub payload (ActorControl, ActorControlSelf,
// ActorControlTarget in spec.md's default revision) so Dispatch knows to
// route them through the category sub-dispatch instead of the plain opcode
// table. The recorded set applies to both directions.
func (b *Builder) ActorControlOpcodeNames(names ...string) {
	for _, n := range names {
		b.actorControlNames[n] = true
	}
}

// Build freezes the registrations into a Dispatcher.
func (b *Builder) Build() *Dispatcher {
	return &Dispatcher{
		rev:               b.rev,
		byDirection:       b.byDirection,
		wildcards:         b.wildcards,
		categories:        b.categories,
		actorControlNames: b.actorControlNames,
		log:               zap.NewNop(),
	}
}

// Dispatcher is the immutable, built handler table. It performs no
// blocking I/O and retains no reference to bundle bytes after Dispatch
// returns (spec.md §4.3 invariant).
type Dispatcher struct {
	rev *config.Revision

	byDirection       [2]map[string]*opcodeEntry
	wildcards         [2][]wildcardFunc
	categories        map[types.ActorControlCategory]*categoryEntry
	actorControlNames map[string]bool

	log   *zap.Logger
	debug bool
}

// WithLogger returns a shallow copy of d using log for diagnostics.
func (d *Dispatcher) WithLogger(log *zap.Logger) *Dispatcher {
	cp := *d
	cp.log = log
	return &cp
}

// WithDebug returns a shallow copy of d that, on a decode failure, logs a
// full field dump of the offending payload rather than just the error.
func (d *Dispatcher) WithDebug(debug bool) *Dispatcher {
	cp := *d
	cp.debug = debug
	return &cp
}

// Dispatch iterates b's messages and routes every IPC message's payload to
// the handlers registered for its opcode (spec.md §4.3).
func (d *Dispatcher) Dispatch(dir config.Direction, b bundle.Bundle) error {
	msgs, err := bundle.Messages(b.Body)
	if err != nil {
		return err
	}

	for _, m := range msgs {
		if m.Header.Type != types.MessageTypeIPC {
			continue
		}
		ipc, err := types.ParseIPCHeader(m.Raw)
		if err != nil {
			// Schema error: size mismatch or truncated header. Drop this
			// message, continue with the next (spec.md §7).
			continue
		}
		payload, err := types.PayloadBytes(m.Raw, ipc.Size)
		if err != nil {
			continue
		}

		for _, wc := range d.wildcards[dir] {
			wc(b.Header, ipc, payload)
		}

		name, ok := d.rev.NameFor(config.Direction(dir), ipc.Opcode)
		if !ok {
			continue // unknown opcode: silently skipped
		}

		if d.actorControlNames[name] {
			d.dispatchActorControl(b.Header, ipc, payload)
			continue
		}

		e, ok := d.byDirection[dir][name]
		if !ok || e.decode == nil {
			continue
		}
		decoded, err := e.decode(payload)
		if err != nil {
			if d.debug {
				d.log.Debug("opcode decode failed", zap.String("opcode", name), zap.Error(err), zap.String("payload", spew.Sdump(payload)))
			}
			continue
		}
		metrics.DispatchedMessages.WithLabelValues(dir.String(), name).Inc()
		for _, h := range e.handlers {
			h(b.Header, ipc, decoded)
		}
	}
	return nil
}

func (d *Dispatcher) dispatchActorControl(bh types.BundleHeader, ih types.IPCHeader, payload []byte) {
	stub, err := types.ParseActorControlStub(payload)
	if err != nil {
		return
	}
	e, ok := d.categories[stub.Category]
	if !ok || e.decode == nil {
		return // unknown category: silently skipped
	}
	decoded, err := e.decode(stub)
	if err != nil {
		return
	}
	for _, h := range e.handlers {
		h(bh, ih, decoded)
	}
}
