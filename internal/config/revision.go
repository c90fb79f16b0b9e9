// Package config holds the externally-supplied, protocol-revision-specific
// parts of the system: the server/client opcode name→number tables
// (spec.md §3 "Opcode tables", §6 "Configuration surface") and the bundle
// signature pair a capture was produced under.
package config

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/opcap/opcap/internal/types"
)

// Direction distinguishes server-originated from client-originated IPC
// messages; opcode numbering is independent per direction.
type Direction uint8

const (
	DirectionServer Direction = iota
	DirectionClient
)

func (d Direction) String() string {
	if d == DirectionServer {
		return "server"
	}
	return "client"
}

// Revision is a named snapshot of opcode tables for one protocol revision,
// plus the bundle signatures that revision's captures use.
type Revision struct {
	Name       string            `yaml:"name"`
	Server     map[string]uint16 `yaml:"server"`
	Client     map[string]uint16 `yaml:"client"`
	Signature1 [16]byte          `yaml:"-"`
	Signature2 [16]byte          `yaml:"-"`

	serverNames map[uint16]string
	clientNames map[uint16]string
}

// rawRevision mirrors Revision's YAML shape; signatures are encoded as hex
// strings since [16]byte has no natural YAML scalar form.
type rawRevision struct {
	Name       string            `yaml:"name"`
	Server     map[string]uint16 `yaml:"server"`
	Client     map[string]uint16 `yaml:"client"`
	Signature1 string            `yaml:"signature1"`
	Signature2 string            `yaml:"signature2"`
}

// Default returns the compiled-in default revision: the opcode numbers and
// signatures this codebase ships with, usable when no override file is
// supplied (spec.md §6: "Implementations may hard-code a default revision
// and allow override via a key-value configuration map").
func Default() *Revision {
	r := &Revision{
		Name:       "default",
		Server:     defaultServerOpcodes(),
		Client:     defaultClientOpcodes(),
		Signature1: types.SignatureV1,
		Signature2: types.SignatureV2,
	}
	r.index()
	return r
}

// Load reads a YAML revision file. Any opcode name present in Default()
// but absent from the file keeps its default numeric value, so a revision
// file only needs to list the opcodes that actually changed.
func Load(path string) (*Revision, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: open %s", path)
	}
	defer f.Close()

	return parse(f)
}

func parse(r io.Reader) (*Revision, error) {
	var raw rawRevision
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "config: decode revision")
	}

	rev := Default()
	if raw.Name != "" {
		rev.Name = raw.Name
	}
	for name, op := range raw.Server {
		rev.Server[name] = op
	}
	for name, op := range raw.Client {
		rev.Client[name] = op
	}
	if raw.Signature1 != "" {
		sig, err := decodeSignature(raw.Signature1)
		if err != nil {
			return nil, errors.Wrap(err, "config: signature1")
		}
		rev.Signature1 = sig
	}
	if raw.Signature2 != "" {
		sig, err := decodeSignature(raw.Signature2)
		if err != nil {
			return nil, errors.Wrap(err, "config: signature2")
		}
		rev.Signature2 = sig
	}
	rev.index()
	return rev, nil
}

func (r *Revision) index() {
	r.serverNames = make(map[uint16]string, len(r.Server))
	for name, op := range r.Server {
		r.serverNames[op] = name
	}
	r.clientNames = make(map[uint16]string, len(r.Client))
	for name, op := range r.Client {
		r.clientNames[op] = name
	}
}

// NameFor resolves a numeric opcode to its symbolic name for the given
// direction. Returns false for opcodes this revision doesn't recognize.
func (r *Revision) NameFor(dir Direction, opcode uint16) (string, bool) {
	if dir == DirectionServer {
		name, ok := r.serverNames[opcode]
		return name, ok
	}
	name, ok := r.clientNames[opcode]
	return name, ok
}

// OpcodeFor resolves a symbolic opcode name to its numeric value for the
// given direction.
func (r *Revision) OpcodeFor(dir Direction, name string) (uint16, bool) {
	if dir == DirectionServer {
		op, ok := r.Server[name]
		return op, ok
	}
	op, ok := r.Client[name]
	return op, ok
}

func decodeSignature(hexStr string) ([16]byte, error) {
	var out [16]byte
	b, err := hexDecode(hexStr)
	if err != nil {
		return out, err
	}
	if len(b) != 16 {
		return out, errors.Errorf("config: signature must be 32 hex chars, got %d bytes", len(b))
	}
	copy(out[:], b)
	return out, nil
}
