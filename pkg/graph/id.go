package graph

import (
	"sync/atomic"

	"github.com/vango-dev/vgraph/pkg/check"
	"github.com/vango-dev/vgraph/pkg/dispose"
)

// Kind tells whether an ID has one global value or one value per context.
type Kind int

const (
	// Static IDs live in the global context.
	Static Kind = iota
	// Instance IDs have a value per Context.
	Instance
)

func (k Kind) String() string {
	if k == Instance {
		return "instance"
	}
	return "static"
}

var idSeq atomic.Uint64

// ID identifies a node. IDs are compared by pointer: two IDs built with the
// same name are different nodes.
type ID struct {
	name string
	typ  check.Type
	kind Kind
	seq  uint64
}

// StaticID creates a new identity for a node with a single global value.
// A nil type accepts any value.
func StaticID(name string, typ check.Type) *ID {
	return newID(name, typ, Static)
}

// InstanceID creates a new identity for a node with one value per context.
func InstanceID(name string, typ check.Type) *ID {
	return newID(name, typ, Instance)
}

func newID(name string, typ check.Type, kind Kind) *ID {
	if typ == nil {
		typ = check.Any
	}
	return &ID{
		name: name,
		typ:  typ,
		kind: kind,
		seq:  idSeq.Add(1),
	}
}

// Name returns the diagnostic name.
func (id *ID) Name() string { return id.name }

// Type returns the runtime type every value of the node must satisfy.
func (id *ID) Type() check.Type { return id.typ }

// Kind returns Static or Instance.
func (id *ID) Kind() Kind { return id.kind }

// Seq returns the creation order of the ID within the process.
func (id *ID) Seq() uint64 { return id.seq }

func (id *ID) String() string {
	return id.name
}

// Context scopes Instance values. A nil Context is the global context.
type Context interface {
	dispose.Disposable
	ID() uint64
}

// contextKey returns the map key for c; 0 is the global context.
func contextKey(c Context) uint64 {
	if c == nil {
		return 0
	}
	return c.ID()
}

// scopeFor returns the context a value of id lives in when read from owner.
func scopeFor(id *ID, owner Context) Context {
	if id.kind == Static {
		return nil
	}
	return owner
}

func sameContext(a, b Context) bool {
	return contextKey(a) == contextKey(b)
}

// isDisposed reports whether c is known to be disposed.
func isDisposed(c Context) bool {
	d, ok := c.(interface{ IsDisposed() bool })
	return ok && d.IsDisposed()
}
