package dispose

import (
	"sync"
	"sync/atomic"
)

// Owner is a disposal scope. It is the concrete context type used for
// Instance-scoped graph nodes: every monitor the graph installs for an owner
// is released when the owner is disposed.
//
// Owners form a hierarchy: disposing a parent disposes its children.
type Owner struct {
	id   uint64
	name string

	// parent is the parent Owner in the hierarchy.
	// nil for a root Owner.
	parent *Owner

	// children are child Owners.
	children   []*Owner
	childrenMu sync.Mutex

	// resources are disposables registered via AddDisposable.
	resources   []Disposable
	resourcesMu sync.Mutex

	// cleanups are manual cleanup functions registered via OnCleanup.
	cleanups   []func()
	cleanupsMu sync.Mutex

	disposed atomic.Bool
}

// NewOwner creates a new Owner with the given parent.
// The new Owner is automatically registered as a child of the parent.
// If parent is nil, creates a root Owner.
func NewOwner(parent *Owner) *Owner {
	o := &Owner{
		id:     nextID(),
		parent: parent,
	}

	if parent != nil {
		parent.addChild(o)
	}

	return o
}

// NewNamedOwner is NewOwner with a diagnostic name.
func NewNamedOwner(parent *Owner, name string) *Owner {
	o := NewOwner(parent)
	o.name = name
	return o
}

// ID returns the unique identifier for this Owner.
func (o *Owner) ID() uint64 {
	return o.id
}

// Name returns the diagnostic name, or an empty string.
func (o *Owner) Name() string {
	return o.name
}

// Parent returns the parent Owner, or nil if this is a root Owner.
func (o *Owner) Parent() *Owner {
	return o.parent
}

// IsDisposed returns true if this Owner has been disposed.
func (o *Owner) IsDisposed() bool {
	return o.disposed.Load()
}

func (o *Owner) addChild(child *Owner) {
	if o.disposed.Load() {
		child.Dispose()
		return
	}

	o.childrenMu.Lock()
	defer o.childrenMu.Unlock()
	o.children = append(o.children, child)
}

func (o *Owner) removeChild(child *Owner) {
	o.childrenMu.Lock()
	defer o.childrenMu.Unlock()

	for i, c := range o.children {
		if c == child {
			o.children = append(o.children[:i], o.children[i+1:]...)
			return
		}
	}
}

// AddDisposable ties the given disposables to this Owner. If the Owner is
// already disposed they are disposed immediately.
func (o *Owner) AddDisposable(others ...Disposable) {
	if o.disposed.Load() {
		for _, d := range others {
			d.Dispose()
		}
		return
	}

	o.resourcesMu.Lock()
	defer o.resourcesMu.Unlock()
	o.resources = append(o.resources, others...)
}

// OnCleanup registers a cleanup function to run when this Owner is disposed.
func (o *Owner) OnCleanup(fn func()) {
	if o.disposed.Load() {
		fn()
		return
	}

	o.cleanupsMu.Lock()
	defer o.cleanupsMu.Unlock()
	o.cleanups = append(o.cleanups, fn)
}

// Len returns the number of resources and cleanups still attached.
func (o *Owner) Len() int {
	o.resourcesMu.Lock()
	n := len(o.resources)
	o.resourcesMu.Unlock()

	o.cleanupsMu.Lock()
	n += len(o.cleanups)
	o.cleanupsMu.Unlock()
	return n
}

// Dispose disposes this Owner and all its children, resources, and cleanups.
// Children are disposed in reverse order (last created first).
func (o *Owner) Dispose() {
	if o.disposed.Swap(true) {
		return
	}

	if o.parent != nil {
		o.parent.removeChild(o)
	}

	o.childrenMu.Lock()
	children := o.children
	o.children = nil
	o.childrenMu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	o.resourcesMu.Lock()
	resources := o.resources
	o.resources = nil
	o.resourcesMu.Unlock()

	for i := len(resources) - 1; i >= 0; i-- {
		resources[i].Dispose()
	}

	o.cleanupsMu.Lock()
	cleanups := o.cleanups
	o.cleanups = nil
	o.cleanupsMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

var _ Disposable = (*Owner)(nil)
