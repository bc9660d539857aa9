// Package graphtest provides helpers for testing code built on package graph.
package graphtest

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/vango-dev/vgraph/pkg/dispose"
	"github.com/vango-dev/vgraph/pkg/event"
	"github.com/vango-dev/vgraph/pkg/graph"
)

// Harness wraps a graph isolated to one test.
type Harness struct {
	*graph.Graph
	t testing.TB
}

// New creates a graph for t. Monitors are released and every node is
// cleared when the test ends. Logging is discarded unless options override
// it.
func New(t testing.TB, opts ...graph.Option) *Harness {
	t.Helper()
	base := []graph.Option{graph.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}
	g := graph.New(append(base, opts...)...)
	t.Cleanup(func() {
		g.Close()
		g.ClearNodesForTests()
	})
	return &Harness{Graph: g, t: t}
}

// Owner returns a context disposed when the test ends.
func (h *Harness) Owner(name string) *dispose.Owner {
	o := dispose.NewNamedOwner(nil, name)
	h.t.Cleanup(o.Dispose)
	return o
}

// Stub binds id to an input holding v in owner's context, replacing any
// previous binding of id. It is the way to fake a derived node in a test.
func (h *Harness) Stub(id *graph.ID, v any, owner graph.Context) graph.Setter {
	h.t.Helper()
	if n, ok := h.Node(id); ok {
		if _, input := n.(*graph.InputNode); !input || id.Kind() == graph.Static {
			h.ClearNodesForTests(id)
		}
	}
	set, err := h.CreateProvider(id, v, owner)
	if err != nil {
		h.t.Fatalf("stub %s: %v", id.Name(), err)
	}
	return set
}

// MustGet reads id at the current time and fails the test on error.
func (h *Harness) MustGet(id *graph.ID, owner graph.Context) any {
	h.t.Helper()
	v, err := h.Get(context.Background(), id, h.Timestamp(), owner)
	if err != nil {
		h.t.Fatalf("get %s: %v", id.Name(), err)
	}
	return v
}

// MustSet writes v and fails the test on error.
func (h *Harness) MustSet(id *graph.ID, owner graph.Context, v any) graph.Time {
	h.t.Helper()
	c, err := h.Set(context.Background(), id, owner, v)
	if err != nil {
		h.t.Fatalf("set %s: %v", id.Name(), err)
	}
	ts, err := c.Wait(context.Background())
	if err != nil {
		h.t.Fatalf("set %s: %v", id.Name(), err)
	}
	return ts
}

// Counter wraps p and counts its calls.
type Counter struct {
	mu    sync.Mutex
	calls int
	*graph.Provider
}

// Count returns a provider delegating to p and counting calls.
func Count(p *graph.Provider) *Counter {
	c := &Counter{}
	c.Provider = graph.NewProvider(p.Name(), func(ctx context.Context, owner graph.Context, args []any) (any, error) {
		c.mu.Lock()
		c.calls++
		c.mu.Unlock()
		return p.Call(ctx, owner, args)
	})
	return c
}

// Calls returns the number of calls so far.
func (c *Counter) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Recorded is one event seen by a Recorder.
type Recorded struct {
	Type    event.Type
	Node    string
	Context uint64
	Time    graph.Time
}

// Recorder captures graph events in dispatch order.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
	subs   []dispose.Disposable
}

// Record subscribes to ready and change events on g until the test ends.
func Record(t testing.TB, g *graph.Graph) *Recorder {
	r := &Recorder{}
	for _, typ := range []event.Type{graph.EventReady, graph.EventChange} {
		r.subs = append(r.subs, g.Bus().On(typ, r.handle, r, false))
	}
	t.Cleanup(r.Stop)
	return r
}

func (r *Recorder) handle(e event.Event) {
	var rec Recorded
	switch ev := e.(type) {
	case graph.ReadyEvent:
		rec = Recorded{Type: graph.EventReady, Node: ev.ID.Name(), Time: ev.Time}
		if ev.Context != nil {
			rec.Context = ev.Context.ID()
		}
	case graph.ChangeEvent:
		rec = Recorded{Type: graph.EventChange, Node: ev.ID.Name(), Time: ev.Time}
		if ev.Context != nil {
			rec.Context = ev.Context.ID()
		}
	default:
		return
	}
	r.mu.Lock()
	r.events = append(r.events, rec)
	r.mu.Unlock()
}

// Events returns the recorded events.
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.events...)
}

// Nodes returns the node names of recorded events of type typ.
func (r *Recorder) Nodes(typ event.Type) []string {
	var names []string
	for _, e := range r.Events() {
		if e.Type == typ {
			names = append(names, e.Node)
		}
	}
	return names
}

// Reset drops recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// Stop unsubscribes the recorder.
func (r *Recorder) Stop() {
	for _, s := range r.subs {
		s.Dispose()
	}
}
