package graphtest

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/vgraph/pkg/check"
	"github.com/vango-dev/vgraph/pkg/graph"
)

func TestStubReplacesDerivedNode(t *testing.T) {
	h := New(t)
	total := graph.StaticID("total", check.Int)
	in := graph.StaticID("in", check.Int)

	h.RegisterProvider(total, graph.Func1("double", func(_ context.Context, n int) (int, error) {
		return n * 2, nil
	}), in)
	h.Stub(in, 2, nil)
	if v := h.MustGet(total, nil); v != 4 {
		t.Fatalf("expected 4, got %v", v)
	}

	h.Stub(total, 100, nil)
	if v := h.MustGet(total, nil); v != 100 {
		t.Errorf("expected stubbed 100, got %v", v)
	}
}

func TestCounterAndRecorder(t *testing.T) {
	h := New(t)
	owner := h.Owner("component")
	a := graph.InstanceID("a", check.Int)
	b := graph.InstanceID("b", check.Int)

	double := Count(graph.Func1("double", func(_ context.Context, n int) (int, error) {
		return n * 2, nil
	}))
	h.RegisterProvider(a, double.Provider, b)
	h.Stub(b, 1, owner)

	rec := Record(t, h.Graph)
	h.MustGet(a, owner)
	ts := h.MustSet(b, owner, 5)

	if ts != graph.TimeOf(1) {
		t.Errorf("expected commit at t1, got %s", ts)
	}
	if double.Calls() != 2 {
		t.Errorf("expected 2 calls, got %d", double.Calls())
	}
	if diff := cmp.Diff([]string{"b", "a"}, rec.Nodes(graph.EventReady)); diff != "" {
		t.Errorf("ready events mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a"}, rec.Nodes(graph.EventChange)); diff != "" {
		t.Errorf("change events mismatch (-want +got):\n%s", diff)
	}
	for _, e := range rec.Events() {
		if e.Context != owner.ID() {
			t.Errorf("expected events in context %d, got %d", owner.ID(), e.Context)
		}
	}

	rec.Reset()
	if len(rec.Events()) != 0 {
		t.Error("expected Reset to drop events")
	}
}
