package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	vgerrors "github.com/vango-dev/vgraph/internal/errors"
	"github.com/vango-dev/vgraph/pkg/check"
	"github.com/vango-dev/vgraph/pkg/dispose"
	"github.com/vango-dev/vgraph/pkg/event"
)

// sumProvider adds int arguments and counts its calls.
func sumProvider(calls *atomic.Int32) *Provider {
	return FuncN("sum", func(_ context.Context, args []any) (int, error) {
		calls.Add(1)
		total := 0
		for _, a := range args {
			total += a.(int)
		}
		return total, nil
	})
}

func mustCreate(t *testing.T, g *Graph, id *ID, v any, owner Context) Setter {
	t.Helper()
	set, err := g.CreateProvider(id, v, owner)
	if err != nil {
		t.Fatalf("CreateProvider(%s): %v", id, err)
	}
	return set
}

func mustGet(t *testing.T, g *Graph, id *ID, owner Context) any {
	t.Helper()
	v, err := g.Get(context.Background(), id, g.Timestamp(), owner)
	if err != nil {
		t.Fatalf("Get(%s): %v", id, err)
	}
	return v
}

func TestSumExample(t *testing.T) {
	ctx := context.Background()
	g := New()
	a := StaticID("a", check.Int)
	b := StaticID("b", check.Int)
	c := StaticID("c", check.Int)

	var calls atomic.Int32
	if err := g.RegisterProvider(a, sumProvider(&calls), b, c); err != nil {
		t.Fatalf("RegisterProvider: %v", err)
	}
	setB := mustCreate(t, g, b, 3, nil)
	setC := mustCreate(t, g, c, 4, nil)

	if v := mustGet(t, g, a, nil); v != 7 {
		t.Errorf("expected 7, got %v", v)
	}

	if _, err := setB(ctx, 2); err != nil {
		t.Fatalf("setB: %v", err)
	}
	if _, err := setC(ctx, 3); err != nil {
		t.Fatalf("setC: %v", err)
	}

	if v := mustGet(t, g, a, nil); v != 5 {
		t.Errorf("expected 5, got %v", v)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("expected provider to run twice in total, got %d", n)
	}
}

func TestMemoization(t *testing.T) {
	g := New()
	a := StaticID("a", check.Int)
	b := StaticID("b", check.Int)

	var calls atomic.Int32
	g.RegisterProvider(a, sumProvider(&calls), b)
	mustCreate(t, g, b, 1, nil)

	for i := 0; i < 3; i++ {
		mustGet(t, g, a, nil)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 provider call, got %d", n)
	}
}

func TestDeterminismAtFixedTime(t *testing.T) {
	ctx := context.Background()
	g := New()
	a := StaticID("a", check.Int)
	b := StaticID("b", check.Int)

	var calls atomic.Int32
	g.RegisterProvider(a, sumProvider(&calls), b)
	setB := mustCreate(t, g, b, 1, nil)

	setB(ctx, 2)
	at := g.Timestamp()
	setB(ctx, 3)

	for i := 0; i < 2; i++ {
		v, err := g.Get(ctx, a, at, nil)
		if err != nil || v != 2 {
			t.Errorf("expected 2 at %s, got %v (err=%v)", at, v, err)
		}
	}
}

func TestReadAtOlderTimestamp(t *testing.T) {
	ctx := context.Background()
	g := New()
	a := StaticID("a", check.Int)
	b := StaticID("b", check.Int)

	var calls atomic.Int32
	g.RegisterProvider(a, sumProvider(&calls), b)
	setB := mustCreate(t, g, b, 10, nil)
	seeded := g.Timestamp()

	setB(ctx, 20)
	if v := mustGet(t, g, a, nil); v != 20 {
		t.Fatalf("expected 20, got %v", v)
	}

	old, err := g.Get(ctx, a, seeded, nil)
	if err != nil || old != 10 {
		t.Errorf("expected 10 at %s, got %v (err=%v)", seeded, old, err)
	}

	// The historical read does not evict the current memo.
	before := calls.Load()
	if v := mustGet(t, g, a, nil); v != 20 {
		t.Errorf("expected 20, got %v", v)
	}
	if calls.Load() != before {
		t.Error("expected current read to be served from the memo")
	}
}

func TestReadBeforeRetainedHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("evicted versions", func(t *testing.T) {
		g := New(WithInputHistory(2))
		a := StaticID("a", check.Int)
		b := StaticID("b", check.Int)
		var calls atomic.Int32
		g.RegisterProvider(a, sumProvider(&calls), b)
		setB := mustCreate(t, g, b, 0, nil)
		seeded := g.Timestamp()
		for _, v := range []int{1, 2, 3} {
			setB(ctx, v)
		}

		for _, id := range []*ID{a, b} {
			v, err := g.Get(ctx, id, seeded, nil)
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(%s, %s): expected ErrNotFound, got %v (err=%v)", id, seeded, v, err)
			}
		}
		if v := mustGet(t, g, a, nil); v != 3 {
			t.Errorf("expected 3, got %v", v)
		}
	})

	t.Run("seeded later", func(t *testing.T) {
		g := New()
		x := StaticID("x", check.Int)
		y := StaticID("y", check.Int)
		setX := mustCreate(t, g, x, 1, nil)
		setX(ctx, 2)
		setX(ctx, 3)
		mustCreate(t, g, y, 99, nil)

		if v, err := g.Get(ctx, y, Epoch, nil); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound before y was seeded, got %v (err=%v)", v, err)
		}
		if v, err := g.Get(ctx, x, Epoch, nil); err != nil || v != 1 {
			t.Errorf("expected 1 at %s, got %v (err=%v)", Epoch, v, err)
		}
	})
}

func TestNilID(t *testing.T) {
	ctx := context.Background()
	g := New()
	a := StaticID("a", nil)
	var calls atomic.Int32

	errs := map[string]error{
		"register":        g.RegisterProvider(nil, sumProvider(&calls)),
		"register params": g.RegisterProvider(a, sumProvider(&calls), nil),
		"refresh":         g.Refresh(ctx, nil, nil),
	}
	_, errs["create"] = g.CreateProvider(nil, 1, nil)
	_, errs["get"] = g.Get(ctx, nil, g.Timestamp(), nil)
	_, errs["set"] = g.Set(ctx, nil, nil, 1)

	for op, err := range errs {
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", op, err)
		}
	}
	if _, ok := g.Node(a); ok {
		t.Error("expected a to stay unregistered")
	}
}

func TestRegisterProviderIdempotent(t *testing.T) {
	g := New()
	id := StaticID("x", nil)
	p1 := StaticID("p1", nil)
	p2 := StaticID("p2", nil)
	p3 := StaticID("p3", nil)
	var calls atomic.Int32
	f := sumProvider(&calls)

	if err := g.RegisterProvider(id, f, p1, p2); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if err := g.RegisterProvider(id, f, p1, p2); err != nil {
		t.Errorf("expected identical registration to be a no-op, got %v", err)
	}

	err := g.RegisterProvider(id, f, p1, p3)
	if !errors.Is(err, ErrReregistrationConflict) {
		t.Errorf("expected ErrReregistrationConflict, got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "reregistered node parameter") {
		t.Errorf("expected parameter conflict message, got %v", err)
	}

	err = g.RegisterProvider(id, sumProvider(&calls), p1, p2)
	if !errors.Is(err, ErrReregistrationConflict) || !strings.Contains(err.Error(), "reregistered node provider") {
		t.Errorf("expected provider conflict, got %v", err)
	}
}

func TestRegistrationKindConflicts(t *testing.T) {
	g := New()
	in := StaticID("in", nil)
	inner := StaticID("inner", nil)
	var calls atomic.Int32

	mustCreate(t, g, in, 1, nil)
	g.RegisterProvider(inner, sumProvider(&calls))

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"register over input", g.RegisterProvider(in, sumProvider(&calls)), ErrAlreadyRegistered},
		{"create over inner", createErr(g, inner, 1, nil), ErrAlreadyRegistered},
		{"create static twice", createErr(g, in, 2, nil), ErrAlreadyRegistered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, tt.err)
			}
		})
	}
}

func createErr(g *Graph, id *ID, v any, owner Context) error {
	_, err := g.CreateProvider(id, v, owner)
	return err
}

func TestInstanceInputPerContext(t *testing.T) {
	g := New()
	id := InstanceID("name", check.String)
	x := dispose.NewOwner(nil)
	y := dispose.NewOwner(nil)

	mustCreate(t, g, id, "x", x)
	mustCreate(t, g, id, "y", y)

	if err := createErr(g, id, "again", x); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("expected ErrAlreadyRegistered, got %v", err)
	}
	if err := createErr(g, id, "global", nil); !errors.Is(err, ErrMissingContext) {
		t.Errorf("expected ErrMissingContext, got %v", err)
	}

	if v := mustGet(t, g, id, x); v != "x" {
		t.Errorf("expected x, got %v", v)
	}
	if v := mustGet(t, g, id, y); v != "y" {
		t.Errorf("expected y, got %v", v)
	}

	z := dispose.NewOwner(nil)
	_, err := g.Get(context.Background(), id, g.Timestamp(), z)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unseeded context, got %v", err)
	}

	x.Dispose()
	n, _ := g.Node(id)
	if got := n.(*InputNode).Contexts(); got != 1 {
		t.Errorf("expected disposed context to be released, got %d contexts", got)
	}
}

func TestGetErrors(t *testing.T) {
	ctx := context.Background()
	g := New()
	missing := StaticID("missing", nil)
	inst := InstanceID("inst", nil)
	mustCreate(t, g, inst, 1, dispose.NewOwner(nil))

	_, err := g.Get(ctx, missing, g.Timestamp(), nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	var coded *vgerrors.Error
	if !errors.As(err, &coded) || coded.Code != "G001" || coded.Subject != "missing" {
		t.Errorf("expected G001 about missing, got %#v", err)
	}

	if _, err := g.Get(ctx, inst, g.Timestamp(), nil); !errors.Is(err, ErrMissingContext) {
		t.Errorf("expected ErrMissingContext, got %v", err)
	}
}

func TestSetErrors(t *testing.T) {
	ctx := context.Background()
	g := New()
	in := StaticID("in", check.Int)
	inner := StaticID("inner", nil)
	var calls atomic.Int32
	g.RegisterProvider(inner, sumProvider(&calls))
	mustCreate(t, g, in, 1, nil)

	tests := []struct {
		name string
		id   *ID
		v    any
		want error
	}{
		{"unknown", StaticID("nope", nil), 1, ErrNotFound},
		{"inner", inner, 1, ErrNotInputNode},
		{"wrong type", in, "one", ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Set(ctx, tt.id, nil, tt.v)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if g.Timestamp() != Epoch {
		t.Errorf("expected failed writes to leave the clock at epoch, got %s", g.Timestamp())
	}
}

func TestTypeMismatchKeepsMemo(t *testing.T) {
	ctx := context.Background()
	g := New()
	out := StaticID("out", check.Int)
	in := StaticID("in", check.Any)

	g.RegisterProvider(out, Func1("identity", func(_ context.Context, v any) (any, error) {
		return v, nil
	}), in)
	setIn := mustCreate(t, g, in, 1, nil)

	if v := mustGet(t, g, out, nil); v != 1 {
		t.Fatalf("expected 1, got %v", v)
	}

	setIn(ctx, "not a number")
	_, err := g.Get(ctx, out, g.Timestamp(), nil)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}

	n, _ := g.Node(out)
	ts, v, _ := n.(*InnerNode).LatestCacheValue(nil)
	if v != 1 || ts != Epoch {
		t.Errorf("expected memo 1@t0 to survive, got %v@%s", v, ts)
	}

	setIn(ctx, 5)
	if v := mustGet(t, g, out, nil); v != 5 {
		t.Errorf("expected a later correct read to succeed, got %v", v)
	}
}

func TestProviderError(t *testing.T) {
	g := New()
	id := StaticID("broken", nil)
	boom := errors.New("boom")
	g.RegisterProvider(id, Func0("broken", func(context.Context) (int, error) {
		return 0, boom
	}))

	_, err := g.Get(context.Background(), id, g.Timestamp(), nil)
	if !errors.Is(err, boom) {
		t.Errorf("expected provider error to be wrapped, got %v", err)
	}
	if err == nil || err.Error() != "G008: Provider failed: broken: boom" {
		t.Errorf("unexpected message %v", err)
	}
}

func TestProviderArgumentType(t *testing.T) {
	g := New()
	in := StaticID("in", nil)
	out := StaticID("out", nil)
	g.RegisterProvider(out, Func1("double", func(_ context.Context, n int) (int, error) {
		return n * 2, nil
	}), in)
	mustCreate(t, g, in, "two", nil)

	if _, err := g.Get(context.Background(), out, g.Timestamp(), nil); err == nil {
		t.Error("expected argument type error")
	}
}

func TestCycleRejected(t *testing.T) {
	g := New()
	a := StaticID("a", nil)
	b := StaticID("b", nil)
	c := StaticID("c", nil)
	var calls atomic.Int32
	p := sumProvider(&calls)

	if err := g.RegisterProvider(a, p, a); !errors.Is(err, ErrCycle) {
		t.Errorf("expected self cycle to be rejected, got %v", err)
	}
	if err := g.RegisterProvider(a, p, b); err != nil {
		t.Fatal(err)
	}
	if err := g.RegisterProvider(b, p, c); err != nil {
		t.Fatal(err)
	}
	if err := g.RegisterProvider(c, p, a); !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}
	if _, ok := g.Node(c); ok {
		t.Error("expected rejected node to stay unbound")
	}
}

func TestDependsOn(t *testing.T) {
	g := New()
	a := StaticID("a", nil)
	b := StaticID("b", nil)
	c := StaticID("c", nil)
	d := StaticID("d", nil)
	unrelated := StaticID("u", nil)
	var calls atomic.Int32
	p := sumProvider(&calls)

	g.RegisterProvider(a, p, b, c)
	g.RegisterProvider(b, p, d)
	g.RegisterProvider(c, p, d)

	if !g.DependsOn(a, d) || !g.DependsOn(a, b) {
		t.Error("expected a to depend on b and d")
	}
	if g.DependsOn(d, a) || g.DependsOn(a, a) || g.DependsOn(a, unrelated) {
		t.Error("unexpected dependency")
	}

	if diff := cmp.Diff([]string{"b", "c", "d"}, names(g.Dependencies(a))); diff != "" {
		t.Errorf("Dependencies mismatch (-want +got):\n%s", diff)
	}
}

func TestGetAs(t *testing.T) {
	g := New()
	id := StaticID("s", nil)
	mustCreate(t, g, id, "hello", nil)

	s, err := GetAs[string](context.Background(), g, id, g.Timestamp(), nil)
	if err != nil || s != "hello" {
		t.Errorf("expected hello, got %q (err=%v)", s, err)
	}
	if _, err := GetAs[int](context.Background(), g, id, g.Timestamp(), nil); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestGetAsync(t *testing.T) {
	ctx := context.Background()
	g := New()
	id := StaticID("n", nil)
	mustCreate(t, g, id, 42, nil)

	f := g.GetAsync(ctx, id, g.Timestamp(), nil)
	v, err := f.Await(ctx)
	if err != nil || v != 42 {
		t.Errorf("expected 42, got %v (err=%v)", v, err)
	}
}

func TestCommit(t *testing.T) {
	ctx := context.Background()
	g := New()
	id := StaticID("n", nil)
	set := mustCreate(t, g, id, 0, nil)

	c, err := set(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	ts, err := c.Wait(ctx)
	if err != nil || ts != TimeOf(1) {
		t.Errorf("expected commit at t1, got %s (err=%v)", ts, err)
	}
	if c.ID() != id {
		t.Error("expected commit to reference the written id")
	}
}

func TestBatchDefersWrites(t *testing.T) {
	ctx := context.Background()
	g := New()
	id := StaticID("n", nil)
	set := mustCreate(t, g, id, 0, nil)

	var inner *Commit
	g.Batch(ctx, func() {
		g.Batch(ctx, func() {
			inner, _ = set(ctx, 1)
		})
		if inner.Time() != Epoch {
			t.Errorf("expected nested batch not to flush, got %s", inner.Time())
		}
		set(ctx, 2)
		if v := mustGet(t, g, id, nil); v != 0 {
			t.Errorf("expected queued writes to be invisible, got %v", v)
		}
	})

	if inner.Time() != TimeOf(1) || g.Timestamp() != TimeOf(2) {
		t.Errorf("expected writes at t1 and t2, got %s and clock %s", inner.Time(), g.Timestamp())
	}
	if v := mustGet(t, g, id, nil); v != 2 {
		t.Errorf("expected 2, got %v", v)
	}
}

func TestGlitchFreedom(t *testing.T) {
	ctx := context.Background()
	g := New()
	owner := dispose.NewOwner(nil)
	a := InstanceID("a", check.Int)
	b := InstanceID("b", check.Int)
	c := InstanceID("c", check.Int)

	var seen [][2]int
	g.RegisterProvider(a, Func2("add", func(_ context.Context, x, y int) (int, error) {
		seen = append(seen, [2]int{x, y})
		return x + y, nil
	}), b, c)
	setB := mustCreate(t, g, b, 1, owner)
	setC := mustCreate(t, g, c, 2, owner)

	if v := mustGet(t, g, a, owner); v != 3 {
		t.Fatalf("expected 3, got %v", v)
	}

	g.Batch(ctx, func() {
		setB(ctx, 10)
		setC(ctx, 20)
	})

	want := [][2]int{{1, 2}, {10, 20}}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("provider observed a mixed state (-want +got):\n%s", diff)
	}
	if v := mustGet(t, g, a, owner); v != 30 {
		t.Errorf("expected 30, got %v", v)
	}
	if len(seen) != 2 {
		t.Errorf("expected the monitor refresh to populate the memo, got %d calls", len(seen))
	}
}

func TestMonitorRefreshesEagerly(t *testing.T) {
	ctx := context.Background()
	g := New()
	owner := dispose.NewOwner(nil)
	total := InstanceID("total", check.Int)
	qty := InstanceID("qty", check.Int)
	price := StaticID("price", check.Int)

	var calls atomic.Int32
	g.RegisterProvider(total, Func2("mul", func(_ context.Context, q, p int) (int, error) {
		calls.Add(1)
		return q * p, nil
	}), qty, price)
	mustCreate(t, g, qty, 2, owner)
	setPrice := mustCreate(t, g, price, 5, nil)

	var ready []string
	var changes []string
	g.Bus().On(EventReady, func(e event.Event) {
		ready = append(ready, e.(ReadyEvent).ID.Name())
	}, nil, false)
	g.Bus().On(EventChange, func(e event.Event) {
		ce := e.(ChangeEvent)
		changes = append(changes, fmt.Sprintf("%s:%v->%v", ce.ID.Name(), ce.Old, ce.New))
	}, nil, false)

	if v := mustGet(t, g, total, owner); v != 10 {
		t.Fatalf("expected 10, got %v", v)
	}
	if diff := cmp.Diff([]string{"total"}, names(g.Monitored(owner))); diff != "" {
		t.Errorf("monitored mismatch (-want +got):\n%s", diff)
	}

	// A global write refreshes the instance node in every context.
	setPrice(ctx, 7)
	if calls.Load() != 2 {
		t.Errorf("expected eager recompute, got %d calls", calls.Load())
	}
	if diff := cmp.Diff([]string{"price", "total"}, ready); diff != "" {
		t.Errorf("ready events mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"total:10->14"}, changes); diff != "" {
		t.Errorf("change events mismatch (-want +got):\n%s", diff)
	}

	if v := mustGet(t, g, total, owner); v != 14 {
		t.Errorf("expected 14, got %v", v)
	}
	if calls.Load() != 2 {
		t.Errorf("expected memo hit after refresh, got %d calls", calls.Load())
	}
}

func TestMonitorIgnoresOtherContexts(t *testing.T) {
	ctx := context.Background()
	g := New()
	x := dispose.NewOwner(nil)
	y := dispose.NewOwner(nil)
	out := InstanceID("out", nil)
	in := InstanceID("in", nil)

	var calls atomic.Int32
	g.RegisterProvider(out, sumProvider(&calls), in)
	mustCreate(t, g, in, 1, x)
	setY := mustCreate(t, g, in, 2, y)

	mustGet(t, g, out, x)
	mustGet(t, g, out, y)
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}

	setY(ctx, 5)
	if calls.Load() != 3 {
		t.Errorf("expected only y's monitor to refresh, got %d calls", calls.Load())
	}
}

func TestDisposeStopsMonitoring(t *testing.T) {
	ctx := context.Background()
	g := New()
	x := dispose.NewOwner(nil)
	a := InstanceID("a", check.Int)
	b := StaticID("b", check.Int)

	var calls atomic.Int32
	g.RegisterProvider(a, sumProvider(&calls), b)
	setB := mustCreate(t, g, b, 1, nil)

	mustGet(t, g, a, x)
	if g.Bus().Len(EventReady) != 1 {
		t.Fatalf("expected 1 monitor subscription, got %d", g.Bus().Len(EventReady))
	}

	x.Dispose()
	if len(g.Monitored(x)) != 0 || g.Bus().Len(EventReady) != 0 {
		t.Error("expected monitors to be released on dispose")
	}
	n, _ := g.Node(a)
	if n.(*InnerNode).Contexts() != 0 {
		t.Error("expected memo for disposed context to be released")
	}

	setB(ctx, 2)
	if calls.Load() != 1 {
		t.Errorf("expected no recompute after dispose, got %d calls", calls.Load())
	}
}

func TestFlushAfterPanickingRefresh(t *testing.T) {
	ctx := context.Background()
	g := New()
	owner := dispose.NewOwner(nil)
	a := InstanceID("a", check.Int)
	b := StaticID("b", check.Int)
	g.RegisterProvider(a, Func1("fragile", func(_ context.Context, v int) (int, error) {
		if v == 2 {
			panic("fragile provider")
		}
		return v, nil
	}), b)
	setB := mustCreate(t, g, b, 1, nil)
	if v := mustGet(t, g, a, owner); v != 1 {
		t.Fatalf("expected 1, got %v", v)
	}

	var interrupted *Commit
	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected the refresh panic to reach the writer")
			}
		}()
		g.Batch(ctx, func() { interrupted, _ = setB(ctx, 2) })
	}()
	select {
	case <-interrupted.Done():
	default:
		t.Error("expected the interrupted write to be finished")
	}
	if interrupted.Time() != TimeOf(1) {
		t.Errorf("expected interrupted write at t1, got %s", interrupted.Time())
	}

	c, err := setB(ctx, 3)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	select {
	case <-c.Done():
	default:
		t.Fatal("expected the next write to be committed")
	}
	if c.Time() != TimeOf(2) {
		t.Errorf("expected commit at t2, got %s", c.Time())
	}
	if v := mustGet(t, g, a, owner); v != 3 {
		t.Errorf("expected 3, got %v", v)
	}
}

func TestMiddlewareSeesOperations(t *testing.T) {
	var ops []string
	record := MiddlewareFunc(func(ctx context.Context, op *Operation, next Handler) (any, error) {
		v, err := next(ctx, op)
		ops = append(ops, fmt.Sprintf("%s %s hit=%v", op.Kind, op.ID.Name(), op.CacheHit))
		return v, err
	})

	g := New(WithMiddleware(record))
	a := StaticID("a", nil)
	b := StaticID("b", nil)
	var calls atomic.Int32
	g.RegisterProvider(a, sumProvider(&calls), b)
	mustCreate(t, g, b, 1, nil)

	mustGet(t, g, a, nil)
	mustGet(t, g, a, nil)

	want := []string{
		"get b hit=false",
		"execute a hit=false",
		"get a hit=false",
		"get a hit=true",
	}
	if diff := cmp.Diff(want, ops); diff != "" {
		t.Errorf("operations mismatch (-want +got):\n%s", diff)
	}
}

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	wrap := func(name string) Middleware {
		return MiddlewareFunc(func(ctx context.Context, op *Operation, next Handler) (any, error) {
			order = append(order, name+">")
			v, err := next(ctx, op)
			order = append(order, "<"+name)
			return v, err
		})
	}

	g := New(WithMiddleware(wrap("outer"), wrap("inner")))
	id := StaticID("n", nil)
	mustCreate(t, g, id, 1, nil)
	mustGet(t, g, id, nil)

	if diff := cmp.Diff([]string{"outer>", "inner>", "<inner", "<outer"}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyTable(t *testing.T) {
	g := New()
	a := StaticID("a", check.Int)
	b := StaticID("b", check.Int)
	c := StaticID("c", check.Int)
	var calls atomic.Int32

	var table Table
	table.Input(b, 3).Input(c, 4).Register(a, sumProvider(&calls), b, c)
	if err := g.Apply(&table); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if v := mustGet(t, g, a, nil); v != 7 {
		t.Errorf("expected 7, got %v", v)
	}

	var bad Table
	bad.Input(b, 1).Register(b, sumProvider(&calls))
	err := g.Apply(&bad)
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("expected joined ErrAlreadyRegistered, got %v", err)
	}
}

func TestClearNodesForTests(t *testing.T) {
	g := New()
	owner := dispose.NewOwner(nil)
	a := InstanceID("a", nil)
	b := InstanceID("b", nil)
	var calls atomic.Int32
	g.RegisterProvider(a, sumProvider(&calls), b)
	mustCreate(t, g, b, 1, owner)
	mustGet(t, g, a, owner)

	g.ClearNodesForTests(a)
	if _, ok := g.Node(a); ok {
		t.Error("expected a to be unbound")
	}
	if _, ok := g.Node(b); !ok {
		t.Error("expected b to stay bound")
	}
	if len(g.Monitored(owner)) != 0 {
		t.Error("expected monitors on a to be released")
	}

	g.ClearNodesForTests()
	if len(g.Nodes()) != 0 {
		t.Errorf("expected empty graph, got %v", g.Nodes())
	}
}

func TestCloseReleasesMonitors(t *testing.T) {
	g := New()
	owner := dispose.NewOwner(nil)
	a := InstanceID("a", nil)
	b := StaticID("b", nil)
	var calls atomic.Int32
	g.RegisterProvider(a, sumProvider(&calls), b)
	mustCreate(t, g, b, 1, nil)
	mustGet(t, g, a, owner)

	g.Close()
	if g.Bus().Len(EventReady) != 0 || len(g.Monitored(owner)) != 0 {
		t.Error("expected Close to release monitors")
	}
}

func names(ids []*ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Name()
	}
	return out
}
