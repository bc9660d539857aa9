package graph

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	vgerrors "github.com/vango-dev/vgraph/internal/errors"
	"github.com/vango-dev/vgraph/pkg/dispose"
	"github.com/vango-dev/vgraph/pkg/event"
)

// DefaultInputHistory is the number of versions an input keeps per context.
const DefaultInputHistory = 16

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithBus sets the event bus ready and change events are dispatched on.
func WithBus(b *event.Bus) Option {
	return func(g *Graph) {
		if b != nil {
			g.bus = b
		}
	}
}

// WithMiddleware appends middleware. The first middleware is the outermost.
func WithMiddleware(mw ...Middleware) Option {
	return func(g *Graph) {
		g.middleware = append(g.middleware, mw...)
	}
}

// WithInputHistory sets how many versions each input keeps per context.
func WithInputHistory(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.inputHistory = n
		}
	}
}

type pendingWrite struct {
	id     *ID
	node   *InputNode
	scope  Context
	value  any
	commit *Commit
	first  bool
}

// Graph binds IDs to nodes and coordinates reads, writes and invalidation.
// A Graph is safe for concurrent use. Providers are always called without
// any graph lock held and may read from the graph.
type Graph struct {
	mu         sync.Mutex
	nodes      map[*ID]Node
	clock      Time
	pending    []pendingWrite
	batchDepth int
	flushing   bool
	monitored  map[uint64]map[*ID]*monitor

	flight singleflight.Group

	bus          *event.Bus
	middleware   []Middleware
	logger       *slog.Logger
	inputHistory int
}

// New creates an empty graph at Epoch.
func New(opts ...Option) *Graph {
	g := &Graph{
		nodes:        make(map[*ID]Node),
		monitored:    make(map[uint64]map[*ID]*monitor),
		bus:          event.NewBus(),
		logger:       slog.Default(),
		inputHistory: DefaultInputHistory,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Bus returns the bus ReadyEvent and ChangeEvent are dispatched on.
func (g *Graph) Bus() *event.Bus {
	return g.bus
}

// Timestamp returns the time of the last committed write.
func (g *Graph) Timestamp() Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.clock
}

// Node returns the node bound to id.
func (g *Graph) Node(id *ID) (Node, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns every bound ID in creation order.
func (g *Graph) Nodes() []*ID {
	g.mu.Lock()
	ids := make([]*ID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	g.mu.Unlock()

	sortIDs(ids)
	return ids
}

// RegisterProvider binds id to an inner node computing its value with
// provider from params. Registering the same provider and parameters again
// is a no-op; anything else bound to id is an error.
func (g *Graph) RegisterProvider(id *ID, provider *Provider, params ...*ID) error {
	if id == nil || slices.Contains(params, nil) {
		return errNilID()
	}
	if provider == nil {
		return vgerrors.Newf(vgerrors.CategoryConfig, "nil provider").WithSubject(id.Name())
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	switch n := g.nodes[id].(type) {
	case *InputNode:
		return errAlreadyRegistered(id, "bound to an input node")
	case *InnerNode:
		if n.provider != provider {
			return errProviderConflict(id, n.provider, provider)
		}
		if !n.sameShape(provider, params) {
			return errParameterConflict(id, n.params, params)
		}
		return nil
	}

	for _, p := range params {
		if p == id || g.dependsOnLocked(p, id) {
			return errCycle(id, p)
		}
	}

	g.nodes[id] = newInnerNode(provider, params)
	g.logger.Debug("registered node",
		"node", id.Name(),
		"provider", provider.Name(),
		"params", len(params))
	return nil
}

// Setter writes a new value to the input it was created for.
type Setter func(ctx context.Context, v any) (*Commit, error)

// CreateProvider binds id to an input node seeded with initial in owner's
// context at the current time. Instance IDs may be seeded once per context.
func (g *Graph) CreateProvider(id *ID, initial any, owner Context) (Setter, error) {
	if id == nil {
		return nil, errNilID()
	}
	if id.kind == Instance && owner == nil {
		return nil, errMissingContext(id)
	}
	if !id.typ.Check(initial) {
		return nil, errTypeMismatch(id, initial)
	}
	scope := scopeFor(id, owner)

	g.mu.Lock()
	var node *InputNode
	switch n := g.nodes[id].(type) {
	case *InnerNode:
		g.mu.Unlock()
		return nil, errAlreadyRegistered(id, "bound to an inner node")
	case *InputNode:
		if id.kind == Static || n.has(scope) {
			g.mu.Unlock()
			return nil, errAlreadyRegistered(id, "input already seeded in this context")
		}
		node = n
	default:
		node = newInputNode(g.inputHistory)
		g.nodes[id] = node
	}
	node.Set(scope, g.clock, initial)
	now := g.clock
	g.mu.Unlock()

	if scope != nil {
		scope.AddDisposable(dispose.Func(func() { node.forget(scope) }))
	}

	g.logger.Debug("created input",
		"node", id.Name(),
		"context", contextKey(scope),
		"time", now.String())

	return func(ctx context.Context, v any) (*Commit, error) {
		return g.Set(ctx, id, owner, v)
	}, nil
}

// Get returns the value of id at the requested time, in owner's context.
// Inner nodes are recomputed only when a parameter changed since their memo
// was taken.
func (g *Graph) Get(ctx context.Context, id *ID, requested Time, owner Context) (any, error) {
	if id == nil {
		return nil, errNilID()
	}
	op := &Operation{Kind: OpGet, ID: id, Context: owner, Requested: requested}
	return g.run(ctx, op, g.get)
}

// GetAs is Get with the result asserted to T.
func GetAs[T any](ctx context.Context, g *Graph, id *ID, requested Time, owner Context) (T, error) {
	var zero T
	v, err := g.Get(ctx, id, requested, owner)
	if err != nil || v == nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, vgerrors.New("G005").
			WithSubject(id.Name()).
			WithDetail(fmt.Sprintf("expected %T, got %T", zero, v)).
			Wrap(ErrTypeMismatch)
	}
	return t, nil
}

// GetAsync runs Get on a new goroutine.
func (g *Graph) GetAsync(ctx context.Context, id *ID, requested Time, owner Context) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = g.Get(ctx, id, requested, owner)
	}()
	return f
}

func (g *Graph) get(ctx context.Context, op *Operation) (any, error) {
	node, ok := g.Node(op.ID)
	if !ok {
		return nil, errNotFound(op.ID)
	}
	if op.ID.kind == Instance && op.Context == nil {
		return nil, errMissingContext(op.ID)
	}
	scope := scopeFor(op.ID, op.Context)

	switch n := node.(type) {
	case *InputNode:
		t, v, ok := n.At(scope, op.Requested)
		if !ok {
			return nil, errNoValue(op.ID, scope, op.Requested)
		}
		op.Ideal = t
		return v, nil

	case *InnerNode:
		ideal, err := g.idealTime(op.ID, op.Requested, scope)
		if err != nil {
			return nil, err
		}
		op.Ideal = ideal

		if t, v, ok := n.LatestCacheValue(scope); ok && t.Equal(ideal) {
			op.CacheHit = true
			g.monitor(op.ID, op.Context)
			return v, nil
		}

		v, err := g.compute(ctx, op.ID, n, scope, ideal)
		if err != nil {
			return nil, err
		}
		g.monitor(op.ID, op.Context)
		return v, nil
	}

	return nil, errNotFound(op.ID)
}

// idealTime is the newest version time among the inputs id transitively
// depends on, as seen at requested.
func (g *Graph) idealTime(id *ID, requested Time, owner Context) (Time, error) {
	node, ok := g.Node(id)
	if !ok {
		return Epoch, errNotFound(id)
	}
	if id.kind == Instance && owner == nil {
		return Epoch, errMissingContext(id)
	}
	scope := scopeFor(id, owner)

	switch n := node.(type) {
	case *InputNode:
		t, _, ok := n.At(scope, requested)
		if !ok {
			return Epoch, errNoValue(id, scope, requested)
		}
		return t, nil
	case *InnerNode:
		ideal := Epoch
		for _, p := range n.params {
			pt, err := g.idealTime(p, requested, scope)
			if err != nil {
				return Epoch, err
			}
			ideal = maxTime(ideal, pt)
		}
		return ideal, nil
	}
	return Epoch, errNotFound(id)
}

// compute resolves parameters at ideal and runs the provider. Concurrent
// computations of the same node, context and time share one provider call.
func (g *Graph) compute(ctx context.Context, id *ID, n *InnerNode, scope Context, ideal Time) (any, error) {
	key := strconv.FormatUint(id.seq, 10) + "/" +
		strconv.FormatUint(contextKey(scope), 10) + "/" +
		strconv.FormatUint(ideal.Uint64(), 10)

	v, err, _ := g.flight.Do(key, func() (any, error) {
		args := make([]any, len(n.params))
		for i, p := range n.params {
			a, err := g.Get(ctx, p, ideal, scope)
			if err != nil {
				return nil, err
			}
			args[i] = a
		}

		op := &Operation{Kind: OpExecute, ID: id, Context: scope, Requested: ideal, Ideal: ideal}
		v, err := g.run(ctx, op, func(ctx context.Context, _ *Operation) (any, error) {
			return n.Execute(ctx, scope, args)
		})
		if err != nil {
			return nil, errProvider(id, n.provider, err)
		}
		if !id.typ.Check(v) {
			return nil, errTypeMismatch(id, v)
		}

		prevT, prev, had := n.LatestCacheValue(scope)
		if had && ideal.Before(prevT) {
			// Historical read; keep the newer memo.
			return v, nil
		}
		n.store(scope, ideal, v)

		if had && !valuesEqual(prev, v) {
			g.bus.Dispatch(ChangeEvent{Context: scope, ID: id, Time: ideal, Old: prev, New: v})
		}
		return v, nil
	})
	return v, err
}

// Set queues a write of v to the input bound to id in owner's context.
// Outside a batch the queue is flushed before Set returns.
func (g *Graph) Set(ctx context.Context, id *ID, owner Context, v any) (*Commit, error) {
	if id == nil {
		return nil, errNilID()
	}
	op := &Operation{Kind: OpSet, ID: id, Context: owner, Requested: g.Timestamp()}
	res, err := g.run(ctx, op, func(ctx context.Context, op *Operation) (any, error) {
		return g.set(ctx, op.ID, op.Context, v)
	})
	if err != nil {
		return nil, err
	}
	c, _ := res.(*Commit)
	return c, nil
}

func (g *Graph) set(ctx context.Context, id *ID, owner Context, v any) (*Commit, error) {
	node, ok := g.Node(id)
	if !ok {
		return nil, errNotFound(id)
	}
	input, ok := node.(*InputNode)
	if !ok {
		return nil, errNotInputNode(id)
	}
	if id.kind == Instance && owner == nil {
		return nil, errMissingContext(id)
	}
	if !id.typ.Check(v) {
		return nil, errTypeMismatch(id, v)
	}

	c := newCommit(id)

	g.mu.Lock()
	g.pending = append(g.pending, pendingWrite{
		id:     id,
		node:   input,
		scope:  scopeFor(id, owner),
		value:  v,
		commit: c,
	})
	batching := g.batchDepth > 0
	g.mu.Unlock()

	if !batching {
		g.Flush(ctx)
	}
	return c, nil
}

// Batch runs fn with writes deferred. Queued writes are committed when the
// outermost Batch returns, so refreshes only observe the final state.
func (g *Graph) Batch(ctx context.Context, fn func()) {
	g.mu.Lock()
	g.batchDepth++
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.batchDepth--
		outermost := g.batchDepth == 0
		g.mu.Unlock()

		if outermost {
			g.Flush(ctx)
		}
	}()

	fn()
}

// Flush commits every queued write and returns how many were committed.
// Each write advances the clock by one; afterwards every distinct node and
// context written is refreshed once, in write order. Writes queued while
// refreshing are committed by the same flush. If a refresh panics, the
// writes already committed are finished before the panic propagates and the
// graph accepts further flushes.
func (g *Graph) Flush(ctx context.Context) int {
	g.mu.Lock()
	if g.flushing {
		g.mu.Unlock()
		return 0
	}
	g.flushing = true
	g.mu.Unlock()

	var (
		inflight []pendingWrite
		clean    bool
	)
	defer func() {
		if clean {
			return
		}
		g.mu.Lock()
		g.flushing = false
		g.mu.Unlock()
		for _, w := range inflight {
			w.commit.finish()
		}
	}()

	total := 0
	for {
		g.mu.Lock()
		writes := g.pending
		g.pending = nil
		if len(writes) == 0 {
			g.flushing = false
			g.mu.Unlock()
			clean = true
			return total
		}
		for i := range writes {
			g.clock = g.clock.Increment()
			w := &writes[i]
			w.first = w.node.Set(w.scope, g.clock, w.value)
			w.commit.commit(g.clock)
		}
		now := g.clock
		inflight = writes
		g.mu.Unlock()

		total += len(writes)
		g.logger.Debug("flushed writes", "count", len(writes), "time", now.String())

		type target struct {
			id  *ID
			ctx uint64
		}
		seen := make(map[target]bool, len(writes))
		for _, w := range writes {
			if w.first && w.scope != nil {
				node, scope := w.node, w.scope
				scope.AddDisposable(dispose.Func(func() { node.forget(scope) }))
			}
		}
		for _, w := range writes {
			t := target{id: w.id, ctx: contextKey(w.scope)}
			if seen[t] {
				continue
			}
			seen[t] = true

			if err := g.Refresh(ctx, w.id, w.scope); err != nil {
				g.logger.Warn("refresh after write failed", "node", w.id.Name(), "error", err)
			}
		}

		inflight = nil
		for _, w := range writes {
			w.commit.finish()
		}
	}
}

// Refresh recomputes an inner node at the current time and announces id as
// ready in owner's context. For inputs it only announces.
func (g *Graph) Refresh(ctx context.Context, id *ID, owner Context) error {
	if id == nil {
		return errNilID()
	}
	op := &Operation{Kind: OpRefresh, ID: id, Context: owner, Requested: g.Timestamp()}
	_, err := g.run(ctx, op, func(ctx context.Context, op *Operation) (any, error) {
		node, ok := g.Node(op.ID)
		if !ok {
			return nil, errNotFound(op.ID)
		}
		if _, inner := node.(*InnerNode); inner {
			if _, err := g.Get(ctx, op.ID, op.Requested, op.Context); err != nil {
				return nil, err
			}
		}
		g.bus.Dispatch(ReadyEvent{Context: op.Context, ID: op.ID, Time: op.Requested})
		return nil, nil
	})
	return err
}

// DependsOn reports whether candidate is a transitive parameter of id.
func (g *Graph) DependsOn(id, candidate *ID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dependsOnLocked(id, candidate)
}

func (g *Graph) dependsOnLocked(id, candidate *ID) bool {
	visited := map[*ID]bool{id: true}
	stack := []*ID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		inner, ok := g.nodes[cur].(*InnerNode)
		if !ok {
			continue
		}
		for _, p := range inner.params {
			if p == candidate {
				return true
			}
			if !visited[p] {
				visited[p] = true
				stack = append(stack, p)
			}
		}
	}
	return false
}

// Dependencies returns the transitive parameters of id in creation order.
func (g *Graph) Dependencies(id *ID) []*ID {
	g.mu.Lock()
	visited := map[*ID]bool{id: true}
	stack := []*ID{id}
	var deps []*ID
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		inner, ok := g.nodes[cur].(*InnerNode)
		if !ok {
			continue
		}
		for _, p := range inner.params {
			if !visited[p] {
				visited[p] = true
				deps = append(deps, p)
				stack = append(stack, p)
			}
		}
	}
	g.mu.Unlock()

	sortIDs(deps)
	return deps
}

// Close releases every monitor. The graph stays usable.
func (g *Graph) Close() {
	g.mu.Lock()
	var all []*monitor
	for _, byID := range g.monitored {
		for _, m := range byID {
			all = append(all, m)
		}
	}
	g.mu.Unlock()

	for _, m := range all {
		m.release()
	}
	g.bus.Off(g)
}

func sortIDs(ids []*ID) {
	slices.SortFunc(ids, func(a, b *ID) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		default:
			return 0
		}
	})
}
