package graph

import (
	"context"
	"slices"
	"sync"
)

// Node is either an *InputNode or an *InnerNode.
type Node interface {
	isNode()
}

type version struct {
	t Time
	v any
}

// InputNode holds externally written values. It keeps a short history of
// versions per context so reads at an older time see that era's value.
type InputNode struct {
	mu       sync.RWMutex
	depth    int
	versions map[uint64][]version
}

func newInputNode(depth int) *InputNode {
	if depth < 1 {
		depth = 1
	}
	return &InputNode{
		depth:    depth,
		versions: make(map[uint64][]version),
	}
}

func (*InputNode) isNode() {}

// Set records v as the value for owner at time t. It reports whether this
// is the first value for owner.
func (n *InputNode) Set(owner Context, t Time, v any) bool {
	key := contextKey(owner)

	n.mu.Lock()
	defer n.mu.Unlock()

	hist, existed := n.versions[key]
	hist = append(hist, version{t: t, v: v})
	if len(hist) > n.depth {
		hist = slices.Delete(hist, 0, len(hist)-n.depth)
	}
	n.versions[key] = hist
	return !existed
}

// Latest returns the newest version for owner.
func (n *InputNode) Latest(owner Context) (Time, any, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	hist := n.versions[contextKey(owner)]
	if len(hist) == 0 {
		return Epoch, nil, false
	}
	last := hist[len(hist)-1]
	return last.t, last.v, true
}

// At returns the newest version for owner written at or before t. It
// reports false when t predates every retained version.
func (n *InputNode) At(owner Context, t Time) (Time, any, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	hist := n.versions[contextKey(owner)]
	if len(hist) == 0 {
		return Epoch, nil, false
	}
	for i := len(hist) - 1; i >= 0; i-- {
		if !hist[i].t.After(t) {
			return hist[i].t, hist[i].v, true
		}
	}
	return Epoch, nil, false
}

func (n *InputNode) has(owner Context) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.versions[contextKey(owner)]
	return ok
}

func (n *InputNode) forget(owner Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.versions, contextKey(owner))
}

// Contexts returns the number of contexts holding a value.
func (n *InputNode) Contexts() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.versions)
}

type memo struct {
	t Time
	v any
}

// InnerNode computes its value from parameter nodes through a Provider and
// memoizes one value per context.
type InnerNode struct {
	provider *Provider
	params   []*ID

	mu    sync.RWMutex
	memos map[uint64]memo
}

func newInnerNode(provider *Provider, params []*ID) *InnerNode {
	return &InnerNode{
		provider: provider,
		params:   slices.Clone(params),
		memos:    make(map[uint64]memo),
	}
}

func (*InnerNode) isNode() {}

// ParameterIDs returns the parameters in provider argument order.
func (n *InnerNode) ParameterIDs() []*ID {
	return slices.Clone(n.params)
}

// Provider returns the node's provider.
func (n *InnerNode) Provider() *Provider {
	return n.provider
}

// Execute calls the provider with resolved arguments.
func (n *InnerNode) Execute(ctx context.Context, owner Context, args []any) (any, error) {
	return n.provider.Call(ctx, owner, args)
}

// LatestCacheValue returns the memoized value for owner.
func (n *InnerNode) LatestCacheValue(owner Context) (Time, any, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	m, ok := n.memos[contextKey(owner)]
	return m.t, m.v, ok
}

func (n *InnerNode) store(owner Context, t Time, v any) {
	n.mu.Lock()
	n.memos[contextKey(owner)] = memo{t: t, v: v}
	n.mu.Unlock()
}

func (n *InnerNode) forget(owner Context) {
	n.mu.Lock()
	delete(n.memos, contextKey(owner))
	n.mu.Unlock()
}

// Contexts returns the number of contexts holding a memo.
func (n *InnerNode) Contexts() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.memos)
}

func (n *InnerNode) sameShape(p *Provider, params []*ID) bool {
	return n.provider == p && slices.Equal(n.params, params)
}
