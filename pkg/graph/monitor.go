package graph

import (
	"context"
	"sync"

	"github.com/vango-dev/vgraph/pkg/dispose"
	"github.com/vango-dev/vgraph/pkg/event"
)

// monitor keeps an inner node current in one context: whenever a node it
// depends on becomes ready in that context (or globally) it refreshes the
// node.
type monitor struct {
	graph *Graph
	id    *ID
	owner Context

	mu       sync.Mutex
	sub      dispose.Disposable
	released bool
}

// monitor subscribes a monitor for id in owner unless one exists. Global
// reads are never monitored.
func (g *Graph) monitor(id *ID, owner Context) {
	if owner == nil || isDisposed(owner) {
		return
	}
	key := owner.ID()

	g.mu.Lock()
	byID := g.monitored[key]
	if _, ok := byID[id]; ok {
		g.mu.Unlock()
		return
	}
	if byID == nil {
		byID = make(map[*ID]*monitor)
		g.monitored[key] = byID
	}
	m := &monitor{graph: g, id: id, owner: owner}
	byID[id] = m
	g.mu.Unlock()

	m.mu.Lock()
	m.sub = g.bus.On(EventReady, m.onReady, g, false)
	m.mu.Unlock()

	owner.AddDisposable(dispose.Func(m.release))

	g.logger.Debug("monitor subscribed", "node", id.Name(), "context", key)
}

// Monitored returns the IDs monitored in owner's context, in creation order.
func (g *Graph) Monitored(owner Context) []*ID {
	g.mu.Lock()
	byID := g.monitored[contextKey(owner)]
	ids := make([]*ID, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	g.mu.Unlock()

	sortIDs(ids)
	return ids
}

func (m *monitor) onReady(e event.Event) {
	ready, ok := e.(ReadyEvent)
	if !ok || ready.ID == m.id {
		return
	}
	if ready.Context != nil && !sameContext(ready.Context, m.owner) {
		return
	}
	if isDisposed(m.owner) || !m.graph.DependsOn(m.id, ready.ID) {
		return
	}

	if err := m.graph.Refresh(context.Background(), m.id, m.owner); err != nil {
		m.graph.logger.Warn("monitor refresh failed",
			"node", m.id.Name(),
			"context", m.owner.ID(),
			"trigger", ready.ID.Name(),
			"error", err)
	}
}

func (m *monitor) release() {
	m.mu.Lock()
	if m.released {
		m.mu.Unlock()
		return
	}
	m.released = true
	sub := m.sub
	m.mu.Unlock()

	if sub != nil {
		sub.Dispose()
	}

	g := m.graph
	key := m.owner.ID()

	g.mu.Lock()
	if byID := g.monitored[key]; byID[m.id] == m {
		delete(byID, m.id)
		if len(byID) == 0 {
			delete(g.monitored, key)
		}
	}
	node := g.nodes[m.id]
	g.mu.Unlock()

	if inner, ok := node.(*InnerNode); ok && m.id.kind == Instance {
		inner.forget(m.owner)
	}

	g.logger.Debug("monitor released", "node", m.id.Name(), "context", key)
}
