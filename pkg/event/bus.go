// Package event implements the synchronous publish/subscribe bus the graph
// uses to announce refreshed and changed nodes.
package event

import (
	"sync"
	"sync/atomic"

	"github.com/vango-dev/vgraph/pkg/dispose"
)

// Type names an event kind.
type Type string

// Event is anything that can be dispatched on a Bus.
type Event interface {
	EventType() Type
}

// Handler receives dispatched events.
type Handler func(e Event)

type subscription struct {
	typ        Type
	handler    Handler
	subscriber any
	capture    bool
	removed    atomic.Bool
}

// Bus dispatches events to handlers synchronously, on the caller's goroutine.
// Capture handlers run before regular handlers; within each phase handlers run
// in subscription order. Handlers may subscribe, unsubscribe and dispatch
// while being notified.
type Bus struct {
	mu   sync.RWMutex
	subs map[Type][]*subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Type][]*subscription)}
}

// On subscribes handler to events of type t. The subscriber is an opaque key
// used by Off to remove every subscription it owns; it may be nil. Disposing
// the returned value removes only this subscription.
func (b *Bus) On(t Type, handler Handler, subscriber any, capture bool) dispose.Disposable {
	sub := &subscription{
		typ:        t,
		handler:    handler,
		subscriber: subscriber,
		capture:    capture,
	}

	b.mu.Lock()
	b.subs[t] = append(b.subs[t], sub)
	b.mu.Unlock()

	return dispose.Func(func() {
		b.remove(sub)
	})
}

// Off removes all subscriptions registered with subscriber and returns how
// many were removed.
func (b *Bus) Off(subscriber any) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for t, subs := range b.subs {
		kept := subs[:0]
		for _, s := range subs {
			if s.subscriber != nil && s.subscriber == subscriber {
				s.removed.Store(true)
				removed++
				continue
			}
			kept = append(kept, s)
		}
		if len(kept) == 0 {
			delete(b.subs, t)
		} else {
			b.subs[t] = kept
		}
	}
	return removed
}

// Dispatch delivers e to every handler subscribed to its type.
func (b *Bus) Dispatch(e Event) {
	b.mu.RLock()
	subs := b.subs[e.EventType()]
	if len(subs) == 0 {
		b.mu.RUnlock()
		return
	}
	// Copy so handlers can modify subscriptions during notification.
	ordered := make([]*subscription, 0, len(subs))
	for _, s := range subs {
		if s.capture {
			ordered = append(ordered, s)
		}
	}
	for _, s := range subs {
		if !s.capture {
			ordered = append(ordered, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range ordered {
		if s.removed.Load() {
			continue
		}
		s.handler(e)
	}
}

// Len returns the number of live subscriptions for t.
func (b *Bus) Len(t Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[t])
}

func (b *Bus) remove(sub *subscription) {
	if sub.removed.Swap(true) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[sub.typ]
	for i, s := range subs {
		if s == sub {
			b.subs[sub.typ] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[sub.typ]) == 0 {
		delete(b.subs, sub.typ)
	}
}
