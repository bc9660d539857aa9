package graph

import "github.com/vango-dev/vgraph/pkg/event"

const (
	// EventReady is dispatched after a node was refreshed.
	EventReady event.Type = "ready"
	// EventChange is dispatched when a recomputed value differs from the
	// previous memo.
	EventChange event.Type = "change"
)

// ReadyEvent announces that id has a current value in Context. A nil
// Context means the global context.
type ReadyEvent struct {
	Context Context
	ID      *ID
	Time    Time
}

func (ReadyEvent) EventType() event.Type { return EventReady }

// ChangeEvent announces a new memoized value.
type ChangeEvent struct {
	Context Context
	ID      *ID
	Time    Time
	Old     any
	New     any
}

func (ChangeEvent) EventType() event.Type { return EventChange }
