package graph

import "context"

// OpKind classifies graph operations seen by middleware.
type OpKind int

const (
	// OpGet is a read through Get, GetAs or GetAsync.
	OpGet OpKind = iota
	// OpExecute is a provider call for a memo miss.
	OpExecute
	// OpSet is a write through Set or a Setter.
	OpSet
	// OpRefresh is an eager recompute triggered by a write or a monitor.
	OpRefresh
)

func (k OpKind) String() string {
	switch k {
	case OpGet:
		return "get"
	case OpExecute:
		return "execute"
	case OpSet:
		return "set"
	case OpRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// Operation describes a graph operation in flight.
type Operation struct {
	Kind    OpKind
	ID      *ID
	Context Context

	// Requested is the time the caller asked for (OpGet) or the graph time
	// when the operation started.
	Requested Time

	// Ideal is the memo time the read resolved to. Set by the graph for
	// OpGet and OpExecute.
	Ideal Time

	// CacheHit is set by the graph when an OpGet was served from the memo.
	CacheHit bool
}

// Handler performs an operation.
type Handler func(ctx context.Context, op *Operation) (any, error)

// Middleware wraps graph operations. Implementations must call next exactly
// once unless they fail the operation themselves.
type Middleware interface {
	Wrap(ctx context.Context, op *Operation, next Handler) (any, error)
}

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc func(ctx context.Context, op *Operation, next Handler) (any, error)

func (f MiddlewareFunc) Wrap(ctx context.Context, op *Operation, next Handler) (any, error) {
	return f(ctx, op, next)
}

// run executes final through the middleware chain, outermost first.
func (g *Graph) run(ctx context.Context, op *Operation, final Handler) (any, error) {
	if len(g.middleware) == 0 {
		return final(ctx, op)
	}

	h := final
	for i := len(g.middleware) - 1; i >= 0; i-- {
		mw := g.middleware[i]
		next := h
		h = func(ctx context.Context, op *Operation) (any, error) {
			return mw.Wrap(ctx, op, next)
		}
	}
	return h(ctx, op)
}
