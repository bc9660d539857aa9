package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/vango-dev/vgraph/pkg/graph"
)

// ErrPanic is wrapped by the error Recover returns for a panicking operation.
var ErrPanic = errors.New("panic in graph operation")

// Recover converts panics raised below it into errors wrapping ErrPanic.
// The stack is logged at error level.
func Recover(logger *slog.Logger) graph.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return graph.MiddlewareFunc(func(ctx context.Context, op *graph.Operation, next graph.Handler) (v any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("graph operation panicked",
					"op", op.Kind.String(),
					"node", op.ID.Name(),
					"panic", r,
					"stack", string(debug.Stack()))
				v = nil
				err = fmt.Errorf("%w: %s %s: %v", ErrPanic, op.Kind, op.ID.Name(), r)
			}
		}()
		return next(ctx, op)
	})
}

// Logging logs every operation at debug level and failures at warn level.
func Logging(logger *slog.Logger) graph.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return graph.MiddlewareFunc(func(ctx context.Context, op *graph.Operation, next graph.Handler) (any, error) {
		start := time.Now()
		v, err := next(ctx, op)

		attrs := []any{
			"op", op.Kind.String(),
			"node", op.ID.Name(),
			"requested", op.Requested.String(),
			"duration", time.Since(start),
		}
		if op.Kind == graph.OpGet {
			attrs = append(attrs, "cache_hit", op.CacheHit)
		}
		if err != nil {
			logger.WarnContext(ctx, "graph operation failed", append(attrs, "error", err)...)
		} else {
			logger.DebugContext(ctx, "graph operation", attrs...)
		}
		return v, err
	})
}
