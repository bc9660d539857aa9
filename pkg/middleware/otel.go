package middleware

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vgraph/pkg/graph"
)

// Default tracer name for graph spans.
const defaultTracerName = "vgraph"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "vgraph").
	TracerName string

	// TracerProvider provides the tracer. If nil, the global provider is
	// used.
	TracerProvider trace.TracerProvider

	// Filter determines which operations to trace.
	// Return true to trace the operation, false to skip.
	// If nil, all operations are traced.
	Filter func(op *graph.Operation) bool

	// AttributeExtractor adds custom attributes to each span.
	AttributeExtractor func(op *graph.Operation) []attribute.KeyValue

	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithOperationFilter sets a filter function for operations.
func WithOperationFilter(filter func(op *graph.Operation) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(op *graph.Operation) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName: defaultTracerName,
	}
}

// OpenTelemetry creates middleware that traces graph operations. A read
// that recomputes a node opens child spans for its parameter reads and the
// provider call.
//
// The tracer uses the global OpenTelemetry tracer provider unless one is
// given with WithTracerProvider:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) graph.Middleware {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}

	if config.TracerProvider != nil {
		config.tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		config.tracer = otel.Tracer(config.TracerName)
	}

	return graph.MiddlewareFunc(func(ctx context.Context, op *graph.Operation, next graph.Handler) (any, error) {
		if config.Filter != nil && !config.Filter(op) {
			return next(ctx, op)
		}

		attrs := []attribute.KeyValue{
			attribute.String("vgraph.op", op.Kind.String()),
			attribute.String("vgraph.node", op.ID.Name()),
			attribute.String("vgraph.node_kind", op.ID.Kind().String()),
			attribute.Int64("vgraph.requested", int64(op.Requested.Uint64())),
		}
		if op.Context != nil {
			attrs = append(attrs, attribute.Int64("vgraph.context", int64(op.Context.ID())))
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(op)...)
		}

		spanCtx, span := config.tracer.Start(ctx, formatSpanName(op),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		v, err := next(spanCtx, op)

		if op.Kind == graph.OpGet || op.Kind == graph.OpExecute {
			span.SetAttributes(
				attribute.Int64("vgraph.ideal", int64(op.Ideal.Uint64())),
				attribute.Bool("vgraph.cache_hit", op.CacheHit),
			)
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return v, err
	})
}

// formatSpanName creates a span name from the operation.
func formatSpanName(op *graph.Operation) string {
	return fmt.Sprintf("vgraph.%s %s", op.Kind, op.ID.Name())
}
