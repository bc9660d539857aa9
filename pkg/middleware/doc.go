// Package middleware provides observability middleware for graph operations.
//
// This package includes:
//   - Prometheus metrics middleware
//   - OpenTelemetry tracing middleware
//   - Logging and panic recovery middleware
//
// Every middleware implements graph.Middleware and is installed with
// graph.WithMiddleware. The first middleware given is the outermost.
//
// # Prometheus Metrics
//
// The Prometheus middleware counts operations by kind and outcome, times
// them, and tracks memo hits:
//   - vgraph_operations_total: Operations by kind and status
//   - vgraph_operation_duration_seconds: Operation duration histogram
//   - vgraph_reads_total: Reads by result (hit or miss)
//   - vgraph_errors_total: Failed operations by kind and error class
//
//	reg := prometheus.NewRegistry()
//	g := graph.New(graph.WithMiddleware(
//	    middleware.Prometheus(middleware.WithRegistry(reg)),
//	))
//
// # OpenTelemetry
//
// The OpenTelemetry middleware opens a span per operation, nested the way
// reads recurse through parameters:
//
//	g := graph.New(graph.WithMiddleware(
//	    middleware.OpenTelemetry(middleware.WithTracerName("pricing")),
//	))
//
// # Recovery
//
// Recover turns a panicking provider into an error for the read that
// triggered it. Install it innermost so the other middleware record the
// failure.
package middleware
