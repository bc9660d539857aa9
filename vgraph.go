// Package vgraph assembles a ready-to-use dependency graph from a vgraph.json
// configuration: logger, Prometheus metrics, OpenTelemetry tracing, HCL
// manifests, the HTTP inspection server and snapshot export.
//
// Most programs only need package graph. Use this package when the graph is
// configured from files, as the vgraph command does:
//
//	cfg, _ := config.LoadFromWorkingDir()
//	rt, err := vgraph.New(cfg)
//	if err != nil {
//	    return err
//	}
//	defer rt.Close(ctx)
//
//	m, err := rt.LoadManifests(ctx, cfg.ManifestPaths()...)
package vgraph

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/vango-dev/vgraph/internal/config"
	"github.com/vango-dev/vgraph/internal/ctxlog"
	"github.com/vango-dev/vgraph/pkg/graph"
	"github.com/vango-dev/vgraph/pkg/manifest"
	"github.com/vango-dev/vgraph/pkg/middleware"
	"github.com/vango-dev/vgraph/pkg/server"
	"github.com/vango-dev/vgraph/pkg/snapshot"
)

// Runtime holds a configured graph and the services around it.
type Runtime struct {
	Config *config.Config
	Logger *slog.Logger
	Graph  *graph.Graph

	// Registry is nil when metrics are disabled.
	Registry *prometheus.Registry
	Metrics  *middleware.Metrics

	// TracerProvider is nil when tracing is disabled.
	TracerProvider *sdktrace.TracerProvider

	loader *manifest.Loader
	s3     snapshot.ObjectPutter
}

type options struct {
	output    io.Writer
	providers manifest.Providers
	spans     sdktrace.SpanExporter
	s3        snapshot.ObjectPutter
}

// Option customizes New.
type Option func(*options)

// WithOutput sets where logs and stdout spans are written. Default: stderr.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.output = w }
}

// WithProviders adds providers manifests can refer to, on top of the
// built-ins. A provider with a built-in's name replaces it.
func WithProviders(p manifest.Providers) Option {
	return func(o *options) { o.providers = p }
}

// WithSpanExporter replaces the stdout span exporter used when tracing is
// enabled.
func WithSpanExporter(e sdktrace.SpanExporter) Option {
	return func(o *options) { o.spans = e }
}

// WithS3Client sets the client snapshot uploads use instead of one built
// from the default AWS configuration.
func WithS3Client(c snapshot.ObjectPutter) Option {
	return func(o *options) { o.s3 = c }
}

// New builds a Runtime from cfg. A nil cfg uses config.Default().
func New(cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{output: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	logger := newLogger(cfg.Log.Level, cfg.Log.Format, o.output)
	rt := &Runtime{Config: cfg, Logger: logger, s3: o.s3}

	mw := []graph.Middleware{middleware.Recover(logger)}

	if cfg.Metrics.Enabled {
		rt.Registry = prometheus.NewRegistry()
		rt.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		rt.Metrics = middleware.Prometheus(
			middleware.WithNamespace(cfg.Metrics.Namespace),
			middleware.WithRegistry(rt.Registry),
		)
		mw = append(mw, rt.Metrics)
	}

	if cfg.Tracing.Enabled {
		exporter := o.spans
		if exporter == nil {
			var err error
			exporter, err = stdouttrace.New(stdouttrace.WithWriter(o.output))
			if err != nil {
				return nil, err
			}
		}
		rt.TracerProvider = sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
		mw = append(mw, middleware.OpenTelemetry(
			middleware.WithTracerName(cfg.Tracing.TracerName),
			middleware.WithTracerProvider(rt.TracerProvider),
		))
	}

	mw = append(mw, middleware.Logging(logger))

	rt.Graph = graph.New(
		graph.WithLogger(logger),
		graph.WithInputHistory(cfg.Graph.InputHistory),
		graph.WithMiddleware(mw...),
	)

	providers := manifest.Builtins()
	for name, p := range o.providers {
		providers[name] = p
	}
	rt.loader = manifest.NewLoader(providers)

	logger.Debug("runtime configured",
		"metrics", cfg.Metrics.Enabled,
		"tracing", cfg.Tracing.Enabled,
		"input_history", cfg.Graph.InputHistory)
	return rt, nil
}

// Context returns ctx carrying the runtime logger.
func (rt *Runtime) Context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, rt.Logger)
}

// LoadManifests reads the HCL manifests at paths and applies them to the
// graph.
func (rt *Runtime) LoadManifests(ctx context.Context, paths ...string) (*manifest.Manifest, error) {
	ctx = rt.Context(ctx)
	m, err := rt.loader.Load(ctx, paths...)
	if err != nil {
		return nil, err
	}
	if err := rt.Graph.Apply(&m.Table); err != nil {
		return nil, err
	}
	rt.Logger.Info("manifests loaded", "files", len(m.Files), "nodes", len(m.Declarations()))
	return m, nil
}

// Server returns an inspection server for the graph on the configured
// address, serving metrics when they are enabled.
func (rt *Runtime) Server() *server.Server {
	cfg := server.DefaultServerConfig().
		WithAddress(rt.Config.Server.Addr).
		WithLogger(rt.Logger)
	if rt.Registry != nil {
		cfg = cfg.WithGatherer(rt.Registry)
	}
	return server.New(rt.Graph, cfg)
}

// Exporter returns the snapshot exporter the configuration selects: S3 when
// a bucket is set, the snapshot directory otherwise.
func (rt *Runtime) Exporter(ctx context.Context) (snapshot.Exporter, error) {
	sc := rt.Config.Snapshot
	if sc.Bucket == "" {
		return snapshot.NewFileExporter(rt.Config.SnapshotDir())
	}

	client := rt.s3
	if client == nil {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if sc.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(sc.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, err
		}
		client = s3.NewFromConfig(awsCfg)
	}
	return snapshot.NewS3Exporter(client, sc.Bucket, sc.Prefix), nil
}

// Close releases the graph's monitors and flushes pending spans.
func (rt *Runtime) Close(ctx context.Context) error {
	rt.Graph.Close()
	var errs []error
	if rt.TracerProvider != nil {
		errs = append(errs, rt.TracerProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
