package vgraph

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/vango-dev/vgraph/internal/config"
	"github.com/vango-dev/vgraph/pkg/graph"
	"github.com/vango-dev/vgraph/pkg/manifest"
	"github.com/vango-dev/vgraph/pkg/snapshot"
)

const orderManifest = `
input "price" {
  type  = number
  value = 3
}

input "qty" {
  type  = number
  value = 4
}

node "total" {
  provider = "product"
  params   = [price, qty]
  type     = number
}

node "doubled" {
  provider = "double"
  params   = [total]
  type     = number
}
`

func writeManifest(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "order.hcl")
	if err := os.WriteFile(path, []byte(orderManifest), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func doubleProvider() manifest.Providers {
	return manifest.Providers{
		"double": graph.Func1("double", func(_ context.Context, n int64) (int64, error) { return 2 * n, nil }),
	}
}

func TestNewDefaults(t *testing.T) {
	rt, err := New(nil, WithOutput(io.Discard))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rt.Close(context.Background())

	if rt.Registry != nil || rt.Metrics != nil {
		t.Error("expected metrics to be disabled by default")
	}
	if rt.TracerProvider != nil {
		t.Error("expected tracing to be disabled by default")
	}
	if rt.Graph == nil {
		t.Fatal("expected a graph")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Format = "xml"
	if _, err := New(cfg, WithOutput(io.Discard)); err == nil {
		t.Error("expected invalid config to be rejected")
	}
}

func TestLoadManifests(t *testing.T) {
	ctx := context.Background()
	rt, err := New(nil, WithOutput(io.Discard), WithProviders(doubleProvider()))
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Close(ctx)

	m, err := rt.LoadManifests(ctx, writeManifest(t))
	if err != nil {
		t.Fatalf("LoadManifests: %v", err)
	}
	id, ok := m.ID("doubled")
	if !ok {
		t.Fatal("expected doubled to be declared")
	}
	v, err := rt.Graph.Get(ctx, id, rt.Graph.Timestamp(), nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != int64(24) {
		t.Errorf("expected 24, got %v (%T)", v, v)
	}
}

func TestLogging(t *testing.T) {
	var out bytes.Buffer
	cfg := config.Default()
	cfg.Log.Level = "debug"
	cfg.Log.Format = "json"

	rt, err := New(cfg, WithOutput(&out))
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Close(context.Background())

	if !strings.Contains(out.String(), `"msg":"runtime configured"`) {
		t.Errorf("expected JSON debug output, got %q", out.String())
	}
}

func TestMetricsEnabled(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Metrics.Enabled = true

	rt, err := New(cfg, WithOutput(io.Discard), WithProviders(doubleProvider()))
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Close(ctx)

	m, err := rt.LoadManifests(ctx, writeManifest(t))
	if err != nil {
		t.Fatal(err)
	}
	id, _ := m.ID("total")
	if _, err := rt.Graph.Get(ctx, id, rt.Graph.Timestamp(), nil); err != nil {
		t.Fatal(err)
	}

	families, err := rt.Registry.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "vgraph_operations_total" {
			found = true
		}
	}
	if !found {
		t.Error("expected vgraph_operations_total to be registered")
	}
}

func TestTracingEnabled(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Tracing.Enabled = true
	exporter := tracetest.NewInMemoryExporter()

	rt, err := New(cfg, WithOutput(io.Discard), WithSpanExporter(exporter))
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Close(ctx)

	id := graph.StaticID("x", nil)
	if _, err := rt.Graph.CreateProvider(id, 1, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := rt.Graph.Get(ctx, id, rt.Graph.Timestamp(), nil); err != nil {
		t.Fatal(err)
	}

	if len(exporter.GetSpans()) == 0 {
		t.Error("expected spans to be exported")
	}
}

func TestFileExporterFromConfig(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	rt, err := New(cfg, WithOutput(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Close(ctx)

	exp, err := rt.Exporter(ctx)
	if err != nil {
		t.Fatal(err)
	}
	path, err := exp.Export(ctx, snapshot.Take(rt.Graph))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(path) != filepath.Join(dir, config.DefaultSnapshotDir) {
		t.Errorf("unexpected snapshot path %s", path)
	}
}

type recordingPutter struct {
	bucket string
}

func (p *recordingPutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	p.bucket = *in.Bucket
	return &s3.PutObjectOutput{}, nil
}

func TestS3ExporterFromConfig(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Snapshot.Bucket = "graphs"
	client := &recordingPutter{}

	rt, err := New(cfg, WithOutput(io.Discard), WithS3Client(client))
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Close(ctx)

	exp, err := rt.Exporter(ctx)
	if err != nil {
		t.Fatal(err)
	}
	loc, err := exp.Export(ctx, snapshot.Take(rt.Graph))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(loc, "s3://graphs/"+config.DefaultSnapshotPrefix) {
		t.Errorf("unexpected location %s", loc)
	}
	if client.bucket != "graphs" {
		t.Errorf("expected upload to graphs, got %q", client.bucket)
	}
}
