package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	vgerrors "github.com/vango-dev/vgraph/internal/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, DefaultLogLevel)
	}
	if cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, DefaultLogFormat)
	}
	if cfg.Graph.InputHistory != DefaultInputHistory {
		t.Errorf("Graph.InputHistory = %d, want %d", cfg.Graph.InputHistory, DefaultInputHistory)
	}
	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, DefaultAddr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to validate, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("expected defaults for missing config, got %v", err)
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics.Namespace = %q, want %q", cfg.Metrics.Namespace, DefaultNamespace)
	}
	if cfg.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), dir)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	configJSON := `{
  "manifests": ["graph", "/abs/extra.hcl"],
  "log": {"level": "debug", "format": "json"},
  "graph": {"inputHistory": 4},
  "metrics": {"enabled": true},
  "snapshot": {"bucket": "graphs", "region": "eu-west-1"}
}
`
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, want %v", cfg.SlogLevel(), slog.LevelDebug)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "json")
	}
	if cfg.Graph.InputHistory != 4 {
		t.Errorf("Graph.InputHistory = %d, want 4", cfg.Graph.InputHistory)
	}
	if !cfg.Metrics.Enabled {
		t.Error("expected metrics to be enabled")
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics.Namespace = %q, want %q", cfg.Metrics.Namespace, DefaultNamespace)
	}
	if cfg.Snapshot.Prefix != DefaultSnapshotPrefix {
		t.Errorf("Snapshot.Prefix = %q, want %q", cfg.Snapshot.Prefix, DefaultSnapshotPrefix)
	}

	want := []string{filepath.Join(dir, "graph"), "/abs/extra.hcl"}
	if diff := cmp.Diff(want, cfg.ManifestPaths()); diff != "" {
		t.Errorf("ManifestPaths() mismatch (-want +got):\n%s", diff)
	}
	if cfg.SnapshotDir() != filepath.Join(dir, DefaultSnapshotDir) {
		t.Errorf("SnapshotDir() = %q", cfg.SnapshotDir())
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		subject string
	}{
		{"bad json", `{"log": `, ""},
		{"bad level", `{"log": {"level": "loud"}}`, "log.level"},
		{"bad format", `{"log": {"format": "xml"}}`, "log.format"},
		{"bad history", `{"graph": {"inputHistory": -1}}`, "graph.inputHistory"},
		{"bad namespace", `{"metrics": {"namespace": "my-app"}}`, "metrics.namespace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			_, err := Load(dir)
			var verr *vgerrors.Error
			if !errors.As(err, &verr) {
				t.Fatalf("expected *errors.Error, got %v", err)
			}
			if verr.Code != "G040" {
				t.Errorf("expected code G040, got %s", verr.Code)
			}
			if tt.subject != "" && verr.Subject != tt.subject {
				t.Errorf("expected subject %q, got %q", tt.subject, verr.Subject)
			}
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)

	cfg := Default()
	cfg.Server.Addr = ":9000"
	cfg.Tracing.Enabled = true
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("expected trailing newline")
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Server.Addr != ":9000" {
		t.Errorf("Server.Addr = %q, want %q", loaded.Server.Addr, ":9000")
	}
	if !loaded.Tracing.Enabled {
		t.Error("expected tracing to be enabled")
	}
	if loaded.Path() != path {
		t.Errorf("Path() = %q, want %q", loaded.Path(), path)
	}
}

func TestSaveWithoutPath(t *testing.T) {
	if err := Default().Save(); err == nil {
		t.Error("expected error saving config without a path")
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ConfigFileName), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	found, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot() error = %v", err)
	}
	want, _ := filepath.Abs(root)
	if found != want {
		t.Errorf("expected %q, got %q", want, found)
	}
	if !Exists(root) {
		t.Error("expected Exists(root) to be true")
	}
	if Exists(nested) {
		t.Error("expected Exists(nested) to be false")
	}
}
