package main

import (
	"context"
	"fmt"
	"os"

	"github.com/vango-dev/vgraph"
	"github.com/vango-dev/vgraph/internal/config"
	"github.com/vango-dev/vgraph/pkg/manifest"
)

// loadConfig reads vgraph.json and applies flag overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	return cfg, cfg.Validate()
}

// openGraph builds a runtime and loads the manifests named by flags, or
// those configured in vgraph.json.
func openGraph(ctx context.Context, flags *globalFlags, cfg *config.Config) (*vgraph.Runtime, *manifest.Manifest, error) {
	paths := flags.manifests
	if len(paths) == 0 {
		paths = cfg.ManifestPaths()
	}
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("no manifests: pass --manifest or list them under \"manifests\" in %s", config.ConfigFileName)
	}

	rt, err := vgraph.New(cfg, vgraph.WithOutput(os.Stderr))
	if err != nil {
		return nil, nil, err
	}
	m, err := rt.LoadManifests(ctx, paths...)
	if err != nil {
		rt.Close(ctx)
		return nil, nil, err
	}
	return rt, m, nil
}
