package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/vgraph/pkg/snapshot"
)

func snapshotCmd(flags *globalFlags) *cobra.Command {
	var (
		eval bool
		dir  string
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export a snapshot of the graph",
		Long: `Load the manifests and export a JSON snapshot of every node.

Snapshots go to the S3 bucket configured under "snapshot" in
vgraph.json, or to the snapshot directory when no bucket is set.

Examples:
  vgraph snapshot -m graph/ --eval
  vgraph snapshot -m graph/ --dir /tmp/snapshots`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if dir != "" {
				cfg.Snapshot.Dir = dir
				cfg.Snapshot.Bucket = ""
			}
			rt, m, err := openGraph(ctx, flags, cfg)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			if eval {
				if _, err := evaluate(ctx, rt.Graph, m, nil); err != nil {
					return err
				}
			}

			exp, err := rt.Exporter(ctx)
			if err != nil {
				return err
			}
			snap := snapshot.Take(rt.Graph)
			location, err := exp.Export(ctx, snap)
			if err != nil {
				return err
			}
			success(cmd, "Snapshot %s (%d nodes) written to %s", snap.ID, len(snap.Nodes), location)
			return nil
		},
	}

	cmd.Flags().BoolVar(&eval, "eval", false, "Evaluate every node before exporting")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Write to this directory instead of the configured target")

	return cmd
}
