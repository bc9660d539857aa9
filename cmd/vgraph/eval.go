package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vgraph/pkg/graph"
	"github.com/vango-dev/vgraph/pkg/manifest"
)

func evalCmd(flags *globalFlags) *cobra.Command {
	var (
		sets   []string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "eval [node...]",
		Short: "Evaluate nodes of a manifest",
		Long: `Load the manifests, apply --set writes and print the value of each
named node, or of every declared node when none are named.

Examples:
  vgraph eval -m graph/ total
  vgraph eval -m order.hcl --set price=12 --set 'tags=["a"]'
  vgraph eval -m order.hcl --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			rt, m, err := openGraph(ctx, flags, cfg)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			if err := applyAssignments(ctx, rt.Graph, m, sets); err != nil {
				return err
			}
			results, err := evaluate(ctx, rt.Graph, m, args)
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), results, asJSON)
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "Write name=value before evaluating (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as a JSON object")

	return cmd
}

type result struct {
	name  string
	value any
}

// evaluate reads names, or every declaration, at the current time.
func evaluate(ctx context.Context, g *graph.Graph, m *manifest.Manifest, names []string) ([]result, error) {
	if len(names) == 0 {
		names = m.Names()
	}
	now := g.Timestamp()
	results := make([]result, 0, len(names))
	for _, name := range names {
		id, ok := m.ID(name)
		if !ok {
			return nil, fmt.Errorf("node %s is not declared", name)
		}
		v, err := g.Get(ctx, id, now, nil)
		if err != nil {
			return nil, err
		}
		results = append(results, result{name: name, value: v})
	}
	return results, nil
}

func printResults(w io.Writer, results []result, asJSON bool) error {
	if asJSON {
		out := make(map[string]any, len(results))
		for _, r := range results {
			out[r.name] = r.value
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	for _, r := range results {
		fmt.Fprintf(w, "%s = %v\n", r.name, r.value)
	}
	return nil
}
