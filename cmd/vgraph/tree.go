package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vgraph/pkg/snapshot"
)

func treeCmd(flags *globalFlags) *cobra.Command {
	var eval bool

	cmd := &cobra.Command{
		Use:   "tree [node...]",
		Short: "Print the dependency tree",
		Long: `Print the dependency tree below each named node, or below every
node nothing depends on. With --eval every node is computed first so
that derived values are shown.

Examples:
  vgraph tree -m graph/
  vgraph tree -m order.hcl --eval total`,
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

			if eval {
				if _, err := evaluate(ctx, rt.Graph, m, nil); err != nil {
					return err
				}
			}
			for _, name := range args {
				if _, ok := m.ID(name); !ok {
					return fmt.Errorf("node %s is not declared", name)
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), snapshot.Take(rt.Graph).Tree(args...))
			return nil
		},
	}

	cmd.Flags().BoolVar(&eval, "eval", false, "Evaluate every node before printing")

	return cmd
}
