package main

import (
	"github.com/spf13/cobra"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the graph over HTTP",
		Long: `Load the manifests and serve the graph for inspection:

  GET  /nodes, /nodes/{name}, /tree
  PUT  /nodes/{name}
  GET  /events   (WebSocket stream of ready and change events)
  GET  /metrics  (when metrics are enabled in vgraph.json)

Examples:
  vgraph serve -m graph/
  vgraph serve -m graph/ --addr :7070`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			rt, _, err := openGraph(ctx, flags, cfg)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			success(cmd, "Serving graph on http://%s", cfg.Server.Addr)
			return rt.Server().Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from vgraph.json)")

	return cmd
}
