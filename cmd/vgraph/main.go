package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	vgerrors "github.com/vango-dev/vgraph/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are shared by every command that loads a graph.
type globalFlags struct {
	configPath string
	manifests  []string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		if os.Getenv("NO_COLOR") != "" {
			vgerrors.DisableColors()
		}
		fmt.Fprint(os.Stderr, vgerrors.Render(err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "vgraph",
		Short: "Evaluate and inspect reactive dependency graphs",
		Long: `vgraph loads dependency graphs declared in HCL manifests and
evaluates them with memoized, time-versioned reads.

Configuration is read from vgraph.json in the working directory or
any parent; manifests can also be given with --manifest.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Path to vgraph.json (default: search from working directory)")
	pf.StringSliceVarP(&flags.manifests, "manifest", "m", nil, "Manifest file or directory (repeatable)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level override: debug, info, warn or error")

	rootCmd.AddCommand(
		evalCmd(flags),
		treeCmd(flags),
		serveCmd(flags),
		snapshotCmd(flags),
		versionCmd(),
	)
	return rootCmd
}

// success prints a success message.
func success(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}
