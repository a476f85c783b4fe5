// Command llmctl is the admin CLI: it loads the same config document
// llmhostd serves from, builds its own in-process façade, and runs one
// command against it — the teacher's cmd/testctl command-tree style
// (internal/testctl/cobra_root.go) applied to the daemon's own façade
// instead of to dev/test tooling, since no RPC transport exists to
// talk to a separately-running daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "llmctl",
		Short:         "Admin CLI for the llmhostd serving core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", envOr("LLMHOSTD_CONFIG", "llmhostd.yaml"), "path to the config document")

	root.AddCommand(
		newModelsCmd(&configPath),
		newTasksCmd(&configPath),
		newMemoriesCmd(&configPath),
		newStatsCmd(&configPath),
		newCompleteCmd(&configPath),
		newEmbedCmd(&configPath),
		newIngestCmd(&configPath),
		newForgetCmd(&configPath),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
