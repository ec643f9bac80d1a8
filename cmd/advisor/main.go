/*
Package main is the entry point for the advisor CLI.

advisor is the tool-selection learning engine: it learns from completed
tool executions which tool works best in which context, and ranks the
registered tools for new requests.

Usage:
  advisor [command]

Available Commands:
  init       Create a default configuration file
  status     Show learning statistics
  top        Show the highest-valued (tool, context) policy entries
  episodes   Show recent successful episodes
  recommend  Rank registered tools for a query
  tools      Inspect the registered tool catalog
  export     Export learned state as JSON
  clear      Delete all learned state
  help       Help about any command

Examples:
  # Rank tools for a query with a fixed seed
  advisor recommend "export consolidation journals" --seed 42

  # Show what the policy has learned
  advisor top -n 20
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/toolsmith-ai/advisor/internal/cli"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "advisor",
		Short: "Learned tool selection for agent orchestrators",
		Long: `advisor learns which tool works best in which context from completed
tool executions, using a tabular Q-learning policy with epsilon-greedy
exploration. It ranks candidate tools with confidence scores and mines
successful sessions for recurring tool sequences.

All state is stored locally in ~/.tool-advisor/advisor.db. Query text is
never stored verbatim; contexts are SHA256-hashed before persistence.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	}

	rootCmd.AddCommand(cli.NewInitCmd())
	rootCmd.AddCommand(cli.NewStatusCmd())
	rootCmd.AddCommand(cli.NewTopCmd())
	rootCmd.AddCommand(cli.NewEpisodesCmd())
	rootCmd.AddCommand(cli.NewRecommendCmd())
	rootCmd.AddCommand(cli.NewToolsCmd())
	rootCmd.AddCommand(cli.NewExportCmd())
	rootCmd.AddCommand(cli.NewClearCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
