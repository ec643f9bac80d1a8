package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/toolsmith-ai/advisor/internal/config"
)

// NewStatusCmd shows learning statistics.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show learning statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := openStorage(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			fmt.Println("Learning System Status")
			fmt.Println("======================")
			fmt.Printf("Registered tools:  %d\n", len(cfg.Tools))
			fmt.Printf("Learning rate:     %.3f\n", cfg.Learning.Alpha)
			fmt.Printf("Discount factor:   %.3f\n", cfg.Learning.Gamma)
			fmt.Printf("Exploration rate:  %.3f (decay %.3f, floor %.3f)\n",
				cfg.Learning.Epsilon, cfg.Learning.EpsilonDecay, cfg.Learning.MinEpsilon)
			fmt.Printf("Min samples:       %d\n", cfg.Learning.MinSamples)
			fmt.Printf("Bootstrap mode:    %s\n", cfg.Learning.Bootstrap)
			fmt.Println()

			metrics, err := store.AllToolMetrics()
			if err != nil {
				return err
			}
			if len(metrics) == 0 {
				fmt.Println("No executions recorded yet.")
				return nil
			}

			fmt.Println("Tool                          Calls  Success  Avg Latency  Avg Rating")
			for _, m := range metrics {
				fmt.Printf("%-28s  %5d  %6.0f%%  %9.0fms  %10.1f\n",
					m.ToolName, m.TotalCalls, m.SuccessRate*100, m.AvgLatencyMS, m.AvgRating)
			}

			return nil
		},
	}
}

// NewTopCmd shows the highest-valued policy entries.
func NewTopCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the highest-valued (tool, context) policy entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := openStorage(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.TopPolicies(limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No policy entries yet.")
				return nil
			}

			fmt.Println("Tool                          Context       Value    Visits")
			for _, e := range entries {
				context := e.ContextHash
				if len(context) > 12 {
					context = context[:12]
				}
				fmt.Printf("%-28s  %-12s  %7.3f  %6d\n", e.ToolName, context, e.Value, e.Visits)
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of entries to show")
	return cmd
}

// NewEpisodesCmd shows recent successful episodes.
func NewEpisodesCmd() *cobra.Command {
	var limit int
	var toolName string

	cmd := &cobra.Command{
		Use:   "episodes",
		Short: "Show recent successful episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := openStorage(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			episodes, err := store.SuccessfulEpisodes(toolName, limit)
			if err != nil {
				return err
			}
			if len(episodes) == 0 {
				fmt.Println("No successful episodes yet.")
				return nil
			}

			for _, ep := range episodes {
				fmt.Printf("%s  reward=%.2f  %v\n", ep.SessionID, ep.TotalReward, ep.Sequence)
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of episodes to show")
	cmd.Flags().StringVarP(&toolName, "tool", "t", "", "Only episodes containing this tool")
	return cmd
}

// NewExportCmd exports learned state as JSON.
func NewExportCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export learned state as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := openStorage(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			policies, err := store.TopPolicies(1000)
			if err != nil {
				return err
			}
			episodes, err := store.SuccessfulEpisodes("", 100)
			if err != nil {
				return err
			}
			metrics, err := store.AllToolMetrics()
			if err != nil {
				return err
			}

			out, err := formatJSON(map[string]interface{}{
				"policies": policies,
				"episodes": episodes,
				"metrics":  metrics,
			})
			if err != nil {
				return err
			}

			if outputFile == "" {
				fmt.Println(out)
				return nil
			}
			return os.WriteFile(outputFile, []byte(out), 0644)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

// NewClearCmd deletes all learned state.
func NewClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all learned state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				fmt.Println("This deletes all learned policies, episodes, and history.")
				fmt.Println("Re-run with --yes to confirm.")
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := openStorage(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Println("Learned state cleared.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}

// NewInitCmd writes a default config file.
func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config already exists: %s", path)
			}

			if err := config.Save(config.Default(), path); err != nil {
				return err
			}
			fmt.Printf("Created %s\n", path)
			return nil
		},
	}
}
