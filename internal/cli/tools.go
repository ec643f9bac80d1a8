package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/toolsmith-ai/advisor/internal/config"
)

// NewToolsCmd creates the tools command group.
func NewToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the registered tool catalog",
	}

	cmd.AddCommand(newToolsListCmd())
	cmd.AddCommand(newToolsSearchCmd())

	return cmd
}

// newToolsListCmd lists all registered tools.
func newToolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cat, err := buildCatalog(cfg)
			if err != nil {
				return err
			}

			names := cat.List()
			if len(names) == 0 {
				fmt.Println("No tools registered. Add them under \"tools\" in the config file.")
				return nil
			}

			for _, name := range names {
				tool, _ := cat.Get(name)
				fmt.Printf("%-28s  %s\n", tool.Name, tool.Description)
			}
			return nil
		},
	}
}

// newToolsSearchCmd searches tool names and descriptions.
func newToolsSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search registered tools by keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cat, err := buildCatalog(cfg)
			if err != nil {
				return err
			}

			hits, err := cat.Search(args[0], limit)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				fmt.Println("No matching tools.")
				return nil
			}

			for _, hit := range hits {
				fmt.Printf("%-28s  %.3f  %s\n", hit.Tool.Name, hit.Score, hit.Tool.Description)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of results")
	return cmd
}
