package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/toolsmith-ai/advisor/internal/config"
	"github.com/toolsmith-ai/advisor/internal/learning"
)

// NewRecommendCmd ranks the registered tools for a query.
func NewRecommendCmd() *cobra.Command {
	var sessionID string
	var previousTool string
	var seed int64

	cmd := &cobra.Command{
		Use:   "recommend <query>",
		Short: "Rank registered tools for a query",
		Args:  cobra.ExactArgs(1),
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

			cat, err := buildCatalog(cfg)
			if err != nil {
				return err
			}

			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			svc := learning.NewService(store, cat, cfg.Learning, seed)
			defer svc.Close()

			recs := svc.Recommend(sessionID, args[0], previousTool)
			if len(recs) == 0 {
				fmt.Println("No tools registered.")
				return nil
			}

			for i, rec := range recs {
				marker := " "
				if rec.Explored {
					marker = "*"
				}
				fmt.Printf("%2d%s %-28s  %.3f  %s\n", i+1, marker, rec.ToolName, rec.Confidence, rec.Rationale)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "cli", "Session identifier")
	cmd.Flags().StringVarP(&previousTool, "previous", "p", "", "Previously executed tool")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 = time-based)")
	return cmd
}
