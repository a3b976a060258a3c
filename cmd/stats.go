package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"epictech-chat/utils"
)

func newStatsCmd(a *app) *cobra.Command {
	var vacuum bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show what the store holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if vacuum {
				if err := a.store.Vacuum(ctx); err != nil {
					return err
				}
			}

			stats, err := a.store.GetStats(ctx)
			if err != nil {
				return err
			}
			version, err := a.store.SchemaVersion(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database:      %s (schema v%d)\n", a.store.Path(), version)
			fmt.Fprintf(out, "Size:          %s\n", utils.FormatFileSize(stats.DBSizeBytes))
			fmt.Fprintf(out, "Conversations: %d\n", stats.ConversationCount)
			fmt.Fprintf(out, "Messages:      %d\n", stats.MessageCount)
			fmt.Fprintf(out, "Files:         %d (%s)\n", stats.FileCount, utils.FormatFileSize(stats.FileBytes))
			return nil
		},
	}
	cmd.Flags().BoolVar(&vacuum, "vacuum", false, "compact the database first")
	return cmd
}
