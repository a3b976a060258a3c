package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"epictech-chat/db"
	"epictech-chat/utils"
)

func newSendCmd(a *app) *cobra.Command {
	var (
		sender string
		attach []string
	)

	cmd := &cobra.Command{
		Use:   "send <conversation-id> <text>",
		Short: "Store a message without asking the assistant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			loader := utils.NewAttachmentLoader(a.cfg.Data.MaxImageSize)
			files := make([]db.FileInput, 0, len(attach))
			for _, path := range attach {
				f, err := loader.Load(path)
				if err != nil {
					return fmt.Errorf("failed to attach %s: %w", path, err)
				}
				files = append(files, f)
			}

			msgID, err := a.store.AddMessage(cmd.Context(), id, strings.Join(args[1:], " "), sender, files)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Stored message %d", msgID)
			if len(files) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " with %d file(s)", len(files))
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVar(&sender, "sender", db.SenderUser, "author of the message: user or ai")
	cmd.Flags().StringSliceVarP(&attach, "attach", "a", nil, "file to attach (repeatable)")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find messages containing the query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := a.store.SearchMessages(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "No matches")
				return nil
			}
			for _, r := range results {
				fmt.Fprintf(out, "#%d %s [%s] %s: %s\n", r.Message.ConversationID, r.ConversationTitle,
					formatMillis(r.Message.Timestamp), r.Message.Sender, oneLine(r.Snippet))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of results")
	return cmd
}
