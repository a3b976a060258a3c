package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"epictech-chat/archive"
	"epictech-chat/db"
	"epictech-chat/utils"
)

func newListCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations, most recently active first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			convs, err := a.store.GetConversations(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(convs)
			}
			if len(convs) == 0 {
				fmt.Fprintln(out, "No conversations yet")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUPDATED\tMESSAGES\tTITLE\tLAST MESSAGE")
			for _, c := range convs {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", c.ID, formatMillis(c.Timestamp), c.MessageCount, c.Title, oneLine(c.LastMessage))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	var markdown bool

	cmd := &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Print a conversation with its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if markdown {
				return archive.WriteMarkdown(ctx, a.store, id, out)
			}

			conv, err := a.store.GetConversation(ctx, id)
			if err != nil {
				return err
			}
			if conv == nil {
				return fmt.Errorf("conversation %d: %w", id, db.ErrNotFound)
			}
			messages, err := a.store.GetMessages(ctx, id)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "💬 %s (#%d, %d messages)\n\n", conv.Title, conv.ID, conv.MessageCount)
			for _, m := range messages {
				fmt.Fprintf(out, "[%s] %s: %s\n", formatMillis(m.Timestamp), m.Sender, m.Text)
				if !m.HasFiles {
					continue
				}
				files, err := a.store.GetFilesForMessage(ctx, m.ID)
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Fprintf(out, "    📎 #%d %s (%s, %s)\n", f.ID, f.Name, f.Type, utils.FormatFileSize(f.Size))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "print as Markdown")
	return cmd
}

func newNewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "new [title]",
		Short: "Create an empty conversation",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.store.CreateConversation(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Created conversation %d\n", id)
			return nil
		},
	}
}

func newRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <conversation-id> <title>",
		Short: "Change the title of a conversation",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			title := strings.Join(args[1:], " ")
			if err := a.store.RenameConversation(cmd.Context(), id, title); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Renamed conversation %d to %q\n", id, title)
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	var message bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation with its messages and files",
		Long: `Delete a conversation together with its messages and their files.

With --message the id names a single message, which is removed with its files.
The conversation's last message and message count are left as they were.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if message {
				if err := a.store.DeleteMessage(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(out, "🗑️  Deleted message %d\n", id)
				return nil
			}

			if err := a.store.DeleteConversation(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(out, "🗑️  Deleted conversation %d\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&message, "message", false, "delete a single message instead")
	return cmd
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
