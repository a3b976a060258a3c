package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"epictech-chat/chat"
	"epictech-chat/db"
	"epictech-chat/llm"
)

func newChatCmd(a *app) *cobra.Command {
	var (
		convID      int64
		personality string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant from the terminal",
		Long: `Talk to the assistant from the terminal. Every turn is stored.

Commands: /new starts a new conversation, /exit quits.
Without an API key the assistant answers offline.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if personality == "" {
				personality = a.cfg.LLM.Personality
			}
			if _, ok := llm.SystemPrompt(personality); !ok {
				return fmt.Errorf("unknown personality %q (one of %s)", personality, strings.Join(llm.Personalities(), ", "))
			}

			ctx := cmd.Context()
			if convID > 0 {
				conv, err := a.store.GetConversation(ctx, convID)
				if err != nil {
					return err
				}
				if conv == nil {
					return fmt.Errorf("conversation %d: %w", convID, db.ErrNotFound)
				}
			}

			service := a.chatService()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "🤖 Epic Tech AI (/new for a new conversation, /exit to quit)")

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					fmt.Fprintln(out)
					return scanner.Err()
				}

				line := strings.TrimSpace(scanner.Text())
				switch line {
				case "":
					continue
				case "/exit", "/quit":
					return nil
				case "/new":
					convID = 0
					fmt.Fprintln(out, "Started a new conversation")
					continue
				}

				resp, err := service.Send(ctx, chat.SendRequest{
					ConversationID: convID,
					Text:           line,
					Personality:    personality,
				})
				if err != nil {
					return err
				}
				convID = resp.ConversationID

				fmt.Fprintf(out, "%s\n", resp.Reply)
				if resp.Offline {
					a.logger.Debug("Answered offline in conversation %d", convID)
				}
			}
		},
	}
	cmd.Flags().Int64Var(&convID, "id", 0, "continue an existing conversation")
	cmd.Flags().StringVarP(&personality, "personality", "p", "", "assistant personality (default from config)")
	return cmd
}
