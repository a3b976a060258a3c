package archive

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"epictech-chat/db"
)

const markdownTimeLayout = "2006-01-02 15:04:05"

// WriteMarkdown renders a single conversation as Markdown
func WriteMarkdown(ctx context.Context, store Store, conversationID int64, w io.Writer) error {
	conv, err := store.GetConversation(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("failed to get conversation: %w", err)
	}
	if conv == nil {
		return fmt.Errorf("conversation %d: %w", conversationID, db.ErrNotFound)
	}

	messages, err := store.GetMessages(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("failed to get messages: %w", err)
	}

	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# %s\n\n", conv.Title)
	fmt.Fprintf(bw, "**Last activity**: %s\n", formatMillis(conv.Timestamp))
	fmt.Fprintf(bw, "**Messages**: %d\n\n", conv.MessageCount)
	bw.WriteString("---\n\n")

	for i, msg := range messages {
		roleIcon, roleName := "👤", "User"
		if msg.Sender == db.SenderAI {
			roleIcon, roleName = "🤖", "Assistant"
		}
		fmt.Fprintf(bw, "## %s %s\n\n", roleIcon, roleName)
		fmt.Fprintf(bw, "*%s*\n\n", formatMillis(msg.Timestamp))

		if msg.Text != "" {
			bw.WriteString(msg.Text)
			bw.WriteString("\n\n")
		}

		if msg.HasFiles {
			files, err := store.GetFilesForMessage(ctx, msg.ID)
			if err != nil {
				return fmt.Errorf("failed to get files for message %d: %w", msg.ID, err)
			}
			for _, f := range files {
				fmt.Fprintf(bw, "- 📎 %s (%s, %d bytes)\n", f.Name, f.Type, f.Size)
			}
			bw.WriteString("\n")
		}

		if i < len(messages)-1 {
			bw.WriteString("---\n\n")
		}
	}

	bw.WriteString("\n---\n\n")
	fmt.Fprintf(bw, "*Exported: %s*\n", now().Format(markdownTimeLayout))

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write markdown: %w", err)
	}
	return nil
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Format(markdownTimeLayout)
}
