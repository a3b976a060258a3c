package db

import (
	"context"
	"fmt"
)

// previewLength is the number of code points kept in Conversation.LastMessage
const previewLength = 50

// previewText returns the first previewLength code points of text, followed by "..."
// when the text was longer
func previewText(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "..."
}

// applyRollup updates the parent conversation after a message with the given text was
// written. It runs inside the AddMessage transaction.
func (db *DB) applyRollup(ctx context.Context, q queryer, conversationID int64, text string) error {
	result, err := q.ExecContext(ctx,
		"UPDATE conversations SET last_message = ?, message_count = message_count + 1, timestamp = ? WHERE id = ?",
		previewText(text), db.nowMillis(), conversationID,
	)
	if err != nil {
		return fmt.Errorf("failed to update conversation rollup: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("conversation %d: %w", conversationID, ErrNotFound)
	}
	return nil
}
