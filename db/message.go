package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

const messageColumns = "id, conversation_id, text, sender, timestamp, has_files"

// AddMessage appends a message with its attachments to a conversation and updates the
// conversation rollup. The whole write happens in one transaction.
func (db *DB) AddMessage(ctx context.Context, conversationID int64, text, sender string, files []FileInput) (int64, error) {
	if !ValidSender(sender) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSender, sender)
	}
	for _, f := range files {
		if f.Size < 0 {
			return 0, fmt.Errorf("%w: negative size for file %q", ErrInvalidRecord, f.Name)
		}
	}

	var messageID int64
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		conv, err := getConversation(ctx, tx, conversationID)
		if err != nil {
			return err
		}
		if conv == nil {
			return fmt.Errorf("conversation %d: %w", conversationID, ErrNotFound)
		}

		now := db.nowMillis()
		result, err := tx.ExecContext(ctx,
			"INSERT INTO messages (conversation_id, text, sender, timestamp, has_files) VALUES (?, ?, ?, ?, ?)",
			conversationID, text, sender, now, len(files) > 0,
		)
		if err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}

		messageID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get message ID: %w", err)
		}

		for _, f := range files {
			if err := insertFile(ctx, tx, messageID, f, now); err != nil {
				return err
			}
		}

		return db.applyRollup(ctx, tx, conversationID, text)
	})
	if err != nil {
		return 0, err
	}

	db.logger.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"message_id":      messageID,
		"sender":          sender,
		"files":           len(files),
	}).Debug("Added message")
	return messageID, nil
}

// GetMessage retrieves a message by ID. A missing message yields nil, nil.
func (db *DB) GetMessage(ctx context.Context, id int64) (*Message, error) {
	conn, err := db.handle(ctx)
	if err != nil {
		return nil, err
	}

	var msg Message
	err = conn.QueryRowContext(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE id = ?", id,
	).Scan(&msg.ID, &msg.ConversationID, &msg.Text, &msg.Sender, &msg.Timestamp, &msg.HasFiles)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &msg, nil
}

// GetMessages retrieves all messages of a conversation in chronological order
func (db *DB) GetMessages(ctx context.Context, conversationID int64) ([]Message, error) {
	conn, err := db.handle(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE conversation_id = ? ORDER BY timestamp ASC, id ASC",
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Text, &msg.Sender, &msg.Timestamp, &msg.HasFiles); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return messages, nil
}

// DeleteMessage deletes a single message and its files. The conversation rollup is not
// recomputed.
func (db *DB) DeleteMessage(ctx context.Context, id int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE message_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete message files: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete message: %w", err)
		}
		return nil
	})
}

// DeleteMessagesInConversation deletes every message of a conversation together with
// their files. The conversation itself and its rollup fields are left untouched.
func (db *DB) DeleteMessagesInConversation(ctx context.Context, conversationID int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return deleteMessagesInConversation(ctx, tx, conversationID)
	})
}

func deleteMessagesInConversation(ctx context.Context, q queryer, conversationID int64) error {
	if _, err := q.ExecContext(ctx,
		"DELETE FROM files WHERE message_id IN (SELECT id FROM messages WHERE conversation_id = ?)",
		conversationID,
	); err != nil {
		return fmt.Errorf("failed to delete files: %w", err)
	}

	if _, err := q.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", conversationID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return nil
}
