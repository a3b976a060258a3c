package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

const conversationColumns = "id, title, timestamp, last_message, message_count"

// CreateConversation creates a new, empty conversation and returns its ID
func (db *DB) CreateConversation(ctx context.Context, title string) (int64, error) {
	conn, err := db.handle(ctx)
	if err != nil {
		return 0, err
	}

	if title == "" {
		title = DefaultConversationTitle
	}

	result, err := conn.ExecContext(ctx,
		"INSERT INTO conversations (title, timestamp, last_message, message_count) VALUES (?, ?, '', 0)",
		title, db.nowMillis(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create conversation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get conversation ID: %w", err)
	}

	db.logger.WithFields(logrus.Fields{"conversation_id": id, "title": title}).Debug("Created conversation")
	return id, nil
}

// GetConversation retrieves a conversation by ID. A missing conversation yields nil, nil.
func (db *DB) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	conn, err := db.handle(ctx)
	if err != nil {
		return nil, err
	}
	return getConversation(ctx, conn, id)
}

func getConversation(ctx context.Context, q queryer, id int64) (*Conversation, error) {
	var conv Conversation
	err := q.QueryRowContext(ctx,
		"SELECT "+conversationColumns+" FROM conversations WHERE id = ?", id,
	).Scan(&conv.ID, &conv.Title, &conv.Timestamp, &conv.LastMessage, &conv.MessageCount)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

// GetConversations retrieves all conversations, most recently active first
func (db *DB) GetConversations(ctx context.Context) ([]Conversation, error) {
	conn, err := db.handle(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx,
		"SELECT "+conversationColumns+" FROM conversations ORDER BY timestamp DESC, id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	conversations := make([]Conversation, 0)
	for rows.Next() {
		var conv Conversation
		if err := rows.Scan(&conv.ID, &conv.Title, &conv.Timestamp, &conv.LastMessage, &conv.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	return conversations, nil
}

// UpdateConversation overwrites every field of the conversation identified by conv.ID
func (db *DB) UpdateConversation(ctx context.Context, conv *Conversation) error {
	if conv == nil {
		return fmt.Errorf("%w: nil conversation", ErrInvalidRecord)
	}
	if conv.MessageCount < 0 {
		return fmt.Errorf("%w: negative message count %d", ErrInvalidRecord, conv.MessageCount)
	}

	conn, err := db.handle(ctx)
	if err != nil {
		return err
	}
	return updateConversation(ctx, conn, conv)
}

func updateConversation(ctx context.Context, q queryer, conv *Conversation) error {
	result, err := q.ExecContext(ctx,
		"UPDATE conversations SET title = ?, timestamp = ?, last_message = ?, message_count = ? WHERE id = ?",
		conv.Title, conv.Timestamp, conv.LastMessage, conv.MessageCount, conv.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("conversation %d: %w", conv.ID, ErrNotFound)
	}
	return nil
}

// RenameConversation changes only the title of a conversation
func (db *DB) RenameConversation(ctx context.Context, id int64, title string) error {
	conv, err := db.GetConversation(ctx, id)
	if err != nil {
		return err
	}
	if conv == nil {
		return fmt.Errorf("conversation %d: %w", id, ErrNotFound)
	}
	if title == "" {
		title = DefaultConversationTitle
	}
	conv.Title = title
	return db.UpdateConversation(ctx, conv)
}

// DeleteConversation deletes a conversation together with its messages and their files.
// The cascade runs in one transaction; deleting a missing conversation is a no-op.
func (db *DB) DeleteConversation(ctx context.Context, id int64) error {
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if err := deleteMessagesInConversation(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	db.logger.WithField("conversation_id", id).Info("Deleted conversation")
	return nil
}

// CountConversations returns the total number of conversations
func (db *DB) CountConversations(ctx context.Context) (int64, error) {
	conn, err := db.handle(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM conversations").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count conversations: %w", err)
	}
	return count, nil
}
