package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const fileColumns = "id, message_id, name, type, size, data, timestamp"

func insertFile(ctx context.Context, q queryer, messageID int64, f FileInput, now int64) error {
	size := f.Size
	if size == 0 {
		size = int64(len(f.Data))
	}
	data := f.Data
	if data == nil {
		data = []byte{}
	}

	if _, err := q.ExecContext(ctx,
		"INSERT INTO files (message_id, name, type, size, data, timestamp) VALUES (?, ?, ?, ?, ?, ?)",
		messageID, f.Name, f.Type, size, data, now,
	); err != nil {
		return fmt.Errorf("failed to store file %q: %w", f.Name, err)
	}
	return nil
}

// GetFilesForMessage retrieves the attachments of a message, including their data
func (db *DB) GetFilesForMessage(ctx context.Context, messageID int64) ([]File, error) {
	conn, err := db.handle(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx,
		"SELECT "+fileColumns+" FROM files WHERE message_id = ? ORDER BY id ASC", messageID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	files := make([]File, 0)
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.MessageID, &f.Name, &f.Type, &f.Size, &f.Data, &f.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

// GetFile retrieves a single attachment by ID. A missing file yields nil, nil.
func (db *DB) GetFile(ctx context.Context, id int64) (*File, error) {
	conn, err := db.handle(ctx)
	if err != nil {
		return nil, err
	}

	var f File
	err = conn.QueryRowContext(ctx,
		"SELECT "+fileColumns+" FROM files WHERE id = ?", id,
	).Scan(&f.ID, &f.MessageID, &f.Name, &f.Type, &f.Size, &f.Data, &f.Timestamp)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return &f, nil
}
