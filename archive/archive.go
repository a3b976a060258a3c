// Package archive converts the chat history store to and from a portable JSON document.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"epictech-chat/db"
)

// DefaultProduct is the file name prefix used for exports
const DefaultProduct = "epic_tech_ai"

// ErrInvalidFormat is returned when an import document fails the structural check
var ErrInvalidFormat = errors.New("invalid import data format")

// Store is the subset of the database used by the codec
type Store interface {
	SchemaVersion(ctx context.Context) (int, error)
	GetConversations(ctx context.Context) ([]db.Conversation, error)
	GetConversation(ctx context.Context, id int64) (*db.Conversation, error)
	GetMessages(ctx context.Context, conversationID int64) ([]db.Message, error)
	GetFilesForMessage(ctx context.Context, messageID int64) ([]db.File, error)
	CreateConversation(ctx context.Context, title string) (int64, error)
	AddMessage(ctx context.Context, conversationID int64, text, sender string, files []db.FileInput) (int64, error)
	UpdateConversation(ctx context.Context, conv *db.Conversation) error
}

var _ Store = (*db.DB)(nil)

// Document is the export document
type Document struct {
	Version       int                  `json:"version"`
	Timestamp     int64                `json:"timestamp"`
	Conversations []ConversationRecord `json:"conversations"`
}

// ConversationRecord is a conversation with its messages
type ConversationRecord struct {
	db.Conversation
	Messages []MessageRecord `json:"messages"`
}

// MessageRecord is a message with the metadata of its files
type MessageRecord struct {
	db.Message
	Files []FileMeta `json:"files,omitempty"`
}

// FileMeta describes an attachment without its contents
type FileMeta struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// now is replaced in tests
var now = time.Now

// Export builds a document holding every conversation, message and file description
func Export(ctx context.Context, store Store) (*Document, error) {
	version, err := store.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}

	conversations, err := store.GetConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	doc := &Document{
		Version:       version,
		Timestamp:     now().UnixMilli(),
		Conversations: make([]ConversationRecord, 0, len(conversations)),
	}

	for _, conv := range conversations {
		messages, err := store.GetMessages(ctx, conv.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get messages for conversation %d: %w", conv.ID, err)
		}

		record := ConversationRecord{
			Conversation: conv,
			Messages:     make([]MessageRecord, 0, len(messages)),
		}

		for _, msg := range messages {
			mr := MessageRecord{Message: msg}
			if msg.HasFiles {
				files, err := store.GetFilesForMessage(ctx, msg.ID)
				if err != nil {
					return nil, fmt.Errorf("failed to get files for message %d: %w", msg.ID, err)
				}
				mr.Files = make([]FileMeta, 0, len(files))
				for _, f := range files {
					mr.Files = append(mr.Files, FileMeta{Name: f.Name, Type: f.Type, Size: f.Size})
				}
			}
			record.Messages = append(record.Messages, mr)
		}

		doc.Conversations = append(doc.Conversations, record)
	}

	return doc, nil
}

// Encode writes doc as indented JSON
func Encode(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

// FileName returns the export file name for the given day, e.g. epic_tech_ai_export_2024-05-01.json
func FileName(product string, t time.Time) string {
	if product == "" {
		product = DefaultProduct
	}
	return fmt.Sprintf("%s_export_%s.json", product, t.Format("2006-01-02"))
}
