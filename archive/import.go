package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"epictech-chat/db"
)

// ImportDocument is a validated import document. Optional fields are nil when absent.
type ImportDocument struct {
	Conversations []ImportConversation
}

// ImportConversation is one conversation of an import document
type ImportConversation struct {
	Title        string
	Timestamp    *int64
	LastMessage  *string
	MessageCount *int
	Messages     []ImportMessage
}

// ImportMessage is one message of an import document. Sender is already normalised.
type ImportMessage struct {
	Text   string
	Sender string
}

type rawConversation struct {
	Title        *string           `json:"title"`
	Timestamp    *int64            `json:"timestamp"`
	LastMessage  *string           `json:"lastMessage"`
	MessageCount *int              `json:"messageCount"`
	Messages     []json.RawMessage `json:"messages"`
}

type rawMessage struct {
	Text   *string `json:"text"`
	Sender *string `json:"sender"`
}

// Decode reads and validates an import document. Every failure wraps ErrInvalidFormat.
func Decode(r io.Reader) (*ImportDocument, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read import data: %w", err)
	}

	var top map[string]json.RawMessage
	if !isJSONObject(data) || json.Unmarshal(data, &top) != nil {
		return nil, fmt.Errorf("%w: document is not a JSON object", ErrInvalidFormat)
	}

	rawConvs, ok := top["conversations"]
	if !ok || !isJSONArray(rawConvs) {
		return nil, fmt.Errorf("%w: conversations must be an array", ErrInvalidFormat)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(rawConvs, &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	doc := &ImportDocument{Conversations: make([]ImportConversation, 0, len(elems))}
	for i, elem := range elems {
		conv, err := decodeConversation(elem)
		if err != nil {
			return nil, fmt.Errorf("%w: conversation %d: %v", ErrInvalidFormat, i, err)
		}
		doc.Conversations = append(doc.Conversations, conv)
	}
	return doc, nil
}

func decodeConversation(data json.RawMessage) (ImportConversation, error) {
	var raw rawConversation
	if !isJSONObject(data) {
		return ImportConversation{}, fmt.Errorf("not an object")
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return ImportConversation{}, err
	}

	conv := ImportConversation{
		Timestamp:    raw.Timestamp,
		LastMessage:  raw.LastMessage,
		MessageCount: raw.MessageCount,
		Messages:     make([]ImportMessage, 0, len(raw.Messages)),
	}
	if raw.Title != nil {
		conv.Title = *raw.Title
	}
	if conv.MessageCount != nil && *conv.MessageCount < 0 {
		return ImportConversation{}, fmt.Errorf("negative messageCount")
	}

	for j, m := range raw.Messages {
		msg, err := decodeMessage(m)
		if err != nil {
			return ImportConversation{}, fmt.Errorf("message %d: %v", j, err)
		}
		conv.Messages = append(conv.Messages, msg)
	}
	return conv, nil
}

func decodeMessage(data json.RawMessage) (ImportMessage, error) {
	var raw rawMessage
	if !isJSONObject(data) {
		return ImportMessage{}, fmt.Errorf("not an object")
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return ImportMessage{}, err
	}

	var msg ImportMessage
	if raw.Text != nil {
		msg.Text = *raw.Text
	}

	sender := ""
	if raw.Sender != nil {
		sender = *raw.Sender
	}
	normalized, ok := normalizeSender(sender)
	if !ok {
		return ImportMessage{}, fmt.Errorf("unknown sender %q", sender)
	}
	msg.Sender = normalized
	return msg, nil
}

func normalizeSender(sender string) (string, bool) {
	switch sender {
	case "", db.SenderUser:
		return db.SenderUser, true
	case db.SenderAI, "assistant":
		return db.SenderAI, true
	default:
		return "", false
	}
}

func isJSONObject(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '{'
}

func isJSONArray(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '['
}

// Import writes every conversation of doc as a new conversation and returns how many were
// imported. Files are never imported. The rollup fields of each conversation are taken
// from the document after its messages were replayed.
func Import(ctx context.Context, store Store, doc *ImportDocument) (int, error) {
	if doc == nil {
		return 0, fmt.Errorf("%w: empty document", ErrInvalidFormat)
	}

	count := 0
	for _, ic := range doc.Conversations {
		id, err := store.CreateConversation(ctx, ic.Title)
		if err != nil {
			return count, fmt.Errorf("failed to create conversation: %w", err)
		}

		for _, m := range ic.Messages {
			if _, err := store.AddMessage(ctx, id, m.Text, m.Sender, nil); err != nil {
				return count, fmt.Errorf("failed to import message: %w", err)
			}
		}

		conv, err := store.GetConversation(ctx, id)
		if err != nil {
			return count, fmt.Errorf("failed to reload conversation: %w", err)
		}
		if conv == nil {
			return count, fmt.Errorf("conversation %d: %w", id, db.ErrNotFound)
		}

		conv.Timestamp = now().UnixMilli()
		if ic.Timestamp != nil && *ic.Timestamp != 0 {
			conv.Timestamp = *ic.Timestamp
		}
		conv.LastMessage = ""
		if ic.LastMessage != nil {
			conv.LastMessage = *ic.LastMessage
		}
		conv.MessageCount = len(ic.Messages)
		if ic.MessageCount != nil {
			conv.MessageCount = *ic.MessageCount
		}

		if err := store.UpdateConversation(ctx, conv); err != nil {
			return count, fmt.Errorf("failed to update conversation: %w", err)
		}
		count++
	}

	return count, nil
}

// ImportFrom decodes r and imports it into store
func ImportFrom(ctx context.Context, store Store, r io.Reader) (int, error) {
	doc, err := Decode(r)
	if err != nil {
		return 0, err
	}
	return Import(ctx, store, doc)
}
