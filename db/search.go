package db

import (
	"context"
	"fmt"
	"strings"
)

// SearchResult represents a search result
type SearchResult struct {
	Message           Message `json:"message"`
	ConversationTitle string  `json:"conversationTitle"`
	Snippet           string  `json:"snippet"`
}

const snippetRadius = 32

// SearchMessages finds messages whose text contains query, ignoring case. Newest first.
func (db *DB) SearchMessages(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	results := make([]SearchResult, 0)
	query = strings.TrimSpace(query)
	if query == "" {
		return results, nil
	}
	if limit <= 0 {
		limit = 50
	}

	conn, err := db.handle(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, `
		SELECT m.id, m.conversation_id, m.text, m.sender, m.timestamp, m.has_files, c.title
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE m.text LIKE ? ESCAPE '\'
		ORDER BY m.timestamp DESC, m.id DESC
		LIMIT ?
	`, "%"+escapeLike(query)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r SearchResult
		msg := &r.Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Text, &msg.Sender, &msg.Timestamp, &msg.HasFiles, &r.ConversationTitle); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		r.Snippet = snippet(msg.Text, query)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}

	return results, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// snippet returns the part of text around the first match of query
func snippet(text, query string) string {
	runes := []rune(text)
	lower := []rune(strings.ToLower(text))
	q := []rune(strings.ToLower(query))

	idx := -1
	if len(lower) == len(runes) {
		idx = indexRunes(lower, q)
	}
	if idx < 0 {
		return previewText(text)
	}

	start := idx - snippetRadius
	prefix := "..."
	if start <= 0 {
		start = 0
		prefix = ""
	}
	end := idx + len(q) + snippetRadius
	suffix := "..."
	if end >= len(runes) {
		end = len(runes)
		suffix = ""
	}
	return prefix + string(runes[start:end]) + suffix
}

func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
