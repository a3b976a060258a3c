package db

// Sender values accepted for Message.Sender
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// DefaultConversationTitle is used when a conversation is created without a title
const DefaultConversationTitle = "New Conversation"

// Conversation represents a chat conversation and its rollup fields
type Conversation struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Timestamp    int64  `json:"timestamp"`    // epoch millis, bumped on every message
	LastMessage  string `json:"lastMessage"`  // preview of the most recent message
	MessageCount int    `json:"messageCount"` // messages ever added
}

// Message represents a single message in a conversation
type Message struct {
	ID             int64  `json:"id"`
	ConversationID int64  `json:"conversationId"`
	Text           string `json:"text"`
	Sender         string `json:"sender"` // "user" or "ai"
	Timestamp      int64  `json:"timestamp"`
	HasFiles       bool   `json:"hasFiles"`
}

// File represents an attachment owned by a message
type File struct {
	ID        int64  `json:"id"`
	MessageID int64  `json:"messageId"`
	Name      string `json:"name"`
	Type      string `json:"type"` // MIME type
	Size      int64  `json:"size"`
	Data      []byte `json:"-"`
	Timestamp int64  `json:"timestamp"`
}

// FileInput describes an attachment passed to AddMessage
type FileInput struct {
	Name string
	Type string
	Size int64 // defaults to len(Data) when zero
	Data []byte
}

// ValidSender reports whether s is an accepted sender value
func ValidSender(s string) bool {
	return s == SenderUser || s == SenderAI
}
