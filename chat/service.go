// Package chat implements the send-message flow: it stores the user's turn, asks a chat
// completion provider for a reply and stores the reply.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"epictech-chat/db"
	"epictech-chat/llm"
	"epictech-chat/utils"
)

// DefaultHistoryLimit is the number of stored messages sent to the provider as context
const DefaultHistoryLimit = 20

// ErrEmptyMessage is returned when a message has neither text nor attachments
var ErrEmptyMessage = errors.New("message has no text and no attachments")

// Store is the subset of the database the chat service needs
type Store interface {
	CreateConversation(ctx context.Context, title string) (int64, error)
	GetConversation(ctx context.Context, id int64) (*db.Conversation, error)
	AddMessage(ctx context.Context, conversationID int64, text, sender string, files []db.FileInput) (int64, error)
	GetMessages(ctx context.Context, conversationID int64) ([]db.Message, error)
}

var _ Store = (*db.DB)(nil)

// SendRequest contains the parameters of a user turn
type SendRequest struct {
	ConversationID int64 // 0 starts a new conversation
	Text           string
	Files          []db.FileInput
	Personality    string
}

// SendResponse describes the stored exchange
type SendResponse struct {
	ConversationID int64  `json:"conversationId"`
	UserMessageID  int64  `json:"userMessageId"`
	ReplyMessageID int64  `json:"replyMessageId"`
	Reply          string `json:"reply"`
	Provider       string `json:"provider"`
	Offline        bool   `json:"offline"`
}

// Service handles the business logic for chat operations
type Service struct {
	store        Store
	provider     llm.Provider
	offline      *llm.OfflineResponder
	logger       logrus.FieldLogger
	now          func() time.Time
	historyLimit int
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the service logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithOffline sets the responder used when the provider is missing or fails
func WithOffline(o *llm.OfflineResponder) Option {
	return func(s *Service) { s.offline = o }
}

// WithClock overrides the time source used for new conversation titles
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithHistoryLimit sets how many stored messages are sent as context
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// NewService creates a chat service. A nil provider means every reply comes from the
// offline responder.
func NewService(store Store, provider llm.Provider, opts ...Option) *Service {
	s := &Service{
		store:        store,
		provider:     provider,
		logger:       logrus.StandardLogger(),
		now:          time.Now,
		historyLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.offline == nil {
		s.offline = llm.NewOfflineResponder(nil)
	}
	return s
}

// Send stores the user's message, obtains a reply and stores it
func (s *Service) Send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	if strings.TrimSpace(req.Text) == "" && len(req.Files) == 0 {
		return nil, ErrEmptyMessage
	}

	conversationID, err := s.resolveConversation(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}

	userMessageID, err := s.store.AddMessage(ctx, conversationID, req.Text, db.SenderUser, req.Files)
	if err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	history, err := s.buildHistory(ctx, conversationID, req)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"message_count":   len(history),
		"personality":     req.Personality,
	}).Debug("Prepared for LLM call")

	reply, providerName, offline := s.complete(ctx, history)

	replyMessageID, err := s.store.AddMessage(ctx, conversationID, reply, db.SenderAI, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to save assistant message: %w", err)
	}

	return &SendResponse{
		ConversationID: conversationID,
		UserMessageID:  userMessageID,
		ReplyMessageID: replyMessageID,
		Reply:          reply,
		Provider:       providerName,
		Offline:        offline,
	}, nil
}

func (s *Service) resolveConversation(ctx context.Context, id int64) (int64, error) {
	if id == 0 {
		newID, err := s.store.CreateConversation(ctx, NewChatTitle(s.now()))
		if err != nil {
			return 0, fmt.Errorf("failed to create conversation: %w", err)
		}
		return newID, nil
	}

	conv, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return 0, err
	}
	if conv == nil {
		return 0, fmt.Errorf("conversation %d: %w", id, db.ErrNotFound)
	}
	return id, nil
}

// buildHistory turns the stored conversation into provider messages. The newest user
// message gets the description of its attachments appended.
func (s *Service) buildHistory(ctx context.Context, conversationID int64, req SendRequest) ([]llm.Message, error) {
	stored, err := s.store.GetMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve conversation history: %w", err)
	}
	if len(stored) > s.historyLimit {
		stored = stored[len(stored)-s.historyLimit:]
	}

	system, _ := llm.SystemPrompt(req.Personality)
	history := make([]llm.Message, 0, len(stored)+1)
	history = append(history, system)

	for _, msg := range stored {
		role := llm.RoleUser
		if msg.Sender == db.SenderAI {
			role = llm.RoleAssistant
		}
		history = append(history, llm.Message{Role: role, Content: msg.Text})
	}

	if n := len(history); n > 1 && history[n-1].Role == llm.RoleUser {
		history[n-1].Content = PromptWithAttachments(req.Text, req.Files)
	}
	return history, nil
}

// complete asks the provider for a reply, falling back to the offline responder
func (s *Service) complete(ctx context.Context, history []llm.Message) (string, string, bool) {
	if s.provider != nil {
		reply, err := s.provider.Chat(ctx, history)
		if err == nil {
			return reply, s.provider.Name(), false
		}
		s.logger.WithError(err).WithField("provider", s.provider.Name()).Warn("Chat completion failed, answering offline")
	}

	reply, _ := s.offline.Chat(context.WithoutCancel(ctx), history)
	return reply, s.offline.Name(), true
}

// NewChatTitle returns the title given to conversations started by the chat service
func NewChatTitle(t time.Time) string {
	return "Chat " + t.Format("2006-01-02 15:04:05")
}

// PromptWithAttachments appends a description of files to text
func PromptWithAttachments(text string, files []db.FileInput) string {
	if len(files) == 0 {
		return text
	}

	lines := make([]string, 0, len(files))
	for _, f := range files {
		size := f.Size
		if size == 0 {
			size = int64(len(f.Data))
		}
		lines = append(lines, fmt.Sprintf("[File: %s, Type: %s, Size: %s]", f.Name, f.Type, utils.FormatFileSize(size)))
	}
	return text + "\n\nAttached files:\n" + strings.Join(lines, "\n")
}
