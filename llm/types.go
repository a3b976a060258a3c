package llm

import (
	"context"
	"errors"
)

// Chat roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Defaults applied when the configuration leaves a value unset
const (
	DefaultModel       = "gpt-3.5-turbo"
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.7
)

var (
	// ErrNoAPIKey is returned when a remote provider is used without credentials
	ErrNoAPIKey = errors.New("API key is required")

	// ErrAPI wraps the human-readable error reported by a chat completion API
	ErrAPI = errors.New("chat completion API error")

	// ErrEmptyResponse is returned when the API answered without any choice
	ErrEmptyResponse = errors.New("empty response from chat completion API")
)

// Message represents a chat message
type Message struct {
	Role    string `json:"role"` // "user" or "assistant" or "system"
	Content string `json:"content"`
}

// Provider interface defines the common interface for chat completion backends
type Provider interface {
	// Chat sends messages and returns the complete response
	Chat(ctx context.Context, messages []Message) (string, error)

	// Name returns the provider name
	Name() string
}

// Config represents provider configuration
type Config struct {
	ProviderName string // Display name for the provider
	APIKey       string
	BaseURL      string
	Model        string
	Timeout      int // seconds
	MaxTokens    int
	Temperature  float64
}
