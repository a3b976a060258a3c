package llm

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOfflineResponder_Keywords(t *testing.T) {
	o := NewOfflineResponder(rand.NewSource(1))

	tests := []struct {
		input string
		want  string
	}{
		{"Hello there", "Hello!"},
		{"hey", "Hello!"},
		{"How are you today?", "running smoothly"},
		{"What is your name?", "I'm Epic Tech AI"},
		{"How do I configure the API key?", "OpenAI API key"},
		{"Can you do this?", "Happy to help"},
		{"thanks a lot", "You're welcome"},
		{"ok bye", "Goodbye"},
		{"weather in Paris", "live weather"},
		{"write some python", "```go"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := o.Respond(tt.input)
			if !strings.Contains(got, tt.want) {
				t.Errorf("Respond(%q) = %q, expected it to contain %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestOfflineResponder_HiIsWholeWord(t *testing.T) {
	o := NewOfflineResponder(rand.NewSource(1))

	got := o.Respond("this is something")
	if strings.HasPrefix(got, "Hello!") {
		t.Errorf("'this' must not count as a greeting, got %q", got)
	}
}

func TestOfflineResponder_Jokes(t *testing.T) {
	o := NewOfflineResponder(rand.NewSource(42))

	for i := 0; i < 10; i++ {
		got := o.Respond("tell me a joke")
		found := false
		for _, j := range jokes {
			if got == j {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected a joke, got %q", got)
		}
	}
}

func TestOfflineResponder_GenericEchoesQuestion(t *testing.T) {
	o := NewOfflineResponder(rand.NewSource(7))

	got := o.Respond("quantum entanglement")
	if !strings.Contains(got, `"quantum entanglement"`) {
		t.Errorf("Generic reply should quote the question, got %q", got)
	}
}

func TestOfflineResponder_ChatUsesLastUserMessage(t *testing.T) {
	o := NewOfflineResponder(rand.NewSource(1))

	got, err := o.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "be nice"},
		{Role: RoleUser, Content: "what's the weather"},
		{Role: RoleAssistant, Content: "no idea"},
		{Role: RoleUser, Content: "thank you"},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if !strings.Contains(got, "You're welcome") {
		t.Errorf("Unexpected reply %q", got)
	}
	if o.Name() != "Offline" {
		t.Errorf("Unexpected name %q", o.Name())
	}
}

func TestSystemPrompt(t *testing.T) {
	for _, name := range Personalities() {
		msg, ok := SystemPrompt(name)
		if !ok || msg.Role != RoleSystem || msg.Content == "" {
			t.Errorf("SystemPrompt(%q) = %+v, %v", name, msg, ok)
		}
	}

	fallback, ok := SystemPrompt("pirate")
	def, _ := SystemPrompt(DefaultPersonality)
	if ok || fallback != def {
		t.Errorf("Unknown personality should fall back to default")
	}

	if len(Personalities()) != 6 {
		t.Errorf("Expected 6 personalities, got %v", Personalities())
	}
}

func TestOpenAIProvider_Chat(t *testing.T) {
	var got struct {
		Model       string    `json:"model"`
		Messages    []Message `json:"messages"`
		MaxTokens   int       `json:"max_tokens"`
		Temperature float64   `json:"temperature"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Unexpected authorization header %q", auth)
		}
		json.NewDecoder(r.Body).Decode(&got)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-3.5-turbo",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Hi from the API"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	reply, err := p.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "hello"},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if reply != "Hi from the API" {
		t.Errorf("Unexpected reply %q", reply)
	}

	if got.Model != DefaultModel || got.MaxTokens != DefaultMaxTokens {
		t.Errorf("Expected defaults in request, got model %q max_tokens %d", got.Model, got.MaxTokens)
	}
	if got.Temperature < 0.69 || got.Temperature > 0.71 {
		t.Errorf("Expected temperature 0.7, got %v", got.Temperature)
	}
	if len(got.Messages) != 2 || got.Messages[1].Content != "hello" {
		t.Errorf("Unexpected messages %+v", got.Messages)
	}
}

func TestOpenAIProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(Config{APIKey: "bad", BaseURL: server.URL})
	_, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if !errors.Is(err, ErrAPI) {
		t.Fatalf("Expected ErrAPI, got %v", err)
	}
	if !strings.Contains(err.Error(), "Incorrect API key provided") {
		t.Errorf("Expected API message to be surfaced, got %v", err)
	}
}

func TestOpenAIProvider_NoAPIKey(t *testing.T) {
	p := NewOpenAIProvider(Config{})
	if _, err := p.Chat(context.Background(), nil); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Expected ErrNoAPIKey, got %v", err)
	}
	if p.Name() != "OpenAI Compatible" || p.Model() != DefaultModel {
		t.Errorf("Unexpected defaults: %q %q", p.Name(), p.Model())
	}
}
