package llm

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

var jokes = []string{
	"Why don't scientists trust atoms? Because they make up everything!",
	"Why did the developer go broke? Because they lost their cache!",
	"How many programmers does it take to change a light bulb? None, that's a hardware problem!",
	"Why do programmers prefer dark mode? Because light attracts bugs!",
}

var genericReplies = []string{
	`I understand you're asking about "%s". I'm running offline right now, so my answers are limited. Configure an API key for a detailed response.`,
	`That's an interesting question about "%s". A full answer needs a connection to the chat completion API.`,
	`I'd love to help with "%s". Set an API key in the configuration to unlock complete answers.`,
}

type keywordReply struct {
	keywords []string
	words    bool // match whole words only
	reply    string
}

var keywordReplies = []keywordReply{
	{keywords: []string{"hello", "hi", "hey"}, words: true,
		reply: "Hello! I'm Epic Tech AI, your AI assistant. How can I help you today?"},
	{keywords: []string{"how are you"},
		reply: "I'm running smoothly, thanks for asking! What can I do for you?"},
	{keywords: []string{"your name"},
		reply: "I'm Epic Tech AI, an assistant for questions, code and writing."},
	{keywords: []string{"api key", "setup", "configure"},
		reply: "To get full answers, set an OpenAI API key: put it in the config file under llm.api_key or export EPICCHAT_LLM_API_KEY, then restart."},
	{keywords: []string{"help", "can you"},
		reply: "Happy to help! I can answer questions, explain code, draft text and analyse data. Tell me what you need."},
	{keywords: []string{"thank"},
		reply: "You're welcome! Anything else I can help with?"},
	{keywords: []string{"goodbye", "bye"}, words: true,
		reply: "Goodbye! Come back any time."},
	{keywords: []string{"weather"},
		reply: "I can't look up live weather while offline. With an API key configured I can do more."},
	{keywords: []string{"code", "programming", "golang", "python", "javascript"},
		reply: "I can help with code! Offline I only have a small example:\n\n```go\nfunc reverse(s string) string {\n\tr := []rune(s)\n\tfor i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {\n\t\tr[i], r[j] = r[j], r[i]\n\t}\n\treturn string(r)\n}\n```\n\nConfigure an API key for real debugging help."},
}

// OfflineResponder answers with canned replies chosen by keyword. It is used when no API
// key is configured or the remote provider fails.
type OfflineResponder struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewOfflineResponder creates a responder. A nil source seeds from the clock.
func NewOfflineResponder(src rand.Source) *OfflineResponder {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &OfflineResponder{rnd: rand.New(src)}
}

// Chat answers the last user message in messages
func (o *OfflineResponder) Chat(ctx context.Context, messages []Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return o.Respond(messages[i].Content), nil
		}
	}
	return o.Respond(""), nil
}

// Name returns the provider name
func (o *OfflineResponder) Name() string {
	return "Offline"
}

// Respond returns the canned reply for text
func (o *OfflineResponder) Respond(text string) string {
	lower := strings.ToLower(text)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '\'')
	})

	for _, kr := range keywordReplies {
		if matches(kr, lower, words) {
			return kr.reply
		}
	}

	if strings.Contains(lower, "joke") || strings.Contains(lower, "funny") {
		return jokes[o.intn(len(jokes))]
	}

	return fmt.Sprintf(genericReplies[o.intn(len(genericReplies))], text)
}

func matches(kr keywordReply, lower string, words []string) bool {
	for _, kw := range kr.keywords {
		if !kr.words {
			if strings.Contains(lower, kw) {
				return true
			}
			continue
		}
		for _, w := range words {
			if w == kw {
				return true
			}
		}
	}
	return false
}

func (o *OfflineResponder) intn(n int) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rnd.Intn(n)
}
