package chat

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"epictech-chat/db"
	"epictech-chat/llm"
)

// fakeProvider records what it was asked and answers with a fixed reply or error
type fakeProvider struct {
	reply    string
	err      error
	calls    int
	received []llm.Message
}

func (f *fakeProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	f.calls++
	f.received = append([]llm.Message(nil), messages...)
	return f.reply, f.err
}

func (f *fakeProvider) Name() string { return "fake" }

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestService(t *testing.T, provider llm.Provider) (*Service, *db.DB) {
	t.Helper()
	store := db.New(filepath.Join(t.TempDir(), "chat.db"), db.WithLogger(quietLogger()))
	t.Cleanup(func() { store.Close() })

	svc := NewService(store, provider,
		WithLogger(quietLogger()),
		WithOffline(llm.NewOfflineResponder(rand.NewSource(1))),
		WithClock(func() time.Time { return time.Date(2024, 3, 9, 14, 5, 6, 0, time.Local) }),
	)
	return svc, store
}

func TestSend_NewConversation(t *testing.T) {
	provider := &fakeProvider{reply: "Sure thing."}
	svc, store := newTestService(t, provider)
	ctx := context.Background()

	resp, err := svc.Send(ctx, SendRequest{Text: "Explain goroutines", Personality: "developer"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if resp.Reply != "Sure thing." || resp.Provider != "fake" || resp.Offline {
		t.Errorf("Unexpected response %+v", resp)
	}

	conv, _ := store.GetConversation(ctx, resp.ConversationID)
	if conv == nil || conv.Title != "Chat 2024-03-09 14:05:06" {
		t.Fatalf("Unexpected conversation %+v", conv)
	}
	if conv.MessageCount != 2 || conv.LastMessage != "Sure thing." {
		t.Errorf("Unexpected rollup %+v", conv)
	}

	msgs, _ := store.GetMessages(ctx, resp.ConversationID)
	if len(msgs) != 2 || msgs[0].Sender != db.SenderUser || msgs[1].Sender != db.SenderAI {
		t.Fatalf("Unexpected messages %+v", msgs)
	}
	if msgs[0].ID != resp.UserMessageID || msgs[1].ID != resp.ReplyMessageID {
		t.Errorf("Response ids do not match stored messages")
	}

	system, _ := llm.SystemPrompt("developer")
	if len(provider.received) != 2 || provider.received[0] != system {
		t.Fatalf("Expected system prompt and user turn, got %+v", provider.received)
	}
	if provider.received[1].Role != llm.RoleUser || provider.received[1].Content != "Explain goroutines" {
		t.Errorf("Unexpected user turn %+v", provider.received[1])
	}
}

func TestSend_ExistingConversationHistory(t *testing.T) {
	provider := &fakeProvider{reply: "second answer"}
	svc, store := newTestService(t, provider)
	ctx := context.Background()

	id, _ := store.CreateConversation(ctx, "Existing")
	store.AddMessage(ctx, id, "first question", db.SenderUser, nil)
	store.AddMessage(ctx, id, "first answer", db.SenderAI, nil)

	if _, err := svc.Send(ctx, SendRequest{ConversationID: id, Text: "second question"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	wantRoles := []string{llm.RoleSystem, llm.RoleUser, llm.RoleAssistant, llm.RoleUser}
	if len(provider.received) != len(wantRoles) {
		t.Fatalf("Expected %d messages, got %d", len(wantRoles), len(provider.received))
	}
	for i, role := range wantRoles {
		if provider.received[i].Role != role {
			t.Errorf("message %d: expected role %q, got %q", i, role, provider.received[i].Role)
		}
	}
	if provider.received[2].Content != "first answer" {
		t.Errorf("Unexpected history %+v", provider.received)
	}

	conv, _ := store.GetConversation(ctx, id)
	if conv.Title != "Existing" || conv.MessageCount != 4 {
		t.Errorf("Unexpected conversation %+v", conv)
	}
}

func TestSend_HistoryLimit(t *testing.T) {
	provider := &fakeProvider{reply: "ok"}
	svc, store := newTestService(t, provider)
	WithHistoryLimit(3)(svc)
	ctx := context.Background()

	id, _ := store.CreateConversation(ctx, "")
	for i := 0; i < 6; i++ {
		store.AddMessage(ctx, id, "old", db.SenderUser, nil)
	}
	svc.Send(ctx, SendRequest{ConversationID: id, Text: "latest"})

	// system prompt plus the last three stored messages
	if len(provider.received) != 4 {
		t.Fatalf("Expected 4 messages, got %d", len(provider.received))
	}
	if provider.received[3].Content != "latest" {
		t.Errorf("Newest message must be last, got %+v", provider.received[3])
	}
}

func TestSend_AttachmentsDescribedInPrompt(t *testing.T) {
	provider := &fakeProvider{reply: "Nice picture"}
	svc, store := newTestService(t, provider)
	ctx := context.Background()

	resp, err := svc.Send(ctx, SendRequest{
		Text:  "What is this?",
		Files: []db.FileInput{{Name: "cat.png", Type: "image/png", Data: make([]byte, 2048)}},
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	last := provider.received[len(provider.received)-1].Content
	want := "What is this?\n\nAttached files:\n[File: cat.png, Type: image/png, Size: 2.0 KB]"
	if last != want {
		t.Errorf("Prompt = %q, want %q", last, want)
	}

	// the stored text stays as typed
	msg, _ := store.GetMessage(ctx, resp.UserMessageID)
	if msg.Text != "What is this?" || !msg.HasFiles {
		t.Errorf("Unexpected stored message %+v", msg)
	}
	files, _ := store.GetFilesForMessage(ctx, resp.UserMessageID)
	if len(files) != 1 || files[0].Size != 2048 {
		t.Errorf("Unexpected files %+v", files)
	}
}

func TestSend_ProviderFailureFallsBackOffline(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	svc, store := newTestService(t, provider)
	ctx := context.Background()

	resp, err := svc.Send(ctx, SendRequest{Text: "hello"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !resp.Offline || resp.Provider != "Offline" {
		t.Errorf("Expected offline reply, got %+v", resp)
	}
	if !strings.HasPrefix(resp.Reply, "Hello!") {
		t.Errorf("Unexpected offline reply %q", resp.Reply)
	}

	msgs, _ := store.GetMessages(ctx, resp.ConversationID)
	if len(msgs) != 2 || msgs[1].Text != resp.Reply {
		t.Errorf("Offline reply should be stored, got %+v", msgs)
	}
}

func TestSend_NilProviderUsesOffline(t *testing.T) {
	svc, _ := newTestService(t, nil)

	resp, err := svc.Send(context.Background(), SendRequest{Text: "thanks"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !resp.Offline || !strings.Contains(resp.Reply, "welcome") {
		t.Errorf("Unexpected response %+v", resp)
	}
}

func TestSend_Errors(t *testing.T) {
	provider := &fakeProvider{reply: "x"}
	svc, store := newTestService(t, provider)
	ctx := context.Background()

	if _, err := svc.Send(ctx, SendRequest{Text: "   "}); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("Expected ErrEmptyMessage, got %v", err)
	}
	if _, err := svc.Send(ctx, SendRequest{ConversationID: 404, Text: "hi"}); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if provider.calls != 0 {
		t.Errorf("Provider should not be called on invalid input")
	}

	convs, _ := store.GetConversations(ctx)
	if len(convs) != 0 {
		t.Errorf("Nothing should be written, got %d conversations", len(convs))
	}
}

func TestPromptWithAttachments(t *testing.T) {
	if got := PromptWithAttachments("plain", nil); got != "plain" {
		t.Errorf("Unexpected prompt %q", got)
	}

	got := PromptWithAttachments("", []db.FileInput{
		{Name: "a.txt", Type: "text/plain", Size: 10},
		{Name: "b.pdf", Type: "application/pdf", Size: 3 * 1024 * 1024},
	})
	want := "\n\nAttached files:\n[File: a.txt, Type: text/plain, Size: 10 B]\n[File: b.pdf, Type: application/pdf, Size: 3.0 MB]"
	if got != want {
		t.Errorf("Prompt = %q, want %q", got, want)
	}
}
