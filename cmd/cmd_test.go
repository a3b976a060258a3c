package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"epictech-chat/archive"
	"epictech-chat/db"
	"epictech-chat/utils"
)

// newTestConfig writes a config keeping all data inside a temp dir
func newTestConfig(t *testing.T) (string, *utils.Config) {
	t.Helper()
	t.Setenv("EPICCHAT_LLM_API_KEY", "")

	dir := t.TempDir()
	cfg := utils.DefaultConfig()
	cfg.Data.DBPath = filepath.Join(dir, "data", "chat.db")
	cfg.Data.ExportDir = filepath.Join(dir, "exports")
	cfg.Log.Dir = filepath.Join(dir, "logs")

	path := filepath.Join(dir, "config.json")
	if err := utils.SaveConfig(path, cfg); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path, cfg
}

func runCLI(t *testing.T, configPath, stdin string, args ...string) (string, error) {
	t.Helper()
	root, a := newRootCmd()
	defer a.close()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", configPath}, args...))

	err := root.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, configPath string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, configPath, "", args...)
	if err != nil {
		t.Fatalf("%v failed: %v", args, err)
	}
	return out
}

func TestConversationCommands(t *testing.T) {
	cfgPath, _ := newTestConfig(t)

	out := mustRun(t, cfgPath, "list")
	if !strings.Contains(out, "No conversations yet") {
		t.Errorf("Unexpected empty list output: %q", out)
	}

	out = mustRun(t, cfgPath, "new", "Trip", "planning")
	if !strings.Contains(out, "Created conversation 1") {
		t.Fatalf("Unexpected new output: %q", out)
	}

	mustRun(t, cfgPath, "send", "1", "Where", "should", "we", "go?")
	mustRun(t, cfgPath, "send", "1", "--sender", "ai", "Somewhere warm.")

	out = mustRun(t, cfgPath, "list", "--json")
	var convs []db.Conversation
	if err := json.Unmarshal([]byte(out), &convs); err != nil {
		t.Fatalf("list --json is not JSON: %v", err)
	}
	if len(convs) != 1 || convs[0].Title != "Trip planning" || convs[0].MessageCount != 2 || convs[0].LastMessage != "Somewhere warm." {
		t.Errorf("Unexpected conversations %+v", convs)
	}

	mustRun(t, cfgPath, "rename", "1", "Holiday")
	out = mustRun(t, cfgPath, "show", "1")
	if !strings.Contains(out, "Holiday") || !strings.Contains(out, "user: Where should we go?") || !strings.Contains(out, "ai: Somewhere warm.") {
		t.Errorf("Unexpected show output: %q", out)
	}

	out = mustRun(t, cfgPath, "show", "1", "--markdown")
	if !strings.HasPrefix(out, "# Holiday") {
		t.Errorf("Unexpected markdown output: %q", out)
	}

	out = mustRun(t, cfgPath, "search", "warm")
	if !strings.Contains(out, "Holiday") {
		t.Errorf("Unexpected search output: %q", out)
	}

	mustRun(t, cfgPath, "delete", "1")
	out = mustRun(t, cfgPath, "list")
	if !strings.Contains(out, "No conversations yet") {
		t.Errorf("Conversation should be gone, got %q", out)
	}
}

func TestSendWithAttachment(t *testing.T) {
	cfgPath, _ := newTestConfig(t)
	mustRun(t, cfgPath, "new")

	attachment := filepath.Join(t.TempDir(), "notes.txt")
	os.WriteFile(attachment, []byte("remember the milk"), 0644)

	out := mustRun(t, cfgPath, "send", "1", "see file", "--attach", attachment)
	if !strings.Contains(out, "with 1 file(s)") {
		t.Errorf("Unexpected send output: %q", out)
	}

	out = mustRun(t, cfgPath, "show", "1")
	if !strings.Contains(out, "notes.txt") {
		t.Errorf("Attachment missing from show output: %q", out)
	}

	out = mustRun(t, cfgPath, "stats")
	if !strings.Contains(out, "Files:         1 (17 B)") {
		t.Errorf("Unexpected stats output: %q", out)
	}
}

func TestSendErrors(t *testing.T) {
	cfgPath, _ := newTestConfig(t)

	if _, err := runCLI(t, cfgPath, "", "send", "7", "hello"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	mustRun(t, cfgPath, "new")
	if _, err := runCLI(t, cfgPath, "", "send", "1", "--sender", "robot", "hello"); !errors.Is(err, db.ErrInvalidSender) {
		t.Errorf("Expected ErrInvalidSender, got %v", err)
	}
	if _, err := runCLI(t, cfgPath, "", "show", "abc"); err == nil {
		t.Error("Expected an error for a non-numeric id")
	}
}

func TestExportImportCommands(t *testing.T) {
	cfgPath, cfg := newTestConfig(t)
	mustRun(t, cfgPath, "new", "Backup me")
	mustRun(t, cfgPath, "send", "1", "first")

	out := mustRun(t, cfgPath, "export")
	if !strings.Contains(out, cfg.Data.ExportDir) {
		t.Errorf("Unexpected export output: %q", out)
	}
	matches, _ := filepath.Glob(filepath.Join(cfg.Data.ExportDir, "epic_tech_ai_export_*.json"))
	if len(matches) != 1 {
		t.Fatalf("Expected one export file, got %v", matches)
	}

	out = mustRun(t, cfgPath, "import", matches[0])
	if !strings.Contains(out, "Imported 1 conversation(s)") {
		t.Errorf("Unexpected import output: %q", out)
	}

	out = mustRun(t, cfgPath, "export", "--out", "-")
	doc := struct {
		Conversations []archive.ConversationRecord `json:"conversations"`
	}{}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("Export to stdout is not JSON: %v", err)
	}
	if len(doc.Conversations) != 2 {
		t.Errorf("Expected 2 conversations after import, got %d", len(doc.Conversations))
	}

	if _, err := runCLI(t, cfgPath, `{"conversations": 5}`, "import", "-"); !errors.Is(err, archive.ErrInvalidFormat) {
		t.Errorf("Expected ErrInvalidFormat, got %v", err)
	}
	if _, err := runCLI(t, cfgPath, "", "export", "--format", "markdown"); err == nil {
		t.Error("Expected markdown export without --id to fail")
	}
	if _, err := runCLI(t, cfgPath, "", "export", "--format", "xml"); err == nil {
		t.Error("Expected an unknown format to fail")
	}
}

func TestChatCommandOffline(t *testing.T) {
	cfgPath, _ := newTestConfig(t)

	out, err := runCLI(t, cfgPath, "hello there\n/new\ntell me a joke\n/exit\n", "chat")
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if !strings.Contains(out, "Started a new conversation") {
		t.Errorf("Unexpected chat output: %q", out)
	}

	out = mustRun(t, cfgPath, "list", "--json")
	var convs []db.Conversation
	json.Unmarshal([]byte(out), &convs)
	if len(convs) != 2 {
		t.Fatalf("Expected 2 conversations, got %d", len(convs))
	}
	for _, c := range convs {
		if c.MessageCount != 2 {
			t.Errorf("Expected a stored exchange in %q, got %d messages", c.Title, c.MessageCount)
		}
	}

	if _, err := runCLI(t, cfgPath, "", "chat", "--personality", "pirate"); err == nil {
		t.Error("Expected an unknown personality to fail")
	}
}
