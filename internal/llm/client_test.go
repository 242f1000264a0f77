package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nkoval/sysward/internal/intent"
)

// newChatServer returns a server replying with the given message contents,
// one per request, in order.
func newChatServer(t *testing.T, contents ...string) *httptest.Server {
	t.Helper()
	var calls int
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("expected POST, got %s", r.Method)
		}
		content := contents[len(contents)-1]
		if calls < len(contents) {
			content = contents[calls]
		}
		calls++
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestTranslateParsesCommandEnvelope(t *testing.T) {
	srv := newChatServer(t, `{"command": {"action": "start_app", "target": "firefox", "parameters": null, "reason": "Opening Firefox browser"}, "error": null, "cannot_process": false}`)
	defer srv.Close()

	c := New(srv.URL, "", "test-model", time.Second)
	env, err := c.Translate(context.Background(), "open firefox")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if env.CannotProcess {
		t.Fatal("expected processable envelope")
	}
	if env.Command == nil {
		t.Fatal("expected a command")
	}
	if env.Command.Action != string(intent.StartApp) {
		t.Fatalf("expected start_app, got %q", env.Command.Action)
	}
	if env.Command.Target != "firefox" {
		t.Fatalf("expected firefox, got %q", env.Command.Target)
	}
}

func TestTranslateParsesRefusalEnvelope(t *testing.T) {
	srv := newChatServer(t, `{"command": null, "error": "Cannot execute destructive operations like file deletion", "cannot_process": true}`)
	defer srv.Close()

	c := New(srv.URL, "", "test-model", time.Second)
	env, err := c.Translate(context.Background(), "delete all files")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if !env.CannotProcess {
		t.Fatal("expected cannot_process")
	}
	if env.Command != nil {
		t.Fatal("expected no command in refusal")
	}
	if env.Error == "" {
		t.Fatal("expected an error message")
	}
}

func TestTranslateStripsMarkdownFences(t *testing.T) {
	srv := newChatServer(t, "```json\n{\"command\": {\"action\": \"shell_query\", \"target\": \"df -h\", \"parameters\": null, \"reason\": \"disk usage\"}, \"error\": null, \"cannot_process\": false}\n```")
	defer srv.Close()

	c := New(srv.URL, "", "test-model", time.Second)
	env, err := c.Translate(context.Background(), "show disk usage")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if env.Command == nil || env.Command.Target != "df -h" {
		t.Fatalf("expected df -h command, got %+v", env.Command)
	}
}

func TestTranslateExtractsJSONFromProse(t *testing.T) {
	srv := newChatServer(t, `Here is the command you asked for:
{"command": {"action": "list_processes", "target": "all", "parameters": null, "reason": "listing"}, "error": null, "cannot_process": false}
Hope that helps!`)
	defer srv.Close()

	c := New(srv.URL, "", "test-model", time.Second)
	env, err := c.Translate(context.Background(), "show processes")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if env.Command == nil || env.Command.Action != "list_processes" {
		t.Fatalf("expected list_processes, got %+v", env.Command)
	}
}

func TestTranslateRetriesOnceOnGarbage(t *testing.T) {
	srv := newChatServer(t,
		"this is not json at all",
		`{"command": {"action": "start_app", "target": "gedit", "parameters": null, "reason": "editor"}, "error": null, "cannot_process": false}`,
	)
	defer srv.Close()

	c := New(srv.URL, "", "test-model", time.Second)
	env, err := c.Translate(context.Background(), "open gedit")
	if err != nil {
		t.Fatalf("expected retry to recover, got: %v", err)
	}
	if env.Command == nil || env.Command.Target != "gedit" {
		t.Fatalf("expected gedit command, got %+v", env.Command)
	}
}

func TestTranslateGivesUpAfterTwoGarbageReplies(t *testing.T) {
	srv := newChatServer(t, "garbage one", "garbage two")
	defer srv.Close()

	c := New(srv.URL, "", "test-model", time.Second)
	if _, err := c.Translate(context.Background(), "open gedit"); err == nil {
		t.Fatal("expected error after two malformed replies")
	}
}

func TestTranslateReportsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, "rate limited")
	}))
	defer srv.Close()

	c := New(srv.URL, "", "test-model", time.Second)
	_, err := c.Translate(context.Background(), "open firefox")
	if err == nil {
		t.Fatal("expected HTTP error")
	}
}

func TestAskSendsAuthorizationHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "{}"}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-key", "test-model", time.Second)
	if _, err := c.ask(context.Background(), "hi"); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if gotAuth != "Bearer secret-key" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
}
