package sysward

import (
	"context"
	"testing"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := New()
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

func requireBlocked(t *testing.T, err error) *BlockedError {
	t.Helper()
	if err == nil {
		t.Fatal("expected command to be blocked, got nil error")
	}
	blocked, ok := err.(*BlockedError)
	if !ok {
		t.Fatalf("expected *BlockedError, got %T: %v", err, err)
	}
	return blocked
}

func TestNewDefault(t *testing.T) {
	c, err := New()
	if err != nil {
		t.Fatalf("New() with defaults should succeed: %v", err)
	}
	if c == nil {
		t.Fatal("expected non-nil client")
	}
}

func TestCheckAllowed(t *testing.T) {
	c := newTestClient(t)

	res, err := c.Check(Command{Action: "shell_query", Target: "df -h"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("expected df -h to be allowed, got %+v", res)
	}
}

func TestCheckDenied(t *testing.T) {
	c := newTestClient(t)

	res, err := c.Check(Command{Action: "start_app", Target: "rm"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.Allowed {
		t.Fatal("expected rm to be denied")
	}
	if res.Rule != "blocked_application" {
		t.Fatalf("expected blocked_application, got %q", res.Rule)
	}
}

func TestCheckSchemaError(t *testing.T) {
	c := newTestClient(t)

	if _, err := c.Check(Command{Action: "format_disk", Target: "/dev/sda"}); err == nil {
		t.Fatal("expected schema error for unknown action")
	}
}

func TestWrapCallsToolWhenAllowed(t *testing.T) {
	c := newTestClient(t)

	called := false
	wrapped := c.Wrap(func(ctx context.Context, cmd Command) (any, error) {
		called = true
		return cmd.Target, nil
	})

	out, err := wrapped(context.Background(), Command{Action: "shell_query", Target: "uptime"})
	if err != nil {
		t.Fatalf("wrapped call: %v", err)
	}
	if !called {
		t.Fatal("expected tool to be called")
	}
	if out != "uptime" {
		t.Fatalf("expected sanitized target, got %v", out)
	}
}

func TestWrapBlocksDeniedCommand(t *testing.T) {
	c := newTestClient(t)

	wrapped := c.Wrap(func(ctx context.Context, cmd Command) (any, error) {
		t.Fatal("tool must not be called for denied command")
		return nil, nil
	})

	_, err := wrapped(context.Background(), Command{Action: "kill_process", Target: "sshd"})
	blocked := requireBlocked(t, err)
	if blocked.Rule != "protected_process" {
		t.Fatalf("expected protected_process, got %q", blocked.Rule)
	}
}

func TestWrapBlocksMalformedCommand(t *testing.T) {
	c := newTestClient(t)

	wrapped := c.Wrap(func(ctx context.Context, cmd Command) (any, error) {
		t.Fatal("tool must not be called for malformed command")
		return nil, nil
	})

	_, err := wrapped(context.Background(), Command{Action: "start_app", Target: "   "})
	blocked := requireBlocked(t, err)
	if blocked.Rule != "" {
		t.Fatalf("schema failures carry no rule, got %q", blocked.Rule)
	}
}

func TestWrapSanitizesTarget(t *testing.T) {
	c := newTestClient(t)

	var got Command
	wrapped := c.Wrap(func(ctx context.Context, cmd Command) (any, error) {
		got = cmd
		return nil, nil
	})

	if _, err := wrapped(context.Background(), Command{Action: "start_app", Target: "  firefox  "}); err != nil {
		t.Fatalf("wrapped call: %v", err)
	}
	if got.Target != "firefox" {
		t.Fatalf("expected trimmed target, got %q", got.Target)
	}
}
