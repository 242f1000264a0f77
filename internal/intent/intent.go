// Package intent defines the structured command schema: the closed action
// vocabulary, target sanitization, and validation of untrusted candidates
// into immutable Intents. Everything upstream of the policy engine, the
// LLM translator included, is treated as a potentially adversarial
// producer; nothing reaches policy evaluation without passing through
// Validate.
package intent

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxTargetLen caps the sanitized target length, counted in runes.
const maxTargetLen = 256

// SchemaErrorCode identifies why a candidate failed validation.
type SchemaErrorCode string

const (
	ErrEmptyTarget   SchemaErrorCode = "empty_target"
	ErrTargetTooLong SchemaErrorCode = "target_too_long"
	ErrUnknownAction SchemaErrorCode = "unknown_action"
	ErrBadParameter  SchemaErrorCode = "bad_parameter"
)

// SchemaError reports a malformed candidate. It is always recoverable by
// the caller re-forming the request, never fatal to the process.
type SchemaError struct {
	Code   SchemaErrorCode
	Detail string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %s: %s", e.Code, e.Detail)
}

// Candidate is the untrusted wire shape produced by the translation layer.
type Candidate struct {
	Action     string         `json:"action"`
	Target     string         `json:"target"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Reason     string         `json:"reason,omitempty"`
}

// Envelope wraps a candidate as delivered by the LLM collaborator. When
// CannotProcess is set or Error is non-empty, the pipeline reports the
// upstream error without validating the command.
type Envelope struct {
	Command       *Candidate `json:"command"`
	Error         string     `json:"error,omitempty"`
	CannotProcess bool       `json:"cannot_process,omitempty"`
}

// Intent is a validated, sanitized command. Immutable once constructed;
// the policy engine and executor consume it read-only.
type Intent struct {
	Action     Action            `json:"action"`
	Target     string            `json:"target"`
	Parameters map[string]string `json:"parameters,omitempty"`
	Reason     string            `json:"reason,omitempty"`
}

// knownSignals are the only values accepted for parameters["signal"].
var knownSignals = map[string]bool{
	"TERM": true, "KILL": true, "HUP": true, "INT": true,
	"QUIT": true, "USR1": true, "USR2": true,
}

// forbiddenRunes are shell metacharacters stripped from targets before any
// further processing. Stripped, not flagged: a sanitized target carries no
// raw metacharacter by construction. The pipe survives because ShellQuery
// segmentation depends on it; the policy engine rejects it everywhere else
// via the dangerous-pattern scan.
const forbiddenRunes = ";&`$(){}[]<>!\\\"'"

// Sanitize strips forbidden shell metacharacters and trims whitespace.
// Total and idempotent: sanitizing twice equals sanitizing once.
func Sanitize(target string) string {
	var b strings.Builder
	b.Grow(len(target))
	for _, r := range target {
		if strings.ContainsRune(forbiddenRunes, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// Validate checks an untrusted candidate and constructs an Intent.
// Pure and side-effect free; validating an already-validated Intent's
// fields again yields the same Intent.
func Validate(c Candidate) (*Intent, error) {
	action, err := ParseAction(c.Action)
	if err != nil {
		return nil, err
	}

	target := Sanitize(c.Target)
	if target == "" {
		return nil, &SchemaError{
			Code:   ErrEmptyTarget,
			Detail: "target is empty after sanitization",
		}
	}
	if n := utf8.RuneCountInString(target); n > maxTargetLen {
		return nil, &SchemaError{
			Code:   ErrTargetTooLong,
			Detail: fmt.Sprintf("target is %d characters, max %d", n, maxTargetLen),
		}
	}

	params, err := normalizeParameters(action, c.Parameters)
	if err != nil {
		return nil, err
	}

	return &Intent{
		Action:     action,
		Target:     target,
		Parameters: params,
		Reason:     strings.TrimSpace(c.Reason),
	}, nil
}

// normalizeParameters coerces scalar parameter values to strings and
// rejects values the executor would pass to a subprocess verbatim.
func normalizeParameters(action Action, raw map[string]any) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	params := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			params[k] = strings.TrimSpace(val)
		case float64:
			params[k] = fmt.Sprintf("%v", val)
		case int:
			params[k] = fmt.Sprintf("%d", val)
		case bool:
			params[k] = fmt.Sprintf("%t", val)
		case nil:
			continue
		default:
			return nil, &SchemaError{
				Code:   ErrBadParameter,
				Detail: fmt.Sprintf("parameter %q has non-scalar value", k),
			}
		}
	}

	if action == KillProcess {
		if sig, ok := params["signal"]; ok {
			normalized := strings.TrimPrefix(strings.ToUpper(sig), "SIG")
			if !knownSignals[normalized] {
				return nil, &SchemaError{
					Code:   ErrBadParameter,
					Detail: fmt.Sprintf("unsupported signal %q", sig),
				}
			}
			params["signal"] = normalized
		}
	}

	return params, nil
}

// Param returns the named parameter or fallback when absent.
func (in *Intent) Param(key, fallback string) string {
	if v, ok := in.Parameters[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Wire converts the Intent back to its wire shape. Round-trip property:
// a Candidate validated into an Intent and re-serialized preserves the
// action and sanitized target.
func (in *Intent) Wire() Candidate {
	var params map[string]any
	if len(in.Parameters) > 0 {
		params = make(map[string]any, len(in.Parameters))
		for k, v := range in.Parameters {
			params[k] = v
		}
	}
	return Candidate{
		Action:     string(in.Action),
		Target:     in.Target,
		Parameters: params,
		Reason:     in.Reason,
	}
}
