// Package executor carries out policy-approved intents. It performs no
// authorization of its own (the caller guarantees the intent already
// passed the policy engine), only mechanism: one side-effecting operation
// per action kind, with bounded wall-clock time and bounded output.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nkoval/sysward/internal/intent"
)

// Context is the execution configuration, constructed once at pipeline
// start and shared read-only across invocations.
type Context struct {
	DryRun         bool
	Timeout        time.Duration // shell-query wall clock bound
	MaxOutputLines int
}

// DefaultContext matches the process defaults: real execution, 60 second
// shell-query timeout, 100 captured output lines.
func DefaultContext() Context {
	return Context{Timeout: 60 * time.Second, MaxOutputLines: 100}
}

// Outcome is the result of one executor invocation: a completed or failed
// attempt, never partial state.
type Outcome struct {
	Success  bool          `json:"success"`
	Action   intent.Action `json:"action"`
	Target   string        `json:"target"`
	Output   string        `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
	ExitCode *int          `json:"exit_code,omitempty"`
}

// Operation-specific timeouts for the synchronous action kinds. The
// shell-query path uses Context.Timeout instead.
const (
	lookupTimeout  = 10 * time.Second
	listTimeout    = 30 * time.Second
	restartTimeout = 60 * time.Second
)

// Executor runs approved intents.
type Executor struct {
	ctx Context
}

// New creates an Executor with the given execution context.
func New(ctx Context) *Executor {
	if ctx.Timeout <= 0 {
		ctx.Timeout = 60 * time.Second
	}
	if ctx.MaxOutputLines <= 0 {
		ctx.MaxOutputLines = 100
	}
	return &Executor{ctx: ctx}
}

// Execute performs the intent's operation and reports the outcome.
// In dry-run mode no process is spawned and no signal is sent.
func (e *Executor) Execute(ctx context.Context, in *intent.Intent) Outcome {
	if e.ctx.DryRun {
		return Outcome{
			Success: true,
			Action:  in.Action,
			Target:  in.Target,
			Output:  fmt.Sprintf("[DRY RUN] Would execute: %s on %s", in.Action, in.Target),
		}
	}

	switch in.Action {
	case intent.StartApp:
		return e.startApp(ctx, in)
	case intent.KillProcess:
		return e.killProcess(ctx, in)
	case intent.ListProcesses:
		return e.listProcesses(ctx, in)
	case intent.RestartService:
		return e.restartService(ctx, in)
	case intent.ShellQuery:
		return e.shellQuery(ctx, in)
	default:
		return failure(in, fmt.Sprintf("unknown action type %q", in.Action))
	}
}

func failure(in *intent.Intent, msg string) Outcome {
	return Outcome{Success: false, Action: in.Action, Target: in.Target, Error: msg}
}

func timeoutFailure(in *intent.Intent, d time.Duration) Outcome {
	return failure(in, fmt.Sprintf("operation timed out after %s", d))
}

// truncateLines caps output at max lines, appending a truncation marker
// when lines were cut.
func truncateLines(output string, max int) string {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return trimmed
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) <= max {
		return trimmed
	}
	lines = lines[:max]
	lines = append(lines, fmt.Sprintf("... (truncated, showing first %d lines)", max))
	return strings.Join(lines, "\n")
}

func intPtr(v int) *int { return &v }
