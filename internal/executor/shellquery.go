package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/nkoval/sysward/internal/intent"
)

// shellQuery executes the target line as a single shell invocation with
// the configured wall-clock bound. Success is zero exit status; stderr is
// surfaced only on failure.
func (e *Executor) shellQuery(ctx context.Context, in *intent.Intent) Outcome {
	line := strings.TrimSpace(in.Target)

	res, err := runShell(ctx, e.ctx.Timeout, line)
	if err != nil {
		return failure(in, fmt.Sprintf("failed to run query: %v", err))
	}
	if res.timedOut {
		return timeoutFailure(in, e.ctx.Timeout)
	}

	output := truncateLines(res.stdout, e.ctx.MaxOutputLines)
	if output == "" {
		output = "(no output)"
	}

	out := Outcome{
		Success:  res.exitCode == 0,
		Action:   in.Action,
		Target:   in.Target,
		Output:   output,
		ExitCode: intPtr(res.exitCode),
	}
	if res.exitCode != 0 {
		out.Error = strings.TrimSpace(res.stderr)
	}
	return out
}
