package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/nkoval/sysward/internal/intent"
)

// killProcess resolves matching PIDs by name pattern first to report a
// count, then signals all matches. Default signal is TERM, overridable
// via parameters.signal (validated at schema level).
func (e *Executor) killProcess(ctx context.Context, in *intent.Intent) Outcome {
	pattern := strings.TrimSpace(in.Target)
	signal := in.Param("signal", "TERM")

	lookup, err := runCommand(ctx, lookupTimeout, "pgrep", "-f", pattern)
	if err != nil {
		return failure(in, fmt.Sprintf("process lookup failed: %v", err))
	}
	if lookup.timedOut {
		return timeoutFailure(in, lookupTimeout)
	}
	if lookup.exitCode != 0 {
		return failure(in, fmt.Sprintf("no process found matching %q", pattern))
	}

	count := 0
	for _, line := range strings.Split(strings.TrimSpace(lookup.stdout), "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}

	kill, err := runCommand(ctx, lookupTimeout, "pkill", "-"+signal, "-f", pattern)
	if err != nil {
		return failure(in, fmt.Sprintf("failed to signal process: %v", err))
	}
	if kill.timedOut {
		return timeoutFailure(in, lookupTimeout)
	}
	if kill.exitCode != 0 {
		out := failure(in, fmt.Sprintf("failed to kill process: %s", strings.TrimSpace(kill.stderr)))
		out.ExitCode = intPtr(kill.exitCode)
		return out
	}

	return Outcome{
		Success:  true,
		Action:   in.Action,
		Target:   in.Target,
		Output:   fmt.Sprintf("Killed %d process(es) matching %q with SIG%s", count, pattern, signal),
		ExitCode: intPtr(0),
	}
}

// listProcesses invokes ps aux, optionally sorted by CPU or memory
// consumption, and truncates the listing to the configured line cap.
func (e *Executor) listProcesses(ctx context.Context, in *intent.Intent) Outcome {
	args := []string{"aux"}
	switch in.Param("filter", "") {
	case "cpu":
		args = append(args, "--sort=-%cpu")
	case "memory":
		args = append(args, "--sort=-%mem")
	}

	res, err := runCommand(ctx, listTimeout, "ps", args...)
	if err != nil {
		return failure(in, fmt.Sprintf("failed to list processes: %v", err))
	}
	if res.timedOut {
		return timeoutFailure(in, listTimeout)
	}
	if res.exitCode != 0 {
		out := failure(in, strings.TrimSpace(res.stderr))
		out.ExitCode = intPtr(res.exitCode)
		return out
	}

	return Outcome{
		Success:  true,
		Action:   in.Action,
		Target:   in.Target,
		Output:   truncateLines(res.stdout, e.ctx.MaxOutputLines),
		ExitCode: intPtr(0),
	}
}
