package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/nkoval/sysward/internal/intent"
)

// unitNotFoundExit is systemctl's exit status when the unit does not exist.
const unitNotFoundExit = 4

// normalizeUnit carries the .service suffix onto bare service names.
func normalizeUnit(name string) string {
	name = strings.TrimSpace(name)
	if !strings.HasSuffix(name, ".service") {
		name += ".service"
	}
	return name
}

// classifyRestartFailure distinguishes a privilege problem from a generic
// restart failure based on systemctl's stderr.
func classifyRestartFailure(stderr string) string {
	trimmed := strings.TrimSpace(stderr)
	if strings.Contains(trimmed, "Access denied") ||
		strings.Contains(strings.ToLower(trimmed), "authentication required") ||
		strings.Contains(strings.ToLower(trimmed), "permission denied") {
		return "permission denied: service management requires root privileges"
	}
	if trimmed == "" {
		return "failed to restart service"
	}
	return trimmed
}

// restartService checks the unit exists, then restarts it. A missing unit
// is reported as not-found, distinct from a restart failure.
func (e *Executor) restartService(ctx context.Context, in *intent.Intent) Outcome {
	unit := normalizeUnit(in.Target)

	status, err := runCommand(ctx, lookupTimeout, "systemctl", "status", unit)
	if err != nil {
		return failure(in, fmt.Sprintf("failed to query service status: %v", err))
	}
	if status.timedOut {
		return timeoutFailure(in, lookupTimeout)
	}
	if status.exitCode == unitNotFoundExit {
		return failure(in, fmt.Sprintf("service %q not found", unit))
	}

	restart, err := runCommand(ctx, restartTimeout, "systemctl", "restart", unit)
	if err != nil {
		return failure(in, fmt.Sprintf("failed to restart service: %v", err))
	}
	if restart.timedOut {
		return timeoutFailure(in, restartTimeout)
	}
	if restart.exitCode != 0 {
		out := failure(in, classifyRestartFailure(restart.stderr))
		out.ExitCode = intPtr(restart.exitCode)
		return out
	}

	return Outcome{
		Success:  true,
		Action:   in.Action,
		Target:   in.Target,
		Output:   fmt.Sprintf("Successfully restarted %q", unit),
		ExitCode: intPtr(0),
	}
}
