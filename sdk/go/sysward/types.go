package sysward

import (
	"fmt"

	"github.com/nkoval/sysward/internal/intent"
)

// Command describes what a tool intends to do.
type Command struct {
	Action     string            // one of: start_app, kill_process, list_processes, restart_service, shell_query
	Target     string            // app name, process name, service name, or shell command
	Parameters map[string]string // optional: signal for kill_process, filter for list_processes
}

// Result is a policy evaluation outcome.
type Result struct {
	Allowed bool
	Rule    string
	Reason  string
}

// BlockedError is returned when validation or policy stops a command.
type BlockedError struct {
	Command Command
	Rule    string
	Reason  string
}

func (e *BlockedError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("sysward blocked (%s): %s", e.Rule, e.Reason)
	}
	return fmt.Sprintf("sysward blocked: %s", e.Reason)
}

// toCandidate maps an SDK Command to an internal candidate.
func toCandidate(c Command) intent.Candidate {
	var params map[string]any
	if len(c.Parameters) > 0 {
		params = make(map[string]any, len(c.Parameters))
		for k, v := range c.Parameters {
			params[k] = v
		}
	}
	return intent.Candidate{
		Action:     c.Action,
		Target:     c.Target,
		Parameters: params,
	}
}
