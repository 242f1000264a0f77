package intent

import (
	"fmt"
	"strings"
)

// Action is the closed set of operations the pipeline can authorize.
type Action string

const (
	StartApp       Action = "start_app"
	KillProcess    Action = "kill_process"
	ListProcesses  Action = "list_processes"
	RestartService Action = "restart_service"
	ShellQuery     Action = "shell_query"
)

// Actions lists every known action in declaration order.
var Actions = []Action{StartApp, KillProcess, ListProcesses, RestartService, ShellQuery}

// ParseAction matches a raw action string case-insensitively against the
// known actions. Unknown strings return ErrUnknownAction.
func ParseAction(raw string) (Action, error) {
	normalized := Action(strings.ToLower(strings.TrimSpace(raw)))
	for _, a := range Actions {
		if normalized == a {
			return a, nil
		}
	}
	return "", &SchemaError{
		Code:   ErrUnknownAction,
		Detail: fmt.Sprintf("unknown action %q, must be one of %v", raw, Actions),
	}
}

// Valid reports whether the action is one of the known five.
func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

func (a Action) String() string { return string(a) }
