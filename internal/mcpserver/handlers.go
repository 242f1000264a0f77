package mcpserver

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nkoval/sysward/internal/intent"
)

// RunInput defines parameters for the sysward_run tool.
type RunInput struct {
	Action     string            `json:"action" jsonschema:"action type (start_app/kill_process/list_processes/restart_service/shell_query)"`
	Target     string            `json:"target" jsonschema:"action target (app name, process name, service name, or shell command)"`
	Parameters map[string]string `json:"parameters,omitempty" jsonschema:"optional parameters (e.g. signal for kill_process)"`
}

// RunOutput contains the execution result or denial details.
type RunOutput struct {
	Success bool   `json:"success"`
	Stage   string `json:"stage"`
	Output  string `json:"output,omitempty"`
	Denied  bool   `json:"denied,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// CheckInput defines parameters for the sysward_check tool.
type CheckInput struct {
	Action string `json:"action" jsonschema:"action type (start_app/kill_process/list_processes/restart_service/shell_query)"`
	Target string `json:"target" jsonschema:"action target"`
}

// CheckOutput contains the policy decision.
type CheckOutput struct {
	Allowed bool   `json:"allowed"`
	Rule    string `json:"rule,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// RulesInput is empty; the tool takes no parameters.
type RulesInput struct{}

// RulesOutput lists the enforced rule tables.
type RulesOutput struct {
	BlockedBinaries      []string `json:"blocked_binaries"`
	AllowedShellCommands []string `json:"allowed_shell_commands"`
}

func (s *Server) handleRun(ctx context.Context, req *mcpsdk.CallToolRequest, input RunInput) (*mcpsdk.CallToolResult, RunOutput, error) {
	params := make(map[string]any, len(input.Parameters))
	for k, v := range input.Parameters {
		params[k] = v
	}
	res := s.pipe.RunCandidate(ctx, "mcp:"+input.Action, intent.Candidate{
		Action:     input.Action,
		Target:     input.Target,
		Parameters: params,
	})

	out := RunOutput{
		Success: res.Success,
		Stage:   res.Stage,
	}
	if res.Denied() {
		out.Denied = true
		out.Rule = res.Verdict.MatchedRule
		out.Reason = res.Verdict.Reason
		return errorResult(res.Message), out, nil
	}
	if !res.Success {
		out.Reason = res.Message
		return errorResult(res.Message), out, nil
	}
	out.Output = res.Message
	return nil, out, nil
}

func (s *Server) handleCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckInput) (*mcpsdk.CallToolResult, CheckOutput, error) {
	res := s.pipe.Check(ctx, intent.Candidate{Action: input.Action, Target: input.Target})

	out := CheckOutput{Allowed: res.Success}
	if !res.Success {
		out.Reason = res.Message
		if res.Verdict != nil {
			out.Rule = res.Verdict.MatchedRule
			out.Reason = res.Verdict.Reason
		}
	}
	return nil, out, nil
}

func (s *Server) handleRules(ctx context.Context, req *mcpsdk.CallToolRequest, input RulesInput) (*mcpsdk.CallToolResult, RulesOutput, error) {
	return nil, RulesOutput{
		BlockedBinaries:      s.engine.BlockedBinaries(),
		AllowedShellCommands: s.engine.AllowedShellCommands(),
	}, nil
}

func errorResult(msg string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: msg}},
	}
}
