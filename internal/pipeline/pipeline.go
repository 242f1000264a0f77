package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nkoval/sysward/internal/audit"
	"github.com/nkoval/sysward/internal/executor"
	"github.com/nkoval/sysward/internal/history"
	"github.com/nkoval/sysward/internal/intent"
	"github.com/nkoval/sysward/internal/policy"
)

// Stage names, in pipeline order.
const (
	StageUpstream  = "upstream"
	StageSchema    = "schema"
	StagePolicy    = "policy"
	StageExecution = "execution"
)

// Result is the uniform outcome of a pipeline run. Stage names the stage
// that produced the final decision.
type Result struct {
	RequestID string            `json:"request_id"`
	Success   bool              `json:"success"`
	Stage     string            `json:"stage"`
	Message   string            `json:"message"`
	Intent    *intent.Intent    `json:"intent,omitempty"`
	Verdict   *policy.Verdict   `json:"verdict,omitempty"`
	Outcome   *executor.Outcome `json:"outcome,omitempty"`
}

// Denied reports whether the run stopped at the policy gate.
func (r Result) Denied() bool {
	return r.Stage == StagePolicy && !r.Success
}

// Pipeline runs envelopes through schema validation, policy evaluation and
// execution, short-circuiting at the first failing stage. Audit log and
// history store are optional; a nil logger disables logging.
type Pipeline struct {
	engine *policy.Engine
	exec   *executor.Executor
	audit  *audit.Log
	hist   *history.Store
	log    *slog.Logger
}

// Options carries the optional collaborators.
type Options struct {
	Audit   *audit.Log
	History *history.Store
	Logger  *slog.Logger
}

// New assembles a pipeline around a policy engine and an executor.
func New(engine *policy.Engine, exec *executor.Executor, opts Options) *Pipeline {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		engine: engine,
		exec:   exec,
		audit:  opts.Audit,
		hist:   opts.History,
		log:    log,
	}
}

// Run processes one envelope, as delivered by the translation layer.
// The request string is the original natural language input, recorded for
// audit and history.
func (p *Pipeline) Run(ctx context.Context, request string, env *intent.Envelope) Result {
	id := uuid.NewString()

	if env == nil || env.CannotProcess || env.Error != "" || env.Command == nil {
		msg := "the request could not be translated into a command"
		if env != nil && env.Error != "" {
			msg = env.Error
		}
		p.log.Warn("upstream refusal", "request_id", id, "error", msg)
		p.record(ctx, Result{RequestID: id, Stage: StageUpstream, Message: msg}, request, audit.Entry{
			RequestID: id,
			Stage:     audit.StageUpstream,
			Decision:  "refused",
			Reason:    msg,
		})
		return Result{RequestID: id, Stage: StageUpstream, Message: msg}
	}

	return p.process(ctx, id, request, *env.Command)
}

// RunCandidate processes an explicit candidate, bypassing translation.
func (p *Pipeline) RunCandidate(ctx context.Context, request string, c intent.Candidate) Result {
	return p.process(ctx, uuid.NewString(), request, c)
}

// Check validates and evaluates a candidate without executing it. The
// result's Stage is policy on success.
func (p *Pipeline) Check(ctx context.Context, c intent.Candidate) Result {
	id := uuid.NewString()

	in, err := intent.Validate(c)
	if err != nil {
		return Result{RequestID: id, Stage: StageSchema, Message: fmt.Sprintf("invalid command: %v", err)}
	}
	verdict := p.engine.Evaluate(in)
	if !verdict.Allowed {
		return Result{RequestID: id, Stage: StagePolicy, Message: verdict.Reason, Intent: in, Verdict: &verdict}
	}
	return Result{
		RequestID: id,
		Success:   true,
		Stage:     StagePolicy,
		Message:   fmt.Sprintf("%s on %q would be allowed", in.Action, in.Target),
		Intent:    in,
		Verdict:   &verdict,
	}
}

func (p *Pipeline) process(ctx context.Context, id, request string, c intent.Candidate) Result {
	in, err := intent.Validate(c)
	if err != nil {
		msg := fmt.Sprintf("invalid command: %v", err)
		p.log.Warn("schema rejection", "request_id", id, "action", c.Action, "error", err)
		res := Result{RequestID: id, Stage: StageSchema, Message: msg}
		p.record(ctx, res, request, audit.Entry{
			RequestID: id,
			Stage:     audit.StageSchema,
			Action:    c.Action,
			Target:    c.Target,
			Decision:  "rejected",
			Reason:    err.Error(),
		})
		return res
	}

	verdict := p.engine.Evaluate(in)
	if !verdict.Allowed {
		p.log.Warn("policy denial",
			"request_id", id, "action", in.Action, "target", in.Target, "rule", verdict.MatchedRule)
		res := Result{RequestID: id, Stage: StagePolicy, Message: verdict.Reason, Intent: in, Verdict: &verdict}
		p.record(ctx, res, request, audit.Entry{
			RequestID: id,
			Stage:     audit.StagePolicy,
			Action:    string(in.Action),
			Target:    in.Target,
			Decision:  "deny",
			Rule:      verdict.MatchedRule,
			Reason:    verdict.Reason,
		})
		return res
	}
	p.auditOnly(audit.Entry{
		RequestID: id,
		Stage:     audit.StagePolicy,
		Action:    string(in.Action),
		Target:    in.Target,
		Decision:  "allow",
	})

	outcome := p.exec.Execute(ctx, in)
	msg := outcome.Output
	if !outcome.Success {
		msg = outcome.Error
	}
	p.log.Info("execution finished",
		"request_id", id, "action", in.Action, "target", in.Target, "success", outcome.Success)
	res := Result{
		RequestID: id,
		Success:   outcome.Success,
		Stage:     StageExecution,
		Message:   msg,
		Intent:    in,
		Verdict:   &verdict,
		Outcome:   &outcome,
	}
	entry := audit.Entry{
		RequestID: id,
		Stage:     audit.StageExecution,
		Action:    string(in.Action),
		Target:    in.Target,
		Decision:  "executed",
		Reason:    outcome.Error,
	}
	if outcome.ExitCode != nil {
		entry.ExitCode = *outcome.ExitCode
	}
	if !outcome.Success {
		entry.Decision = "failed"
	}
	p.record(ctx, res, request, entry)
	return res
}

// record writes the audit entry and the history row for a finished run.
// Failures are logged, never fatal: recording must not mask the result.
func (p *Pipeline) record(ctx context.Context, res Result, request string, entry audit.Entry) {
	p.auditOnly(entry)
	if p.hist == nil {
		return
	}
	rec := history.Record{
		ID:      res.RequestID,
		Request: request,
		Stage:   res.Stage,
		Allowed: res.Stage == StageExecution,
		Success: res.Success,
		Detail:  res.Message,
	}
	if res.Intent != nil {
		rec.Action = string(res.Intent.Action)
		rec.Target = res.Intent.Target
	}
	if res.Verdict != nil {
		rec.Rule = res.Verdict.MatchedRule
	}
	if err := p.hist.Add(ctx, rec); err != nil {
		p.log.Error("history write failed", "request_id", res.RequestID, "error", err)
	}
}

func (p *Pipeline) auditOnly(entry audit.Entry) {
	if p.audit == nil {
		return
	}
	if err := p.audit.Record(entry); err != nil {
		p.log.Error("audit write failed", "request_id", entry.RequestID, "error", err)
	}
}
