package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nkoval/sysward/internal/audit"
	"github.com/nkoval/sysward/internal/executor"
	"github.com/nkoval/sysward/internal/history"
	"github.com/nkoval/sysward/internal/intent"
	"github.com/nkoval/sysward/internal/policy"
)

func newDryRunPipeline(t *testing.T, opts Options) *Pipeline {
	t.Helper()
	exec := executor.New(executor.Context{DryRun: true, Timeout: time.Second, MaxOutputLines: 10})
	return New(policy.Default(), exec, opts)
}

func candidate(action, target string) intent.Candidate {
	return intent.Candidate{Action: action, Target: target}
}

func TestRunAllowedCommandReachesExecution(t *testing.T) {
	p := newDryRunPipeline(t, Options{})

	env := &intent.Envelope{Command: &intent.Candidate{
		Action: "shell_query",
		Target: "df -h",
		Reason: "disk usage",
	}}
	res := p.Run(context.Background(), "show disk usage", env)

	if !res.Success {
		t.Fatalf("expected success, got stage %s: %s", res.Stage, res.Message)
	}
	if res.Stage != StageExecution {
		t.Fatalf("expected execution stage, got %s", res.Stage)
	}
	if !strings.Contains(res.Message, "[DRY RUN]") {
		t.Fatalf("expected dry-run message, got %q", res.Message)
	}
	if res.RequestID == "" {
		t.Fatal("expected a request id")
	}
}

func TestRunUpstreamRefusalShortCircuits(t *testing.T) {
	p := newDryRunPipeline(t, Options{})

	env := &intent.Envelope{Error: "Cannot execute destructive operations", CannotProcess: true}
	res := p.Run(context.Background(), "delete all files", env)

	if res.Success {
		t.Fatal("expected failure for upstream refusal")
	}
	if res.Stage != StageUpstream {
		t.Fatalf("expected upstream stage, got %s", res.Stage)
	}
	if res.Message != "Cannot execute destructive operations" {
		t.Fatalf("expected upstream error message, got %q", res.Message)
	}
	if res.Intent != nil {
		t.Fatal("expected no intent for refused request")
	}
}

func TestRunNilEnvelopeIsUpstreamFailure(t *testing.T) {
	p := newDryRunPipeline(t, Options{})

	res := p.Run(context.Background(), "anything", nil)
	if res.Stage != StageUpstream || res.Success {
		t.Fatalf("expected upstream failure, got %+v", res)
	}
}

func TestRunSchemaRejectionShortCircuits(t *testing.T) {
	p := newDryRunPipeline(t, Options{})

	env := &intent.Envelope{Command: &intent.Candidate{Action: "format_disk", Target: "/dev/sda"}}
	res := p.Run(context.Background(), "format the disk", env)

	if res.Success {
		t.Fatal("expected failure for unknown action")
	}
	if res.Stage != StageSchema {
		t.Fatalf("expected schema stage, got %s", res.Stage)
	}
	if !strings.Contains(res.Message, "invalid command") {
		t.Fatalf("expected invalid command message, got %q", res.Message)
	}
}

func TestRunPolicyDenialShortCircuits(t *testing.T) {
	p := newDryRunPipeline(t, Options{})

	env := &intent.Envelope{Command: &intent.Candidate{Action: "start_app", Target: "rm"}}
	res := p.Run(context.Background(), "run rm", env)

	if res.Success {
		t.Fatal("expected denial")
	}
	if !res.Denied() {
		t.Fatalf("expected policy stage, got %s", res.Stage)
	}
	if res.Verdict == nil || res.Verdict.MatchedRule != "blocked_application" {
		t.Fatalf("expected blocked_application rule, got %+v", res.Verdict)
	}
	if res.Outcome != nil {
		t.Fatal("denied command must not produce an outcome")
	}
}

func TestCheckDoesNotExecute(t *testing.T) {
	// Live executor: Check must never reach it.
	exec := executor.New(executor.Context{Timeout: time.Second, MaxOutputLines: 10})
	p := New(policy.Default(), exec, Options{})

	res := p.Check(context.Background(), candidate("shell_query", "df -h"))
	if !res.Success {
		t.Fatalf("expected allow, got %s: %s", res.Stage, res.Message)
	}
	if res.Outcome != nil {
		t.Fatal("check must not execute")
	}

	res = p.Check(context.Background(), candidate("kill_process", "sshd"))
	if res.Success {
		t.Fatal("expected denial for protected process")
	}
	if res.Verdict == nil || res.Verdict.MatchedRule != "protected_process" {
		t.Fatalf("expected protected_process rule, got %+v", res.Verdict)
	}
}

func TestRunCandidateBypassesTranslation(t *testing.T) {
	p := newDryRunPipeline(t, Options{})

	res := p.RunCandidate(context.Background(), "list processes", candidate("list_processes", "all"))
	if !res.Success || res.Stage != StageExecution {
		t.Fatalf("expected execution success, got %+v", res)
	}
}

func TestRunRecordsAuditChain(t *testing.T) {
	auditPath := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := audit.Open(auditPath)
	if err != nil {
		t.Fatal(err)
	}
	p := newDryRunPipeline(t, Options{Audit: log})

	p.RunCandidate(context.Background(), "disk usage", candidate("shell_query", "df -h"))
	p.RunCandidate(context.Background(), "run rm", candidate("start_app", "rm"))
	log.Close()

	result := audit.Verify(auditPath)
	if !result.Valid {
		t.Fatalf("expected valid audit chain, got error at line %d: %s", result.ErrorLine, result.Error)
	}
	// allow + executed for the first run, deny for the second
	if result.Lines != 3 {
		t.Fatalf("expected 3 audit lines, got %d", result.Lines)
	}
}

func TestRunRecordsHistory(t *testing.T) {
	hist, err := history.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer hist.Close()
	p := newDryRunPipeline(t, Options{History: hist})

	p.RunCandidate(context.Background(), "disk usage", candidate("shell_query", "df -h"))
	p.RunCandidate(context.Background(), "kill sshd", candidate("kill_process", "sshd"))

	recs, err := hist.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 history records, got %d", len(recs))
	}

	var sawAllow, sawDeny bool
	for _, r := range recs {
		switch r.Stage {
		case StageExecution:
			sawAllow = true
			if !r.Allowed {
				t.Fatal("executed run must be recorded as allowed")
			}
		case StagePolicy:
			sawDeny = true
			if r.Rule != "protected_process" {
				t.Fatalf("expected protected_process rule, got %q", r.Rule)
			}
		}
	}
	if !sawAllow || !sawDeny {
		t.Fatalf("expected one executed and one denied record, got %+v", recs)
	}
}

func TestRunRequestIDsAreUnique(t *testing.T) {
	p := newDryRunPipeline(t, Options{})

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		res := p.RunCandidate(context.Background(), "disk usage", candidate("shell_query", "df -h"))
		if seen[res.RequestID] {
			t.Fatalf("duplicate request id %s", res.RequestID)
		}
		seen[res.RequestID] = true
	}
}
