// Package policy implements the security policy engine: a pure decision
// function over validated intents. Evaluation performs no I/O and holds
// no mutable state; rule tables are compiled once at construction and
// safely shared across concurrent evaluations.
package policy

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/nkoval/sysward/internal/intent"
)

// Verdict is the outcome of one policy evaluation. Produced fresh per
// intent, never cached.
type Verdict struct {
	Allowed     bool   `json:"allowed"`
	Reason      string `json:"reason,omitempty"`
	MatchedRule string `json:"matched_rule,omitempty"`
}

func allow() Verdict { return Verdict{Allowed: true} }

func deny(rule, reason string) Verdict {
	return Verdict{Allowed: false, Reason: reason, MatchedRule: rule}
}

// compiledPattern pairs a compiled dangerous-pattern regex with its reason.
type compiledPattern struct {
	re     *regexp.Regexp
	reason string
}

// Engine evaluates intents against immutable rule tables.
type Engine struct {
	blockedBinaries    map[string]bool
	protectedProcesses map[string]bool
	protectedServices  map[string]bool
	allowedShell       map[string]string // base command → required second token ("" = any)
	patterns           []compiledPattern

	// segmentChaining replaces the generic chaining pattern inside
	// shell_query segments, where the bare pipe is the segment separator.
	segmentChaining *regexp.Regexp
}

// Tables holds the raw rule tables an Engine is built from.
type Tables struct {
	BlockedBinaries    []string
	ProtectedProcesses []string
	ProtectedServices  []string
	AllowedShell       []string
	DangerousPatterns  []Pattern
}

// DefaultTables returns the built-in rule tables.
func DefaultTables() Tables {
	return Tables{
		BlockedBinaries:    DefaultBlockedBinaries,
		ProtectedProcesses: DefaultProtectedProcesses,
		ProtectedServices:  DefaultProtectedServices,
		AllowedShell:       DefaultAllowedShellCommands,
		DangerousPatterns:  DefaultDangerousPatterns,
	}
}

// New compiles the given tables into an Engine. Pattern expressions that
// fail to compile are rejected rather than silently skipped: a policy
// engine with missing rules is worse than no engine.
func New(t Tables) (*Engine, error) {
	e := &Engine{
		blockedBinaries:    toLowerSet(t.BlockedBinaries),
		protectedProcesses: toLowerSet(t.ProtectedProcesses),
		protectedServices:  toLowerSet(t.ProtectedServices),
		allowedShell:       make(map[string]string, len(t.AllowedShell)),
		segmentChaining:    regexp.MustCompile(`[;&]`),
	}

	for _, entry := range t.AllowedShell {
		fields := strings.Fields(entry)
		switch len(fields) {
		case 1:
			e.allowedShell[fields[0]] = ""
		case 2:
			e.allowedShell[fields[0]] = fields[1]
		default:
			return nil, fmt.Errorf("policy: allowed shell entry %q has more than two tokens", entry)
		}
	}

	for _, p := range t.DangerousPatterns {
		re, err := regexp.Compile("(?i)" + p.Expr)
		if err != nil {
			return nil, fmt.Errorf("policy: compile pattern %q: %w", p.Expr, err)
		}
		e.patterns = append(e.patterns, compiledPattern{re: re, reason: p.Reason})
	}

	return e, nil
}

// Default returns an Engine built from the built-in tables.
func Default() *Engine {
	e, err := New(DefaultTables())
	if err != nil {
		// Built-in tables are constants; a compile failure here is a defect.
		panic(err)
	}
	return e
}

// Evaluate decides whether the intent may run. Deterministic, side-effect
// free, and total: every action kind has a branch, and an action that
// somehow bypassed schema validation is a deny, not a fault.
func (e *Engine) Evaluate(in *intent.Intent) Verdict {
	switch in.Action {
	case intent.StartApp:
		return e.evaluateStartApp(in.Target)
	case intent.KillProcess:
		return e.evaluateKillProcess(in.Target)
	case intent.ListProcesses:
		// No destructive capability.
		return allow()
	case intent.RestartService:
		return e.evaluateRestartService(in.Target)
	case intent.ShellQuery:
		return e.evaluateShellQuery(in.Target)
	default:
		return deny(RuleUnknownCommandType, fmt.Sprintf("unknown command type %q", in.Action))
	}
}

func (e *Engine) evaluateStartApp(target string) Verdict {
	lowered := strings.ToLower(strings.TrimSpace(target))

	if first := firstToken(lowered); first != "" && e.blockedBinaries[first] {
		return deny(RuleBlockedApplication, fmt.Sprintf("starting %q is not allowed", first))
	}

	if v, matched := e.scanPatterns(lowered); matched {
		return v
	}
	return allow()
}

func (e *Engine) evaluateKillProcess(target string) Verdict {
	lowered := strings.ToLower(strings.TrimSpace(target))

	if e.protectedProcesses[lowered] {
		return deny(RuleProtectedProcess,
			fmt.Sprintf("killing %q is not allowed - critical system process", lowered))
	}

	if v, matched := e.scanPatterns(lowered); matched {
		return v
	}
	return allow()
}

func (e *Engine) evaluateRestartService(target string) Verdict {
	lowered := strings.ToLower(strings.TrimSpace(target))
	name := strings.TrimSuffix(lowered, ".service")

	if e.protectedServices[name] {
		return deny(RuleProtectedService,
			fmt.Sprintf("restarting %q is not allowed - protected service", name))
	}

	if v, matched := e.scanPatterns(lowered); matched {
		return v
	}
	return allow()
}

// evaluateShellQuery splits the query on pipes and checks every segment:
// the base command must be allowlisted and no dangerous pattern may match.
// The generic chaining pattern is replaced with a [;&]-only scan per
// segment; the bare pipe is the expected separator here. Note the order
// consequence: a query containing && never reaches segment analysis with
// both halves joined; the & dies on the segment scan regardless.
func (e *Engine) evaluateShellQuery(target string) Verdict {
	segments := strings.Split(strings.TrimSpace(target), "|")

	for _, segment := range segments {
		fields := strings.Fields(segment)
		if len(fields) == 0 {
			continue
		}

		base := fields[0]
		required, ok := e.allowedShell[base]
		if !ok {
			return deny(RuleDisallowedShell,
				fmt.Sprintf("shell command %q is not in the allowed list", base))
		}
		if required != "" && (len(fields) < 2 || fields[1] != required) {
			return deny(RuleDisallowedShell,
				fmt.Sprintf("shell command %q is only allowed as %q", base, base+" "+required))
		}

		for _, p := range e.patterns {
			if p.re.String() == "(?i)[;&|]" {
				if e.segmentChaining.MatchString(segment) {
					return deny(RuleDangerousPattern, "Command chaining with ; or & is not allowed")
				}
				continue
			}
			if p.re.MatchString(segment) {
				return deny(RuleDangerousPattern, p.reason)
			}
		}
	}

	return allow()
}

// scanPatterns runs the ordered dangerous-pattern list; first match wins.
func (e *Engine) scanPatterns(target string) (Verdict, bool) {
	for _, p := range e.patterns {
		if p.re.MatchString(target) {
			return deny(RuleDangerousPattern, p.reason), true
		}
	}
	return Verdict{}, false
}

// BlockedBinaries returns the blocked-binaries set, sorted for stable output.
func (e *Engine) BlockedBinaries() []string {
	return sortedKeys(e.blockedBinaries)
}

// AllowedShellCommands returns the allowed shell command entries, sorted.
func (e *Engine) AllowedShellCommands() []string {
	out := make([]string, 0, len(e.allowedShell))
	for base, second := range e.allowedShell {
		if second != "" {
			out = append(out, base+" "+second)
		} else {
			out = append(out, base)
		}
	}
	sort.Strings(out)
	return out
}

// IsBinaryBlocked reports whether a single token is in the blocked set.
func (e *Engine) IsBinaryBlocked(name string) bool {
	return e.blockedBinaries[strings.ToLower(strings.TrimSpace(name))]
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func toLowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(item)] = true
	}
	return set
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
