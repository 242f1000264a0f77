package sysward

import (
	"context"
	"fmt"

	"github.com/nkoval/sysward/internal/intent"
	"github.com/nkoval/sysward/internal/policy"
)

// Client holds the policy evaluation pipeline for in-process enforcement.
// Safe for concurrent use; the engine is read-only after construction.
type Client struct {
	engine *policy.Engine
}

// New creates a Client with the given options. Without WithRules the
// built-in rule tables are used.
func New(opts ...Option) (*Client, error) {
	var cfg clientConfig
	for _, o := range opts {
		o(&cfg)
	}

	engine, err := policy.Load(cfg.rulesPath)
	if err != nil {
		return nil, fmt.Errorf("sysward: failed to load rules: %w", err)
	}
	return &Client{engine: engine}, nil
}

// Check validates a command and evaluates policy without executing anything.
// Schema violations (unknown action, empty target) come back as an error.
func (c *Client) Check(cmd Command) (Result, error) {
	in, err := intent.Validate(toCandidate(cmd))
	if err != nil {
		return Result{}, err
	}
	v := c.engine.Evaluate(in)
	return Result{Allowed: v.Allowed, Rule: v.MatchedRule, Reason: v.Reason}, nil
}

// ToolFunc is the function signature that Wrap guards. The wrapped function
// receives the sanitized command.
type ToolFunc func(ctx context.Context, cmd Command) (any, error)

// Wrap returns a new ToolFunc that validates and evaluates policy before
// calling fn. Denied or malformed commands return a *BlockedError without
// calling fn.
func (c *Client) Wrap(fn ToolFunc) ToolFunc {
	return func(ctx context.Context, cmd Command) (any, error) {
		in, err := intent.Validate(toCandidate(cmd))
		if err != nil {
			return nil, &BlockedError{Command: cmd, Reason: err.Error()}
		}

		v := c.engine.Evaluate(in)
		if !v.Allowed {
			return nil, &BlockedError{Command: cmd, Rule: v.MatchedRule, Reason: v.Reason}
		}

		sanitized := Command{
			Action:     string(in.Action),
			Target:     in.Target,
			Parameters: in.Parameters,
		}
		return fn(ctx, sanitized)
	}
}
