// Package sysward provides in-process policy gating for Go agent frameworks.
// It wraps tool functions, validates requested commands against the closed
// action vocabulary, evaluates deterministic policy rules, and refuses to
// call the wrapped tool when policy denies.
//
// Usage:
//
//	sw, err := sysward.New()
//	wrapped := sw.Wrap(myTool)
//	out, err := wrapped(ctx, sysward.Command{
//	    Action: "shell_query",
//	    Target: "df -h",
//	})
//
// The SDK links directly against internal packages for zero-subprocess
// overhead. External users import github.com/nkoval/sysward/sdk/go/sysward.
package sysward
