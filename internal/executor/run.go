package executor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// waitDelay bounds pipe reads after the process group is killed, so a
// grandchild holding stdout open cannot stall the wait forever.
const waitDelay = 3 * time.Second

// runResult captures one synchronous subprocess invocation.
type runResult struct {
	stdout   string
	stderr   string
	exitCode int
	timedOut bool
}

// runCommand executes name with args, waits up to timeout, and reaps the
// child. On timeout the whole process group is killed, never abandoned:
// the command runs in its own session and the context cancel delivers
// SIGKILL to the group.
func runCommand(ctx context.Context, timeout time.Duration, name string, args ...string) (runResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := runResult{
		stdout: stdout.String(),
		stderr: stderr.String(),
	}

	if runCtx.Err() == context.DeadlineExceeded {
		res.timedOut = true
		return res, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.exitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}

	return res, nil
}

// runShell executes a command line through the shell. Pipes in the line
// are meaningful; the policy engine constrained every pipeline segment
// before the line got here.
func runShell(ctx context.Context, timeout time.Duration, line string) (runResult, error) {
	return runCommand(ctx, timeout, "sh", "-c", line)
}

// setProcessGroup gives the child its own session and arranges for the
// entire group to be killed when the run context is cancelled. Session
// isolation (Setsid rather than Setpgid) also stops orphaned grandchildren
// from holding the output pipes open past the timeout.
func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true

	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return os.ErrProcessDone
		}
		pid := cmd.Process.Pid
		// kill(-1) would hit every process the user owns; never risk it.
		if pid <= 1 {
			return os.ErrProcessDone
		}
		if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
			if errors.Is(err, syscall.ESRCH) {
				return os.ErrProcessDone
			}
			return err
		}
		return nil
	}
	cmd.WaitDelay = waitDelay
}
