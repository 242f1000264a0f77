package executor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/nkoval/sysward/internal/intent"
)

// fallbackBinDirs are searched after PATH when resolving an application.
var fallbackBinDirs = []string{"/usr/bin", "/usr/local/bin", "/snap/bin"}

// desktopEntryDirs hold .desktop application descriptors. Matches there
// launch through gtk-launch instead of executing the file directly.
var desktopEntryDirs = []string{"/usr/share/applications"}

// desktopLauncher is the desktop-integration launcher command.
var desktopLauncher = "gtk-launch"

// resolveApp locates the target binary: PATH first, then the fallback
// directories, then the desktop entry directories. Returns the resolved
// path and whether it is a .desktop descriptor.
func resolveApp(name string) (path string, desktop bool) {
	if p, err := exec.LookPath(name); err == nil {
		return p, false
	}
	for _, dir := range fallbackBinDirs {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() && info.Mode()&0111 != 0 {
			return p, false
		}
	}
	for _, dir := range desktopEntryDirs {
		p := filepath.Join(dir, name+".desktop")
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

// startApp launches the application detached: its own session, no wait,
// discarded standard streams. The deliberate exception to the synchronous
// wait-and-reap pattern: a GUI program may outlive the pipeline by hours,
// so success means launched, not completed.
func (e *Executor) startApp(_ context.Context, in *intent.Intent) Outcome {
	name := strings.TrimSpace(in.Target)

	path, desktop := resolveApp(name)
	if path == "" {
		return failure(in, fmt.Sprintf("application %q not found", name))
	}

	var cmd *exec.Cmd
	if desktop {
		cmd = exec.Command(desktopLauncher, name)
	} else {
		cmd = exec.Command(path)
	}
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return failure(in, fmt.Sprintf("failed to start %q: %v", name, err))
	}

	pid := cmd.Process.Pid
	// Reap in the background so the detached child never lingers as a zombie.
	go func() { _ = cmd.Wait() }()

	return Outcome{
		Success:  true,
		Action:   in.Action,
		Target:   in.Target,
		Output:   fmt.Sprintf("Started %q (PID: %d)", name, pid),
		ExitCode: intPtr(0),
	}
}
