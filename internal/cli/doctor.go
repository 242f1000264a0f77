package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nkoval/sysward/internal/audit"
	"github.com/nkoval/sysward/internal/policy"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system readiness and diagnose configuration issues",
	RunE:  runDoctor,
}

type checkResult struct {
	label  string
	ok     bool
	detail string
	fix    string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	var checks []checkResult

	// 1. Binary location and version.
	execPath, _ := os.Executable()
	if execPath != "" {
		checks = append(checks, checkResult{
			label:  "sysward binary",
			ok:     true,
			detail: fmt.Sprintf("%s (v%s)", execPath, version),
		})
	} else {
		checks = append(checks, checkResult{
			label:  "sysward binary",
			ok:     false,
			detail: "cannot determine executable path",
		})
	}

	// 2. Config directory and file.
	home, homeErr := os.UserHomeDir()
	if homeErr == nil {
		configDir := filepath.Join(home, ".sysward")
		if info, err := os.Stat(configDir); err == nil && info.IsDir() {
			checks = append(checks, checkResult{label: "config directory", ok: true, detail: configDir})
		} else {
			checks = append(checks, checkResult{
				label:  "config directory",
				ok:     false,
				detail: "missing (will be created on first run)",
			})
		}
	} else {
		checks = append(checks, checkResult{
			label:  "config directory",
			ok:     false,
			detail: "cannot determine home directory",
		})
	}

	cfg, err := loadConfig()
	if err != nil {
		checks = append(checks, checkResult{label: "config.yaml", ok: false, detail: err.Error()})
	} else {
		checks = append(checks, checkResult{label: "config.yaml", ok: true, detail: "loaded"})
	}

	// 3. Rules file.
	if cfg != nil {
		if _, err := policy.Load(cfg.RulesPath); err != nil {
			checks = append(checks, checkResult{
				label:  "rules.yaml",
				ok:     false,
				detail: err.Error(),
			})
		} else if _, statErr := os.Stat(cfg.RulesPath); statErr == nil {
			checks = append(checks, checkResult{label: "rules.yaml", ok: true, detail: cfg.RulesPath})
		} else {
			checks = append(checks, checkResult{label: "rules.yaml", ok: true, detail: "built-in defaults"})
		}
	}

	// 4. Audit log chain.
	if cfg != nil {
		if _, err := os.Stat(cfg.AuditLog); err == nil {
			result := audit.Verify(cfg.AuditLog)
			if result.Valid {
				checks = append(checks, checkResult{
					label:  "audit log",
					ok:     true,
					detail: fmt.Sprintf("%d entries, chain intact", result.Lines),
				})
			} else {
				checks = append(checks, checkResult{
					label:  "audit log",
					ok:     false,
					detail: fmt.Sprintf("chain broken at line %d", result.ErrorLine),
				})
			}
		} else {
			checks = append(checks, checkResult{label: "audit log", ok: true, detail: "empty"})
		}
	}

	// 5. Required system tools.
	for _, tool := range []string{"pgrep", "pkill", "ps", "systemctl", "sh"} {
		if _, err := exec.LookPath(tool); err == nil {
			checks = append(checks, checkResult{label: tool, ok: true, detail: "found"})
		} else {
			checks = append(checks, checkResult{
				label:  tool,
				ok:     false,
				detail: "not found in PATH",
				fix:    "install " + tool,
			})
		}
	}

	// 6. LLM endpoint configured.
	if cfg != nil {
		if cfg.LLM.APIURL != "" {
			checks = append(checks, checkResult{label: "llm endpoint", ok: true, detail: cfg.LLM.APIURL})
		} else {
			checks = append(checks, checkResult{
				label:  "llm endpoint",
				ok:     false,
				detail: "not configured",
				fix:    "set SYSWARD_API_URL or llm.api_url in config.yaml",
			})
		}
	}

	hasFailures := false
	for _, c := range checks {
		mark := "✓"
		if !c.ok {
			mark = "✗"
			hasFailures = true
		}
		line := fmt.Sprintf("%s %-20s %s", mark, c.label+":", c.detail)
		if !c.ok && c.fix != "" {
			line += fmt.Sprintf("  ->  %s", c.fix)
		}
		fmt.Println(line)
	}

	if hasFailures {
		fmt.Println()
		fmt.Println("Some checks failed. Run the suggested commands to fix.")
		return fmt.Errorf("doctor found issues")
	}

	fmt.Println()
	fmt.Println("All checks passed.")
	return nil
}
