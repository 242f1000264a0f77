package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nkoval/sysward/internal/policy"
)

var rulesFormat string

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.Flags().StringVarP(&rulesFormat, "format", "f", "text", "Output format (text|json)")
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Show the rule tables currently enforced",
	RunE:  runRules,
}

func runRules(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := policy.Load(cfg.RulesPath)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	blocked := engine.BlockedBinaries()
	allowed := engine.AllowedShellCommands()

	if rulesFormat == "json" {
		out, err := json.MarshalIndent(map[string][]string{
			"blocked_binaries":       blocked,
			"allowed_shell_commands": allowed,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("Blocked binaries (%d):\n", len(blocked))
	for _, b := range blocked {
		fmt.Printf("  %s\n", b)
	}
	fmt.Printf("\nAllowed shell commands (%d):\n", len(allowed))
	for _, a := range allowed {
		fmt.Printf("  %s\n", a)
	}
	return nil
}
