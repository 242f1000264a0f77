package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nkoval/sysward/internal/executor"
	"github.com/nkoval/sysward/internal/intent"
	"github.com/nkoval/sysward/internal/pipeline"
	"github.com/nkoval/sysward/internal/policy"
)

var checkFormat string

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text|json)")
}

var checkCmd = &cobra.Command{
	Use:   "check <action> <target...>",
	Short: "Check whether a command would be allowed, without executing it",
	Long: "Validates the command and evaluates it against policy rules.\n" +
		"Nothing is executed. Exit code 0 if allowed, 1 if rejected or denied.",
	Args: cobra.MinimumNArgs(2),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := policy.Load(cfg.RulesPath)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	pipe := pipeline.New(engine, executor.New(cfg.ExecContext(true)), pipeline.Options{})
	res := pipe.Check(cmd.Context(), intent.Candidate{
		Action: args[0],
		Target: strings.Join(args[1:], " "),
	})

	if checkFormat == "json" {
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else if res.Success {
		fmt.Printf("ALLOWED: %s\n", res.Message)
	} else {
		rule := ""
		if res.Verdict != nil {
			rule = " [" + res.Verdict.MatchedRule + "]"
		}
		fmt.Printf("DENIED%s: %s\n", rule, res.Message)
	}

	if !res.Success {
		os.Exit(1)
	}
	return nil
}
