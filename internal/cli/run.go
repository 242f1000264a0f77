package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nkoval/sysward/internal/intent"
	"github.com/nkoval/sysward/internal/llm"
)

var (
	runDryRun   bool
	runYes      bool
	runTimeout  int
	runMaxLines int
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Show what would run without executing")
	runCmd.Flags().BoolVarP(&runYes, "yes", "y", false, "Skip the confirmation prompt")
	runCmd.Flags().IntVar(&runTimeout, "timeout", 0, "Execution timeout in seconds (overrides config)")
	runCmd.Flags().IntVar(&runMaxLines, "max-lines", 0, "Max output lines to show (overrides config)")
}

var runCmd = &cobra.Command{
	Use:   "run <request...>",
	Short: "Translate a natural language request and run it through the policy gate",
	Long: "Sends the request to the configured LLM, validates the returned command,\n" +
		"evaluates it against policy, and executes it if allowed.\n" +
		"Exit code 0 on success, 1 on refusal, denial, or execution failure.",
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runTimeout > 0 {
		cfg.Exec.Timeout = runTimeout
	}
	if runMaxLines > 0 {
		cfg.Exec.MaxOutputLines = runMaxLines
	}

	request := strings.Join(args, " ")
	client := llm.New(cfg.LLM.APIURL, cfg.LLM.APIKey, cfg.LLM.Model,
		time.Duration(cfg.LLM.Timeout)*time.Second)

	ctx := cmd.Context()
	env, err := client.Translate(ctx, request)
	if err != nil {
		return fmt.Errorf("translate request: %w", err)
	}

	if env.Command != nil && !runDryRun {
		if !confirmCommand(ctx, cfg.Exec.RequireConfirm, env.Command) {
			fmt.Fprintln(os.Stderr, "Cancelled.")
			os.Exit(1)
		}
	}

	pipe, closer, err := buildPipeline(cfg, runDryRun)
	if err != nil {
		return err
	}
	defer closer()

	reportResult(pipe.Run(ctx, request, env))
	return nil
}

// confirmCommand asks the user to approve the translated command before it
// runs. Returns true when confirmation is disabled or skipped with --yes.
func confirmCommand(_ context.Context, required bool, c *intent.Candidate) bool {
	if !required || runYes {
		return true
	}
	fmt.Fprintf(os.Stderr, "About to run: %s on %q", c.Action, c.Target)
	if c.Reason != "" {
		fmt.Fprintf(os.Stderr, " (%s)", c.Reason)
	}
	fmt.Fprint(os.Stderr, "\nProceed? [y/N] ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
