package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/nkoval/sysward/internal/intent"
)

var (
	execDryRun bool
	execSignal string
	execFilter string
)

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().BoolVar(&execDryRun, "dry-run", false, "Show what would run without executing")
	execCmd.Flags().StringVar(&execSignal, "signal", "", "Signal for kill_process (TERM, KILL, HUP, ...)")
	execCmd.Flags().StringVar(&execFilter, "filter", "", "Sort filter for list_processes (cpu|memory)")
}

var execCmd = &cobra.Command{
	Use:   "exec <action> <target...>",
	Short: "Run an explicit command through the policy gate, bypassing translation",
	Long: "Validates and executes a command given directly as action and target.\n" +
		"Actions: start_app, kill_process, list_processes, restart_service, shell_query.\n" +
		"Exit code 0 on success, 1 on denial or execution failure.",
	Args: cobra.MinimumNArgs(2),
	RunE: runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c := intent.Candidate{
		Action: args[0],
		Target: strings.Join(args[1:], " "),
	}
	params := map[string]any{}
	if execSignal != "" {
		params["signal"] = execSignal
	}
	if execFilter != "" {
		params["filter"] = execFilter
	}
	if len(params) > 0 {
		c.Parameters = params
	}

	pipe, closer, err := buildPipeline(cfg, execDryRun)
	if err != nil {
		return err
	}
	defer closer()

	reportResult(pipe.RunCandidate(cmd.Context(), "exec:"+c.Action, c))
	return nil
}
