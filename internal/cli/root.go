package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nkoval/sysward/internal/audit"
	"github.com/nkoval/sysward/internal/config"
	"github.com/nkoval/sysward/internal/executor"
	"github.com/nkoval/sysward/internal/history"
	"github.com/nkoval/sysward/internal/pipeline"
	"github.com/nkoval/sysward/internal/policy"
)

var (
	rootConfig  string
	rootVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sysward",
	Short: "Policy gate for LLM-translated system commands",
	Long: "Translates natural language requests into a closed set of system actions,\n" +
		"evaluates every action against policy rules, and executes only what passes.\n" +
		"Denied commands are never run; every decision lands in a hash-chained audit log.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfig, "config", "", "Path to config YAML (default: ~/.sysward/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads the application config honoring the --config flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rootConfig)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the CLI logger. Logs go to stderr so stdout stays
// parseable.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if rootVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildPipeline assembles the full pipeline from config: rules, executor,
// audit log, and history store. The returned closer releases both stores.
func buildPipeline(cfg *config.Config, dryRun bool) (*pipeline.Pipeline, func(), error) {
	engine, err := policy.Load(cfg.RulesPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load rules: %w", err)
	}

	auditLog, err := audit.Open(cfg.AuditLog)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit log: %w", err)
	}

	hist, err := history.Open(cfg.HistoryDB)
	if err != nil {
		auditLog.Close()
		return nil, nil, fmt.Errorf("open history: %w", err)
	}

	pipe := pipeline.New(engine, executor.New(cfg.ExecContext(dryRun)), pipeline.Options{
		Audit:   auditLog,
		History: hist,
		Logger:  newLogger(),
	})
	closer := func() {
		auditLog.Close()
		hist.Close()
	}
	return pipe, closer, nil
}

// reportResult prints a pipeline result and exits 1 on any failure.
func reportResult(res pipeline.Result) {
	if res.Success {
		fmt.Println(res.Message)
		return
	}
	switch res.Stage {
	case pipeline.StagePolicy:
		fmt.Fprintf(os.Stderr, "Denied: %s\n", res.Message)
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", res.Message)
	}
	os.Exit(1)
}
