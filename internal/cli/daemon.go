package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nkoval/sysward/internal/daemon"
	"github.com/nkoval/sysward/internal/llm"
)

var (
	daemonDryRun   bool
	daemonPollMode bool
	daemonInbox    string
	daemonOutbox   string
)

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.Flags().BoolVar(&daemonDryRun, "dry-run", false, "Process jobs without executing anything")
	daemonCmd.Flags().BoolVar(&daemonPollMode, "poll", false, "Poll for inbox files instead of using fsnotify (for NFS)")
	daemonCmd.Flags().StringVar(&daemonInbox, "inbox", "", "Inbox directory (default from config)")
	daemonCmd.Flags().StringVar(&daemonOutbox, "outbox", "", "Outbox directory (default from config)")
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Watch an inbox directory and process job files through the policy gate",
	Long: "Jobs are JSON files dropped into the inbox. Each carries either a natural\n" +
		"language request or an explicit command; results land in the outbox.",
	RunE: runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if daemonInbox != "" {
		cfg.Daemon.InboxDir = daemonInbox
	}
	if daemonOutbox != "" {
		cfg.Daemon.OutboxDir = daemonOutbox
	}

	pipe, closer, err := buildPipeline(cfg, daemonDryRun)
	if err != nil {
		return err
	}
	defer closer()

	var translator daemon.Translator
	if cfg.LLM.APIURL != "" {
		translator = llm.New(cfg.LLM.APIURL, cfg.LLM.APIKey, cfg.LLM.Model,
			time.Duration(cfg.LLM.Timeout)*time.Second)
	}

	d, err := daemon.New(daemon.Config{
		Dirs: daemon.DirConfig{
			Inbox:  cfg.Daemon.InboxDir,
			Outbox: cfg.Daemon.OutboxDir,
			State:  filepath.Join(filepath.Dir(cfg.Daemon.InboxDir), "state"),
		},
		PollMode: daemonPollMode,
		Workers:  cfg.Daemon.Workers,
	}, pipe, translator)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down daemon...")
		cancel()
	}()

	fmt.Fprintf(os.Stderr, "sysward daemon watching %s\n", cfg.Daemon.InboxDir)
	return d.Run(ctx)
}
