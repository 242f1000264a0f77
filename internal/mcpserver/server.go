package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nkoval/sysward/internal/audit"
	"github.com/nkoval/sysward/internal/config"
	"github.com/nkoval/sysward/internal/executor"
	"github.com/nkoval/sysward/internal/history"
	"github.com/nkoval/sysward/internal/pipeline"
	"github.com/nkoval/sysward/internal/policy"
)

// Config holds MCP server configuration.
type Config struct {
	RulesPath    string
	AuditLogPath string
	HistoryPath  string
	DryRun       bool
	Exec         executor.Context
	Logger       *slog.Logger
}

// FromApp builds the MCP configuration from the application config.
func FromApp(cfg *config.Config, dryRun bool, logger *slog.Logger) Config {
	return Config{
		RulesPath:    cfg.RulesPath,
		AuditLogPath: cfg.AuditLog,
		HistoryPath:  cfg.HistoryDB,
		DryRun:       dryRun,
		Exec:         cfg.ExecContext(dryRun),
		Logger:       logger,
	}
}

// Server exposes the command pipeline over the Model Context Protocol, so
// MCP-speaking agents get the same policy gate as the CLI.
type Server struct {
	mcpServer *mcpsdk.Server
	pipe      *pipeline.Pipeline
	engine    *policy.Engine
	auditLog  *audit.Log
	hist      *history.Store
}

// New creates an MCP server with loaded rules and registered tools.
func New(cfg Config) (*Server, error) {
	engine, err := policy.Load(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	var auditLog *audit.Log
	if cfg.AuditLogPath != "" {
		auditLog, err = audit.Open(cfg.AuditLogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
	}

	var hist *history.Store
	if cfg.HistoryPath != "" {
		hist, err = history.Open(cfg.HistoryPath)
		if err != nil {
			if auditLog != nil {
				auditLog.Close()
			}
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
	}

	s := &Server{
		pipe: pipeline.New(engine, executor.New(cfg.Exec), pipeline.Options{
			Audit:   auditLog,
			History: hist,
			Logger:  cfg.Logger,
		}),
		engine:   engine,
		auditLog: auditLog,
		hist:     hist,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "sysward",
			Version: "0.1.0",
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// Run serves on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close releases the audit log and history store.
func (s *Server) Close() error {
	var firstErr error
	if s.auditLog != nil {
		firstErr = s.auditLog.Close()
	}
	if s.hist != nil {
		if err := s.hist.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "sysward_run",
		Description: "Run a system command (start_app, kill_process, list_processes, restart_service, shell_query) through policy enforcement. Denied commands return an error with the matched rule.",
	}, s.handleRun)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "sysward_check",
		Description: "Check whether a command would be allowed by policy without executing it (dry-run).",
	}, s.handleCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "sysward_rules",
		Description: "List the blocked binaries and allowed shell commands currently enforced.",
	}, s.handleRules)
}
