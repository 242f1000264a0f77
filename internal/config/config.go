package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nkoval/sysward/internal/executor"
)

const (
	defaultAPIURL  = "http://localhost:11434/v1/chat/completions"
	defaultGroqURL = "https://api.groq.com/openai/v1/chat/completions"

	defaultModel     = "llama3.2"
	defaultGroqModel = "llama-3.1-8b-instant"
)

// LLM configures the translation backend. Any OpenAI-compatible
// chat-completions endpoint works.
type LLM struct {
	APIURL  string `yaml:"api_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Timeout int    `yaml:"timeout_seconds"`
}

// Exec configures command execution limits.
type Exec struct {
	Timeout        int  `yaml:"timeout_seconds"`
	MaxOutputLines int  `yaml:"max_output_lines"`
	RequireConfirm bool `yaml:"require_confirmation"`
}

// Daemon configures the inbox watcher.
type Daemon struct {
	InboxDir  string `yaml:"inbox_dir"`
	OutboxDir string `yaml:"outbox_dir"`
	Workers   int    `yaml:"workers"`
}

// Config holds all configurable parameters.
type Config struct {
	LLM       LLM    `yaml:"llm"`
	Exec      Exec   `yaml:"exec"`
	Daemon    Daemon `yaml:"daemon"`
	RulesPath string `yaml:"rules_path"`
	AuditLog  string `yaml:"audit_log"`
	HistoryDB string `yaml:"history_db"`
}

// Default returns the built-in configuration.
func Default() *Config {
	base := baseDir()
	return &Config{
		LLM: LLM{
			APIURL:  defaultAPIURL,
			Model:   defaultModel,
			Timeout: 30,
		},
		Exec: Exec{
			Timeout:        60,
			MaxOutputLines: 100,
		},
		Daemon: Daemon{
			InboxDir:  filepath.Join(base, "inbox"),
			OutboxDir: filepath.Join(base, "outbox"),
			Workers:   2,
		},
		RulesPath: filepath.Join(base, "rules.yaml"),
		AuditLog:  filepath.Join(base, "audit.jsonl"),
		HistoryDB: filepath.Join(base, "history.db"),
	}
}

// Load reads configuration from a YAML file and applies SYSWARD_* env
// overrides. Empty path falls back to ~/.sysward/config.yaml. A missing
// file returns defaults. Invalid YAML returns an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = filepath.Join(baseDir(), "config.yaml")
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		// Start with defaults, YAML overwrites only specified fields
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays SYSWARD_* environment variables.
// Resolution order for the API key: SYSWARD_API_KEY → GROQ_API_KEY → file value.
func (c *Config) applyEnv() {
	c.LLM.APIKey = firstNonEmpty(
		os.Getenv("SYSWARD_API_KEY"),
		os.Getenv("GROQ_API_KEY"),
		c.LLM.APIKey,
	)
	if u := os.Getenv("SYSWARD_API_URL"); u != "" {
		c.LLM.APIURL = u
	} else if c.LLM.APIKey != "" && c.LLM.APIURL == defaultAPIURL {
		// Key present but no explicit URL: assume Groq cloud.
		c.LLM.APIURL = defaultGroqURL
	}
	if m := os.Getenv("SYSWARD_MODEL"); m != "" {
		c.LLM.Model = m
	} else if c.LLM.APIURL == defaultGroqURL && c.LLM.Model == defaultModel {
		c.LLM.Model = defaultGroqModel
	}
	if v := os.Getenv("SYSWARD_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Exec.Timeout = n
		}
	}
	if v := os.Getenv("SYSWARD_RULES"); v != "" {
		c.RulesPath = v
	}
	if v := os.Getenv("SYSWARD_AUDIT_LOG"); v != "" {
		c.AuditLog = v
	}
	if v := os.Getenv("SYSWARD_HISTORY_DB"); v != "" {
		c.HistoryDB = v
	}
}

// ExecContext converts the execution section into an executor context.
func (c *Config) ExecContext(dryRun bool) executor.Context {
	return executor.Context{
		DryRun:         dryRun,
		Timeout:        time.Duration(c.Exec.Timeout) * time.Second,
		MaxOutputLines: c.Exec.MaxOutputLines,
	}
}

func baseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sysward"
	}
	return filepath.Join(home, ".sysward")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
