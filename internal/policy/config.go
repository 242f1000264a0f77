package policy

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RulesFile is the YAML overlay for the built-in rule tables. Entries
// extend the defaults; nothing in the file can remove a built-in rule or
// widen the shell allowlist, so a writable rules file can only tighten
// policy, never loosen it.
type RulesFile struct {
	BlockedBinaries    []string  `yaml:"blocked_binaries"`
	ProtectedProcesses []string  `yaml:"protected_processes"`
	ProtectedServices  []string  `yaml:"protected_services"`
	DangerousPatterns  []Pattern `yaml:"dangerous_patterns"`
}

// DefaultRulesPath is the rules overlay location checked when no explicit
// path is given.
func DefaultRulesPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sysward", "rules.yaml")
}

// Load builds an Engine from the default tables extended by the YAML
// overlay at path. Empty path falls back to ~/.sysward/rules.yaml; a
// missing file yields the defaults; invalid YAML is an error.
func Load(path string) (*Engine, error) {
	if path == "" {
		path = DefaultRulesPath()
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("policy: read rules file: %w", err)
	}

	var extra RulesFile
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, fmt.Errorf("policy: parse rules file: %w", err)
	}

	t := DefaultTables()
	t.BlockedBinaries = append(append([]string{}, t.BlockedBinaries...), extra.BlockedBinaries...)
	t.ProtectedProcesses = append(append([]string{}, t.ProtectedProcesses...), extra.ProtectedProcesses...)
	t.ProtectedServices = append(append([]string{}, t.ProtectedServices...), extra.ProtectedServices...)
	t.DangerousPatterns = append(append([]Pattern{}, t.DangerousPatterns...), extra.DangerousPatterns...)

	return New(t)
}
