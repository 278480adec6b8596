// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/marcelocantos/ocpipe/internal/condition"
	"github.com/marcelocantos/ocpipe/internal/rules"
)

// EnvPrefix prefixes every environment override, e.g. OCPIPE_OC_PATH.
const EnvPrefix = "OCPIPE_"

// Config holds the global ocpipe configuration.
type Config struct {
	OC        OCConfig        `yaml:"oc" envPrefix:"OC_"`
	Exec      ExecConfig      `yaml:"exec" envPrefix:"EXEC_"`
	Condition ConditionConfig `yaml:"condition" envPrefix:"CONDITION_"`
	Audit     AuditConfig     `yaml:"audit" envPrefix:"AUDIT_"`
	Log       LogConfig       `yaml:"log" envPrefix:"LOG_"`

	// Rules vet stages before launch, keyed by program ("oc", "grep").
	// YAML only.
	Rules map[string]rules.ProgramRule `yaml:"rules"`
}

// OCConfig locates the oc binary.
type OCConfig struct {
	// Path is the oc executable. Empty means "oc" on PATH.
	Path string `yaml:"path" env:"PATH"`
}

// ExecConfig holds defaults for pipeline runs.
type ExecConfig struct {
	// IgnoreFlag relaxes every run: stderr output and non-zero exits are
	// logged instead of failing.
	IgnoreFlag bool `yaml:"ignore_flag" env:"IGNORE_FLAG"`
}

// ConditionConfig holds defaults for condition waits.
type ConditionConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// AuditConfig controls audit log settings.
type AuditConfig struct {
	Path    string `yaml:"path" env:"PATH"`
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" env:"FORMAT"` // text, json or auto
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Condition: ConditionConfig{Timeout: condition.DefaultTimeout},
		Audit: AuditConfig{
			Path:    filepath.Join(home, ".local", "share", "ocpipe", "audit.jsonl"),
			Enabled: true,
		},
		Log: LogConfig{Level: "info", Format: "auto"},
	}
}

// Load reads the config from the standard location
// (~/.config/ocpipe/config.yaml) and applies OCPIPE_* overrides from the
// process environment. A missing file means the defaults.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath(), nil)
}

// LoadFrom reads the config from path, then applies OCPIPE_* overrides
// from environment, or from the process environment when environment is
// nil.
func LoadFrom(path string, environment map[string]string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix, Environment: environment}); err != nil {
		return nil, fmt.Errorf("config environment: %w", err)
	}

	cfg.Audit.Path = expandHome(cfg.Audit.Path)
	cfg.OC.Path = expandHome(cfg.OC.Path)
	if cfg.Condition.Timeout <= 0 {
		return nil, fmt.Errorf("condition.timeout must be positive, got %s", cfg.Condition.Timeout)
	}
	return cfg, nil
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, path[1:])
}

// RuleSet compiles the configured rules on top of the hardcoded ones.
func (c *Config) RuleSet() *rules.RuleSet {
	return rules.FromConfig(c.Rules)
}

// ConfigPath returns the standard config file path.
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ocpipe", "config.yaml")
}

// NewLogger builds the process logger. Format "auto" picks text when w is
// a terminal and JSON otherwise.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	options := &slog.HandlerOptions{Level: level}

	format := strings.ToLower(c.Format)
	if format == "" || format == "auto" {
		format = "json"
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			format = "text"
		}
	}
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(w, options)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, options)), nil
	}
	return nil, fmt.Errorf("log.format: unknown format %q", c.Format)
}
