// Package config provides the Config struct and loader for .dbwizard.yaml
// configuration files. Only the CLI loads files; the core packages consume
// plain structs and apply their own defaults to zero values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Defaults for values the config layer owns. Pool sizes, loop bounds, and
// similar knobs default to zero here so the owning package's defaults
// apply.
const (
	DefaultEngineType = "openai"
	DefaultAPIKeyEnv  = "OPENAI_API_KEY"

	DefaultLogDir = "logs"

	DefaultServerAddr    = "127.0.0.1:8080"
	DefaultAskTimeoutSec = 300
)

// EngineTypes lists the supported reasoning engines.
var EngineTypes = []string{"openai", "mock"}

// DatabaseConfig holds connection pool and statement limits.
type DatabaseConfig struct {
	URL                 string `yaml:"url,omitempty"`
	MaxOpenConns        int    `yaml:"max_open_conns,omitempty"`
	MaxIdleConns        int    `yaml:"max_idle_conns,omitempty"`
	ConnMaxLifetimeSec  int    `yaml:"conn_max_lifetime_sec,omitempty"`
	AcquireTimeoutSec   int    `yaml:"acquire_timeout_sec,omitempty"`
	StatementTimeoutSec int    `yaml:"statement_timeout_sec,omitempty"`
	MaxResultRows       int    `yaml:"max_result_rows,omitempty"`
}

// ResolvedURL returns the connection string, falling back to $DATABASE_URL.
// The URL stays out of config files when it carries credentials.
func (c DatabaseConfig) ResolvedURL() string {
	if c.URL != "" {
		return c.URL
	}
	return os.Getenv("DATABASE_URL")
}

// EngineConfig holds reasoning engine settings.
type EngineConfig struct {
	Type        string  `yaml:"type,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	APIKeyEnv   string  `yaml:"api_key_env,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

// APIKey reads the engine key from the environment variable named by
// APIKeyEnv. Keys never live in the config file.
func (c EngineConfig) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

// WizardConfig holds agent loop bounds and the audit log location.
type WizardConfig struct {
	MaxSteps       int    `yaml:"max_steps,omitempty"`
	CycleLimit     int    `yaml:"cycle_limit,omitempty"`
	PlannerRetries int    `yaml:"planner_retries,omitempty"`
	LogDir         string `yaml:"log_dir,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string   `yaml:"addr,omitempty"`
	AskTimeoutSec  int      `yaml:"ask_timeout_sec,omitempty"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// Config is the top-level configuration loaded from .dbwizard.yaml.
type Config struct {
	Database DatabaseConfig `yaml:"database,omitempty"`
	Engine   EngineConfig   `yaml:"engine,omitempty"`
	Wizard   WizardConfig   `yaml:"wizard,omitempty"`
	Server   ServerConfig   `yaml:"server,omitempty"`
}

// New returns a Config with defaults populated.
func New() *Config {
	return &Config{
		Engine: EngineConfig{
			Type:      DefaultEngineType,
			APIKeyEnv: DefaultAPIKeyEnv,
		},
		Wizard: WizardConfig{
			LogDir: DefaultLogDir,
		},
		Server: ServerConfig{
			Addr:          DefaultServerAddr,
			AskTimeoutSec: DefaultAskTimeoutSec,
		},
	}
}

// Load finds .dbwizard.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*Config, error) {
	data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("loading .dbwizard.yaml: %w", err)
	}
	return parse(data)
}

// LoadFile loads exactly the given config file. Unlike Load, a missing
// file is an error.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %q: %w", path, err)
	}
	return parse(data)
}

func parse(data []byte) (*Config, error) {
	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing .dbwizard.yaml: %w", err)
	}

	cfg := New()
	mergeConfig(cfg, &fileCfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	validType := false
	for _, t := range EngineTypes {
		if c.Engine.Type == t {
			validType = true
			break
		}
	}
	if !validType {
		return fmt.Errorf("engine.type must be one of %v, got %q", EngineTypes, c.Engine.Type)
	}

	for name, v := range map[string]int{
		"database.max_open_conns":        c.Database.MaxOpenConns,
		"database.max_idle_conns":        c.Database.MaxIdleConns,
		"database.conn_max_lifetime_sec": c.Database.ConnMaxLifetimeSec,
		"database.acquire_timeout_sec":   c.Database.AcquireTimeoutSec,
		"database.statement_timeout_sec": c.Database.StatementTimeoutSec,
		"database.max_result_rows":       c.Database.MaxResultRows,
		"wizard.max_steps":               c.Wizard.MaxSteps,
		"wizard.cycle_limit":             c.Wizard.CycleLimit,
		"wizard.planner_retries":         c.Wizard.PlannerRetries,
		"server.ask_timeout_sec":         c.Server.AskTimeoutSec,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative, got %d", name, v)
		}
	}
	return nil
}

// findConfigFile walks up from dir looking for .dbwizard.yaml (max 10
// levels). Returns os.ErrNotExist if no config file is found. Propagates
// real I/O errors (e.g. permission denied) instead of silently swallowing
// them.
func findConfigFile(dir string) ([]byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, ".dbwizard.yaml")
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *Config) {
	// Database
	if src.Database.URL != "" {
		dst.Database.URL = src.Database.URL
	}
	if src.Database.MaxOpenConns != 0 {
		dst.Database.MaxOpenConns = src.Database.MaxOpenConns
	}
	if src.Database.MaxIdleConns != 0 {
		dst.Database.MaxIdleConns = src.Database.MaxIdleConns
	}
	if src.Database.ConnMaxLifetimeSec != 0 {
		dst.Database.ConnMaxLifetimeSec = src.Database.ConnMaxLifetimeSec
	}
	if src.Database.AcquireTimeoutSec != 0 {
		dst.Database.AcquireTimeoutSec = src.Database.AcquireTimeoutSec
	}
	if src.Database.StatementTimeoutSec != 0 {
		dst.Database.StatementTimeoutSec = src.Database.StatementTimeoutSec
	}
	if src.Database.MaxResultRows != 0 {
		dst.Database.MaxResultRows = src.Database.MaxResultRows
	}

	// Engine
	if src.Engine.Type != "" {
		dst.Engine.Type = src.Engine.Type
	}
	if src.Engine.Model != "" {
		dst.Engine.Model = src.Engine.Model
	}
	if src.Engine.BaseURL != "" {
		dst.Engine.BaseURL = src.Engine.BaseURL
	}
	if src.Engine.APIKeyEnv != "" {
		dst.Engine.APIKeyEnv = src.Engine.APIKeyEnv
	}
	if src.Engine.Temperature != 0 {
		dst.Engine.Temperature = src.Engine.Temperature
	}

	// Wizard
	if src.Wizard.MaxSteps != 0 {
		dst.Wizard.MaxSteps = src.Wizard.MaxSteps
	}
	if src.Wizard.CycleLimit != 0 {
		dst.Wizard.CycleLimit = src.Wizard.CycleLimit
	}
	if src.Wizard.PlannerRetries != 0 {
		dst.Wizard.PlannerRetries = src.Wizard.PlannerRetries
	}
	if src.Wizard.LogDir != "" {
		dst.Wizard.LogDir = src.Wizard.LogDir
	}

	// Server
	if src.Server.Addr != "" {
		dst.Server.Addr = src.Server.Addr
	}
	if src.Server.AskTimeoutSec != 0 {
		dst.Server.AskTimeoutSec = src.Server.AskTimeoutSec
	}
	if len(src.Server.AllowedOrigins) > 0 {
		dst.Server.AllowedOrigins = src.Server.AllowedOrigins
	}
}
