// ABOUTME: Application configuration stored at XDG paths with .env and environment overrides
// ABOUTME: Resolves the database path and the LLM credentials used by the estimator
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

const (
	DefaultModel       = "claude-sonnet-4-20250514"
	DefaultBaseURL     = "https://api.anthropic.com"
	DefaultConcurrency = 4
)

// Config stores persistent settings for memoire.
type Config struct {
	DBPath  string `toml:"db_path,omitempty"`
	APIKey  string `toml:"api_key,omitempty"`
	Model   string `toml:"model,omitempty"`
	BaseURL string `toml:"base_url,omitempty"`
	// Concurrency bounds parallel model calls such as CV summaries.
	Concurrency int `toml:"concurrency,omitempty"`
}

// Dir returns the XDG config directory for memoire.
func Dir() string {
	return filepath.Join(xdg.ConfigHome, "memoire")
}

// Path returns the config file path.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// DefaultDBPath returns the database location under the XDG data directory.
func DefaultDBPath() string {
	return filepath.Join(xdg.DataHome, "memoire", "memoire.db")
}

// Load reads the config file, then .env files, then environment variables.
// Later sources win. A missing config file is not an error.
//
// Environment variables:
// - MEMOIRE_DB_PATH
// - ANTHROPIC_API_KEY
// - ANTHROPIC_MODEL
// - ANTHROPIC_BASE_URL.
func Load() (*Config, error) {
	return LoadFrom(Path(), ".env", filepath.Join(Dir(), ".env"))
}

// LoadFrom is Load with explicit file locations.
func LoadFrom(path string, envFiles ...string) (*Config, error) {
	cfg := &Config{}

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer func() { _ = f.Close() }()
		if _, err := toml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		// godotenv.Load never overrides variables already set in the process
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if path := os.Getenv("MEMOIRE_DB_PATH"); path != "" {
		cfg.DBPath = path
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	if model := os.Getenv("ANTHROPIC_MODEL"); model != "" {
		cfg.Model = model
	}
	if baseURL := os.Getenv("ANTHROPIC_BASE_URL"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
}

func applyDefaults(cfg *Config) {
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
}

// Save writes the config file with restricted permissions.
func Save(cfg *Config) error {
	return SaveTo(Path(), cfg)
}

// SaveTo writes cfg to path.
func SaveTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// Exists reports whether a config file is present.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

// HasAPIKey reports whether LLM-assisted estimation can run.
func (c *Config) HasAPIKey() bool {
	return c.APIKey != ""
}
