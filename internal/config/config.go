// Package config loads the connshared server configuration from a YAML
// file with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/connshare/internal/logger"
	"github.com/koustreak/connshare/internal/secrets"
)

// Config is the full connshared configuration.
type Config struct {
	// Server holds the HTTP command surface settings.
	Server ServerConfig `yaml:"server"`

	// Log configures structured logging.
	Log logger.Config `yaml:"log"`

	// Secrets selects and configures the secret store backend.
	Secrets secrets.Config `yaml:"secrets"`

	// ProfileDB is the path of the sqlite connection-profile database.
	ProfileDB string `yaml:"profile_db"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8492".
	Addr string `yaml:"addr"`
}

// Default returns a production-ready configuration rooted at dir.
func Default(dir string) *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8492"},
		Log: logger.Config{
			Level:  "info",
			Format: "json",
		},
		Secrets:   *secrets.DefaultConfig(filepath.Join(dir, "secrets.json")),
		ProfileDB: filepath.Join(dir, "profiles.db"),
	}
}

// Load reads the YAML file at path on top of Default values, then applies
// environment overrides. A missing file is not an error — defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default(defaultDir())

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overrides settings from CONNSHARE_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("CONNSHARE_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CONNSHARE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CONNSHARE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("CONNSHARE_SECRETS_PROVIDER"); v != "" {
		cfg.Secrets.Provider = secrets.Provider(v)
	}
	if v := os.Getenv("CONNSHARE_SECRETS_PATH"); v != "" {
		cfg.Secrets.Path = v
	}
	if v := os.Getenv("CONNSHARE_PROFILE_DB"); v != "" {
		cfg.ProfileDB = v
	}
}

// defaultDir is where connshare keeps local state when no config says otherwise.
func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".connshare"
	}
	return filepath.Join(home, ".connshare")
}
