// Package config loads and exposes application configuration (TOML).
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath     = "picup.toml"
	DefaultAddr           = ":19190"
	DefaultTimeoutSeconds = 30
	DefaultBodyLimit      = "32M"
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log        LogConfig                 `toml:"log"`
	Server     ServerConfig              `toml:"server"`
	Storage    StorageConfig             `toml:"storage"`
	Categories map[string]CategoryConfig `toml:"categories"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP listen address, the shared access token, the
// public URL prefix that uploaded assets are addressed under, the
// per-request timeout, and the request body size limit (e.g. "32M").
type ServerConfig struct {
	Addr           string `toml:"addr"`
	Token          string `toml:"token"`
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	BodyLimit      string `toml:"body_limit"`
}

// StorageConfig holds the root directory for staged and committed assets.
type StorageConfig struct {
	Directory string `toml:"directory"`
}

// CategoryConfig holds the per-category content policy.
type CategoryConfig struct {
	AllowAllFiles bool `toml:"allow_all_files"`
}

// PublicURL returns the configured public URL prefix, falling back to a
// loopback URL derived from the listen address.
func (c ServerConfig) PublicURL() string {
	if c.URL != "" {
		return strings.TrimRight(c.URL, "/")
	}
	addr := c.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr
}

// Load reads and parses the TOML config file at path and applies default
// values for missing fields. The token, storage directory, and at least one
// category are required.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:           DefaultAddr,
			TimeoutSeconds: DefaultTimeoutSeconds,
			BodyLimit:      DefaultBodyLimit,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	if strings.TrimSpace(cfg.Server.Token) == "" {
		return cfg, fmt.Errorf("config %s: no access token provided", path)
	}
	if strings.TrimSpace(cfg.Storage.Directory) == "" {
		return cfg, fmt.Errorf("config %s: no storage directory provided", path)
	}
	if len(cfg.Categories) == 0 {
		return cfg, fmt.Errorf("config %s: no category provided", path)
	}

	return cfg, nil
}

// LoadFromEnv loads the config file named by the CONFIG_PATH environment
// variable, or the default path when unset.
func LoadFromEnv() (Config, error) {
	return Load(os.Getenv("CONFIG_PATH"))
}
