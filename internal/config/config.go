// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for deskchat.
//
// Configuration comes from ~/.deskchat/config.toml with built-in
// defaults and DESKCHAT_* environment variable overrides applied last.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete deskchat configuration.
type Config struct {
	Version string `toml:"version"`

	// Server connection
	Server ServerConfig `toml:"server"`

	// User identity
	User UserConfig `toml:"user"`

	// Reconnection and retry behavior
	Connection ConnectionConfig `toml:"connection"`

	// Local persistence
	Storage StorageConfig `toml:"storage"`

	// Export behavior
	Export ExportConfig `toml:"export"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// ServerConfig contains backend endpoint configuration.
type ServerConfig struct {
	// BaseURL is the REST API root, e.g. "https://itsm.example.com"
	BaseURL string `toml:"base_url"`
	// WebSocketURL is the streaming endpoint, e.g. "wss://itsm.example.com/ws/chat"
	WebSocketURL string `toml:"websocket_url"`
	// AuthToken is the bearer token sent with REST requests
	AuthToken string `toml:"auth_token"`
}

// UserConfig identifies the user to the backend.
type UserConfig struct {
	// ID is the user identifier sent with queries
	ID string `toml:"id"`
	// Groups are the user's directory groups, used for answer scoping
	Groups []string `toml:"groups"`
}

// ConnectionConfig tunes reconnection and request retry behavior.
type ConnectionConfig struct {
	// ReconnectBaseDelaySecs is the backoff unit; attempt n waits n*base
	ReconnectBaseDelaySecs int `toml:"reconnect_base_delay_secs"`
	// MaxReconnectAttempts bounds automatic reconnects after a drop
	MaxReconnectAttempts int `toml:"max_reconnect_attempts"`
	// RequestTimeoutSecs is the per-request REST timeout
	RequestTimeoutSecs int `toml:"request_timeout_secs"`
	// MaxRetries is the REST retry budget for transient failures
	MaxRetries int `toml:"max_retries"`
}

// StorageConfig contains local persistence configuration.
type StorageConfig struct {
	// DatabasePath overrides the session database location
	// (empty = ~/.deskchat/deskchat.db)
	DatabasePath string `toml:"database_path"`
}

// ExportConfig contains conversation export configuration.
type ExportConfig struct {
	// OutputDir is where exported transcripts are written
	OutputDir string `toml:"output_dir"`
	// OpenAfterExport opens the exported file in the default application
	OpenAfterExport bool `toml:"open_after_export"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// ShowTimestamps displays per-message timestamps
	ShowTimestamps bool `toml:"show_timestamps"`
	// CompactMode uses a more compact UI layout
	CompactMode bool `toml:"compact_mode"`
	// ConfirmationTimeoutMins is how long staged actions stay confirmable
	ConfirmationTimeoutMins int `toml:"confirmation_timeout_mins"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Server: ServerConfig{
			BaseURL:      "http://127.0.0.1:8080",
			WebSocketURL: "ws://127.0.0.1:8080/ws/chat",
		},

		User: UserConfig{
			ID:     "",
			Groups: nil,
		},

		Connection: ConnectionConfig{
			ReconnectBaseDelaySecs: 3,
			MaxReconnectAttempts:   5,
			RequestTimeoutSecs:     30,
			MaxRetries:             3,
		},

		Storage: StorageConfig{
			DatabasePath: "",
		},

		Export: ExportConfig{
			OutputDir:       ".",
			OpenAfterExport: false,
		},

		UI: UIConfig{
			Theme:                   "dark",
			ShowTimestamps:          true,
			CompactMode:             false,
			ConfirmationTimeoutMins: 5,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the deskchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".deskchat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on the config
// file; it carries the auth token so anything wider than 0600 is fixed.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm() != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", info.Mode().Perm(), err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file, falling back to
// defaults when the file is missing. Environment overrides apply last.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadTOML(cfg, path); err != nil {
				return nil, fmt.Errorf("failed to load config: %w", err)
			}
		}
	}

	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = defaults.Server.BaseURL
	}
	if cfg.Server.WebSocketURL == "" {
		cfg.Server.WebSocketURL = defaults.Server.WebSocketURL
	}
	if cfg.Connection.ReconnectBaseDelaySecs == 0 {
		cfg.Connection.ReconnectBaseDelaySecs = defaults.Connection.ReconnectBaseDelaySecs
	}
	if cfg.Connection.MaxReconnectAttempts == 0 {
		cfg.Connection.MaxReconnectAttempts = defaults.Connection.MaxReconnectAttempts
	}
	if cfg.Connection.RequestTimeoutSecs == 0 {
		cfg.Connection.RequestTimeoutSecs = defaults.Connection.RequestTimeoutSecs
	}
	if cfg.Connection.MaxRetries == 0 {
		cfg.Connection.MaxRetries = defaults.Connection.MaxRetries
	}
	if cfg.Export.OutputDir == "" {
		cfg.Export.OutputDir = defaults.Export.OutputDir
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	if cfg.UI.ConfirmationTimeoutMins == 0 {
		cfg.UI.ConfirmationTimeoutMins = defaults.UI.ConfirmationTimeoutMins
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies DESKCHAT_* environment variables on top of
// the loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("DESKCHAT_SERVER_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("DESKCHAT_WS_URL"); v != "" {
		c.Server.WebSocketURL = v
	}
	if v := os.Getenv("DESKCHAT_AUTH_TOKEN"); v != "" {
		c.Server.AuthToken = v
	}
	if v := os.Getenv("DESKCHAT_USER_ID"); v != "" {
		c.User.ID = v
	}
	if v := os.Getenv("DESKCHAT_DB_PATH"); v != "" {
		c.Storage.DatabasePath = v
	}
	if v := os.Getenv("DESKCHAT_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("DESKCHAT_MAX_RECONNECT_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Connection.MaxReconnectAttempts = n
		}
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with owner-only
// permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# deskchat configuration file")
	fmt.Fprintln(file, "# Generated by deskchat - edit with care")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.Server.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, ValidationError{
			Field:   "server.base_url",
			Message: fmt.Sprintf("must be an http(s) URL, got %q", c.Server.BaseURL),
		})
	}
	if u, err := url.Parse(c.Server.WebSocketURL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		errs = append(errs, ValidationError{
			Field:   "server.websocket_url",
			Message: fmt.Sprintf("must be a ws(s) URL, got %q", c.Server.WebSocketURL),
		})
	}
	if c.Connection.ReconnectBaseDelaySecs < 1 {
		errs = append(errs, ValidationError{
			Field:   "connection.reconnect_base_delay_secs",
			Message: "must be at least 1",
		})
	}
	if c.Connection.MaxReconnectAttempts < 1 || c.Connection.MaxReconnectAttempts > 20 {
		errs = append(errs, ValidationError{
			Field:   "connection.max_reconnect_attempts",
			Message: "must be between 1 and 20",
		})
	}
	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("must be dark, light, or auto, got %q", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
