// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
version = "1.0.0"

[server]
base_url = "https://itsm.example.com"
websocket_url = "wss://itsm.example.com/ws/chat"
auth_token = "tok"

[user]
id = "jdoe"
groups = ["it-support", "employees"]

[connection]
max_reconnect_attempts = 7

[ui]
theme = "light"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Server.BaseURL != "https://itsm.example.com" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.User.ID != "jdoe" || len(cfg.User.Groups) != 2 {
		t.Errorf("user = %+v", cfg.User)
	}
	if cfg.Connection.MaxReconnectAttempts != 7 {
		t.Errorf("MaxReconnectAttempts = %d", cfg.Connection.MaxReconnectAttempts)
	}
	// Unset fields keep defaults.
	if cfg.Connection.ReconnectBaseDelaySecs != 3 {
		t.Errorf("ReconnectBaseDelaySecs = %d, want default 3", cfg.Connection.ReconnectBaseDelaySecs)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %q", cfg.UI.Theme)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DESKCHAT_SERVER_URL", "https://override.example.com")
	t.Setenv("DESKCHAT_USER_ID", "env-user")
	t.Setenv("DESKCHAT_MAX_RECONNECT_ATTEMPTS", "9")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.BaseURL != "https://override.example.com" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.User.ID != "env-user" {
		t.Errorf("User.ID = %q", cfg.User.ID)
	}
	if cfg.Connection.MaxReconnectAttempts != 9 {
		t.Errorf("MaxReconnectAttempts = %d", cfg.Connection.MaxReconnectAttempts)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Server.BaseURL = "not-a-url"
	cfg.Server.WebSocketURL = "http://wrong-scheme"
	cfg.UI.Theme = "neon"
	cfg.Connection.MaxReconnectAttempts = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("want validation errors")
	}
	var errs ValidateErrors
	if !errors.As(err, &errs) || len(errs) != 4 {
		t.Errorf("got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Default()
	cfg.User.ID = "jdoe"
	cfg.Server.AuthToken = "secret"

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %o, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.User.ID != "jdoe" || loaded.Server.AuthToken != "secret" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestSaveWritesHeaderComment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "# deskchat configuration file") {
		t.Error("saved config missing header comment")
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var got *Config
	w, err := NewWatcher(path, func(cfg *Config) {
		mu.Lock()
		got = cfg
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.debounce = 50 * time.Millisecond
	defer w.Close()

	if err := w.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	updated := Default()
	updated.User.ID = "reloaded"
	if err := SaveTOML(updated, path); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := got != nil && got.User.ID == "reloaded"
		mu.Unlock()
		if done {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("config change was not picked up")
}

func TestWatcherIgnoresInvalidEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatal(err)
	}

	var calls int
	var mu sync.Mutex
	w, err := NewWatcher(path, func(cfg *Config) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}
	w.debounce = 50 * time.Millisecond
	defer w.Close()
	if err := w.Watch(); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("[server]\nbase_url = \"::bad::\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	time.Sleep(500 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if calls != 0 {
		t.Errorf("invalid config fired %d callbacks, want 0", calls)
	}
}
