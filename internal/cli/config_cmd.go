// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/deskchat-tui/internal/config"
)

// HandleConfig handles the "config" command.
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return configShow(args)
	case "path":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	case "init":
		return configInit(args)
	default:
		return &UsageError{Message: fmt.Sprintf("unknown config subcommand %q (use show, path, or init)", args.Subcommand)}
	}
}

func configShow(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if args.JSON {
		shown := *cfg
		// Never print credentials, even locally.
		shown.Server.AuthToken = redact(shown.Server.AuthToken)
		return NewJSONResponse("config", shown).Print()
	}

	fmt.Printf("Server:\n")
	fmt.Printf("  base_url:      %s\n", cfg.Server.BaseURL)
	fmt.Printf("  websocket_url: %s\n", cfg.Server.WebSocketURL)
	fmt.Printf("  auth_token:    %s\n", redact(cfg.Server.AuthToken))
	fmt.Printf("User:\n")
	fmt.Printf("  id:     %s\n", cfg.User.ID)
	fmt.Printf("  groups: %v\n", cfg.User.Groups)
	fmt.Printf("Connection:\n")
	fmt.Printf("  reconnect_base_delay_secs: %d\n", cfg.Connection.ReconnectBaseDelaySecs)
	fmt.Printf("  max_reconnect_attempts:    %d\n", cfg.Connection.MaxReconnectAttempts)
	fmt.Printf("Storage:\n")
	fmt.Printf("  database_path: %s\n", cfg.Storage.DatabasePath)
	fmt.Printf("UI:\n")
	fmt.Printf("  theme:           %s\n", cfg.UI.Theme)
	fmt.Printf("  show_timestamps: %v\n", cfg.UI.ShowTimestamps)
	return nil
}

func configInit(args Args) error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if args.Config != "" {
		path = args.Config
	}

	if _, err := os.Stat(path); err == nil {
		return &UsageError{Message: fmt.Sprintf("config file already exists at %s", path)}
	}

	cfg := config.Default()
	if err := config.SaveTOML(cfg, path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if !args.Quiet {
		fmt.Printf("Wrote default config to %s\n", path)
	}
	return nil
}

func redact(token string) string {
	if token == "" {
		return "(unset)"
	}
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
