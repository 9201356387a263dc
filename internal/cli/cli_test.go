// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseArgsCommands(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want Command
	}{
		{"empty defaults to TUI", nil, CmdTUI},
		{"explicit tui", []string{"tui"}, CmdTUI},
		{"chat alias", []string{"chat"}, CmdTUI},
		{"sessions", []string{"sessions"}, CmdSessions},
		{"list alias", []string{"ls"}, CmdSessions},
		{"export", []string{"export", "1"}, CmdExport},
		{"config", []string{"config", "show"}, CmdConfig},
		{"version", []string{"version"}, CmdVersion},
		{"help", []string{"--help"}, CmdHelp},
		{"unknown falls back to help", []string{"bogus"}, CmdHelp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _ := parseArgs(tt.argv)
			if cmd != tt.want {
				t.Errorf("parseArgs(%v) = %v, want %v", tt.argv, cmd, tt.want)
			}
		})
	}
}

func TestParseArgsGlobalFlags(t *testing.T) {
	cmd, args := parseArgs([]string{"--json", "-q", "--config", "/tmp/alt.toml", "sessions"})
	if cmd != CmdSessions {
		t.Fatalf("cmd = %v, want CmdSessions", cmd)
	}
	if !args.JSON {
		t.Error("JSON flag not parsed")
	}
	if !args.Quiet {
		t.Error("Quiet flag not parsed")
	}
	if args.Config != "/tmp/alt.toml" {
		t.Errorf("Config = %q, want /tmp/alt.toml", args.Config)
	}
}

func TestParseArgsConfigEquals(t *testing.T) {
	_, args := parseArgs([]string{"--config=/etc/deskchat.toml", "config"})
	if args.Config != "/etc/deskchat.toml" {
		t.Errorf("Config = %q, want /etc/deskchat.toml", args.Config)
	}
}

func TestParseArgsSubcommand(t *testing.T) {
	_, args := parseArgs([]string{"config", "init"})
	if args.Subcommand != "init" {
		t.Errorf("Subcommand = %q, want init", args.Subcommand)
	}

	_, args = parseArgs([]string{"export", "--format", "json"})
	if args.Subcommand != "" {
		t.Errorf("Subcommand = %q, want empty for flag-first args", args.Subcommand)
	}
}

func TestArgParser(t *testing.T) {
	parser := NewArgParser([]string{"2", "--format=json", "--output", "/tmp/out", "--open"})

	if got := parser.Positional(0); got != "2" {
		t.Errorf("Positional(0) = %q, want 2", got)
	}
	if got := parser.PositionalCount(); got != 1 {
		t.Errorf("PositionalCount() = %d, want 1", got)
	}
	if got := parser.Flag("format"); got != "json" {
		t.Errorf("Flag(format) = %q, want json", got)
	}
	if got := parser.Flag("output"); got != "/tmp/out" {
		t.Errorf("Flag(output) = %q, want /tmp/out", got)
	}
	if !parser.BoolFlag("open") {
		t.Error("BoolFlag(open) = false, want true")
	}
	if parser.HasFlag("missing") {
		t.Error("HasFlag(missing) = true, want false")
	}
	if got := parser.FlagOrDefault("format", "md"); got != "json" {
		t.Errorf("FlagOrDefault(format) = %q, want json", got)
	}
	if got := parser.FlagOrDefault("nope", "md"); got != "md" {
		t.Errorf("FlagOrDefault(nope) = %q, want md", got)
	}
}

func TestArgParserBoolEquals(t *testing.T) {
	parser := NewArgParser([]string{"--open=false", "--verbose=true"})
	if parser.BoolFlag("open") {
		t.Error("BoolFlag(open) = true, want false")
	}
	if !parser.BoolFlag("verbose") {
		t.Error("BoolFlag(verbose) = false, want true")
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage error", &UsageError{Message: "bad args"}, ExitUsageError},
		{"not found", &NotFoundError{Resource: "conversation", ID: "9"}, ExitNotFoundError},
		{"wrapped usage error", fmt.Errorf("outer: %w", &UsageError{Message: "inner"}), ExitUsageError},
		{"generic", errors.New("boom"), ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestRedact(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"", "(unset)"},
		{"short", "****"},
		{"abcdefgh", "****"},
		{"abcdefghijklmnopqrstuvwxyz", "abcd...wxyz"},
	}

	for _, tt := range tests {
		if got := redact(tt.token); got != tt.want {
			t.Errorf("redact(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}
}
