// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdSessions
	CmdExport
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool
	Config  string // Alternate config file path

	// Command-specific
	Subcommand string
	Raw        []string
}

const usageText = `deskchat - terminal client for the IT service desk assistant

Deskchat talks to the service desk assistant backend: streaming chat
with citations, staged incident/work-order confirmation, and local
conversation history.

Usage:
  deskchat                     Start the chat TUI (default)
  deskchat sessions [list]     List conversations from local history
  deskchat sessions delete <n> Delete conversation n (local and backend)
  deskchat export <n>          Export conversation n from local history
    --format md|json           Export format (default: md)
    --output DIR               Output directory (default: current)
  deskchat config [show|path|init]  Configuration management
  deskchat version             Show version information
  deskchat help                Show this help

Global Flags:
  --config PATH   Use an alternate config file
  --json          Machine-readable output where supported
  -q, --quiet     Minimal output
  -v, --verbose   Debug output

Examples:
  deskchat                            Start the TUI
  deskchat sessions --json            List conversations as JSON
  deskchat export 1 --format json     Export newest conversation as JSON
  deskchat config init                Write a default config file
  DESKCHAT_SERVER_URL=... deskchat    Override the backend for one run

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("deskchat version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
	fmt.Printf("  Go version: %s\n", runtime.Version())
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	return parseArgs(os.Args[1:])
}

func parseArgs(argv []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsed.Raw = remaining
	if len(remaining) > 0 && !strings.HasPrefix(remaining[0], "-") {
		parsed.Subcommand = remaining[0]
	}

	switch cmd {
	case "tui", "chat":
		return CmdTUI, parsed

	case "session", "sessions", "list", "ls":
		return CmdSessions, parsed

	case "export", "e":
		return CmdExport, parsed

	case "config", "cfg":
		return CmdConfig, parsed

	case "version", "-v", "--version":
		return CmdVersion, parsed

	case "help", "-h", "--help":
		return CmdHelp, parsed

	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", cmd)
		return CmdHelp, parsed
	}
}

// parseGlobalFlags extracts global flags and returns the remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsed Args

	i := 0
	for i < len(args) {
		arg := args[i]

		switch {
		case arg == "-q" || arg == "--quiet":
			parsed.Quiet = true
		case arg == "-v" || arg == "--verbose":
			parsed.Verbose = true
		case arg == "--json":
			parsed.JSON = true
		case arg == "--config":
			if i+1 < len(args) {
				i++
				parsed.Config = args[i]
			}
		case strings.HasPrefix(arg, "--config="):
			parsed.Config = strings.TrimPrefix(arg, "--config=")
		default:
			remaining = append(remaining, arg)
		}
		i++
	}

	return remaining, parsed
}

// HandleVersion handles the "version" command.
func HandleVersion(args Args) {
	if args.JSON {
		resp := NewJSONResponse("version", map[string]string{
			"version":   Version,
			"gitCommit": GitCommit,
			"buildDate": BuildDate,
			"goVersion": runtime.Version(),
		})
		resp.Print()
		return
	}
	PrintVersion()
}

// HandleHelp handles the "help" command.
func HandleHelp() {
	PrintUsage()
}
