// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses command-line arguments and implements the
// non-interactive subcommands (sessions, export, config, version).
// The default command launches the TUI.
package cli
