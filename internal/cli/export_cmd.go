// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"

	"github.com/jeranaias/deskchat-tui/internal/export"
)

// HandleExport handles the "export" command: write conversation n from
// the local store as Markdown or JSON.
func HandleExport(args Args) error {
	parser := NewArgParser(args.Raw)

	index := parser.Positional(0)
	if index == "" {
		return &UsageError{Message: "usage: deskchat export <n> [--format md|json] [--output DIR]"}
	}
	n, err := strconv.Atoi(index)
	if err != nil || n < 1 {
		return &UsageError{Message: fmt.Sprintf("invalid conversation number %q", index)}
	}

	sessions, err := loadLocalSessions(args)
	if err != nil {
		return err
	}
	if n > len(sessions) {
		return &NotFoundError{Resource: "conversation", ID: index}
	}
	sess := sessions[n-1]

	opts := export.DefaultOptions()
	if dir := parser.Flag("output"); dir != "" {
		opts.OutputDir = dir
	}

	var exporter export.Exporter
	switch parser.FlagOrDefault("format", "md") {
	case "md", "markdown":
		exporter = export.NewMarkdownExporter(opts)
	case "json":
		exporter = export.NewJSONExporter(opts)
	default:
		return &UsageError{Message: fmt.Sprintf("unknown format %q (use md or json)", parser.Flag("format"))}
	}

	path, err := export.ExportToFile(sess, exporter, opts)
	if err != nil {
		return fmt.Errorf("export conversation: %w", err)
	}

	if args.JSON {
		return NewJSONResponse("export", map[string]string{"path": path}).Print()
	}
	if !args.Quiet {
		fmt.Printf("Exported %q to %s\n", sess.Title, path)
	}
	return nil
}
