// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/jeranaias/deskchat-tui/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter renders a session as a readable Markdown transcript
// with per-message role headers, source citations, and confidence.
type MarkdownExporter struct {
	opts *Options
}

// NewMarkdownExporter creates a Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{opts: opts}
}

// FileExtension returns ".md".
func (e *MarkdownExporter) FileExtension() string { return ".md" }

// MimeType returns the Markdown MIME type.
func (e *MarkdownExporter) MimeType() string { return "text/markdown" }

// Export renders the session.
func (e *MarkdownExporter) Export(sess *model.Session) ([]byte, error) {
	var sb strings.Builder

	title := sess.Title
	if title == "" {
		title = model.DefaultTitle
	}
	sb.WriteString("# " + title + "\n\n")
	sb.WriteString("*Exported on " + e.opts.now().Format("2006-01-02 15:04:05") + "*\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range sess.Messages {
		sb.WriteString(fmt.Sprintf("## %s [%s]\n\n", roleHeader(msg.Role), msg.Timestamp.Format("15:04")))
		sb.WriteString(msg.Content + "\n\n")

		if len(msg.Citations) > 0 {
			sb.WriteString("**Sources:**\n")
			for i, citation := range msg.Citations {
				title := citation.Title
				if title == "" {
					title = "N/A"
				}
				sb.WriteString(fmt.Sprintf("%d. [%s] %s - %s\n", i+1, citation.SourceType, citation.SourceID, title))
			}
			sb.WriteString("\n")
		}

		if msg.ConfidenceScore > 0 {
			sb.WriteString(fmt.Sprintf("*Confidence: %s*\n\n", FormatConfidence(msg.ConfidenceScore)))
		}

		sb.WriteString("---\n\n")
	}

	return []byte(sb.String()), nil
}

// roleHeader maps a role to its transcript heading.
func roleHeader(role model.Role) string {
	switch role {
	case model.RoleUser:
		return "User"
	case model.RoleSystem:
		return "System"
	default:
		return "Assistant"
	}
}

// FormatConfidence renders a 0..1 score as a rounded percentage, so
// 0.87 becomes "87%".
func FormatConfidence(score float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(score*100)))
}
