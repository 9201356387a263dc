// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/deskchat-tui/internal/export"
	"github.com/jeranaias/deskchat-tui/internal/model"
	"github.com/jeranaias/deskchat-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE RENDERER
// =============================================================================

// MessageRenderer renders messages into styled terminal blocks.
// Assistant content is rendered as Markdown via glamour; user and
// system content is shown verbatim.
type MessageRenderer struct {
	theme    *styles.Theme
	width    int
	markdown *glamour.TermRenderer

	// ShowTimestamps toggles the per-message time column.
	ShowTimestamps bool
}

// NewMessageRenderer creates a renderer for the given width.
func NewMessageRenderer(theme *styles.Theme, width int) *MessageRenderer {
	r := &MessageRenderer{
		theme:          theme,
		width:          width,
		ShowTimestamps: true,
	}
	r.SetWidth(width)
	return r
}

// SetWidth resizes the renderer; the Markdown word wrap follows.
func (r *MessageRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	r.width = width

	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	if err == nil {
		r.markdown = md
	}
}

// Render renders one message.
func (r *MessageRenderer) Render(msg *model.Message) string {
	var sb strings.Builder

	sb.WriteString(r.header(msg))
	sb.WriteString("\n")
	sb.WriteString(r.body(msg))

	if len(msg.Citations) > 0 {
		sb.WriteString("\n" + r.citations(msg.Citations))
	}
	if msg.Role == model.RoleAssistant && !msg.IsStreaming && msg.ConfidenceScore > 0 {
		sb.WriteString("\n" + r.theme.Confidence.Render(
			"Confidence: "+export.FormatConfidence(msg.ConfidenceScore)))
	}
	if msg.PendingAction != nil && msg.PendingAction.Status == model.ActionPending {
		sb.WriteString("\n" + r.pendingAction(msg.PendingAction))
	}

	return r.bubble(msg.Role).Width(r.width).Render(sb.String())
}

func (r *MessageRenderer) header(msg *model.Message) string {
	role := r.roleStyle(msg.Role).Render(msg.Role.DisplayName())
	if !r.ShowTimestamps {
		return role
	}
	ts := r.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))
	return role + " " + ts
}

func (r *MessageRenderer) body(msg *model.Message) string {
	if msg.Error != "" {
		return r.theme.ErrorBanner.Render(styles.StatusIndicators.Error + " " + msg.Error)
	}

	content := msg.Content
	if msg.IsStreaming {
		// Block cursor marks the live stream position.
		return content + "█"
	}
	if msg.Role == model.RoleAssistant && r.markdown != nil {
		if rendered, err := r.markdown.Render(content); err == nil {
			return strings.TrimRight(rendered, "\n")
		}
	}
	return content
}

func (r *MessageRenderer) citations(citations []model.Citation) string {
	var sb strings.Builder
	sb.WriteString(r.theme.Citation.Render("Sources:"))
	for i, c := range citations {
		title := c.Title
		if title == "" {
			title = "N/A"
		}
		line := fmt.Sprintf("  %d. [%s] %s - %s", i+1, c.SourceType, c.SourceID, title)
		sb.WriteString("\n" + r.theme.Citation.Render(line))
	}
	return sb.String()
}

func (r *MessageRenderer) pendingAction(action *model.PendingAction) string {
	label := "incident"
	if action.ActionType == model.ActionWorkOrderCreate {
		label = "work order"
	}
	remaining := time.Until(action.ExpiresAt).Round(time.Second)
	text := fmt.Sprintf("Staged %s %s - press y to confirm, n to cancel", label, action.ActionID)
	if remaining > 0 {
		text += fmt.Sprintf(" (expires in %s)", remaining)
	}
	return r.theme.PendingAction.Render(text)
}

func (r *MessageRenderer) roleStyle(role model.Role) lipgloss.Style {
	switch role {
	case model.RoleUser:
		return r.theme.RoleUser
	case model.RoleSystem:
		return r.theme.RoleSystem
	default:
		return r.theme.RoleAssistant
	}
}

func (r *MessageRenderer) bubble(role model.Role) lipgloss.Style {
	switch role {
	case model.RoleUser:
		return r.theme.UserBubble
	case model.RoleSystem:
		return r.theme.SystemBubble
	default:
		return r.theme.AssistantBubble
	}
}
