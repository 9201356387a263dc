// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/deskchat-tui/internal/model"
	"github.com/jeranaias/deskchat-tui/internal/ui/styles"
	"github.com/jeranaias/deskchat-tui/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the full chat layout: header, conversation viewport,
// thinking line, input, and status bar.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}

	header := m.renderHeader()
	thinkingLine := m.renderThinkingLine()
	input := m.renderInput()
	status := m.status.View()

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		m.viewport.View(),
		thinkingLine,
		input,
		status,
	)
}

func (m Model) renderHeader() string {
	title := "deskchat"
	if sess := m.dispatcher.ActiveSession(); sess != nil && sess.Title != model.DefaultTitle {
		title += " - " + sess.Title
	}
	return m.theme.Header.Width(m.width).Render(title)
}

// renderThinkingLine shows the thinking indicator or the global error
// banner; it is one line tall either way to keep the layout stable.
func (m Model) renderThinkingLine() string {
	if errText := m.dispatcher.State().Error; errText != "" {
		return m.theme.ErrorBanner.Render(styles.StatusIndicators.Error + " " + errText)
	}
	if m.thinking.IsActive() {
		return m.thinking.View()
	}
	return ""
}

func (m Model) renderInput() string {
	return m.input.View()
}

// renderHelpOverlay renders the full keybinding reference.
func (m Model) renderHelpOverlay() string {
	keyStyle := lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(styles.TextSecondary)

	var sb strings.Builder
	sb.WriteString(m.theme.Header.Render("Keyboard reference") + "\n\n")
	for _, group := range m.keys.FullHelp() {
		for _, binding := range group {
			help := binding.Help()
			sb.WriteString("  ")
			sb.WriteString(keyStyle.Render(padKey(help.Key)))
			sb.WriteString("  ")
			sb.WriteString(descStyle.Render(help.Desc))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(descStyle.Render("Press any key to close."))

	return lipgloss.NewStyle().Padding(1, 2).Render(sb.String())
}

func padKey(k string) string {
	return util.PadRight(k, 12)
}
