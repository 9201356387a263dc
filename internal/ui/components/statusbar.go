// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/deskchat-tui/internal/model"
	"github.com/jeranaias/deskchat-tui/internal/ui/styles"
	"github.com/jeranaias/deskchat-tui/internal/util"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// StatusBar renders the bottom bar: connection state, active session,
// message count, and keyboard hints.
type StatusBar struct {
	Connection    model.ConnectionStatus
	SessionTitle  string
	SessionCount  int
	MessageCount  int
	PendingAction bool
	Width         int
	ShowShortcuts bool

	theme *styles.Theme
}

// NewStatusBar creates a status bar with sane defaults.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		Connection:    model.StatusDisconnected,
		Width:         80,
		ShowShortcuts: true,
		theme:         theme,
	}
}

// SetWidth updates the status bar width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// SetConnection updates the connection indicator.
func (s *StatusBar) SetConnection(status model.ConnectionStatus) {
	s.Connection = status
}

// SetSession updates the active session display.
func (s *StatusBar) SetSession(title string, messages int) {
	s.SessionTitle = title
	s.MessageCount = messages
}

// View renders the status bar.
func (s *StatusBar) View() string {
	if s.Width < 50 {
		return s.viewNarrow()
	}
	return s.viewWide()
}

// viewNarrow renders just the connection indicator and session title.
func (s *StatusBar) viewNarrow() string {
	result := s.connectionBadge() + " " + s.sessionLabel()
	return s.theme.StatusBar.Width(s.Width).Render(result)
}

// viewWide renders connection, session, message count, and shortcuts.
func (s *StatusBar) viewWide() string {
	separator := lipgloss.NewStyle().Foreground(styles.Overlay).Render(" | ")

	left := []string{s.connectionBadge(), s.sessionLabel()}
	if s.MessageCount > 0 {
		count := lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Render(formatMessageCount(s.MessageCount))
		left = append(left, count)
	}
	if s.PendingAction {
		left = append(left, lipgloss.NewStyle().
			Foreground(styles.Amber).
			Bold(true).
			Render(styles.StatusIndicators.Warning+" action pending"))
	}
	leftSection := strings.Join(left, separator)

	rightSection := ""
	if s.ShowShortcuts {
		rightSection = s.renderShortcuts()
	}

	spacing := s.Width - lipgloss.Width(leftSection) - lipgloss.Width(rightSection) - 2
	if spacing < 1 {
		spacing = 1
	}

	result := leftSection + strings.Repeat(" ", spacing) + rightSection
	return s.theme.StatusBar.Width(s.Width).Render(result)
}

// connectionBadge renders the connection state with shape indicator.
func (s *StatusBar) connectionBadge() string {
	switch s.Connection {
	case model.StatusConnected:
		return s.theme.StatusConnected.Render(styles.StatusIndicators.Success + " connected")
	case model.StatusConnecting:
		return s.theme.StatusConnecting.Render(styles.StatusIndicators.Pending + " connecting")
	case model.StatusError:
		return s.theme.StatusDisconnected.Render(styles.StatusIndicators.Error + " error")
	default:
		return s.theme.StatusDisconnected.Render(styles.StatusIndicators.Error + " offline")
	}
}

func (s *StatusBar) sessionLabel() string {
	title := s.SessionTitle
	if title == "" {
		title = model.DefaultTitle
	}
	title = util.Truncate(title, 30)
	return lipgloss.NewStyle().Foreground(styles.TextSecondary).Render(title)
}

func (s *StatusBar) renderShortcuts() string {
	keyStyle := lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(styles.TextMuted)

	shortcuts := []string{
		keyStyle.Render("^N") + descStyle.Render("new"),
		keyStyle.Render("^E") + descStyle.Render("export"),
		keyStyle.Render("^R") + descStyle.Render("reconnect"),
		keyStyle.Render("^C") + descStyle.Render("quit"),
	}
	return strings.Join(shortcuts, " ")
}

func formatMessageCount(n int) string {
	if n == 1 {
		return "1 message"
	}
	return util.IntToString(n) + " messages"
}
