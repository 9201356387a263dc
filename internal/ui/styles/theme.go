// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// THEME
// =============================================================================

// Theme bundles the pre-built styles used across the UI.
type Theme struct {
	Header    lipgloss.Style
	StatusBar lipgloss.Style
	HelpBar   lipgloss.Style

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	SystemBubble    lipgloss.Style

	RoleUser      lipgloss.Style
	RoleAssistant lipgloss.Style
	RoleSystem    lipgloss.Style

	Timestamp  lipgloss.Style
	Citation   lipgloss.Style
	Confidence lipgloss.Style

	PendingAction lipgloss.Style
	ErrorBanner   lipgloss.Style
	Thinking      lipgloss.Style

	StatusConnected    lipgloss.Style
	StatusConnecting   lipgloss.Style
	StatusDisconnected lipgloss.Style
}

// NewTheme builds the theme. name is "dark", "light", or "auto";
// anything but an explicit "light"/"dark" follows the terminal.
func NewTheme(name string) *Theme {
	switch strings.ToLower(name) {
	case "light":
		lipgloss.SetHasDarkBackground(false)
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	default:
		lipgloss.SetHasDarkBackground(termenv.HasDarkBackground())
	}

	bubble := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder(), false, false, false, true).
		PaddingLeft(1)

	return &Theme{
		Header: lipgloss.NewStyle().
			Foreground(Cyan).
			Background(SurfaceDim).
			Bold(true).
			Padding(0, 1),

		StatusBar: lipgloss.NewStyle().
			Foreground(TextSecondary).
			Background(SurfaceDim).
			Padding(0, 1),

		HelpBar: lipgloss.NewStyle().
			Foreground(TextMuted).
			Padding(0, 1),

		UserBubble:      bubble.BorderForeground(UserBubbleBorder).Foreground(UserBubbleFg),
		AssistantBubble: bubble.BorderForeground(AssistantBubbleBorder).Foreground(AssistantBubbleFg),
		SystemBubble:    bubble.BorderForeground(SystemBubbleBorder).Foreground(SystemBubbleFg),

		RoleUser:      lipgloss.NewStyle().Foreground(Cyan).Bold(true),
		RoleAssistant: lipgloss.NewStyle().Foreground(Purple).Bold(true),
		RoleSystem:    lipgloss.NewStyle().Foreground(Amber).Bold(true),

		Timestamp:  lipgloss.NewStyle().Foreground(TextMuted),
		Citation:   lipgloss.NewStyle().Foreground(TextSecondary),
		Confidence: lipgloss.NewStyle().Foreground(TextMuted).Italic(true),

		PendingAction: lipgloss.NewStyle().
			Foreground(Amber).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Amber).
			Padding(0, 1),

		ErrorBanner: lipgloss.NewStyle().
			Foreground(Rose).
			Bold(true).
			Padding(0, 1),

		Thinking: lipgloss.NewStyle().Foreground(TextMuted).Italic(true),

		StatusConnected:    lipgloss.NewStyle().Foreground(Emerald).Bold(true),
		StatusConnecting:   lipgloss.NewStyle().Foreground(Amber).Bold(true),
		StatusDisconnected: lipgloss.NewStyle().Foreground(Rose).Bold(true),
	}
}
