// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/deskchat-tui/internal/ui/styles"
	"github.com/jeranaias/deskchat-tui/internal/util"
)

// =============================================================================
// THINKING INDICATOR
// =============================================================================

// ThinkingIndicator animates while the assistant is composing a reply.
// It tracks elapsed time so slow responses are visible to the user.
type ThinkingIndicator struct {
	spinner   spinner.Model
	startTime time.Time
	active    bool
}

// NewThinkingIndicator creates the indicator with an ASCII-safe frame set.
func NewThinkingIndicator() ThinkingIndicator {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	return ThinkingIndicator{spinner: s}
}

// Start begins the animation and records the start time.
func (t *ThinkingIndicator) Start() tea.Cmd {
	t.active = true
	t.startTime = time.Now()
	return t.spinner.Tick
}

// Stop ends the animation.
func (t *ThinkingIndicator) Stop() {
	t.active = false
}

// IsActive reports whether the indicator is running.
func (t *ThinkingIndicator) IsActive() bool {
	return t.active
}

// Elapsed returns the duration since Start.
func (t *ThinkingIndicator) Elapsed() time.Duration {
	if t.startTime.IsZero() {
		return 0
	}
	return time.Since(t.startTime)
}

// Update advances the animation.
func (t ThinkingIndicator) Update(msg tea.Msg) (ThinkingIndicator, tea.Cmd) {
	if !t.active {
		return t, nil
	}
	var cmd tea.Cmd
	t.spinner, cmd = t.spinner.Update(msg)
	return t, cmd
}

// View renders the indicator, or an empty string when idle.
func (t ThinkingIndicator) View() string {
	if !t.active {
		return ""
	}

	frame := lipgloss.NewStyle().
		Foreground(styles.Purple).
		Render(t.spinner.View())
	label := lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Italic(true).
		Render("Thinking...")

	result := frame + " " + label
	if elapsed := t.Elapsed(); elapsed >= 3*time.Second {
		timer := lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Render(" (" + formatElapsed(elapsed) + ")")
		result += timer
	}
	return result
}

// formatElapsed formats a duration as "42s" or "1m 05s".
func formatElapsed(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 60 {
		return util.IntToString(seconds) + "s"
	}
	minutes := seconds / 60
	secs := seconds % 60
	padded := util.IntToString(secs)
	if secs < 10 {
		padded = "0" + padded
	}
	return util.IntToString(minutes) + "m " + padded + "s"
}
