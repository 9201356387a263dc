// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Truncate shortens s to at most maxLen runes, appending "..." when
// truncation happens. Rune-based so multi-byte text is never split.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// SingleLine collapses newlines in s into spaces.
func SingleLine(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", " ")
}

// PadRight pads s with spaces to the given display width.
// Uses runewidth so CJK and other wide characters line up in tables.
func PadRight(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// IntToString converts an int to string.
func IntToString(i int) string {
	return strconv.Itoa(i)
}

// FloatToStringPrec converts a float64 to string with the given
// decimal precision.
func FloatToStringPrec(f float64, prec int) string {
	return strconv.FormatFloat(f, 'f', prec, 64)
}
