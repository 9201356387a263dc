// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"regexp"
	"strings"
)

// =============================================================================
// CONFIRMATION PROMPT DETECTION
// =============================================================================

// The backend embeds staged-action confirmation prompts in plain
// assistant text. These heuristics recover the action id so the client
// can attach a PendingAction to the message.

var actionIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)` + "`confirm" + `\s+([a-zA-Z0-9-]+)` + "`"),
	regexp.MustCompile(`(?i)confirm[:\s]+([a-zA-Z0-9-]+)`),
	regexp.MustCompile(`(?i)action[_\s]?id[:\s]+([a-zA-Z0-9-]+)`),
}

var confirmationIndicators = []string{
	"confirm",
	"reply with",
	"to proceed",
	"confirmation required",
	"staged for creation",
	"before it's created",
}

// ParseActionID extracts a staged action id from assistant text.
// Returns "" when no recognizable pattern is present.
func ParseActionID(text string) string {
	for _, re := range actionIDPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

// IsConfirmationPrompt reports whether assistant text looks like a
// staged-action confirmation prompt.
func IsConfirmationPrompt(content string) bool {
	lower := strings.ToLower(content)
	for _, indicator := range confirmationIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}
