// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// CITATION TYPE
// =============================================================================

// Citation is a provenance pointer into the ITSM knowledge base,
// attached to an assistant message when its response completes.
type Citation struct {
	SourceType string  `json:"sourceType"`
	SourceID   string  `json:"sourceId"`
	Title      string  `json:"title"`
	Score      float64 `json:"score,omitempty"`
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a session.
//
// While IsStreaming is true the content grows in place as tokens arrive;
// once the stream completes or errors the message is immutable history.
// IsStreaming itself is never persisted.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Streaming state (not persisted)
	IsStreaming bool `json:"-"`

	// Set on completion of an assistant response.
	Citations       []Citation `json:"citations,omitempty"`
	ConfidenceScore float64    `json:"confidenceScore,omitempty"`

	// Set when the backend reports a streaming failure for this message.
	Error string `json:"error,omitempty"`

	// Set when the message carries a staged ticketing action awaiting
	// user confirmation.
	PendingAction *PendingAction `json:"pendingAction,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewStreamingMessage creates an empty assistant message with the given
// id that will accumulate tokens as they arrive.
func NewStreamingMessage(id string) *Message {
	return &Message{
		ID:          id,
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) *Message {
	return NewMessage(RoleSystem, content)
}

// Preview returns a truncated preview of the content. Limits too small
// to hold an ellipsis fall back to a hard cut.
func (m *Message) Preview(maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(m.Content)
	if len(runes) <= maxLen {
		return m.Content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	cp := *m
	if m.Citations != nil {
		cp.Citations = make([]Citation, len(m.Citations))
		copy(cp.Citations, m.Citations)
	}
	if m.PendingAction != nil {
		pa := *m.PendingAction
		cp.PendingAction = &pa
	}
	return &cp
}
