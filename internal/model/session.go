// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// TitleMaxLen is the maximum length of an auto-derived session title.
const TitleMaxLen = 50

// DefaultTitle is used until the first user message arrives.
const DefaultTitle = "New Conversation"

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session holds one conversation with the assistant.
type Session struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Messages  []*Message `json:"messages"`
}

// NewSession creates an empty session with a generated ID.
func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Title:     DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]*Message, 0),
	}
}

// =============================================================================
// MESSAGE ACCESS
// =============================================================================

// MessageByID returns the message with the given id, or nil.
func (s *Session) MessageByID(id string) *Message {
	for _, msg := range s.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// LastMessage returns the most recent message, or nil if empty.
func (s *Session) LastMessage() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// StreamingMessage returns the in-flight streaming message, or nil.
// At most one message per session streams at a time.
func (s *Session) StreamingMessage() *Message {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].IsStreaming {
			return s.Messages[i]
		}
	}
	return nil
}

// MessageCount returns the number of messages.
func (s *Session) MessageCount() int {
	return len(s.Messages)
}

// IsEmpty returns true if the session has no messages.
func (s *Session) IsEmpty() bool {
	return len(s.Messages) == 0
}

// =============================================================================
// TITLE DERIVATION
// =============================================================================

// DeriveTitle builds a session title from the first user message:
// the first 50 characters of the content, with an ellipsis appended
// when the content is longer.
func DeriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= TitleMaxLen {
		return content
	}
	return string(runes[:TitleMaxLen]) + "..."
}

// HasDerivedTitle reports whether the session title has already been
// set from a user message (anything other than the default).
func (s *Session) HasDerivedTitle() bool {
	return s.Title != "" && s.Title != DefaultTitle
}

// =============================================================================
// CLONING
// =============================================================================

// Clone returns a deep copy of the session. The reducer copies a session
// before mutating it so previous states stay observable unchanged.
func (s *Session) Clone() *Session {
	cp := &Session{
		ID:        s.ID,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		Messages:  make([]*Message, len(s.Messages)),
	}
	for i, msg := range s.Messages {
		cp.Messages[i] = msg.Clone()
	}
	return cp
}
