// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package state

import (
	"github.com/jeranaias/deskchat-tui/internal/model"
)

// =============================================================================
// ACTION UNION
// =============================================================================

// Action is one state transition request. The concrete types below form
// a closed union; Apply ignores anything else.
type Action interface {
	isAction()
}

// SetConnectionStatus replaces the transport status.
type SetConnectionStatus struct {
	Status model.ConnectionStatus
}

// SetActiveSession repoints the active session. The id is not validated
// against existence by this action alone.
type SetActiveSession struct {
	SessionID string
}

// CreateSession prepends a new session and makes it active.
type CreateSession struct {
	Session *model.Session
}

// DeleteSession removes a session. If it was active, the first remaining
// session becomes active (or none).
type DeleteSession struct {
	SessionID string
}

// AddMessage appends a message to a session, refreshing updatedAt and
// deriving the title from the first user message.
type AddMessage struct {
	SessionID string
	Message   *model.Message
}

// UpdateMessage merges patch fields into an existing message.
type UpdateMessage struct {
	SessionID string
	MessageID string
	Patch     MessagePatch
}

// AppendToken concatenates a streamed token onto an in-flight message.
// This is the one durable-looking mutation that is deliberately not
// persisted: writing the full session list per token would amplify every
// streamed character into a store write.
type AppendToken struct {
	SessionID string
	MessageID string
	Token     string
}

// SetThinking replaces the global thinking flag.
type SetThinking struct {
	Thinking bool
}

// SetError replaces the global error banner text ("" clears it).
type SetError struct {
	Message string
}

// ClearSession empties a session's messages.
type ClearSession struct {
	SessionID string
}

// DeleteMessage removes a message from a session if present.
type DeleteMessage struct {
	SessionID string
	MessageID string
}

// LoadSessions replaces the entire session collection (startup restore
// or backend hydration).
type LoadSessions struct {
	Sessions []*model.Session
}

func (SetConnectionStatus) isAction() {}
func (SetActiveSession) isAction()    {}
func (CreateSession) isAction()       {}
func (DeleteSession) isAction()       {}
func (AddMessage) isAction()          {}
func (UpdateMessage) isAction()       {}
func (AppendToken) isAction()         {}
func (SetThinking) isAction()         {}
func (SetError) isAction()            {}
func (ClearSession) isAction()        {}
func (DeleteMessage) isAction()       {}
func (LoadSessions) isAction()        {}

// =============================================================================
// MESSAGE PATCH
// =============================================================================

// MessagePatch carries the optional fields UpdateMessage may merge into
// a message. Nil pointers leave the corresponding field untouched.
type MessagePatch struct {
	Content         *string
	IsStreaming     *bool
	Citations       []model.Citation
	ConfidenceScore *float64
	Error           *string
	PendingAction   *model.PendingAction
}

// apply merges the patch into msg.
func (p MessagePatch) apply(msg *model.Message) {
	if p.Content != nil {
		msg.Content = *p.Content
	}
	if p.IsStreaming != nil {
		msg.IsStreaming = *p.IsStreaming
	}
	if p.Citations != nil {
		msg.Citations = p.Citations
	}
	if p.ConfidenceScore != nil {
		msg.ConfidenceScore = *p.ConfidenceScore
	}
	if p.Error != nil {
		msg.Error = *p.Error
	}
	if p.PendingAction != nil {
		msg.PendingAction = p.PendingAction
	}
}

// Helper constructors for pointer fields.

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }

// FloatPtr returns a pointer to f.
func FloatPtr(f float64) *float64 { return &f }
