// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"log"
	"strings"
	"time"

	"github.com/jeranaias/deskchat-tui/internal/model"
	"github.com/jeranaias/deskchat-tui/internal/state"
)

// GenericStreamError is shown when the backend reports an error chunk
// without any message text.
const GenericStreamError = "Sorry, an error occurred while processing your request."

// DefaultConfirmationTimeout bounds how long a staged action stays
// confirmable before the client marks it expired locally.
const DefaultConfirmationTimeout = 5 * time.Minute

// =============================================================================
// ASSEMBLER
// =============================================================================

// Assembler materializes streaming assistant responses. For each chunk
// it returns the reducer actions to dispatch, in order. It is stateful
// only in its per-session pending-message tracking.
type Assembler struct {
	// pending maps a session id to the message id currently streaming
	// into it. One in-flight response per session.
	pending map[string]string

	confirmationTimeout time.Duration
}

// NewAssembler creates an assembler with the default confirmation
// timeout for staged actions.
func NewAssembler() *Assembler {
	return &Assembler{
		pending:             make(map[string]string),
		confirmationTimeout: DefaultConfirmationTimeout,
	}
}

// WithConfirmationTimeout overrides the staged-action expiry window.
func (a *Assembler) WithConfirmationTimeout(d time.Duration) *Assembler {
	if d > 0 {
		a.confirmationTimeout = d
	}
	return a
}

// PendingMessageID returns the id of the in-flight message for a
// session, or "".
func (a *Assembler) PendingMessageID(sessionID string) string {
	return a.pending[sessionID]
}

// Reset drops all pending tracking. Called when the transport drops:
// no fragment delivery is guaranteed across a disconnect boundary.
func (a *Assembler) Reset() {
	a.pending = make(map[string]string)
}

// Handle translates one inbound chunk into reducer actions. The current
// state is consulted read-only (chunk routing and completion content).
func (a *Assembler) Handle(st state.State, chunk model.Chunk) []state.Action {
	sessionID := chunk.SessionID
	if sessionID == "" {
		sessionID = st.ActiveSessionID
	}
	if sessionID == "" {
		return nil
	}

	switch chunk.Type {
	case model.ChunkConnected:
		// Subscription acknowledgment carries no message payload.
		return nil

	case model.ChunkThinking:
		return a.handleThinking(st, sessionID, chunk)

	case model.ChunkToken:
		return a.handleToken(sessionID, chunk)

	case model.ChunkComplete:
		return a.handleComplete(st, sessionID, chunk)

	case model.ChunkError:
		return a.handleError(sessionID, chunk)

	default:
		log.Printf("stream: unknown chunk type %q for message %s", chunk.Type, chunk.MessageID)
		return nil
	}
}

// =============================================================================
// CHUNK HANDLERS
// =============================================================================

func (a *Assembler) handleThinking(st state.State, sessionID string, chunk model.Chunk) []state.Action {
	if pendingID, ok := a.pending[sessionID]; ok {
		if sess := st.SessionByID(sessionID); sess != nil {
			if msg := sess.MessageByID(pendingID); msg != nil && msg.IsStreaming {
				// Protocol violation: a second response started before the
				// first completed. Keep the existing stream so its
				// COMPLETE/ERROR still has a target.
				log.Printf("stream: duplicate THINKING for session %s (pending %s, got %s), ignoring",
					sessionID, pendingID, chunk.MessageID)
				return nil
			}
		}
	}

	a.pending[sessionID] = chunk.MessageID
	return []state.Action{
		state.SetThinking{Thinking: true},
		state.AddMessage{SessionID: sessionID, Message: model.NewStreamingMessage(chunk.MessageID)},
	}
}

func (a *Assembler) handleToken(sessionID string, chunk model.Chunk) []state.Action {
	actions := []state.Action{state.SetThinking{Thinking: false}}

	pendingID, ok := a.pending[sessionID]
	if !ok || chunk.Token == "" {
		return actions
	}
	return append(actions, state.AppendToken{
		SessionID: sessionID,
		MessageID: pendingID,
		Token:     chunk.Token,
	})
}

func (a *Assembler) handleComplete(st state.State, sessionID string, chunk model.Chunk) []state.Action {
	actions := []state.Action{state.SetThinking{Thinking: false}}

	pendingID, ok := a.pending[sessionID]
	if !ok {
		return actions
	}
	delete(a.pending, sessionID)

	patch := state.MessagePatch{
		IsStreaming:     state.BoolPtr(false),
		Citations:       chunk.Citations,
		ConfidenceScore: state.FloatPtr(chunk.ConfidenceScore),
	}

	if action := a.detectPendingAction(st, sessionID, pendingID); action != nil {
		patch.PendingAction = action
	}

	return append(actions, state.UpdateMessage{
		SessionID: sessionID,
		MessageID: pendingID,
		Patch:     patch,
	})
}

func (a *Assembler) handleError(sessionID string, chunk model.Chunk) []state.Action {
	errText := chunk.Error
	if errText == "" {
		errText = GenericStreamError
	}

	actions := []state.Action{
		state.SetThinking{Thinking: false},
		// Streaming failures also surface on the global banner.
		state.SetError{Message: errText},
	}

	pendingID, ok := a.pending[sessionID]
	if !ok {
		return actions
	}
	delete(a.pending, sessionID)

	return append(actions, state.UpdateMessage{
		SessionID: sessionID,
		MessageID: pendingID,
		Patch: state.MessagePatch{
			IsStreaming: state.BoolPtr(false),
			Error:       state.StringPtr(errText),
			Content:     state.StringPtr(errText),
		},
	})
}

// detectPendingAction inspects the completed message content for a
// staged-action confirmation prompt and builds the PendingAction to
// attach. Returns nil when the content is not a prompt.
func (a *Assembler) detectPendingAction(st state.State, sessionID, messageID string) *model.PendingAction {
	sess := st.SessionByID(sessionID)
	if sess == nil {
		return nil
	}
	msg := sess.MessageByID(messageID)
	if msg == nil || !model.IsConfirmationPrompt(msg.Content) {
		return nil
	}
	actionID := model.ParseActionID(msg.Content)
	if actionID == "" {
		return nil
	}

	actionType := model.ActionIncidentCreate
	if strings.Contains(strings.ToLower(msg.Content), "work order") {
		actionType = model.ActionWorkOrderCreate
	}

	return &model.PendingAction{
		ActionID:   actionID,
		ActionType: actionType,
		Preview:    msg.Content,
		Status:     model.ActionPending,
		ExpiresAt:  time.Now().Add(a.confirmationTimeout),
	}
}
