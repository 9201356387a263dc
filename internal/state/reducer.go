// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package state

import (
	"time"

	"github.com/jeranaias/deskchat-tui/internal/model"
)

// =============================================================================
// APPLICATION STATE
// =============================================================================

// State is the full application state. Sessions are ordered most recent
// creation first. ActiveSessionID, when set, always references a session
// present in Sessions; DeleteSession repoints or clears it.
type State struct {
	Sessions         []*model.Session
	ActiveSessionID  string
	ConnectionStatus model.ConnectionStatus
	IsThinking       bool
	Error            string
}

// Initial returns the starting state before any sessions are loaded.
func Initial() State {
	return State{
		Sessions:         []*model.Session{},
		ConnectionStatus: model.StatusDisconnected,
	}
}

// ActiveSession returns the active session, or nil.
func (s State) ActiveSession() *model.Session {
	return s.SessionByID(s.ActiveSessionID)
}

// SessionByID returns the session with the given id, or nil.
func (s State) SessionByID(id string) *model.Session {
	if id == "" {
		return nil
	}
	for _, sess := range s.Sessions {
		if sess.ID == id {
			return sess
		}
	}
	return nil
}

// =============================================================================
// REDUCER
// =============================================================================

// Apply is the pure state transition function. It never panics; actions
// whose preconditions do not hold, and unknown action types, return the
// state unchanged. The second return value reports whether the
// transition is durable and must be mirrored to the session store.
//
// Touched sessions are copied before mutation so callers holding the
// previous State never observe changes through it.
func Apply(st State, action Action) (State, bool) {
	switch a := action.(type) {
	case SetConnectionStatus:
		st.ConnectionStatus = a.Status
		return st, false

	case SetActiveSession:
		st.ActiveSessionID = a.SessionID
		return st, false

	case CreateSession:
		if a.Session == nil {
			return st, false
		}
		sessions := make([]*model.Session, 0, len(st.Sessions)+1)
		sessions = append(sessions, a.Session)
		sessions = append(sessions, st.Sessions...)
		st.Sessions = sessions
		st.ActiveSessionID = a.Session.ID
		return st, true

	case DeleteSession:
		return applyDeleteSession(st, a)

	case AddMessage:
		return applyAddMessage(st, a)

	case UpdateMessage:
		return applyUpdateMessage(st, a)

	case AppendToken:
		return applyAppendToken(st, a)

	case SetThinking:
		st.IsThinking = a.Thinking
		return st, false

	case SetError:
		st.Error = a.Message
		return st, false

	case ClearSession:
		changed := false
		st = mapSession(st, a.SessionID, func(sess *model.Session) {
			sess.Messages = make([]*model.Message, 0)
			sess.UpdatedAt = time.Now()
			changed = true
		})
		return st, changed

	case DeleteMessage:
		return applyDeleteMessage(st, a)

	case LoadSessions:
		sessions := a.Sessions
		if sessions == nil {
			sessions = []*model.Session{}
		}
		st.Sessions = sessions
		if st.SessionByID(st.ActiveSessionID) == nil {
			st.ActiveSessionID = ""
		}
		return st, true

	default:
		// Unknown actions are deliberate no-ops.
		return st, false
	}
}

// =============================================================================
// TRANSITION HELPERS
// =============================================================================

func applyDeleteSession(st State, a DeleteSession) (State, bool) {
	idx := -1
	for i, sess := range st.Sessions {
		if sess.ID == a.SessionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return st, false
	}

	sessions := make([]*model.Session, 0, len(st.Sessions)-1)
	sessions = append(sessions, st.Sessions[:idx]...)
	sessions = append(sessions, st.Sessions[idx+1:]...)
	st.Sessions = sessions

	// Never leave ActiveSessionID dangling.
	if st.ActiveSessionID == a.SessionID {
		if len(sessions) > 0 {
			st.ActiveSessionID = sessions[0].ID
		} else {
			st.ActiveSessionID = ""
		}
	}
	return st, true
}

func applyAddMessage(st State, a AddMessage) (State, bool) {
	if a.Message == nil {
		return st, false
	}
	changed := false
	st = mapSession(st, a.SessionID, func(sess *model.Session) {
		firstMessage := len(sess.Messages) == 0
		sess.Messages = append(sess.Messages, a.Message)
		sess.UpdatedAt = time.Now()
		// Title comes from the first user message and is set once.
		if firstMessage && a.Message.Role == model.RoleUser && !sess.HasDerivedTitle() {
			sess.Title = model.DeriveTitle(a.Message.Content)
		}
		changed = true
	})
	return st, changed
}

func applyUpdateMessage(st State, a UpdateMessage) (State, bool) {
	changed := false
	st = mapSession(st, a.SessionID, func(sess *model.Session) {
		msg := sess.MessageByID(a.MessageID)
		if msg == nil {
			return
		}
		a.Patch.apply(msg)
		sess.UpdatedAt = time.Now()
		changed = true
	})
	return st, changed
}

func applyAppendToken(st State, a AppendToken) (State, bool) {
	st = mapSession(st, a.SessionID, func(sess *model.Session) {
		msg := sess.MessageByID(a.MessageID)
		// Content only grows while the message is streaming.
		if msg == nil || !msg.IsStreaming {
			return
		}
		msg.Content += a.Token
	})
	return st, false
}

func applyDeleteMessage(st State, a DeleteMessage) (State, bool) {
	changed := false
	st = mapSession(st, a.SessionID, func(sess *model.Session) {
		for i, msg := range sess.Messages {
			if msg.ID == a.MessageID {
				sess.Messages = append(sess.Messages[:i], sess.Messages[i+1:]...)
				sess.UpdatedAt = time.Now()
				changed = true
				return
			}
		}
	})
	return st, changed
}

// mapSession clones the session list and runs fn against a copy of the
// session with the given id. When the session does not exist the state
// is returned untouched.
func mapSession(st State, sessionID string, fn func(*model.Session)) State {
	idx := -1
	for i, sess := range st.Sessions {
		if sess.ID == sessionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return st
	}

	sessions := make([]*model.Session, len(st.Sessions))
	copy(sessions, st.Sessions)
	sess := sessions[idx].Clone()
	fn(sess)
	sessions[idx] = sess
	st.Sessions = sessions
	return st
}
