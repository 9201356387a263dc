// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/deskchat-tui/internal/api"
	"github.com/jeranaias/deskchat-tui/internal/config"
	"github.com/jeranaias/deskchat-tui/internal/model"
)

// =============================================================================
// TRANSPORT MESSAGES
// =============================================================================

// ChunkMsg delivers one inbound streaming fragment. Sent from the
// transport read loop via tea.Program.Send.
type ChunkMsg struct {
	Chunk model.Chunk
}

// ConnectionStatusMsg reports a transport state change.
type ConnectionStatusMsg struct {
	Status model.ConnectionStatus
}

// StreamTickMsg drives the capped-rate viewport rebuild during
// streaming.
type StreamTickMsg struct {
	Time time.Time
}

// =============================================================================
// ACTION MESSAGES
// =============================================================================

// ActionResultMsg reports the outcome of a confirm or cancel call.
// Result carries the confirmation envelope; Message carries the
// cancellation acknowledgement.
type ActionResultMsg struct {
	SessionID string
	MessageID string
	ActionID  string
	Confirmed bool
	Result    *api.ActionResult
	Message   string
	Err       error
}

// PendingActionsMsg delivers the backend's unresolved staged actions
// for one session.
type PendingActionsMsg struct {
	SessionID string
	Actions   []api.StagedAction
	Err       error
}

// =============================================================================
// COMMAND RESULTS
// =============================================================================

// SessionsLoadedMsg delivers the backend session list for /sessions.
type SessionsLoadedMsg struct {
	Sessions []api.RemoteSession
	Err      error
}

// HistoryLoadedMsg delivers a replayed transcript for /switch.
type HistoryLoadedMsg struct {
	Remote  api.RemoteSession
	History *api.SessionHistory
	Err     error
}

// ExportDoneMsg reports the outcome of a transcript export.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// RateLimitMsg delivers the backend's confirmation quota for /limits.
type RateLimitMsg struct {
	Info *api.RateLimitInfo
	Err  error
}

// FeedbackSentMsg reports the outcome of a feedback submission.
type FeedbackSentMsg struct {
	MessageID string
	Err       error
}

// ErrMsg carries a background error into the update loop.
type ErrMsg struct {
	Err error
}

// ConfigReloadedMsg delivers a freshly reloaded configuration from the
// file watcher. Only UI-level settings are applied live; server and
// storage changes take effect on restart.
type ConfigReloadedMsg struct {
	Config *config.Config
}
