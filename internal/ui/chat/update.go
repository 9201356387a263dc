// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/jeranaias/deskchat-tui/internal/api"
	"github.com/jeranaias/deskchat-tui/internal/export"
	"github.com/jeranaias/deskchat-tui/internal/model"
	"github.com/jeranaias/deskchat-tui/internal/state"
	"github.com/jeranaias/deskchat-tui/internal/ui/components"
	"github.com/jeranaias/deskchat-tui/internal/ui/styles"
)

const requestTimeout = 30 * time.Second

// Update routes messages to the appropriate handler.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ChunkMsg:
		return m.handleChunk(msg.Chunk)

	case StreamTickMsg:
		return m.handleStreamTick()

	case ConnectionStatusMsg:
		return m.handleConnectionStatus(msg.Status)

	case ActionResultMsg:
		return m.handleActionResult(msg)

	case SessionsLoadedMsg:
		return m.handleSessionsLoaded(msg)

	case HistoryLoadedMsg:
		return m.handleHistoryLoaded(msg)

	case PendingActionsMsg:
		return m.handlePendingActions(msg)

	case ExportDoneMsg:
		if msg.Err != nil {
			m.dispatcher.Dispatch(state.SetError{Message: "Export failed: " + msg.Err.Error()})
		} else {
			m.systemNotice("Transcript exported to " + msg.Path)
		}
		m.rebuildViewport()
		return m, nil

	case RateLimitMsg:
		if msg.Err != nil {
			m.dispatcher.Dispatch(state.SetError{Message: "Could not fetch limits: " + msg.Err.Error()})
		} else if msg.Info != nil {
			if msg.Info.IsLimited {
				m.systemNotice(fmt.Sprintf("Action limit reached: %d creations per hour. Try again later.",
					msg.Info.MaxPerHour))
			} else {
				m.systemNotice(fmt.Sprintf("Action creations: %d of %d remaining this hour.",
					msg.Info.Remaining, msg.Info.MaxPerHour))
			}
		}
		m.rebuildViewport()
		return m, nil

	case FeedbackSentMsg:
		if msg.Err != nil {
			m.dispatcher.Dispatch(state.SetError{Message: "Feedback failed: " + msg.Err.Error()})
		} else {
			m.systemNotice("Thanks, your feedback was recorded.")
		}
		m.rebuildViewport()
		return m, nil

	case ErrMsg:
		m.dispatcher.Dispatch(state.SetError{Message: msg.Err.Error()})
		return m, nil

	case ConfigReloadedMsg:
		return m.handleConfigReloaded(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.thinking, cmd = m.thinking.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleConfigReloaded applies live-reloadable settings delivered by
// the config file watcher. Server and storage changes wait for a
// restart.
func (m Model) handleConfigReloaded(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	if msg.Config == nil {
		return m, nil
	}
	m.cfg = msg.Config
	m.theme = styles.NewTheme(msg.Config.UI.Theme)
	m.renderer = components.NewMessageRenderer(m.theme, m.width)
	m.renderer.ShowTimestamps = msg.Config.UI.ShowTimestamps
	m.status = components.NewStatusBar(m.theme)
	m.status.SetWidth(m.width)
	m.status.SetConnection(m.dispatcher.State().ConnectionStatus)
	m.rebuildViewport()
	return m, nil
}

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true

	// header (1) + thinking (1) + input (1) + status (1)
	viewportHeight := msg.Height - 4
	if viewportHeight < 1 {
		viewportHeight = 1
	}
	m.viewport.Width = msg.Width
	m.viewport.Height = viewportHeight
	m.input.Width = msg.Width - 4
	m.renderer.SetWidth(msg.Width)
	m.status.SetWidth(msg.Width)

	m.rebuildViewport()
	return m, nil
}

// =============================================================================
// KEYBOARD
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	inputEmpty := strings.TrimSpace(m.input.Value()) == ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		if m.transport != nil {
			m.transport.Close()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		return m.handleSubmit()

	case key.Matches(msg, m.keys.NewSession):
		m.dispatcher.Dispatch(state.CreateSession{Session: model.NewSession()})
		m.rebuildViewport()
		return m, nil

	case key.Matches(msg, m.keys.Export):
		return m, m.exportCmd("markdown")

	case key.Matches(msg, m.keys.Reconnect):
		return m.handleReconnect()

	case inputEmpty && key.Matches(msg, m.keys.Confirm):
		// Only intercept y/n while an action is actually staged;
		// otherwise the letter belongs to the input line.
		if _, target := m.pendingActionTarget(); target != nil {
			return m.handleActionDecision(true)
		}

	case inputEmpty && key.Matches(msg, m.keys.Cancel):
		if _, target := m.pendingActionTarget(); target != nil {
			return m.handleActionDecision(false)
		}

	case inputEmpty && key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down),
		key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown),
		key.Matches(msg, m.keys.Home), key.Matches(msg, m.keys.End):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.showHelp {
		// Any other key closes the help overlay.
		m.showHelp = false
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.Reset()

	if strings.HasPrefix(text, "/") {
		return m.handleCommand(text)
	}
	return m.sendUserMessage(text)
}

func (m Model) sendUserMessage(text string) (tea.Model, tea.Cmd) {
	sess := m.ensureActiveSession()

	m.dispatcher.Dispatch(state.AddMessage{
		SessionID: sess.ID,
		Message:   model.NewUserMessage(text),
	})
	m.rebuildViewport()

	if m.transport == nil || m.transport.Status() != model.StatusConnected {
		m.dispatcher.Dispatch(state.SetError{
			Message: "Not connected. Press Ctrl+R to reconnect.",
		})
		return m, nil
	}

	query := model.QueryMessage{
		MessageID: uuid.NewString(),
		Text:      text,
		SessionID: sess.ID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if m.cfg != nil {
		query.UserID = m.cfg.User.ID
		query.UserGroups = m.cfg.User.Groups
	}

	if err := m.transport.Send(query); err != nil {
		m.dispatcher.Dispatch(state.SetError{
			Message: "Send failed: " + err.Error(),
		})
		return m, nil
	}

	// A successful send clears any stale error banner.
	m.dispatcher.Dispatch(state.SetError{Message: ""})
	return m, nil
}

func (m Model) handleReconnect() (tea.Model, tea.Cmd) {
	if m.transport == nil {
		m.dispatcher.Dispatch(state.SetError{Message: "No transport configured."})
		return m, nil
	}
	if err := m.transport.Reconnect(); err != nil {
		m.dispatcher.Dispatch(state.SetError{Message: "Reconnect failed: " + err.Error()})
	}
	return m, nil
}

// =============================================================================
// STREAMING
// =============================================================================

func (m Model) handleChunk(chunk model.Chunk) (tea.Model, tea.Cmd) {
	actions := m.assembler.Handle(m.dispatcher.State(), chunk)
	for _, action := range actions {
		m.dispatcher.Dispatch(action)
		if at, ok := action.(state.AppendToken); ok {
			m.streamBuf.Write(at.Token)
		}
	}

	var cmds []tea.Cmd

	st := m.dispatcher.State()
	if st.IsThinking && !m.thinking.IsActive() {
		cmds = append(cmds, m.thinking.Start())
	} else if !st.IsThinking && m.thinking.IsActive() {
		m.thinking.Stop()
	}

	switch chunk.Type {
	case model.ChunkThinking:
		m.rebuildViewport()

	case model.ChunkToken:
		if !m.ticking {
			m.ticking = true
			cmds = append(cmds, streamTickCmd())
		}

	case model.ChunkComplete, model.ChunkError:
		m.streamBuf.ForceFlush()
		m.rebuildViewport()
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleStreamTick() (tea.Model, tea.Cmd) {
	if _, ok := m.streamBuf.Flush(); ok {
		m.rebuildViewport()
	}

	// Keep ticking while a response is still streaming in.
	if sess := m.dispatcher.ActiveSession(); sess != nil && sess.StreamingMessage() != nil {
		return m, streamTickCmd()
	}
	if m.streamBuf.Pending() > 0 {
		return m, streamTickCmd()
	}
	m.ticking = false
	return m, nil
}

// =============================================================================
// CONNECTION
// =============================================================================

func (m Model) handleConnectionStatus(status model.ConnectionStatus) (tea.Model, tea.Cmd) {
	m.dispatcher.Dispatch(state.SetConnectionStatus{Status: status})
	m.status.SetConnection(status)

	if status == model.StatusDisconnected || status == model.StatusError {
		// No fragment delivery is guaranteed across a disconnect, so
		// in-flight responses cannot be resumed.
		m.assembler.Reset()
		m.streamBuf.Reset()
		m.thinking.Stop()
		m.dispatcher.Dispatch(state.SetThinking{Thinking: false})
		m.failStreamingMessages()
	}

	m.rebuildViewport()
	return m, nil
}

// failStreamingMessages marks every in-flight message as failed after
// the transport dropped.
func (m Model) failStreamingMessages() {
	const lost = "Connection lost before the response completed."
	for _, sess := range m.dispatcher.State().Sessions {
		if msg := sess.StreamingMessage(); msg != nil {
			m.dispatcher.Dispatch(state.UpdateMessage{
				SessionID: sess.ID,
				MessageID: msg.ID,
				Patch: state.MessagePatch{
					IsStreaming: state.BoolPtr(false),
					Error:       state.StringPtr(lost),
				},
			})
		}
	}
}

// =============================================================================
// STAGED ACTIONS
// =============================================================================

// pendingActionTarget finds the newest confirmable staged action in the
// active session.
func (m Model) pendingActionTarget() (sessionID string, msg *model.Message) {
	sess := m.dispatcher.ActiveSession()
	if sess == nil {
		return "", nil
	}
	for i := len(sess.Messages) - 1; i >= 0; i-- {
		candidate := sess.Messages[i]
		if candidate.PendingAction != nil && candidate.PendingAction.Status == model.ActionPending {
			return sess.ID, candidate
		}
	}
	return "", nil
}

func (m Model) handleActionDecision(confirm bool) (tea.Model, tea.Cmd) {
	sessionID, msg := m.pendingActionTarget()
	if msg == nil {
		return m, nil
	}

	action := msg.PendingAction
	if action.IsExpired(time.Now()) {
		m.patchActionStatus(sessionID, msg.ID, model.ActionExpired)
		m.dispatcher.Dispatch(state.SetError{Message: "This action has expired. Ask again to restage it."})
		m.rebuildViewport()
		return m, nil
	}

	if m.api == nil {
		m.dispatcher.Dispatch(state.SetError{Message: "No backend configured for action confirmation."})
		return m, nil
	}

	return m, m.actionDecisionCmd(sessionID, msg.ID, action.ActionID, confirm)
}

func (m Model) actionDecisionCmd(sessionID, messageID, actionID string, confirm bool) tea.Cmd {
	client := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		out := ActionResultMsg{
			SessionID: sessionID,
			MessageID: messageID,
			ActionID:  actionID,
			Confirmed: confirm,
		}
		if confirm {
			out.Result, out.Err = client.ConfirmAction(ctx, sessionID, actionID)
		} else {
			out.Message, out.Err = client.CancelAction(ctx, sessionID, actionID)
		}
		return out
	}
}

func (m Model) handleActionResult(msg ActionResultMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		switch {
		case errors.Is(msg.Err, api.ErrActionExpired):
			m.patchActionStatus(msg.SessionID, msg.MessageID, model.ActionExpired)
			m.dispatcher.Dispatch(state.SetError{Message: "This action expired before it could be confirmed."})
		case errors.Is(msg.Err, api.ErrActionResolved):
			m.dispatcher.Dispatch(state.SetError{Message: "This action was already resolved."})
		default:
			m.dispatcher.Dispatch(state.SetError{Message: "Action failed: " + msg.Err.Error()})
		}
		m.rebuildViewport()
		return m, nil
	}

	if msg.Confirmed {
		if msg.Result != nil && !msg.Result.Success {
			// The backend accepted the confirmation but the creation
			// itself failed; leave the action pending so it can be
			// retried or cancelled.
			m.dispatcher.Dispatch(state.SetError{Message: "Action failed: " + msg.Result.Message})
			m.rebuildViewport()
			return m, nil
		}
		m.patchActionStatus(msg.SessionID, msg.MessageID, model.ActionConfirmed)
		switch {
		case msg.Result != nil && msg.Result.CreatedRecordNumber != "":
			m.systemNotice(fmt.Sprintf("Ticket %s created.", msg.Result.CreatedRecordNumber))
		case msg.Result != nil && msg.Result.Message != "":
			m.systemNotice(msg.Result.Message)
		}
	} else {
		m.patchActionStatus(msg.SessionID, msg.MessageID, model.ActionCancelled)
		if msg.Message != "" {
			m.systemNotice(msg.Message)
		} else {
			m.systemNotice("Action cancelled.")
		}
	}
	m.rebuildViewport()
	return m, nil
}

// pendingActionsCmd asks the backend for unresolved staged actions in
// one session.
func (m Model) pendingActionsCmd(sessionID string) tea.Cmd {
	client := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		actions, err := client.PendingActions(ctx, sessionID)
		return PendingActionsMsg{SessionID: sessionID, Actions: actions, Err: err}
	}
}

// handlePendingActions restages unresolved backend actions onto the
// session so y/n confirmation still works after a restart.
func (m Model) handlePendingActions(msg PendingActionsMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		// Background check; not worth an error banner.
		log.Printf("chat: pending action lookup failed: %v", msg.Err)
		return m, nil
	}
	sess := m.dispatcher.State().SessionByID(msg.SessionID)
	if sess == nil {
		return m, nil
	}

	now := time.Now()
	restaged := false
	for _, act := range msg.Actions {
		if act.Status != string(model.ActionPending) || now.After(act.ExpiresAt) {
			continue
		}
		if hasStagedAction(sess, act.ActionID) {
			continue
		}
		prompt := act.ConfirmationPrompt
		if prompt == "" {
			prompt = act.Preview
		}
		restage := model.NewMessage(model.RoleAssistant, prompt)
		restage.PendingAction = &model.PendingAction{
			ActionID:   act.ActionID,
			ActionType: model.ActionType(act.ActionType),
			Preview:    act.Preview,
			Status:     model.ActionPending,
			ExpiresAt:  act.ExpiresAt,
		}
		m.dispatcher.Dispatch(state.AddMessage{SessionID: sess.ID, Message: restage})
		restaged = true
	}
	if restaged {
		m.rebuildViewport()
	}
	return m, nil
}

// hasStagedAction reports whether the session already shows the action.
func hasStagedAction(sess *model.Session, actionID string) bool {
	for _, msg := range sess.Messages {
		if msg.PendingAction != nil && msg.PendingAction.ActionID == actionID {
			return true
		}
	}
	return false
}

// patchActionStatus rewrites the staged action on a message with a new
// status.
func (m Model) patchActionStatus(sessionID, messageID string, status model.ActionStatus) {
	sess := m.dispatcher.State().SessionByID(sessionID)
	if sess == nil {
		return
	}
	msg := sess.MessageByID(messageID)
	if msg == nil || msg.PendingAction == nil {
		return
	}

	updated := *msg.PendingAction
	updated.Status = status
	m.dispatcher.Dispatch(state.UpdateMessage{
		SessionID: sessionID,
		MessageID: messageID,
		Patch:     state.MessagePatch{PendingAction: &updated},
	})
}

// =============================================================================
// EXPORT
// =============================================================================

func (m Model) exportCmd(format string) tea.Cmd {
	sess := m.dispatcher.ActiveSession()
	if sess == nil || sess.IsEmpty() {
		return func() tea.Msg {
			return ErrMsg{Err: errors.New("nothing to export in this conversation")}
		}
	}
	snapshot := sess.Clone()

	opts := export.DefaultOptions()
	if m.cfg != nil {
		if m.cfg.Export.OutputDir != "" {
			opts.OutputDir = m.cfg.Export.OutputDir
		}
		opts.OpenAfterExport = m.cfg.Export.OpenAfterExport
	}

	var exporter export.Exporter
	if format == "json" {
		exporter = export.NewJSONExporter(opts)
	} else {
		exporter = export.NewMarkdownExporter(opts)
	}

	return func() tea.Msg {
		path, err := export.ExportToFile(snapshot, exporter, opts)
		return ExportDoneMsg{Path: path, Err: err}
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// ensureActiveSession returns the active session, creating one when the
// state has none.
func (m Model) ensureActiveSession() *model.Session {
	if sess := m.dispatcher.ActiveSession(); sess != nil {
		return sess
	}
	sess := model.NewSession()
	m.dispatcher.Dispatch(state.CreateSession{Session: sess})
	return sess
}

// systemNotice appends a system message to the active session.
func (m Model) systemNotice(text string) {
	sess := m.ensureActiveSession()
	m.dispatcher.Dispatch(state.AddMessage{
		SessionID: sess.ID,
		Message:   model.NewSystemMessage(text),
	})
}

// rebuildViewport re-renders the active conversation into the viewport
// and scrolls to the bottom.
func (m *Model) rebuildViewport() {
	sess := m.dispatcher.ActiveSession()
	if sess == nil {
		m.viewport.SetContent("")
		return
	}

	blocks := make([]string, 0, len(sess.Messages))
	for _, msg := range sess.Messages {
		blocks = append(blocks, m.renderer.Render(msg))
	}
	m.viewport.SetContent(strings.Join(blocks, "\n\n"))
	m.viewport.GotoBottom()

	m.status.SetSession(sess.Title, sess.MessageCount())
	_, pending := m.pendingActionTarget()
	m.status.PendingAction = pending != nil
}
