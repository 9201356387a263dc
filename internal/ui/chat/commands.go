// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/deskchat-tui/internal/api"
	"github.com/jeranaias/deskchat-tui/internal/model"
	"github.com/jeranaias/deskchat-tui/internal/state"
)

// =============================================================================
// COMMAND HANDLER REGISTRY
// =============================================================================

// commandHandler handles one slash command.
type commandHandler func(m *Model, args []string) (tea.Model, tea.Cmd)

var commandHandlers = map[string]commandHandler{
	"help": handleHelpCommand,
	"h":    handleHelpCommand,
	"quit": handleQuitCommand,
	"q":    handleQuitCommand,
	"exit": handleQuitCommand,

	"new":      handleNewCommand,
	"n":        handleNewCommand,
	"clear":    handleClearCommand,
	"c":        handleClearCommand,
	"sessions": handleSessionsCommand,
	"list":     handleSessionsCommand,
	"switch":   handleSwitchCommand,

	"export":    handleExportCommand,
	"e":         handleExportCommand,
	"feedback":  handleFeedbackCommand,
	"limits":    handleLimitsCommand,
	"reconnect": handleReconnectCommand,
	"r":         handleReconnectCommand,
}

// handleCommand dispatches a slash command through the registry.
func (m Model) handleCommand(content string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(content)
	if len(parts) == 0 {
		return m, nil
	}

	name := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	args := parts[1:]

	if handler, ok := commandHandlers[name]; ok {
		return handler(&m, args)
	}

	m.systemNotice("Unknown command " + parts[0] + ". Type /help for available commands.")
	m.rebuildViewport()
	return m, nil
}

// =============================================================================
// HANDLERS
// =============================================================================

func handleHelpCommand(m *Model, _ []string) (tea.Model, tea.Cmd) {
	m.systemNotice(strings.Join([]string{
		"Available commands:",
		"  /new            start a new conversation",
		"  /clear          clear the current conversation",
		"  /sessions       list conversations on the backend",
		"  /switch <n>     open conversation n from the listing",
		"  /export [md|json]  export the transcript",
		"  /feedback helpful|unhelpful [comment]  rate the last answer",
		"  /limits         show the action confirmation quota",
		"  /reconnect      reconnect the realtime channel",
		"  /quit           exit",
		"",
		"When an action is staged, press y to confirm or n to cancel.",
	}, "\n"))
	m.rebuildViewport()
	return *m, nil
}

func handleQuitCommand(m *Model, _ []string) (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.transport != nil {
		m.transport.Close()
	}
	return *m, tea.Quit
}

func handleNewCommand(m *Model, _ []string) (tea.Model, tea.Cmd) {
	m.dispatcher.Dispatch(state.CreateSession{Session: model.NewSession()})
	m.rebuildViewport()
	return *m, nil
}

func handleClearCommand(m *Model, _ []string) (tea.Model, tea.Cmd) {
	if sess := m.dispatcher.ActiveSession(); sess != nil {
		m.dispatcher.Dispatch(state.ClearSession{SessionID: sess.ID})
	}
	m.rebuildViewport()
	return *m, nil
}

func handleSessionsCommand(m *Model, _ []string) (tea.Model, tea.Cmd) {
	if m.api == nil {
		m.systemNotice("No backend configured.")
		m.rebuildViewport()
		return *m, nil
	}

	client := m.api
	return *m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		sessions, err := client.ListSessions(ctx)
		return SessionsLoadedMsg{Sessions: sessions, Err: err}
	}
}

func handleExportCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	format := "markdown"
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "json":
			format = "json"
		case "md", "markdown":
			format = "markdown"
		default:
			m.systemNotice("Unknown export format " + args[0] + ". Use md or json.")
			m.rebuildViewport()
			return *m, nil
		}
	}
	return *m, m.exportCmd(format)
}

func handleFeedbackCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 || (args[0] != "helpful" && args[0] != "unhelpful") {
		m.systemNotice("Usage: /feedback helpful|unhelpful [comment]")
		m.rebuildViewport()
		return *m, nil
	}
	if m.api == nil {
		m.systemNotice("No backend configured.")
		m.rebuildViewport()
		return *m, nil
	}

	sess := m.dispatcher.ActiveSession()
	target := lastAssistantMessage(sess)
	if target == nil {
		m.systemNotice("No assistant response to rate yet.")
		m.rebuildViewport()
		return *m, nil
	}

	feedbackType := "positive"
	if args[0] == "unhelpful" {
		feedbackType = "negative"
	}
	req := api.FeedbackRequest{
		MessageID:    target.ID,
		SessionID:    sess.ID,
		FeedbackType: feedbackType,
		FeedbackText: strings.Join(args[1:], " "),
	}

	client := m.api
	return *m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		err := client.SendFeedback(ctx, req)
		return FeedbackSentMsg{MessageID: req.MessageID, Err: err}
	}
}

func handleLimitsCommand(m *Model, _ []string) (tea.Model, tea.Cmd) {
	if m.api == nil {
		m.systemNotice("No backend configured.")
		m.rebuildViewport()
		return *m, nil
	}

	client := m.api
	return *m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		info, err := client.RateLimitStatus(ctx)
		return RateLimitMsg{Info: info, Err: err}
	}
}

func handleReconnectCommand(m *Model, _ []string) (tea.Model, tea.Cmd) {
	return m.handleReconnect()
}

// handleSwitchCommand activates conversation n. The numbering follows
// the last /sessions listing when one was fetched, the local session
// list otherwise. Backend conversations not yet held locally are
// hydrated from their history first.
func handleSwitchCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		m.systemNotice("Usage: /switch <n> (run /sessions for the numbering)")
		m.rebuildViewport()
		return *m, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		m.systemNotice("Invalid conversation number " + args[0] + ".")
		m.rebuildViewport()
		return *m, nil
	}

	if len(m.remoteSessions) > 0 {
		if n > len(m.remoteSessions) {
			m.systemNotice(fmt.Sprintf("No conversation numbered %d. Run /sessions to refresh the listing.", n))
			m.rebuildViewport()
			return *m, nil
		}
		remote := m.remoteSessions[n-1]
		if m.dispatcher.State().SessionByID(remote.SessionID) != nil {
			m.dispatcher.Dispatch(state.SetActiveSession{SessionID: remote.SessionID})
			m.rebuildViewport()
			return *m, nil
		}
		if m.api == nil {
			m.systemNotice("No backend configured.")
			m.rebuildViewport()
			return *m, nil
		}
		client := m.api
		return *m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()

			history, err := client.History(ctx, remote.SessionID)
			return HistoryLoadedMsg{Remote: remote, History: history, Err: err}
		}
	}

	local := m.dispatcher.State().Sessions
	if n > len(local) {
		m.systemNotice(fmt.Sprintf("No conversation numbered %d.", n))
		m.rebuildViewport()
		return *m, nil
	}
	m.dispatcher.Dispatch(state.SetActiveSession{SessionID: local[n-1].ID})
	m.rebuildViewport()
	return *m, nil
}

// =============================================================================
// RESULTS
// =============================================================================

func (m Model) handleSessionsLoaded(msg SessionsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.dispatcher.Dispatch(state.SetError{Message: "Could not load sessions: " + msg.Err.Error()})
		return m, nil
	}
	m.remoteSessions = msg.Sessions
	if len(msg.Sessions) == 0 {
		m.systemNotice("No conversations on the backend yet.")
		m.rebuildViewport()
		return m, nil
	}

	var sb strings.Builder
	sb.WriteString("Conversations:\n")
	for i, sess := range msg.Sessions {
		fmt.Fprintf(&sb, "  %d. %s (%d messages, updated %s)\n",
			i+1, sess.Title, sess.MessageCount, sess.LastUpdatedTime().Format("2006-01-02 15:04"))
	}
	sb.WriteString("Use /switch <n> to open one.")
	m.systemNotice(sb.String())
	m.rebuildViewport()
	return m, nil
}

// handleHistoryLoaded rebuilds a backend conversation locally and makes
// it active.
func (m Model) handleHistoryLoaded(msg HistoryLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.dispatcher.Dispatch(state.SetError{Message: "Could not load history: " + msg.Err.Error()})
		m.rebuildViewport()
		return m, nil
	}
	if m.dispatcher.State().SessionByID(msg.Remote.SessionID) != nil {
		m.dispatcher.Dispatch(state.SetActiveSession{SessionID: msg.Remote.SessionID})
	} else {
		m.dispatcher.Dispatch(state.CreateSession{Session: sessionFromHistory(msg.Remote, msg.History)})
	}
	m.rebuildViewport()
	if m.api != nil {
		return m, m.pendingActionsCmd(msg.Remote.SessionID)
	}
	return m, nil
}

// sessionFromHistory converts a replayed transcript into a local
// session keyed by the backend's session id.
func sessionFromHistory(remote api.RemoteSession, history *api.SessionHistory) *model.Session {
	sess := model.NewSession()
	sess.ID = remote.SessionID
	if remote.Title != "" {
		sess.Title = remote.Title
	}
	if remote.LastUpdated > 0 {
		sess.UpdatedAt = remote.LastUpdatedTime()
	}
	if history == nil {
		return sess
	}
	for _, hm := range history.Messages {
		var msg *model.Message
		switch hm.Type {
		case "USER":
			msg = model.NewUserMessage(hm.Content)
		case "SYSTEM":
			msg = model.NewSystemMessage(hm.Content)
		default: // AI
			msg = model.NewMessage(model.RoleAssistant, hm.Content)
		}
		sess.Messages = append(sess.Messages, msg)
	}
	return sess
}

// lastAssistantMessage returns the newest completed assistant message.
func lastAssistantMessage(sess *model.Session) *model.Message {
	if sess == nil {
		return nil
	}
	for i := len(sess.Messages) - 1; i >= 0; i-- {
		msg := sess.Messages[i]
		if msg.Role == model.RoleAssistant && !msg.IsStreaming && msg.Error == "" {
			return msg
		}
	}
	return nil
}
