// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/deskchat-tui/internal/api"
	"github.com/jeranaias/deskchat-tui/internal/model"
	"github.com/jeranaias/deskchat-tui/internal/state"
	"github.com/jeranaias/deskchat-tui/internal/stream"
	"github.com/jeranaias/deskchat-tui/internal/ui/styles"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	return New(Deps{
		Dispatcher: state.NewDispatcher(state.Initial(), nil),
		Assembler:  stream.NewAssembler(),
		Theme:      styles.NewTheme("dark"),
	})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want chat.Model", next)
	}
	return out
}

func chunk(typ model.ChunkType, sessionID, messageID string) model.Chunk {
	return model.Chunk{Type: typ, SessionID: sessionID, MessageID: messageID}
}

func TestChunkFlowBuildsAssistantMessage(t *testing.T) {
	m := newTestModel(t)
	sess := model.NewSession()
	m.dispatcher.Dispatch(state.CreateSession{Session: sess})

	m = update(t, m, ChunkMsg{Chunk: chunk(model.ChunkThinking, sess.ID, "msg-1")})
	if !m.State().IsThinking {
		t.Error("expected thinking after THINKING chunk")
	}

	tok := chunk(model.ChunkToken, sess.ID, "msg-1")
	tok.Token = "Restart "
	m = update(t, m, ChunkMsg{Chunk: tok})
	tok.Token = "the router."
	m = update(t, m, ChunkMsg{Chunk: tok})

	done := chunk(model.ChunkComplete, sess.ID, "msg-1")
	done.ConfidenceScore = 0.91
	m = update(t, m, ChunkMsg{Chunk: done})

	got := m.State().SessionByID(sess.ID).MessageByID("msg-1")
	if got == nil {
		t.Fatal("assistant message not found")
	}
	if got.Content != "Restart the router." {
		t.Errorf("content = %q", got.Content)
	}
	if got.IsStreaming {
		t.Error("message should not be streaming after COMPLETE")
	}
	if got.ConfidenceScore != 0.91 {
		t.Errorf("confidence = %v", got.ConfidenceScore)
	}
	if m.State().IsThinking {
		t.Error("thinking flag should clear on COMPLETE")
	}
}

func TestSendWhileDisconnectedShowsError(t *testing.T) {
	m := newTestModel(t)

	next, _ := m.sendUserMessage("hello")
	m = next.(Model)

	st := m.State()
	if st.Error == "" {
		t.Error("expected error banner when sending without a transport")
	}
	sess := st.ActiveSession()
	if sess == nil || sess.MessageCount() != 1 {
		t.Fatal("user message should still be recorded locally")
	}
	if sess.Messages[0].Role != model.RoleUser {
		t.Errorf("expected user message, got %v", sess.Messages[0].Role)
	}
}

func TestDisconnectFailsStreamingMessages(t *testing.T) {
	m := newTestModel(t)
	sess := model.NewSession()
	m.dispatcher.Dispatch(state.CreateSession{Session: sess})
	m = update(t, m, ChunkMsg{Chunk: chunk(model.ChunkThinking, sess.ID, "msg-1")})

	m = update(t, m, ConnectionStatusMsg{Status: model.StatusDisconnected})

	got := m.State().SessionByID(sess.ID).MessageByID("msg-1")
	if got.IsStreaming {
		t.Error("streaming message should be failed on disconnect")
	}
	if got.Error == "" {
		t.Error("failed message should carry an error")
	}
	if m.State().ConnectionStatus != model.StatusDisconnected {
		t.Errorf("connection status = %v", m.State().ConnectionStatus)
	}
	if m.assembler.PendingMessageID(sess.ID) != "" {
		t.Error("assembler should be reset on disconnect")
	}
}

func TestExpiredActionDecision(t *testing.T) {
	m := newTestModel(t)
	sess := model.NewSession()
	m.dispatcher.Dispatch(state.CreateSession{Session: sess})

	msg := model.NewMessage(model.RoleAssistant, "Shall I create the incident? [action:inc-9]")
	msg.PendingAction = &model.PendingAction{
		ActionID:   "inc-9",
		ActionType: model.ActionIncidentCreate,
		Status:     model.ActionPending,
		ExpiresAt:  time.Now().Add(-time.Minute),
	}
	m.dispatcher.Dispatch(state.AddMessage{SessionID: sess.ID, Message: msg})

	next, cmd := m.handleActionDecision(true)
	m = next.(Model)
	if cmd != nil {
		t.Error("expired action must not reach the backend")
	}

	got := m.State().SessionByID(sess.ID).MessageByID(msg.ID)
	if got.PendingAction.Status != model.ActionExpired {
		t.Errorf("status = %v, want expired", got.PendingAction.Status)
	}
	if m.State().Error == "" {
		t.Error("expected expiry error banner")
	}
}

func TestActionResultConfirmedPatchesStatus(t *testing.T) {
	m := newTestModel(t)
	sess := model.NewSession()
	m.dispatcher.Dispatch(state.CreateSession{Session: sess})

	msg := model.NewMessage(model.RoleAssistant, "Create work order? [action:wo-3]")
	msg.PendingAction = &model.PendingAction{
		ActionID:   "wo-3",
		ActionType: model.ActionWorkOrderCreate,
		Status:     model.ActionPending,
		ExpiresAt:  time.Now().Add(5 * time.Minute),
	}
	m.dispatcher.Dispatch(state.AddMessage{SessionID: sess.ID, Message: msg})

	m = update(t, m, ActionResultMsg{
		SessionID: sess.ID,
		MessageID: msg.ID,
		ActionID:  "wo-3",
		Confirmed: true,
		Result: &api.ActionResult{
			Success:             true,
			ActionID:            "wo-3",
			Message:             "Work order created",
			CreatedRecordNumber: "WO0012345",
		},
	})

	got := m.State().SessionByID(sess.ID).MessageByID(msg.ID)
	if got.PendingAction.Status != model.ActionConfirmed {
		t.Errorf("status = %v, want confirmed", got.PendingAction.Status)
	}

	last := m.State().SessionByID(sess.ID).LastMessage()
	if last.Role != model.RoleSystem || !strings.Contains(last.Content, "WO0012345") {
		t.Errorf("expected ticket notice, got %q", last.Content)
	}
}

func TestActionResultFailureKeepsActionPending(t *testing.T) {
	m := newTestModel(t)
	sess := model.NewSession()
	m.dispatcher.Dispatch(state.CreateSession{Session: sess})

	msg := model.NewMessage(model.RoleAssistant, "Create incident? [action:inc-2]")
	msg.PendingAction = &model.PendingAction{
		ActionID:   "inc-2",
		ActionType: model.ActionIncidentCreate,
		Status:     model.ActionPending,
		ExpiresAt:  time.Now().Add(5 * time.Minute),
	}
	m.dispatcher.Dispatch(state.AddMessage{SessionID: sess.ID, Message: msg})

	m = update(t, m, ActionResultMsg{
		SessionID: sess.ID,
		MessageID: msg.ID,
		ActionID:  "inc-2",
		Confirmed: true,
		Result:    &api.ActionResult{Success: false, Message: "assignment group not found"},
	})

	got := m.State().SessionByID(sess.ID).MessageByID(msg.ID)
	if got.PendingAction.Status != model.ActionPending {
		t.Errorf("status = %v, want pending after backend failure", got.PendingAction.Status)
	}
	if !strings.Contains(m.State().Error, "assignment group not found") {
		t.Errorf("error = %q", m.State().Error)
	}
}

func TestActionResultCancelledShowsAcknowledgement(t *testing.T) {
	m := newTestModel(t)
	sess := model.NewSession()
	m.dispatcher.Dispatch(state.CreateSession{Session: sess})

	msg := model.NewMessage(model.RoleAssistant, "Create work order? [action:wo-7]")
	msg.PendingAction = &model.PendingAction{
		ActionID:   "wo-7",
		ActionType: model.ActionWorkOrderCreate,
		Status:     model.ActionPending,
		ExpiresAt:  time.Now().Add(5 * time.Minute),
	}
	m.dispatcher.Dispatch(state.AddMessage{SessionID: sess.ID, Message: msg})

	m = update(t, m, ActionResultMsg{
		SessionID: sess.ID,
		MessageID: msg.ID,
		ActionID:  "wo-7",
		Confirmed: false,
		Message:   "Work order request cancelled",
	})

	got := m.State().SessionByID(sess.ID).MessageByID(msg.ID)
	if got.PendingAction.Status != model.ActionCancelled {
		t.Errorf("status = %v, want cancelled", got.PendingAction.Status)
	}
	last := m.State().SessionByID(sess.ID).LastMessage()
	if last.Role != model.RoleSystem || !strings.Contains(last.Content, "cancelled") {
		t.Errorf("expected cancel notice, got %q", last.Content)
	}
}

func TestUnknownSlashCommand(t *testing.T) {
	m := newTestModel(t)
	m.dispatcher.Dispatch(state.CreateSession{Session: model.NewSession()})

	next, _ := m.handleCommand("/frobnicate")
	m = next.(Model)

	last := m.State().ActiveSession().LastMessage()
	if last == nil || !strings.Contains(last.Content, "Unknown command") {
		t.Errorf("expected unknown-command notice, got %v", last)
	}
}

func TestSwitchCommandActivatesLocalSession(t *testing.T) {
	m := newTestModel(t)
	older := model.NewSession()
	newer := model.NewSession()
	m.dispatcher.Dispatch(state.CreateSession{Session: older})
	m.dispatcher.Dispatch(state.CreateSession{Session: newer})

	if m.State().ActiveSessionID != newer.ID {
		t.Fatalf("active = %q, want the newest session", m.State().ActiveSessionID)
	}

	// Sessions are listed newest first, so entry 2 is the older one.
	next, _ := m.handleCommand("/switch 2")
	m = next.(Model)

	if m.State().ActiveSessionID != older.ID {
		t.Errorf("active = %q, want %q", m.State().ActiveSessionID, older.ID)
	}
}

func TestSwitchCommandRejectsBadNumbers(t *testing.T) {
	m := newTestModel(t)
	m.dispatcher.Dispatch(state.CreateSession{Session: model.NewSession()})

	for _, input := range []string{"/switch", "/switch zero", "/switch 0", "/switch 9"} {
		next, cmd := m.handleCommand(input)
		m = next.(Model)
		if cmd != nil {
			t.Errorf("%q should not reach the backend", input)
		}
	}
	last := m.State().ActiveSession().LastMessage()
	if last == nil || last.Role != model.RoleSystem {
		t.Error("expected a usage notice for bad /switch input")
	}
}

func TestSwitchCommandPrefersRemoteListing(t *testing.T) {
	m := newTestModel(t)
	local := model.NewSession()
	m.dispatcher.Dispatch(state.CreateSession{Session: local})

	m = update(t, m, SessionsLoadedMsg{Sessions: []api.RemoteSession{
		{SessionID: "r1", Title: "Printer jam", MessageCount: 2},
		{SessionID: local.ID, Title: local.Title},
	}})

	// Entry 2 of the listing is already held locally: no hydration,
	// just activation.
	next, cmd := m.handleCommand("/switch 2")
	m = next.(Model)
	if cmd != nil {
		t.Error("locally held session should not trigger a history fetch")
	}
	if m.State().ActiveSessionID != local.ID {
		t.Errorf("active = %q, want %q", m.State().ActiveSessionID, local.ID)
	}
}

func TestHistoryLoadedHydratesSession(t *testing.T) {
	m := newTestModel(t)

	m = update(t, m, HistoryLoadedMsg{
		Remote: api.RemoteSession{SessionID: "r1", Title: "Printer jam", LastUpdated: 1735730000000},
		History: &api.SessionHistory{
			SessionID:    "r1",
			MessageCount: 3,
			Messages: []api.HistoryMessage{
				{Type: "USER", Content: "printer is jammed"},
				{Type: "AI", Content: "Open the rear tray."},
				{Type: "SYSTEM", Content: "Ticket INC0010002 created."},
			},
		},
	})

	sess := m.State().SessionByID("r1")
	if sess == nil {
		t.Fatal("hydrated session not found")
	}
	if m.State().ActiveSessionID != "r1" {
		t.Errorf("active = %q, want r1", m.State().ActiveSessionID)
	}
	if sess.Title != "Printer jam" || sess.MessageCount() != 3 {
		t.Errorf("session = %q with %d messages", sess.Title, sess.MessageCount())
	}
	roles := []model.Role{model.RoleUser, model.RoleAssistant, model.RoleSystem}
	for i, want := range roles {
		if sess.Messages[i].Role != want {
			t.Errorf("message %d role = %v, want %v", i, sess.Messages[i].Role, want)
		}
	}
}

func TestPendingActionsRestagedOnce(t *testing.T) {
	m := newTestModel(t)
	sess := model.NewSession()
	m.dispatcher.Dispatch(state.CreateSession{Session: sess})

	staged := []api.StagedAction{
		{
			ActionID:           "inc-5",
			ActionType:         "INCIDENT_CREATE",
			SessionID:          sess.ID,
			ConfirmationPrompt: "Create this incident?",
			Status:             "PENDING",
			ExpiresAt:          time.Now().Add(5 * time.Minute),
		},
		{
			ActionID:  "inc-6",
			SessionID: sess.ID,
			Status:    "PENDING",
			ExpiresAt: time.Now().Add(-time.Minute), // already expired
		},
		{
			ActionID:  "inc-7",
			SessionID: sess.ID,
			Status:    "CANCELLED",
			ExpiresAt: time.Now().Add(5 * time.Minute),
		},
	}

	m = update(t, m, PendingActionsMsg{SessionID: sess.ID, Actions: staged})

	got := m.State().SessionByID(sess.ID)
	if got.MessageCount() != 1 {
		t.Fatalf("messages = %d, want only the live pending action restaged", got.MessageCount())
	}
	restaged := got.Messages[0]
	if restaged.PendingAction == nil || restaged.PendingAction.ActionID != "inc-5" {
		t.Errorf("restaged = %+v", restaged.PendingAction)
	}
	if restaged.Content != "Create this incident?" {
		t.Errorf("content = %q", restaged.Content)
	}

	// A second delivery must not duplicate the staged message.
	m = update(t, m, PendingActionsMsg{SessionID: sess.ID, Actions: staged})
	if got := m.State().SessionByID(sess.ID); got.MessageCount() != 1 {
		t.Errorf("messages = %d after redelivery, want 1", got.MessageCount())
	}
}

func TestPadKeyUsesDisplayWidth(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c", "↑/↓", "pgup/pgdn"} {
		if got := lipgloss.Width(padKey(k)); got != 12 {
			t.Errorf("padKey(%q) width = %d, want 12", k, got)
		}
	}
}

func TestLastAssistantMessageSkipsStreamingAndErrored(t *testing.T) {
	sess := model.NewSession()
	good := model.NewMessage(model.RoleAssistant, "done")
	sess.Messages = []*model.Message{
		model.NewUserMessage("hi"),
		good,
		func() *model.Message {
			m := model.NewMessage(model.RoleAssistant, "")
			m.Error = "failed"
			return m
		}(),
		model.NewStreamingMessage("live"),
	}

	if got := lastAssistantMessage(sess); got != good {
		t.Errorf("expected the completed assistant message, got %v", got)
	}
	if lastAssistantMessage(nil) != nil {
		t.Error("nil session should return nil")
	}
}
