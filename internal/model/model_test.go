// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
	"time"
)

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"short content unchanged", "reset my password", "reset my password"},
		{"exactly fifty", strings.Repeat("a", 50), strings.Repeat("a", 50)},
		{"truncated with ellipsis", strings.Repeat("a", 51), strings.Repeat("a", 50) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTitle(tt.content); got != tt.want {
				t.Errorf("DeriveTitle = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewSession(t *testing.T) {
	s := NewSession()
	if s.ID == "" {
		t.Error("expected generated ID")
	}
	if s.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", s.Title, DefaultTitle)
	}
	if s.HasDerivedTitle() {
		t.Error("fresh session should not report a derived title")
	}
	if !s.IsEmpty() {
		t.Error("fresh session should be empty")
	}
}

func TestSessionMessageLookup(t *testing.T) {
	s := NewSession()
	m1 := NewUserMessage("hello")
	m2 := NewStreamingMessage("m2")
	s.Messages = append(s.Messages, m1, m2)

	if got := s.MessageByID(m1.ID); got != m1 {
		t.Error("MessageByID should find the user message")
	}
	if got := s.MessageByID("missing"); got != nil {
		t.Error("MessageByID should return nil for unknown id")
	}
	if got := s.StreamingMessage(); got != m2 {
		t.Error("StreamingMessage should find the in-flight message")
	}
	if got := s.LastMessage(); got != m2 {
		t.Error("LastMessage should return the newest message")
	}
}

func TestSessionClone(t *testing.T) {
	s := NewSession()
	msg := NewStreamingMessage("m1")
	msg.Citations = []Citation{{SourceType: "kb", SourceID: "KB001", Title: "VPN guide"}}
	msg.PendingAction = &PendingAction{ActionID: "a1", ActionType: ActionIncidentCreate, Status: ActionPending}
	s.Messages = append(s.Messages, msg)

	cp := s.Clone()
	cp.Messages[0].Content = "mutated"
	cp.Messages[0].Citations[0].Title = "mutated"
	cp.Messages[0].PendingAction.Status = ActionCancelled

	if s.Messages[0].Content == "mutated" {
		t.Error("clone shares message content with original")
	}
	if s.Messages[0].Citations[0].Title == "mutated" {
		t.Error("clone shares citations with original")
	}
	if s.Messages[0].PendingAction.Status == ActionCancelled {
		t.Error("clone shares pending action with original")
	}
}

func TestPendingActionLifecycle(t *testing.T) {
	now := time.Now()
	a := &PendingAction{
		ActionID:   "a1",
		ActionType: ActionWorkOrderCreate,
		Status:     ActionPending,
		ExpiresAt:  now.Add(5 * time.Minute),
	}

	if a.IsResolved() {
		t.Error("pending action should not be resolved")
	}
	if a.IsExpired(now) {
		t.Error("action should not be expired before its deadline")
	}
	if !a.IsExpired(now.Add(6 * time.Minute)) {
		t.Error("action should expire after its deadline")
	}

	a.Status = ActionConfirmed
	if !a.IsResolved() {
		t.Error("confirmed action is terminal")
	}
	if a.IsExpired(now.Add(time.Hour)) {
		t.Error("resolved actions never report expiry")
	}
}

func TestMessagePreview(t *testing.T) {
	m := NewUserMessage(strings.Repeat("x", 100))
	got := m.Preview(10)
	if got != strings.Repeat("x", 7)+"..." {
		t.Errorf("Preview = %q", got)
	}
}

func TestMessagePreviewTinyLimits(t *testing.T) {
	m := NewUserMessage("hello world")
	tests := []struct {
		maxLen int
		want   string
	}{
		{-1, ""},
		{0, ""},
		{1, "h"},
		{2, "he"},
		{3, "hel"},
		{4, "h..."},
	}
	for _, tt := range tests {
		if got := m.Preview(tt.maxLen); got != tt.want {
			t.Errorf("Preview(%d) = %q, want %q", tt.maxLen, got, tt.want)
		}
	}
}
