// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/deskchat-tui/internal/model"
)

type sessionFixture struct {
	session    *model.Session
	exportedAt time.Time
}

func sampleSession() *sessionFixture {
	day := time.Date(2025, 3, 14, 9, 15, 0, 0, time.UTC)
	sess := model.NewSession()
	sess.Title = "VPN troubleshooting"
	sess.CreatedAt = day
	sess.UpdatedAt = day.Add(time.Minute)
	sess.Messages = []*model.Message{
		{
			ID:        "m1",
			Role:      model.RoleUser,
			Content:   "my vpn keeps dropping",
			Timestamp: day,
		},
		{
			ID:        "m2",
			Role:      model.RoleAssistant,
			Content:   "Try reinstalling the VPN client.",
			Timestamp: day.Add(time.Minute),
			Citations: []model.Citation{
				{SourceType: "kb", SourceID: "KB042", Title: "VPN client guide", Score: 0.9},
				{SourceType: "incident", SourceID: "INC0010001"},
			},
			ConfidenceScore: 0.87,
		},
	}
	return &sessionFixture{session: sess, exportedAt: day.Add(2 * time.Minute)}
}

func TestMarkdownTranscript(t *testing.T) {
	fx := sampleSession()
	opts := DefaultOptions()
	opts.Now = func() time.Time { return fx.exportedAt }

	content, err := NewMarkdownExporter(opts).Export(fx.session)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	md := string(content)

	for _, want := range []string{
		"# VPN troubleshooting",
		"## User [09:15]",
		"## Assistant [09:16]",
		"my vpn keeps dropping",
		"**Sources:**",
		"1. [kb] KB042 - VPN client guide",
		"2. [incident] INC0010001 - N/A",
		"*Confidence: 87%*",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
}

func TestMarkdownOmitsEmptyCitationsAndConfidence(t *testing.T) {
	fx := sampleSession()
	fx.session.Messages = fx.session.Messages[:1] // user message only

	content, err := NewMarkdownExporter(nil).Export(fx.session)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	md := string(content)
	if strings.Contains(md, "**Sources:**") || strings.Contains(md, "Confidence:") {
		t.Errorf("user message must not carry sources or confidence\n%s", md)
	}
}

func TestFormatConfidenceRounds(t *testing.T) {
	cases := map[float64]string{
		0.87:  "87%",
		0.875: "88%",
		1.0:   "100%",
		0.004: "0%",
	}
	for score, want := range cases {
		if got := FormatConfidence(score); got != want {
			t.Errorf("FormatConfidence(%v) = %q, want %q", score, got, want)
		}
	}
}

func TestJSONDocument(t *testing.T) {
	fx := sampleSession()
	opts := DefaultOptions()
	opts.Now = func() time.Time { return fx.exportedAt }

	content, err := NewJSONExporter(opts).Export(fx.session)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(content, &doc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if doc["id"] != fx.session.ID || doc["title"] != "VPN troubleshooting" {
		t.Errorf("doc header = %v %v", doc["id"], doc["title"])
	}
	messages, ok := doc["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("messages = %v", doc["messages"])
	}
	reply := messages[1].(map[string]any)
	if reply["confidenceScore"] != 0.87 {
		t.Errorf("confidenceScore = %v", reply["confidenceScore"])
	}
	if _, ok := doc["exportedAt"]; !ok {
		t.Error("exportedAt missing")
	}
}

func TestExportToFileWritesAndNames(t *testing.T) {
	fx := sampleSession()
	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()
	opts.Now = func() time.Time { return fx.exportedAt }

	path, err := ExportToFile(fx.session, NewMarkdownExporter(opts), opts)
	if err != nil {
		t.Fatalf("ExportToFile: %v", err)
	}
	if !strings.HasSuffix(path, ".md") || !strings.Contains(path, "VPN_troubleshooting") {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(data), "## User [09:15]") {
		t.Error("written file lacks transcript content")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"plain":          "plain",
		"a/b:c":          "a-b-c",
		"spaces in name": "spaces_in_name",
		"":               "conversation",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
