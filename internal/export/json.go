// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/deskchat-tui/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter renders a session as a pretty-printed JSON document
// mirroring the backend wire shape, plus an export timestamp.
type JSONExporter struct {
	opts *Options
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{opts: opts}
}

// FileExtension returns ".json".
func (e *JSONExporter) FileExtension() string { return ".json" }

// MimeType returns the JSON MIME type.
func (e *JSONExporter) MimeType() string { return "application/json" }

type jsonDocument struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
	Messages   []jsonMessage `json:"messages"`
	ExportedAt time.Time     `json:"exportedAt"`
}

type jsonMessage struct {
	ID              string           `json:"id"`
	Role            string           `json:"role"`
	Content         string           `json:"content"`
	Timestamp       time.Time        `json:"timestamp"`
	Citations       []model.Citation `json:"citations,omitempty"`
	ConfidenceScore float64          `json:"confidenceScore,omitempty"`
}

// Export renders the session.
func (e *JSONExporter) Export(sess *model.Session) ([]byte, error) {
	doc := jsonDocument{
		ID:         sess.ID,
		Title:      sess.Title,
		CreatedAt:  sess.CreatedAt,
		UpdatedAt:  sess.UpdatedAt,
		Messages:   make([]jsonMessage, 0, len(sess.Messages)),
		ExportedAt: e.opts.now(),
	}
	for _, msg := range sess.Messages {
		doc.Messages = append(doc.Messages, jsonMessage{
			ID:              msg.ID,
			Role:            string(msg.Role),
			Content:         msg.Content,
			Timestamp:       msg.Timestamp,
			Citations:       msg.Citations,
			ConfidenceScore: msg.ConfidenceScore,
		})
	}
	return json.MarshalIndent(doc, "", "  ")
}
