// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// CONNECTION STATUS
// =============================================================================

// ConnectionStatus is the realtime transport state.
type ConnectionStatus string

const (
	StatusConnecting   ConnectionStatus = "CONNECTING"
	StatusConnected    ConnectionStatus = "CONNECTED"
	StatusDisconnected ConnectionStatus = "DISCONNECTED"
	StatusError        ConnectionStatus = "ERROR"
)

// =============================================================================
// OUTBOUND QUERY
// =============================================================================

// QueryMessage is the outbound payload published on the query channel.
type QueryMessage struct {
	MessageID   string   `json:"messageId"`
	Text        string   `json:"text"`
	SessionID   string   `json:"sessionId"`
	UserID      string   `json:"userId,omitempty"`
	UserGroups  []string `json:"userGroups,omitempty"`
	Timestamp   string   `json:"timestamp"`
	SkipContext bool     `json:"skipContext,omitempty"`
}

// =============================================================================
// INBOUND RESPONSE CHUNKS
// =============================================================================

// ChunkType indicates what a streaming response fragment carries.
type ChunkType string

const (
	ChunkToken     ChunkType = "TOKEN"
	ChunkConnected ChunkType = "CONNECTED"
	ChunkThinking  ChunkType = "THINKING"
	ChunkComplete  ChunkType = "COMPLETE"
	ChunkError     ChunkType = "ERROR"
)

// Chunk is one inbound fragment of a streaming assistant response,
// delivered on the per-user response queue. Fragments for a given
// message id arrive in send order on a single logical stream.
type Chunk struct {
	MessageID       string     `json:"messageId"`
	SessionID       string     `json:"sessionId"`
	Token           string     `json:"token,omitempty"`
	IsComplete      bool       `json:"isComplete"`
	Citations       []Citation `json:"citations,omitempty"`
	ConfidenceScore float64    `json:"confidenceScore,omitempty"`
	Error           string     `json:"error,omitempty"`
	Type            ChunkType  `json:"type"`
}
