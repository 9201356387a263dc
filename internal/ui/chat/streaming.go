// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer throttles viewport rebuilds during token streaming.
// Tokens land in the reducer state immediately; the buffer only decides
// WHEN the conversation view is re-rendered. A flush happens when
// either the batch size is reached or the frame interval has elapsed,
// which caps rendering at ~30fps instead of once per token.
//
// Thread-safety: tokens can arrive from the transport bridge while the
// Bubble Tea loop flushes, so every operation takes the mutex.
type StreamingBuffer struct {
	mu         sync.Mutex
	buffer     strings.Builder
	tokenCount int
	lastFlush  time.Time

	batchSize  int
	minFlushMs time.Duration
}

const (
	defaultBatchSize = 15
	defaultMaxFPS    = 30
)

// NewStreamingBuffer creates a buffer with the default batch size and
// frame rate.
func NewStreamingBuffer() *StreamingBuffer {
	return NewStreamingBufferWithConfig(defaultBatchSize, defaultMaxFPS)
}

// NewStreamingBufferWithConfig creates a buffer with custom settings.
// Out-of-range values fall back to the defaults.
func NewStreamingBufferWithConfig(batchSize, maxFPS int) *StreamingBuffer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = defaultMaxFPS
	}
	return &StreamingBuffer{
		batchSize:  batchSize,
		minFlushMs: time.Duration(1000/maxFPS) * time.Millisecond,
		lastFlush:  time.Now(),
	}
}

// Write adds a token to the buffer.
func (sb *StreamingBuffer) Write(token string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.buffer.WriteString(token)
	sb.tokenCount++
}

// Flush returns accumulated content when a threshold has been crossed.
// The second return is false when nothing should be rendered yet.
func (sb *StreamingBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if !sb.shouldFlushLocked() {
		return "", false
	}
	return sb.drainLocked()
}

// ForceFlush drains the buffer regardless of thresholds. Used when a
// stream completes so the tail tokens are rendered immediately.
func (sb *StreamingBuffer) ForceFlush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	return sb.drainLocked()
}

// Reset clears the buffer without flushing. Used when a stream is
// abandoned (disconnect, new session).
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.buffer.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
}

// Pending returns the number of tokens waiting to be flushed.
func (sb *StreamingBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.tokenCount
}

func (sb *StreamingBuffer) shouldFlushLocked() bool {
	if sb.buffer.Len() == 0 {
		return false
	}
	if sb.tokenCount >= sb.batchSize {
		return true
	}
	return time.Since(sb.lastFlush) >= sb.minFlushMs
}

func (sb *StreamingBuffer) drainLocked() (string, bool) {
	content := sb.buffer.String()
	sb.buffer.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
	return content, true
}

// =============================================================================
// STREAM TICK
// =============================================================================

// streamTickCmd emits StreamTickMsg at ~30fps while a response is
// streaming.
func streamTickCmd() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
