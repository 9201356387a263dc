// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Concurrent-access tests for the transport client: callbacks fire on
// internal goroutines while the UI goroutine calls Send, Reconnect,
// and Close, so every public method must tolerate racing callers.
package transport

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/deskchat-tui/internal/model"
)

func TestClient_ConcurrentSend(t *testing.T) {
	d := &fakeDialer{}
	c := newTestClient(d, nil)
	defer c.Close()

	require.NoError(t, c.Connect())
	waitFor(t, func() bool { return c.Status() == model.StatusConnected }, "never connected")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Send(model.QueryMessage{Text: "ping"})
		}()
	}
	wg.Wait()

	// Subscribe frame plus all fifty queries, none lost or duplicated.
	conn := d.lastConn()
	waitFor(t, func() bool { return conn.writeCount() == 51 }, "writes lost under concurrent Send")
}

func TestClient_ConcurrentReconnectAndClose(t *testing.T) {
	d := &fakeDialer{}
	c := newTestClient(d, nil)

	require.NoError(t, c.Connect())
	waitFor(t, func() bool { return c.Status() == model.StatusConnected }, "never connected")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Reconnect()
			_ = c.Status()
		}()
	}
	wg.Wait()

	require.NoError(t, c.Close())
	require.Equal(t, model.StatusDisconnected, c.Status())

	// Closed means closed.
	require.ErrorIs(t, c.Connect(), ErrClosed)
	require.ErrorIs(t, c.Send(model.QueryMessage{}), ErrClosed)
}

func TestClient_StatusCallbackNeverAfterClose(t *testing.T) {
	d := &fakeDialer{failures: 100}

	var mu sync.Mutex
	closed := false
	c := NewClient(Options{
		URL:         "ws://test/ws/chat",
		UserID:      "u1",
		Dialer:      d.dial,
		BaseDelay:   time.Millisecond,
		MaxAttempts: 3,
		OnStatus: func(s model.ConnectionStatus) {
			mu.Lock()
			defer mu.Unlock()
			if closed && s != model.StatusDisconnected {
				t.Errorf("status callback %v after Close", s)
			}
		},
	})

	require.NoError(t, c.Connect())
	waitFor(t, func() bool { return d.dialCount() >= 1 }, "no initial dial")

	require.NoError(t, c.Close())
	mu.Lock()
	closed = true
	mu.Unlock()

	time.Sleep(50 * time.Millisecond)
}
