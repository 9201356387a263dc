// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jeranaias/deskchat-tui/internal/model"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeConn struct {
	inbound chan []byte
	done    chan struct{}
	once    sync.Once

	mu     sync.Mutex
	writes []any
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 16),
		done:    make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case <-c.done:
		return nil, errors.New("connection dropped")
	}
}

func (c *fakeConn) WriteJSON(v any) error {
	select {
	case <-c.done:
		return errors.New("connection dropped")
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

func (c *fakeConn) writeAt(i int) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes[i]
}

// fakeDialer fails the first failures dials, then hands out fresh
// fakeConns. Every handed-out conn is retained for inspection.
type fakeDialer struct {
	mu       sync.Mutex
	failures int
	dials    int32
	conns    []*fakeConn
}

func (d *fakeDialer) dial(_ context.Context, _ string) (Conn, error) {
	atomic.AddInt32(&d.dials, 1)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failures > 0 {
		d.failures--
		return nil, errors.New("dial refused")
	}
	conn := newFakeConn()
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) dialCount() int {
	return int(atomic.LoadInt32(&d.dials))
}

func (d *fakeDialer) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func newTestClient(d *fakeDialer, onChunk func(model.Chunk)) *Client {
	return NewClient(Options{
		URL:         "ws://test/ws/chat",
		UserID:      "u1",
		Dialer:      d.dial,
		BaseDelay:   time.Millisecond,
		MaxAttempts: 3,
		OnChunk:     onChunk,
	})
}

// =============================================================================
// TESTS
// =============================================================================

func TestBackoffDelayIsLinear(t *testing.T) {
	base := 3 * time.Second
	for attempt, want := range map[int]time.Duration{
		1: 3 * time.Second,
		2: 6 * time.Second,
		5: 15 * time.Second,
	} {
		if got := backoffDelay(base, attempt); got != want {
			t.Errorf("backoffDelay(3s, %d) = %s, want %s", attempt, got, want)
		}
	}
}

func TestConnectSubscribes(t *testing.T) {
	d := &fakeDialer{}
	c := newTestClient(d, nil)
	defer c.Close()

	if err := c.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	waitFor(t, func() bool { return c.Status() == model.StatusConnected }, "never connected")

	conn := d.lastConn()
	waitFor(t, func() bool { return conn.writeCount() >= 1 }, "subscribe frame not sent")
	frame, ok := conn.writeAt(0).(subscribeFrame)
	if !ok {
		t.Fatalf("first frame is %T, want subscribeFrame", conn.writeAt(0))
	}
	if frame.Type != "SUBSCRIBE" || frame.UserID != "u1" {
		t.Errorf("subscribe frame = %+v", frame)
	}
}

func TestSendWhileDisconnected(t *testing.T) {
	c := newTestClient(&fakeDialer{}, nil)
	defer c.Close()

	err := c.Send(model.QueryMessage{Text: "hello"})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send while disconnected = %v, want ErrNotConnected", err)
	}
}

func TestSendDeliversQuery(t *testing.T) {
	d := &fakeDialer{}
	c := newTestClient(d, nil)
	defer c.Close()

	c.Connect()
	waitFor(t, func() bool { return c.Status() == model.StatusConnected }, "never connected")

	if err := c.Send(model.QueryMessage{MessageID: "m1", Text: "reset my vpn"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	conn := d.lastConn()
	waitFor(t, func() bool { return conn.writeCount() >= 2 }, "query frame not written")
	query, ok := conn.writeAt(1).(model.QueryMessage)
	if !ok || query.Text != "reset my vpn" {
		t.Errorf("query frame = %+v", conn.writeAt(1))
	}
}

func TestInboundChunksDelivered(t *testing.T) {
	d := &fakeDialer{}
	var mu sync.Mutex
	var got []model.Chunk
	c := newTestClient(d, func(chunk model.Chunk) {
		mu.Lock()
		got = append(got, chunk)
		mu.Unlock()
	})
	defer c.Close()

	c.Connect()
	waitFor(t, func() bool { return c.Status() == model.StatusConnected }, "never connected")

	data, _ := json.Marshal(model.Chunk{Type: model.ChunkToken, MessageID: "m1", Token: "hi"})
	d.lastConn().inbound <- data

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, "chunk not delivered")
	mu.Lock()
	defer mu.Unlock()
	if got[0].Token != "hi" || got[0].MessageID != "m1" {
		t.Errorf("chunk = %+v", got[0])
	}
}

func TestDropTriggersReconnect(t *testing.T) {
	d := &fakeDialer{}
	c := newTestClient(d, nil)
	defer c.Close()

	c.Connect()
	waitFor(t, func() bool { return c.Status() == model.StatusConnected }, "never connected")

	d.lastConn().Close()
	waitFor(t, func() bool { return d.dialCount() >= 2 }, "no reconnect dial after drop")
	waitFor(t, func() bool { return c.Status() == model.StatusConnected }, "reconnect never completed")
}

func TestGivesUpAfterMaxAttempts(t *testing.T) {
	d := &fakeDialer{failures: 100}
	c := newTestClient(d, nil)
	defer c.Close()

	c.Connect()
	// Initial dial plus three automatic retries, then no further dials.
	waitFor(t, func() bool { return d.dialCount() == 4 }, "retry attempts not exhausted")
	time.Sleep(50 * time.Millisecond)
	if got := d.dialCount(); got != 4 {
		t.Errorf("dials after giving up = %d, want 4", got)
	}
	if c.Status() == model.StatusConnected {
		t.Error("cannot be connected when every dial fails")
	}
}

func TestManualReconnectResetsAttempts(t *testing.T) {
	d := &fakeDialer{failures: 100}
	c := newTestClient(d, nil)
	defer c.Close()

	c.Connect()
	waitFor(t, func() bool { return d.dialCount() == 4 }, "retry attempts not exhausted")

	// Let the backend come back, then reconnect by hand.
	d.mu.Lock()
	d.failures = 0
	d.mu.Unlock()
	if err := c.Reconnect(); err != nil {
		t.Fatalf("Reconnect: %v", err)
	}
	waitFor(t, func() bool { return c.Status() == model.StatusConnected }, "manual reconnect failed")

	// The counter was reset: a later drop gets a full retry budget again.
	d.lastConn().Close()
	waitFor(t, func() bool { return c.Status() == model.StatusConnected }, "automatic reconnect after manual reset failed")
}

func TestCloseStopsEverything(t *testing.T) {
	d := &fakeDialer{failures: 100}
	c := newTestClient(d, nil)

	c.Connect()
	waitFor(t, func() bool { return d.dialCount() >= 1 }, "no initial dial")
	c.Close()

	dials := d.dialCount()
	time.Sleep(50 * time.Millisecond)
	if d.dialCount() > dials+1 {
		t.Error("dials continued after Close")
	}
	if err := c.Connect(); !errors.Is(err, ErrClosed) {
		t.Errorf("Connect after Close = %v, want ErrClosed", err)
	}
	if err := c.Send(model.QueryMessage{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}
}
