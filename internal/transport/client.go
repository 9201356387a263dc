// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/jeranaias/deskchat-tui/internal/model"
)

// =============================================================================
// CONSTANTS & ERRORS
// =============================================================================

const (
	// DefaultBaseDelay is the backoff unit. Attempt n waits n*base.
	DefaultBaseDelay = 3 * time.Second

	// DefaultMaxAttempts bounds automatic reconnects after a drop.
	// Manual reconnects reset the counter.
	DefaultMaxAttempts = 5
)

var (
	// ErrNotConnected is returned by Send when no live connection exists.
	// Callers queue or surface the failure; nothing is buffered here.
	ErrNotConnected = errors.New("transport: not connected")

	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("transport: client closed")
)

// subscribeFrame registers this user for response delivery. Sent once
// per established connection.
type subscribeFrame struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Options configures a Client. URL and Dialer are required.
//
// Callbacks fire on the client's internal goroutines and must not call
// back into the Client; forward into your own loop instead.
type Options struct {
	URL    string
	UserID string
	Dialer Dialer

	BaseDelay   time.Duration
	MaxAttempts int

	OnChunk  func(model.Chunk)
	OnStatus func(model.ConnectionStatus)
}

// Client manages one connection to the backend with automatic
// reconnection. At most one reconnect attempt is ever scheduled; a
// manual Reconnect cancels it and resets the attempt counter.
type Client struct {
	mu sync.Mutex

	opts   Options
	status model.ConnectionStatus
	conn   Conn

	// gen invalidates read loops and in-flight dials that belong to a
	// torn-down connection.
	gen int

	attempts int
	retry    *time.Timer
	dialing  bool
	closed   bool
}

// NewClient creates a disconnected client. Call Connect to start.
func NewClient(opts Options) *Client {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Dialer == nil {
		opts.Dialer = WebSocketDialer()
	}
	return &Client{
		opts:   opts,
		status: model.StatusDisconnected,
	}
}

// Status returns the current connection status.
func (c *Client) Status() model.ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Connect starts the initial dial. Safe to call repeatedly; a dial in
// progress or an established connection makes it a no-op.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.dialing || c.status == model.StatusConnected {
		return nil
	}
	c.dialLocked()
	return nil
}

// Send writes one query frame. Fails fast with ErrNotConnected while
// the connection is down; nothing is queued for later delivery.
func (c *Client) Send(msg model.QueryMessage) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.status != model.StatusConnected || c.conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	conn, gen := c.conn, c.gen
	c.mu.Unlock()

	if err := conn.WriteJSON(msg); err != nil {
		c.connError(gen, err)
		return err
	}
	return nil
}

// Reconnect forces a fresh connection now: the attempt counter resets,
// any scheduled retry is cancelled, and the current connection (if any)
// is torn down first.
func (c *Client) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.attempts = 0
	c.cancelRetryLocked()
	c.teardownLocked()
	c.dialLocked()
	return nil
}

// Close tears the client down permanently.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.cancelRetryLocked()
	c.teardownLocked()
	c.setStatusLocked(model.StatusDisconnected)
	return nil
}

// =============================================================================
// CONNECTION LIFECYCLE
// =============================================================================

// dialLocked launches an async dial. Caller holds mu.
func (c *Client) dialLocked() {
	c.dialing = true
	c.setStatusLocked(model.StatusConnecting)
	gen := c.gen
	go c.dial(gen)
}

func (c *Client) dial(gen int) {
	conn, err := c.opts.Dialer(context.Background(), c.opts.URL)

	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	c.dialing = false

	if err != nil {
		log.Printf("transport: dial %s failed: %v", c.opts.URL, err)
		c.setStatusLocked(model.StatusError)
		c.scheduleRetryLocked()
		c.mu.Unlock()
		return
	}

	c.conn = conn
	c.attempts = 0
	c.setStatusLocked(model.StatusConnected)
	c.mu.Unlock()

	if err := conn.WriteJSON(subscribeFrame{Type: "SUBSCRIBE", UserID: c.opts.UserID}); err != nil {
		log.Printf("transport: subscribe failed: %v", err)
		c.connError(gen, err)
		return
	}
	go c.readLoop(conn, gen)
}

func (c *Client) readLoop(conn Conn, gen int) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			c.connError(gen, err)
			return
		}
		var chunk model.Chunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			log.Printf("transport: dropping malformed frame: %v", err)
			continue
		}
		if c.opts.OnChunk != nil {
			c.opts.OnChunk(chunk)
		}
	}
}

// connError handles a connection failure observed by a read loop or a
// writer. Stale generations are ignored so each drop is handled once.
func (c *Client) connError(gen int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.gen {
		return
	}
	log.Printf("transport: connection lost: %v", err)
	c.teardownLocked()
	c.setStatusLocked(model.StatusDisconnected)
	c.scheduleRetryLocked()
}

// teardownLocked closes the current connection and bumps the generation
// so its read loop exits quietly. Caller holds mu.
func (c *Client) teardownLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.gen++
}

// =============================================================================
// RECONNECTION POLICY
// =============================================================================

// backoffDelay is linear in the attempt number: 3s, 6s, 9s, ...
func backoffDelay(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(attempt)
}

// scheduleRetryLocked arms the single retry timer. Caller holds mu.
func (c *Client) scheduleRetryLocked() {
	if c.retry != nil {
		// An attempt is already scheduled; never stack a second one.
		return
	}
	if c.attempts >= c.opts.MaxAttempts {
		log.Printf("transport: giving up after %d reconnect attempts", c.attempts)
		return
	}
	c.attempts++
	delay := backoffDelay(c.opts.BaseDelay, c.attempts)
	log.Printf("transport: reconnect attempt %d/%d in %s", c.attempts, c.opts.MaxAttempts, delay)

	c.retry = time.AfterFunc(delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.retry = nil
		if c.closed || c.dialing || c.status == model.StatusConnected {
			return
		}
		c.dialLocked()
	})
}

func (c *Client) cancelRetryLocked() {
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
}

func (c *Client) setStatusLocked(s model.ConnectionStatus) {
	if c.status == s {
		return
	}
	c.status = s
	if c.opts.OnStatus != nil {
		c.opts.OnStatus(s)
	}
}
