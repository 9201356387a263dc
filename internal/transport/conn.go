// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

// =============================================================================
// CONNECTION ABSTRACTION
// =============================================================================

// Conn is one live duplex connection. The client reads JSON chunk
// frames from it and writes JSON payloads to it. Tests substitute a
// scripted implementation.
type Conn interface {
	// ReadMessage blocks until the next inbound frame or an error.
	ReadMessage() ([]byte, error)

	// WriteJSON marshals v and writes it as one outbound frame.
	WriteJSON(v any) error

	// Close tears the connection down; a blocked ReadMessage returns
	// with an error.
	Close() error
}

// Dialer opens a connection to the backend endpoint.
type Dialer func(ctx context.Context, url string) (Conn, error)

// =============================================================================
// WEBSOCKET IMPLEMENTATION
// =============================================================================

const wsHandshakeTimeout = 10 * time.Second

// wsConn adapts a gorilla websocket connection to Conn.
type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

func (c *wsConn) WriteJSON(v any) error {
	return c.ws.WriteJSON(v)
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}

// WebSocketDialer returns the production dialer.
func WebSocketDialer() Dialer {
	return func(ctx context.Context, url string) (Conn, error) {
		dialer := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}
		ws, _, err := dialer.DialContext(ctx, url, nil)
		if err != nil {
			return nil, err
		}
		return &wsConn{ws: ws}, nil
	}
}
