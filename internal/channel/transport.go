// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// =============================================================================
// WEBSOCKET TRANSPORT
// =============================================================================

const (
	writeTimeout   = 10 * time.Second
	closeGraceWait = time.Second
)

// WebSocketDialer dials real websocket connections with gorilla/websocket.
type WebSocketDialer struct{}

// NewWebSocketDialer returns the production dialer.
func NewWebSocketDialer() *WebSocketDialer { return &WebSocketDialer{} }

// Dial performs the websocket handshake against url.
func (d *WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("handshake rejected (%s): %w", resp.Status, err)
		}
		return nil, err
	}
	return &wsConn{ws: ws}, nil
}

// wsConn adapts *websocket.Conn to the Conn interface: text frames only,
// gorilla close codes translated into the package's closure semantics.
type wsConn struct {
	ws *websocket.Conn

	writeMu sync.Mutex
	closeMu sync.Mutex
	closed  bool
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			c.closeMu.Lock()
			manual := c.closed
			c.closeMu.Unlock()
			if manual || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, fmt.Errorf("%w: %v", ErrNormalClosure, err)
			}
			return nil, err
		}
		if kind != websocket.TextMessage {
			continue
		}
		return data, nil
	}
}

func (c *wsConn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close performs a clean shutdown: send close code 1000, give the peer a
// moment to echo it, then tear down the socket.
func (c *wsConn) Close() error {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return nil
	}
	c.closed = true
	c.closeMu.Unlock()

	c.writeMu.Lock()
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	c.ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	c.ws.SetReadDeadline(time.Now().Add(closeGraceWait))
	return c.ws.Close()
}
