// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package channel maintains the persistent connection to the AI worker.
//
// The channel owns the socket lifecycle: connect, bounded reconnect on
// abnormal closure, manual disconnect, and a liveness ping on open. Delivery
// is at-most-once and best-effort: a send attempted while disconnected is
// dropped on the floor and merely triggers a connection attempt. This is a
// deliberate policy for a non-critical assistive channel, not an accident of
// the implementation.
//
// Inbound frames are decoded and appended to an ordered, append-only message
// log. Consumers read the log through a monotonic cursor (see MessagesSince),
// which is what guarantees exactly-once, in-order routing downstream.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/docenty/hunmin/internal/protocol"
)

// Defaults mirror the worker deployment.
const (
	// DefaultURL is the default worker websocket endpoint.
	DefaultURL = "ws://localhost:8000/ws"

	// DefaultReconnectDelay is the fixed delay before an automatic
	// reconnect attempt.
	DefaultReconnectDelay = 3000 * time.Millisecond

	// DefaultMaxReconnectAttempts caps consecutive failed connections
	// before the channel gives up until manually reset.
	DefaultMaxReconnectAttempts = 3

	// dialTimeout bounds a single connection attempt.
	dialTimeout = 10 * time.Second
)

// DefaultSecurityLevel is the marking sent with analyze requests when the
// caller does not specify one.
const DefaultSecurityLevel = "일반"

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConnected is returned by Send when no healthy connection
	// exists. The payload has been dropped; a reconnect was triggered.
	ErrNotConnected = errors.New("channel not connected")

	// ErrTooManyRetries is returned by Connect once the consecutive
	// failure counter has reached the configured maximum. Disconnect or
	// ResetBackoff re-arms the channel.
	ErrTooManyRetries = errors.New("max reconnection attempts reached")

	// ErrAlreadyConnecting is returned by Connect while a connection is
	// being established or already live. The call is a no-op.
	ErrAlreadyConnecting = errors.New("connect already in progress")

	// ErrNormalClosure marks a close initiated deliberately by either
	// peer. Normal closures never trigger auto-reconnect.
	ErrNormalClosure = errors.New("normal closure")
)

// Status is the connection state exposed for UI gating.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

// String returns the Korean status label shown in the UI.
func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "연결 중"
	case StatusConnected:
		return "연결됨"
	default:
		return "연결 끊김"
	}
}

// =============================================================================
// TRANSPORT ABSTRACTION
// =============================================================================

// Conn is a single full-duplex text-frame connection.
//
// ReadMessage blocks until a frame arrives or the connection dies. After a
// deliberate close by either peer it returns an error wrapping
// ErrNormalClosure; any other error is an abnormal closure.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens connections. The production implementation dials a websocket;
// tests substitute a scripted fake.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// =============================================================================
// CHANNEL
// =============================================================================

// Config carries the externally configurable channel inputs.
type Config struct {
	URL                  string
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}

// DefaultConfig returns the default channel configuration.
func DefaultConfig() Config {
	return Config{
		URL:                  DefaultURL,
		ReconnectDelay:       DefaultReconnectDelay,
		MaxReconnectAttempts: DefaultMaxReconnectAttempts,
	}
}

// Channel is the connection manager. Construct exactly one per session with
// New and inject it into consumers; all methods are safe for concurrent use.
type Channel struct {
	cfg    Config
	dialer Dialer

	mu        sync.Mutex
	conn      Conn
	status    Status
	attempts  int
	manual    bool
	reconnect *time.Timer
	readerWG  sync.WaitGroup

	logMu    sync.Mutex
	messages []protocol.Message

	// events coalesces wake-ups for the consumer: a token arrives after
	// any status change or newly logged message.
	events chan struct{}
}

// New creates a channel using the given dialer. Zero config fields fall back
// to defaults.
func New(cfg Config, dialer Dialer) *Channel {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	return &Channel{
		cfg:    cfg,
		dialer: dialer,
		events: make(chan struct{}, 1),
	}
}

// Status returns the current connection status.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Attempts returns the consecutive-failure counter.
func (c *Channel) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Events returns the consumer wake-up channel. A received token means the
// status changed or new messages were appended; tokens coalesce.
func (c *Channel) Events() <-chan struct{} {
	return c.events
}

// Connect establishes a connection if none exists.
//
// It is a no-op (ErrAlreadyConnecting) while connecting or connected, and
// refuses (ErrTooManyRetries) once the failure counter has reached the
// configured maximum; the only reset paths are Disconnect and ResetBackoff.
// On success the failure counter resets and a ping is sent to confirm
// liveness end to end.
func (c *Channel) Connect() error {
	c.mu.Lock()
	if c.status == StatusConnecting || c.status == StatusConnected {
		c.mu.Unlock()
		return ErrAlreadyConnecting
	}
	if c.attempts >= c.cfg.MaxReconnectAttempts {
		c.mu.Unlock()
		log.Printf("channel: %v (%d)", ErrTooManyRetries, c.cfg.MaxReconnectAttempts)
		return ErrTooManyRetries
	}
	c.status = StatusConnecting
	c.manual = false
	url := c.cfg.URL
	c.mu.Unlock()
	c.signal()

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	conn, err := c.dialer.Dial(ctx, url)
	if err != nil {
		// A failed handshake does not schedule a retry by itself; the
		// caller (or a later UI action) retries explicitly.
		c.mu.Lock()
		c.status = StatusDisconnected
		c.attempts++
		c.mu.Unlock()
		c.signal()
		return fmt.Errorf("dial %s: %w", url, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.status = StatusConnected
	c.attempts = 0
	c.readerWG.Add(1)
	c.mu.Unlock()
	c.signal()
	log.Printf("channel: connected to %s", url)

	go c.readLoop(conn)

	// Liveness probe through the full round trip.
	if err := c.Ping(); err != nil {
		log.Printf("channel: liveness ping failed: %v", err)
	}
	return nil
}

// Disconnect closes the connection with a normal closure and suppresses
// auto-reconnect. The failure counter resets, so a later Connect starts
// fresh. This is the only cancellation primitive the channel has.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.manual = true
	c.attempts = 0
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	conn := c.conn
	c.conn = nil
	c.status = StatusDisconnected
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.signal()
}

// ResetBackoff clears the consecutive-failure counter without touching the
// connection, re-arming Connect after the retry cap was hit.
func (c *Channel) ResetBackoff() {
	c.mu.Lock()
	c.attempts = 0
	c.mu.Unlock()
}

// Wait blocks until the reader goroutine for the current connection has
// exited. Test helper; production callers rely on Disconnect alone.
func (c *Channel) Wait() {
	c.readerWG.Wait()
}

// =============================================================================
// SEND
// =============================================================================

// send transmits a pre-encoded frame if connected.
//
// At-most-once: when not connected the frame is dropped, a warning logged,
// and a recovery Connect fired asynchronously. The original payload is never
// queued or retried.
func (c *Channel) send(data []byte) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.status == StatusConnected
	c.mu.Unlock()

	if !connected || conn == nil {
		log.Printf("channel: cannot send, not connected; message dropped")
		go c.Connect() //nolint:errcheck // fire-and-forget recovery
		return ErrNotConnected
	}

	if err := conn.WriteMessage(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// =============================================================================
// READ LOOP
// =============================================================================

// readLoop consumes frames until the connection dies, then decides whether
// the closure warrants an automatic reconnect.
func (c *Channel) readLoop(conn Conn) {
	defer c.readerWG.Done()

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			c.handleClosure(conn, err)
			return
		}

		msg, derr := protocol.Decode(data)
		if derr != nil {
			// Malformed or unknown frames are dropped; nothing else
			// is affected.
			log.Printf("channel: dropping inbound frame: %v", derr)
			continue
		}

		c.logMu.Lock()
		c.messages = append(c.messages, msg)
		c.logMu.Unlock()
		c.signal()
	}
}

// handleClosure updates state after the read loop saw an error, scheduling a
// reconnect only for abnormal closures under the retry cap.
func (c *Channel) handleClosure(conn Conn, err error) {
	c.mu.Lock()
	if c.conn != conn {
		// A newer connection already replaced this one (or Disconnect
		// cleared it); nothing to do.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.status = StatusDisconnected

	intentional := c.manual || errors.Is(err, ErrNormalClosure)
	if intentional {
		c.mu.Unlock()
		c.signal()
		log.Printf("channel: closed: %v", err)
		return
	}

	c.attempts++
	if c.attempts >= c.cfg.MaxReconnectAttempts {
		c.mu.Unlock()
		c.signal()
		log.Printf("channel: abnormal closure, giving up after %d attempts: %v", c.cfg.MaxReconnectAttempts, err)
		return
	}

	delay := c.cfg.ReconnectDelay
	c.reconnect = time.AfterFunc(delay, func() {
		c.Connect() //nolint:errcheck // guarded internally
	})
	c.mu.Unlock()
	c.signal()
	log.Printf("channel: abnormal closure (%v), reconnecting in %s", err, delay)
}

// =============================================================================
// MESSAGE LOG
// =============================================================================

// MessagesSince returns the messages logged after the given cursor along
// with the new cursor value. Messages are returned in receipt order and the
// log is append-only, so advancing the cursor to the returned value makes
// consumption exactly-once no matter how often the caller polls.
func (c *Channel) MessagesSince(cursor int) ([]protocol.Message, int) {
	c.logMu.Lock()
	defer c.logMu.Unlock()

	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(c.messages) {
		return nil, len(c.messages)
	}
	batch := make([]protocol.Message, len(c.messages)-cursor)
	copy(batch, c.messages[cursor:])
	return batch, len(c.messages)
}

// MessageCount returns the current length of the message log.
func (c *Channel) MessageCount() int {
	c.logMu.Lock()
	defer c.logMu.Unlock()
	return len(c.messages)
}

// ClearMessages drops the logged messages. Cursor holders must reset to 0.
func (c *Channel) ClearMessages() {
	c.logMu.Lock()
	c.messages = nil
	c.logMu.Unlock()
	c.signal()
}

// signal coalesces a wake-up token into the events channel.
func (c *Channel) signal() {
	select {
	case c.events <- struct{}{}:
	default:
	}
}
