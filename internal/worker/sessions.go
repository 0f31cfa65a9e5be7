// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package worker

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// =============================================================================
// SESSION STORE
// =============================================================================

// ErrSessionNotFound indicates an unknown or expired session token.
var ErrSessionNotFound = errors.New("session not found or expired")

const (
	sessionPrefix = "session:"
	sessionTTL    = 12 * time.Hour
)

// sessionData is the JSON payload stored per token.
type sessionData struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Sessions stores login session tokens in redis. Tokens expire server-side
// via TTL; there is no refresh.
type Sessions struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessions connects to redis and verifies the connection.
func NewSessions(addr, password string) (*Sessions, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Sessions{client: client, ttl: sessionTTL}, nil
}

// NewSessionsWithClient wraps an existing redis client. Used by tests.
func NewSessionsWithClient(client *redis.Client) *Sessions {
	return &Sessions{client: client, ttl: sessionTTL}
}

func sessionKey(token string) string {
	return sessionPrefix + token
}

// Create issues a fresh session token for username.
func (s *Sessions) Create(ctx context.Context, username string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(raw)

	payload, err := json.Marshal(sessionData{Username: username, CreatedAt: time.Now().UTC()})
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(token), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return token, nil
}

// Lookup resolves a session token to the username that owns it.
func (s *Sessions) Lookup(ctx context.Context, token string) (string, error) {
	raw, err := s.client.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup session: %w", err)
	}

	var data sessionData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return "", fmt.Errorf("unmarshal session: %w", err)
	}
	return data.Username, nil
}

// Revoke deletes a session token. Revoking an unknown token is not an error.
func (s *Sessions) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Ping checks redis reachability.
func (s *Sessions) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the redis connection.
func (s *Sessions) Close() error {
	return s.client.Close()
}
