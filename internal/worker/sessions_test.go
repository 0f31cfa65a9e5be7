// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions(t *testing.T) (*Sessions, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewSessionsWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestSessionsCreateAndLookup(t *testing.T) {
	s, _ := newTestSessions(t)
	ctx := context.Background()

	token, err := s.Create(ctx, "kim.cheolsu")
	require.NoError(t, err)
	assert.Len(t, token, 64)

	username, err := s.Lookup(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "kim.cheolsu", username)
}

func TestSessionsTokensAreUnique(t *testing.T) {
	s, _ := newTestSessions(t)
	ctx := context.Background()

	a, err := s.Create(ctx, "kim.cheolsu")
	require.NoError(t, err)
	b, err := s.Create(ctx, "kim.cheolsu")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSessionsLookupUnknown(t *testing.T) {
	s, _ := newTestSessions(t)

	_, err := s.Lookup(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionsExpire(t *testing.T) {
	s, mr := newTestSessions(t)
	ctx := context.Background()

	token, err := s.Create(ctx, "kim.cheolsu")
	require.NoError(t, err)

	mr.FastForward(sessionTTL + time.Minute)

	_, err = s.Lookup(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionsRevoke(t *testing.T) {
	s, _ := newTestSessions(t)
	ctx := context.Background()

	token, err := s.Create(ctx, "kim.cheolsu")
	require.NoError(t, err)
	require.NoError(t, s.Revoke(ctx, token))

	_, err = s.Lookup(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Revoking again is a no-op.
	assert.NoError(t, s.Revoke(ctx, token))
}
