// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docenty/hunmin/internal/auth"
	"github.com/docenty/hunmin/internal/config"
	"github.com/docenty/hunmin/internal/protocol"
	"github.com/docenty/hunmin/internal/storage"
)

func testWorkerConfig() config.WorkerConfig {
	return config.WorkerConfig{
		ListenAddr:     ":0",
		RateLimitRPS:   100,
		RateLimitBurst: 100,
	}
}

func newTestServer(t *testing.T, srv *Server) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeResp(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

// =============================================================================
// REST
// =============================================================================

func TestRootStatus(t *testing.T) {
	ts := newTestServer(t, New(testWorkerConfig(), nil, nil))

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	decodeResp(t, resp, &body)
	assert.Equal(t, "Docenty AI Worker is running", body["message"])
	assert.Equal(t, "healthy", body["status"])
}

func TestHealth(t *testing.T) {
	srv := New(testWorkerConfig(), nil, nil)
	srv.now = func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }
	ts := newTestServer(t, srv)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	decodeResp(t, resp, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "2025-06-01T09:00:00Z", body["timestamp"])
}

func TestAnalyzeEndpoint(t *testing.T) {
	ts := newTestServer(t, New(testWorkerConfig(), nil, nil))

	resp := postJSON(t, ts.URL+"/analyze", map[string]string{"content": "짧음"})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result protocol.ValidationResult
	decodeResp(t, resp, &result)
	assert.False(t, result.IsValid)
	require.NotEmpty(t, result.Issues)
	assert.Equal(t, "length", result.Issues[0].Type)
}

func TestAnalyzeEndpointDefaultsSecurityLevel(t *testing.T) {
	ts := newTestServer(t, New(testWorkerConfig(), nil, nil))

	resp := postJSON(t, ts.URL+"/analyze", map[string]string{
		"content": "이 보고서에는 기밀 사항이 포함되어 있습니다.",
	})

	var result protocol.ValidationResult
	decodeResp(t, resp, &result)
	types := make([]string, 0, len(result.Issues))
	for _, issue := range result.Issues {
		types = append(types, issue.Type)
	}
	assert.Contains(t, types, "security")
}

func TestAnalyzeEndpointRejectsBadJSON(t *testing.T) {
	ts := newTestServer(t, New(testWorkerConfig(), nil, nil))

	resp, err := http.Post(ts.URL+"/analyze", "application/json", strings.NewReader("{{{"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatEndpoint(t *testing.T) {
	ts := newTestServer(t, New(testWorkerConfig(), nil, nil))

	resp := postJSON(t, ts.URL+"/chat", map[string]string{"message": "안녕하세요"})

	var body map[string]string
	decodeResp(t, resp, &body)
	assert.Equal(t, "안녕하세요! 문서 작성과 검토를 도와드리겠습니다. 어떤 도움이 필요하신가요?", body["reply"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, New(testWorkerConfig(), nil, nil))

	resp, err := http.Get(ts.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// WEBSOCKET
// =============================================================================

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, frame string) protocol.Message {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := protocol.Decode(data)
	require.NoError(t, err)
	return msg
}

func TestWSPing(t *testing.T) {
	ts := newTestServer(t, New(testWorkerConfig(), nil, nil))
	conn := dialWS(t, ts)

	msg := roundTrip(t, conn, `{"type":"ping"}`)

	assert.Equal(t, protocol.KindPong, msg.Type)
	assert.NotEmpty(t, msg.Timestamp)
}

func TestWSAnalyze(t *testing.T) {
	ts := newTestServer(t, New(testWorkerConfig(), nil, nil))
	conn := dialWS(t, ts)

	msg := roundTrip(t, conn, `{"type":"analyze","content":"짧음","security_level":"일반"}`)

	require.Equal(t, protocol.KindAnalysis, msg.Type)
	require.NotNil(t, msg.Analysis)
	assert.False(t, msg.Analysis.IsValid)
}

func TestWSChat(t *testing.T) {
	ts := newTestServer(t, New(testWorkerConfig(), nil, nil))
	conn := dialWS(t, ts)

	msg := roundTrip(t, conn, `{"type":"chat","message":"도움이 필요해","document_content":"","history":[]}`)

	require.Equal(t, protocol.KindChat, msg.Type)
	assert.Contains(t, msg.Reply, "다음과 같은 기능을 제공합니다")
}

func TestWSUnknownType(t *testing.T) {
	ts := newTestServer(t, New(testWorkerConfig(), nil, nil))
	conn := dialWS(t, ts)

	msg := roundTrip(t, conn, `{"type":"frobnicate"}`)

	require.Equal(t, protocol.KindError, msg.Type)
	assert.Equal(t, "Unknown request type: frobnicate", msg.ErrorText)
}

func TestWSInvalidJSON(t *testing.T) {
	ts := newTestServer(t, New(testWorkerConfig(), nil, nil))
	conn := dialWS(t, ts)

	msg := roundTrip(t, conn, `this is not json`)

	require.Equal(t, protocol.KindError, msg.Type)
	assert.Contains(t, msg.ErrorText, "Invalid JSON:")
}

func TestWSRateLimit(t *testing.T) {
	cfg := testWorkerConfig()
	cfg.RateLimitRPS = 0.001
	cfg.RateLimitBurst = 1
	ts := newTestServer(t, New(cfg, nil, nil))
	conn := dialWS(t, ts)

	first := roundTrip(t, conn, `{"type":"ping"}`)
	require.Equal(t, protocol.KindPong, first.Type)

	second := roundTrip(t, conn, `{"type":"ping"}`)
	require.Equal(t, protocol.KindError, second.Type)
	assert.Contains(t, second.ErrorText, "요청이 너무 많습니다")
}

// =============================================================================
// AUTH ROUTES
// =============================================================================

func TestLoginUnconfigured(t *testing.T) {
	ts := newTestServer(t, New(testWorkerConfig(), nil, nil))

	resp := postJSON(t, ts.URL+"/auth/login", map[string]string{"username": "kim", "password": "x"})

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestLoginAndLogout(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "hunmin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	authSvc := auth.NewService(store, auth.Config{BcryptCost: 10})
	require.NoError(t, authSvc.Register(context.Background(), "kim.cheolsu", "아주긴비밀번호1"))

	mr := miniredis.RunT(t)
	sessions := NewSessionsWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { sessions.Close() })

	ts := newTestServer(t, New(testWorkerConfig(), authSvc, sessions))

	resp := postJSON(t, ts.URL+"/auth/login", map[string]string{
		"username": "kim.cheolsu",
		"password": "아주긴비밀번호1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	decodeResp(t, resp, &body)
	require.NotEmpty(t, body["token"])

	username, err := sessions.Lookup(context.Background(), body["token"])
	require.NoError(t, err)
	assert.Equal(t, "kim.cheolsu", username)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/auth/logout", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+body["token"])
	logoutResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer logoutResp.Body.Close()
	require.Equal(t, http.StatusOK, logoutResp.StatusCode)

	_, err = sessions.Lookup(context.Background(), body["token"])
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestLoginBadPassword(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "hunmin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	authSvc := auth.NewService(store, auth.Config{BcryptCost: 10})
	require.NoError(t, authSvc.Register(context.Background(), "kim.cheolsu", "아주긴비밀번호1"))

	mr := miniredis.RunT(t)
	sessions := NewSessionsWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { sessions.Close() })

	ts := newTestServer(t, New(testWorkerConfig(), authSvc, sessions))

	resp := postJSON(t, ts.URL+"/auth/login", map[string]string{
		"username": "kim.cheolsu",
		"password": "틀린비밀번호",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
