// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/docenty/hunmin/internal/auth"
	"github.com/docenty/hunmin/internal/config"
	"github.com/docenty/hunmin/internal/protocol"
	"github.com/docenty/hunmin/internal/security"
)

// =============================================================================
// SERVER
// =============================================================================

const (
	maxRequestBytes  = 1 << 20
	shutdownGrace    = 5 * time.Second
	wsWriteWait      = 10 * time.Second
	rootStatusString = "Docenty AI Worker is running"
)

// Server is the AI worker HTTP service. The WebSocket endpoint at /ws carries
// the bidirectional channel the client dials; POST /analyze and POST /chat
// expose the same rules over plain REST.
type Server struct {
	cfg      config.WorkerConfig
	auth     *auth.Service
	sessions *Sessions
	upgrader websocket.Upgrader
	now      func() time.Time
}

// New builds a Server. auth and sessions may be nil; the login endpoints then
// answer 503.
func New(cfg config.WorkerConfig, authSvc *auth.Service, sessions *Sessions) *Server {
	return &Server{
		cfg:      cfg,
		auth:     authSvc,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The client is a terminal program, not a browser; origin
			// checks do not apply.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		now: time.Now,
	}
}

// Handler returns the route dispatcher.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handle)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("worker: listening on %s", s.cfg.ListenAddr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/":
		writeJSON(w, http.StatusOK, map[string]any{
			"message": rootStatusString,
			"status":  "healthy",
		})

	case r.Method == http.MethodGet && r.URL.Path == "/health":
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "healthy",
			"timestamp": s.now().UTC().Format(time.RFC3339),
		})

	case r.Method == http.MethodPost && r.URL.Path == "/analyze":
		s.handleAnalyze(w, r)

	case r.Method == http.MethodPost && r.URL.Path == "/chat":
		s.handleChat(w, r)

	case r.Method == http.MethodPost && r.URL.Path == "/auth/login":
		s.handleLogin(w, r)

	case r.Method == http.MethodPost && r.URL.Path == "/auth/logout":
		s.handleLogout(w, r)

	case r.URL.Path == "/ws":
		s.handleWS(w, r)

	default:
		writeError(w, http.StatusNotFound, "경로를 찾을 수 없습니다.")
	}
}

// =============================================================================
// REST HANDLERS
// =============================================================================

type analyzeBody struct {
	Content       string `json:"content"`
	SecurityLevel string `json:"security_level"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var body analyzeBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "요청 본문을 해석할 수 없습니다.")
		return
	}
	if body.SecurityLevel == "" {
		body.SecurityLevel = security.MarkingNormal
	}
	writeJSON(w, http.StatusOK, Evaluate(body.Content, body.SecurityLevel, s.now()))
}

type chatBody struct {
	Message         string              `json:"message"`
	DocumentContent string              `json:"document_content"`
	History         []protocol.ChatTurn `json:"history"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body chatBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "요청 본문을 해석할 수 없습니다.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reply":     Respond(body.Message, body.DocumentContent),
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil || s.sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "인증이 설정되지 않았습니다.")
		return
	}

	var body loginBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "요청 본문을 해석할 수 없습니다.")
		return
	}

	err := s.auth.Authenticate(r.Context(), body.Username, body.Password, body.TOTPCode)
	switch {
	case errors.Is(err, auth.ErrTOTPRequired):
		writeError(w, http.StatusUnauthorized, "OTP 코드가 필요합니다.")
		return
	case errors.Is(err, auth.ErrAccountLocked):
		writeError(w, http.StatusForbidden, "계정이 잠겼습니다. 잠시 후 다시 시도해주세요.")
		return
	case err != nil:
		writeError(w, http.StatusUnauthorized, "아이디 또는 비밀번호가 올바르지 않습니다.")
		return
	}

	token, err := s.sessions.Create(r.Context(), body.Username)
	if err != nil {
		log.Printf("worker: create session: %v", err)
		writeError(w, http.StatusInternalServerError, "세션을 생성하지 못했습니다.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "인증이 설정되지 않았습니다.")
		return
	}

	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "세션 토큰이 없습니다.")
		return
	}
	if err := s.sessions.Revoke(r.Context(), token); err != nil {
		log.Printf("worker: revoke session: %v", err)
		writeError(w, http.StatusInternalServerError, "세션을 종료하지 못했습니다.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// =============================================================================
// WEBSOCKET
// =============================================================================

// wsRequest is the inbound client frame. Fields beyond Type are filled
// according to the request type.
type wsRequest struct {
	Type            string              `json:"type"`
	Content         string              `json:"content"`
	SecurityLevel   string              `json:"security_level"`
	Message         string              `json:"message"`
	DocumentContent string              `json:"document_content"`
	History         []protocol.ChatTurn `json:"history"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("worker: ws upgrade: %v", err)
		return
	}
	defer conn.Close()

	limiter := rate.NewLimiter(rate.Limit(s.cfg.RateLimitRPS), s.cfg.RateLimitBurst)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("worker: ws read: %v", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		if !limiter.Allow() {
			if err := s.writeWS(conn, errorFrame("요청이 너무 많습니다. 잠시 후 다시 시도해주세요.", s.now())); err != nil {
				return
			}
			continue
		}

		if err := s.writeWS(conn, s.dispatch(data)); err != nil {
			log.Printf("worker: ws write: %v", err)
			return
		}
	}
}

// dispatch routes one inbound frame to the rules and builds the reply frame.
func (s *Server) dispatch(data []byte) map[string]any {
	now := s.now()

	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errorFrame(fmt.Sprintf("Invalid JSON: %v", err), now)
	}

	switch req.Type {
	case protocol.RequestAnalyze:
		level := req.SecurityLevel
		if level == "" {
			level = security.MarkingNormal
		}
		return map[string]any{
			"type":      string(protocol.KindAnalysis),
			"result":    Evaluate(req.Content, level, now),
			"timestamp": now.UTC().Format(time.RFC3339),
		}

	case protocol.RequestChat:
		return map[string]any{
			"type":      string(protocol.KindChat),
			"result":    Respond(req.Message, req.DocumentContent),
			"timestamp": now.UTC().Format(time.RFC3339),
		}

	case protocol.RequestPing:
		return map[string]any{
			"type":      string(protocol.KindPong),
			"timestamp": now.UTC().Format(time.RFC3339),
		}

	default:
		return errorFrame(fmt.Sprintf("Unknown request type: %s", req.Type), now)
	}
}

func errorFrame(message string, now time.Time) map[string]any {
	return map[string]any{
		"type":      string(protocol.KindError),
		"message":   message,
		"timestamp": now.UTC().Format(time.RFC3339),
	}
}

func (s *Server) writeWS(conn *websocket.Conn, frame map[string]any) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	return dec.Decode(target)
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
