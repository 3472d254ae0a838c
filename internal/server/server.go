package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Rib4ko/essaouira-guide/internal/chat"
)

// Server exposes the orchestrator to a web presentation layer: a JSON
// chat endpoint plus a WebSocket that additionally streams tool-status
// updates mid-turn.
type Server struct {
	orch     *chat.Orchestrator
	logger   *slog.Logger
	upgrader websocket.Upgrader
	busy     atomic.Bool

	httpServer *http.Server
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// wsFrame is one WebSocket message in either direction.
type wsFrame struct {
	Type       string      `json:"type"` // message, status, reply, error
	Message    string      `json:"message,omitempty"`
	Status     string      `json:"status,omitempty"`
	Text       string      `json:"text,omitempty"`
	IsError    bool        `json:"isError,omitempty"`
	Events     interface{} `json:"events,omitempty"`
	WebSources []string    `json:"webSources,omitempty"`
}

// New creates a Server listening on addr.
func New(orch *chat.Orchestrator, logger *slog.Logger, addr string) *Server {
	s := &Server{
		orch:   orch,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /ws", s.handleWS)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleChat runs one full turn. While a turn is in flight any further
// submission is rejected: the conversation is a single logical thread.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	if !s.busy.CompareAndSwap(false, true) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a message is already being processed"})
		return
	}
	defer s.busy.Store(false)

	reply, err := s.orch.SendMessage(r.Context(), req.Message, nil)
	if err != nil {
		s.logger.Error("chat turn failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"text":    chat.ErrorReplyText,
			"isError": true,
		})
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

// handleWS upgrades to a WebSocket and exchanges one frame sequence per
// user message: zero or more status frames, then a reply or error frame.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		var in wsFrame
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		if in.Type != "message" || in.Message == "" {
			_ = conn.WriteJSON(wsFrame{Type: "error", Text: "expected a message frame"})
			continue
		}

		if !s.busy.CompareAndSwap(false, true) {
			_ = conn.WriteJSON(wsFrame{Type: "error", Text: "a message is already being processed"})
			continue
		}

		reply, err := s.orch.SendMessage(r.Context(), in.Message, func(status string) {
			_ = conn.WriteJSON(wsFrame{Type: "status", Status: status})
		})
		s.busy.Store(false)

		if err != nil {
			s.logger.Error("chat turn failed", "error", err)
			_ = conn.WriteJSON(wsFrame{Type: "error", Text: chat.ErrorReplyText, IsError: true})
			continue
		}

		_ = conn.WriteJSON(wsFrame{
			Type:       "reply",
			Text:       reply.Text,
			Events:     reply.Events,
			WebSources: reply.WebSources,
		})
	}
}
