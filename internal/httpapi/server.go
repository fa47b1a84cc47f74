// Package httpapi serves the chat API over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"persona-chatter/internal/history"
	"persona-chatter/internal/orchestrator"
)

type Chatter interface {
	Chat(ctx context.Context, userID, message string) (orchestrator.Reply, error)
}

type HistoryReader interface {
	History(ctx context.Context, userID string) (map[string][]history.Entry, error)
}

// PersonaLister is refreshed before listing so personas created by other
// instances sharing the store show up.
type PersonaLister interface {
	Refresh(ctx context.Context) error
	Names() []string
}

type Server struct {
	chat     Chatter
	history  HistoryReader
	personas PersonaLister
	logger   *zap.Logger
	addr     string
	server   *http.Server
	started  time.Time
}

func NewServer(addr string, chat Chatter, hist HistoryReader, personas PersonaLister, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		chat:     chat,
		history:  hist,
		personas: personas,
		logger:   logger,
		addr:     addr,
		started:  time.Now(),
	}
	s.server = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		// Generation may take up to LLM_TIMEOUT.
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/chat_history", s.handleHistory)
	mux.HandleFunc("/personas", s.handlePersonas)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Start blocks until the server stops. It returns nil after Stop.
func (s *Server) Start() error {
	s.logger.Info("🌐 Starting HTTP server", zap.String("addr", s.addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

type chatRequest struct {
	UserID  *string `json:"user_id"`
	Message *string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
	ThreadID string `json:"thread_id"`
	Persona  string `json:"persona"`
}

type historyResponse struct {
	UserID  string                     `json:"user_id"`
	History map[string][]history.Entry `json:"history"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "malformed JSON body")
		return
	}
	if req.UserID == nil || *req.UserID == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "user_id is required")
		return
	}
	if req.Message == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "message is required")
		return
	}

	reply, err := s.chat.Chat(r.Context(), *req.UserID, *req.Message)
	if err != nil {
		s.logger.Error("❌ Chat failed", zap.String("user_id", *req.UserID), zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Response: reply.Response,
		ThreadID: reply.ThreadID,
		Persona:  reply.Persona,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "user_id is required")
		return
	}
	h, err := s.history.History(r.Context(), userID)
	if err != nil {
		s.logger.Error("❌ History failed", zap.String("user_id", userID), zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	if h == nil {
		h = map[string][]history.Entry{}
	}
	writeJSON(w, http.StatusOK, historyResponse{UserID: userID, History: h})
}

func (s *Server) handlePersonas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.personas.Refresh(r.Context()); err != nil {
		s.logger.Error("❌ Persona refresh failed", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"personas": s.personas.Names()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
