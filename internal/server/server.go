// Package server provides the HTTP control plane for groundctl.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/groundctl/groundctl/internal/engine"
	"github.com/groundctl/groundctl/internal/store"
)

// Server exposes the engine's operations over HTTP plus an SSE live feed.
type Server struct {
	engine *engine.Engine
	store  *store.Store
	hub    *Hub
	logger *slog.Logger
	addr   string
	server *http.Server
}

// NewServer creates a new HTTP server. The hub is wired into the engine so
// every state change is broadcast to live-feed clients.
func NewServer(eng *engine.Engine, st *store.Store, addr string, logger *slog.Logger) *Server {
	hub := NewHub(logger)
	eng.SetEvents(hub)
	return &Server{
		engine: eng,
		store:  st,
		hub:    hub,
		logger: logger,
		addr:   addr,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/agents", s.handleAgents)
	mux.HandleFunc("/agents/", s.handleAgentByID)
	mux.HandleFunc("/tasks", s.handleTasks)
	mux.HandleFunc("/tasks/", s.handleTaskByID)
	mux.HandleFunc("/messages", s.handleMessages)
	mux.HandleFunc("/notifications", s.handleNotifications)
	mux.HandleFunc("/notifications/", s.handleNotificationByID)
	mux.HandleFunc("/activities", s.handleActivities)
	mux.HandleFunc("/documents", s.handleDocuments)
	mux.HandleFunc("/documents/", s.handleDocumentByID)
	mux.HandleFunc("/events", s.hub.ServeSSE)
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

// Start starts the HTTP server and blocks until it exits.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:        s.addr,
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
	}

	s.logger.Info("control plane listening", slog.String("addr", s.addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	OK   bool   `json:"ok"`
	DB   string `json:"db"`
	Time string `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := HealthResponse{OK: true, DB: "ok", Time: time.Now().UTC().Format(time.RFC3339)}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		health.OK = false
		health.DB = err.Error()
	}
	s.writeJSON(w, http.StatusOK, health)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", slog.Any("err", err))
	}
}

// writeError maps engine errors onto HTTP statuses: rejected inputs are the
// caller's fault, everything else is the store's.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if isValidationError(err) {
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		engine.ErrInvalidAgentStatus,
		engine.ErrInvalidTaskStatus,
		engine.ErrInvalidPriority,
		engine.ErrInvalidMessageType,
		engine.ErrInvalidNotificationType,
		engine.ErrInvalidActivityType,
		engine.ErrInvalidDocumentType,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
