// ABOUTME: HTTP API server exposing conversations and twins
// ABOUTME: Routes are registered on a stdlib mux with method+pattern handlers

package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/twinspace/twinchat/internal/store"
	"github.com/twinspace/twinchat/internal/twins"
)

// Config holds server-level settings.
type Config struct {
	// TokenSecret signs and verifies the bearer tokens that guard the
	// processing endpoint. Empty disables auth on that endpoint.
	TokenSecret string
}

// Server handles the JSON API routes.
type Server struct {
	store  store.Store
	twins  *twins.Service
	config Config
	logger *slog.Logger
}

// New creates the API server. Pass nil logger for slog.Default.
func New(st store.Store, twinSvc *twins.Service, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TokenSecret == "" {
		logger.Warn("processing token secret not set, process-image endpoint is unauthenticated")
	}
	return &Server{
		store:  st,
		twins:  twinSvc,
		config: cfg,
		logger: logger.With("component", "server"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Conversations
	mux.HandleFunc("GET /api/conversations", s.handleListConversations)
	mux.HandleFunc("POST /api/conversations", s.handleCreateConversation)
	mux.HandleFunc("GET /api/conversations/{id}/messages", s.handleConversationMessages)
	mux.HandleFunc("POST /api/conversations/{id}/messages", s.handleSendMessage)
	mux.HandleFunc("DELETE /api/conversations/{id}", s.handleDeleteConversation)

	// Twins
	mux.HandleFunc("GET /api/twins", s.handleListTwins)
	mux.HandleFunc("POST /api/twins", s.handleCreateTwin)
	mux.HandleFunc("GET /api/twins/{id}", s.handleGetTwin)
	mux.HandleFunc("PUT /api/twins/{id}", s.handleUpdateTwin)
	mux.HandleFunc("DELETE /api/twins/{id}", s.handleDeleteTwin)
	mux.HandleFunc("POST /api/twins/{id}/process-image", s.requireToken(s.handleProcessImage))
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)

	// Categories
	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("GET /api/categories/{id}/twins", s.handleCategoryTwins)
	mux.HandleFunc("PUT /api/twins/{id}/category", s.handleAssignCategory)

	s.logger.Info("api routes registered")
}

// writeJSON encodes v as the response body with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
