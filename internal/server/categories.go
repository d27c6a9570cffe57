// ABOUTME: Category handlers for grouping twins
// ABOUTME: Minimal list/create/assign surface over the store's category tables

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/twinspace/twinchat/internal/store"
)

// categoryPayload is the wire shape of a category.
type categoryPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toCategoryPayload(c *store.Category) categoryPayload {
	return categoryPayload{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.ListCategories(r.Context())
	if err != nil {
		s.logger.Error("failed to list categories", "error", err)
		http.Error(w, "Failed to list categories", http.StatusInternalServerError)
		return
	}

	payloads := make([]categoryPayload, 0, len(all))
	for _, c := range all {
		payloads = append(payloads, toCategoryPayload(c))
	}
	s.writeJSON(w, http.StatusOK, payloads)
}

type createCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}

	category := &store.Category{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateCategory(r.Context(), category); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			http.Error(w, "Category already exists", http.StatusConflict)
			return
		}
		s.logger.Error("failed to create category", "error", err)
		http.Error(w, "Failed to create category", http.StatusInternalServerError)
		return
	}

	s.logger.Info("category created", "category_id", category.ID, "name", category.Name)
	s.writeJSON(w, http.StatusCreated, toCategoryPayload(category))
}

func (s *Server) handleCategoryTwins(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	all, err := s.store.ListTwinsByCategory(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to list twins by category", "category_id", id, "error", err)
		http.Error(w, "Failed to list twins", http.StatusInternalServerError)
		return
	}

	payloads := make([]twinPayload, 0, len(all))
	for _, twin := range all {
		payloads = append(payloads, toTwinPayload(twin))
	}
	s.writeJSON(w, http.StatusOK, payloads)
}

type assignCategoryRequest struct {
	CategoryID string `json:"category_id"`
}

func (s *Server) handleAssignCategory(w http.ResponseWriter, r *http.Request) {
	twinID := r.PathValue("id")

	var req assignCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CategoryID == "" {
		http.Error(w, "category_id required", http.StatusBadRequest)
		return
	}

	if _, err := s.store.GetTwin(r.Context(), twinID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Twin not found", http.StatusNotFound)
			return
		}
		s.logger.Error("failed to look up twin", "twin_id", twinID, "error", err)
		http.Error(w, "Failed to assign category", http.StatusInternalServerError)
		return
	}
	if !s.categoryExists(r, req.CategoryID) {
		http.Error(w, "Category not found", http.StatusNotFound)
		return
	}

	if err := s.store.AssignCategory(r.Context(), twinID, req.CategoryID); err != nil {
		s.logger.Error("failed to assign category",
			"twin_id", twinID, "category_id", req.CategoryID, "error", err)
		http.Error(w, "Failed to assign category", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) categoryExists(r *http.Request, id string) bool {
	all, err := s.store.ListCategories(r.Context())
	if err != nil {
		return false
	}
	for _, c := range all {
		if c.ID == id {
			return true
		}
	}
	return false
}
