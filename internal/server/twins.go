// ABOUTME: Twin CRUD and image processing handlers
// ABOUTME: process-image is guarded by a bearer JWT signed with the shared secret

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/twinspace/twinchat/internal/store"
	"github.com/twinspace/twinchat/internal/twins"
)

// twinPayload is the wire shape of a twin.
type twinPayload struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
	Status      string          `json:"status"`
	Tags        []string        `json:"tags,omitempty"`
	Features    json.RawMessage `json:"features,omitempty"`
	ModelData   json.RawMessage `json:"model_data,omitempty"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

func toTwinPayload(twin *store.Twin) twinPayload {
	p := twinPayload{
		ID:          twin.ID,
		Name:        twin.Name,
		Description: twin.Description,
		ImageURL:    twin.ImageURL,
		Status:      twin.Status,
		Tags:        twin.Tags,
		CreatedAt:   twin.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   twin.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if twin.Features != "" {
		p.Features = json.RawMessage(twin.Features)
	}
	if twin.ModelData != "" {
		p.ModelData = json.RawMessage(twin.ModelData)
	}
	return p
}

func (s *Server) handleListTwins(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	all, err := s.twins.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list twins", "error", err)
		http.Error(w, "Failed to list twins", http.StatusInternalServerError)
		return
	}

	payloads := make([]twinPayload, 0, len(all))
	for _, twin := range all {
		payloads = append(payloads, toTwinPayload(twin))
	}
	s.writeJSON(w, http.StatusOK, payloads)
}

type createTwinRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ImageURL    string   `json:"image_url"`
	Tags        []string `json:"tags"`
	Template    string   `json:"template"`
}

func (s *Server) handleCreateTwin(w http.ResponseWriter, r *http.Request) {
	var req createTwinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	twin, err := s.twins.Create(r.Context(), twins.CreateParams{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Tags:        req.Tags,
		Template:    req.Template,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusCreated, toTwinPayload(twin))
}

func (s *Server) handleGetTwin(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	twin, err := s.twins.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Twin not found", http.StatusNotFound)
			return
		}
		s.logger.Error("failed to load twin", "twin_id", id, "error", err)
		http.Error(w, "Failed to load twin", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, toTwinPayload(twin))
}

func (s *Server) handleUpdateTwin(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	twin, err := s.twins.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Twin not found", http.StatusNotFound)
			return
		}
		s.logger.Error("failed to load twin", "twin_id", id, "error", err)
		http.Error(w, "Failed to update twin", http.StatusInternalServerError)
		return
	}

	var req createTwinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		twin.Name = name
	}
	if req.Description != "" {
		twin.Description = req.Description
	}
	if req.ImageURL != "" {
		twin.ImageURL = req.ImageURL
	}
	if req.Tags != nil {
		twin.Tags = req.Tags
	}
	twin.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateTwin(r.Context(), twin); err != nil {
		s.logger.Error("failed to update twin", "twin_id", id, "error", err)
		http.Error(w, "Failed to update twin", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, toTwinPayload(twin))
}

func (s *Server) handleDeleteTwin(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.twins.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Twin not found", http.StatusNotFound)
			return
		}
		s.logger.Error("failed to delete twin", "twin_id", id, "error", err)
		http.Error(w, "Failed to delete twin", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProcessImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, err := s.twins.StartProcessing(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			http.Error(w, "Twin not found", http.StatusNotFound)
		case errors.Is(err, twins.ErrNoImage):
			http.Error(w, "Twin has no image to process", http.StatusBadRequest)
		default:
			s.logger.Error("failed to start processing", "twin_id", id, "error", err)
			http.Error(w, "Failed to start processing", http.StatusInternalServerError)
		}
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, err := s.twins.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		s.logger.Error("failed to load job", "job_id", id, "error", err)
		http.Error(w, "Failed to load job", http.StatusInternalServerError)
		return
	}

	payload := map[string]any{
		"job_id":  job.ID,
		"twin_id": job.TwinID,
		"status":  job.Status,
	}
	if job.Result != "" {
		payload["result"] = json.RawMessage(job.Result)
	}
	if job.ErrorMessage != "" {
		payload["error"] = job.ErrorMessage
	}
	s.writeJSON(w, http.StatusOK, payload)
}

// requireToken enforces a bearer JWT signed with the configured secret.
// With no secret configured the check is skipped.
func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.config.TokenSecret == "" {
			next(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			http.Error(w, "Missing bearer token", http.StatusUnauthorized)
			return
		}

		_, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(s.config.TokenSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			s.logger.Warn("rejected processing request", "error", err)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}
