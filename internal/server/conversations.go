// ABOUTME: Conversation and message handlers for the JSON API
// ABOUTME: Wire shapes match the client package's envelope types

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/twinspace/twinchat/internal/conversations"
	"github.com/twinspace/twinchat/internal/store"
)

// toSummary converts a stored conversation to its wire shape.
func toSummary(conv *store.Conversation) conversations.Summary {
	summary := conversations.Summary{
		ID:        conv.ID,
		CreatedAt: conv.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: conv.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if conv.Title != "" {
		title := conv.Title
		summary.Title = &title
	}
	return summary
}

func toWireMessage(msg *store.Message) conversations.Message {
	return conversations.Message{
		ID:        msg.ID,
		CreatedAt: msg.CreatedAt.UTC().Format(time.RFC3339),
		Content: conversations.Content{
			Role: conversations.Role(msg.SenderType),
			Text: msg.Content,
		},
		ConversationID: msg.ConversationID,
	}
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	params := store.ListConversationsParams{
		Page:    1,
		PerPage: conversations.PageSize,
		Search:  strings.TrimSpace(r.URL.Query().Get("q")),
	}
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		params.Page = p
	}
	if pp, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && pp > 0 {
		params.PerPage = pp
	}

	convs, err := s.store.ListConversations(r.Context(), params)
	if err != nil {
		s.logger.Error("failed to list conversations", "error", err)
		http.Error(w, "Failed to list conversations", http.StatusInternalServerError)
		return
	}

	summaries := make([]conversations.Summary, 0, len(convs))
	for _, conv := range convs {
		summaries = append(summaries, toSummary(conv))
	}
	s.writeJSON(w, http.StatusOK, summaries)
}

type createConversationRequest struct {
	TwinID string `json:"twin_id"`
	Title  string `json:"title"`
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.TwinID == "" {
		http.Error(w, "twin_id required", http.StatusBadRequest)
		return
	}
	if _, err := s.store.GetTwin(r.Context(), req.TwinID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Twin not found", http.StatusNotFound)
			return
		}
		s.logger.Error("failed to look up twin", "twin_id", req.TwinID, "error", err)
		http.Error(w, "Failed to create conversation", http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC()
	conv := &store.Conversation{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(req.Title),
		TwinID:    req.TwinID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateConversation(r.Context(), conv); err != nil {
		s.logger.Error("failed to create conversation", "error", err)
		http.Error(w, "Failed to create conversation", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusCreated, toSummary(conv))
}

func (s *Server) handleConversationMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	conv, err := s.store.GetConversation(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Conversation not found", http.StatusNotFound)
			return
		}
		s.logger.Error("failed to load conversation", "conversation_id", id, "error", err)
		http.Error(w, "Failed to load conversation", http.StatusInternalServerError)
		return
	}

	msgs, err := s.store.GetConversationMessages(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to load messages", "conversation_id", id, "error", err)
		http.Error(w, "Failed to load messages", http.StatusInternalServerError)
		return
	}

	wire := make([]conversations.Message, 0, len(msgs))
	for _, msg := range msgs {
		wire = append(wire, toWireMessage(msg))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"conversation": toSummary(conv),
		"messages":     wire,
	})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	conv, err := s.store.GetConversation(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Conversation not found", http.StatusNotFound)
			return
		}
		s.logger.Error("failed to load conversation", "conversation_id", id, "error", err)
		http.Error(w, "Failed to send message", http.StatusInternalServerError)
		return
	}

	var incoming conversations.Message
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	text := strings.TrimSpace(incoming.Content.Text)
	if text == "" {
		http.Error(w, "Message content required", http.StatusBadRequest)
		return
	}

	userMsg := &store.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderType:     string(conversations.RoleUser),
		Content:        text,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.SaveMessage(r.Context(), userMsg); err != nil {
		s.logger.Error("failed to save message", "conversation_id", conv.ID, "error", err)
		http.Error(w, "Failed to save message", http.StatusInternalServerError)
		return
	}

	reply := &store.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderType:     string(conversations.RoleAssistant),
		Content:        s.composeReply(r, conv, text),
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.SaveMessage(r.Context(), reply); err != nil {
		s.logger.Error("failed to save reply", "conversation_id", conv.ID, "error", err)
		http.Error(w, "Failed to save reply", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusCreated, toWireMessage(reply))
}

// composeReply produces the simulated assistant turn. A real deployment
// would call out to a model here; the simulated twin answers in persona.
func (s *Server) composeReply(r *http.Request, conv *store.Conversation, text string) string {
	name := "your twin"
	if twin, err := s.store.GetTwin(r.Context(), conv.TwinID); err == nil && twin.Name != "" {
		name = twin.Name
	}
	return fmt.Sprintf("Speaking as %s: I heard you say %q. Tell me more.", name, text)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteConversation(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Conversation not found", http.StatusNotFound)
			return
		}
		s.logger.Error("failed to delete conversation", "conversation_id", id, "error", err)
		http.Error(w, "Failed to delete conversation", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
