// ABOUTME: HTTP data access for the conversation API
// ABOUTME: Collapses expected failures into typed empty results instead of errors

package conversations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Status classifies the outcome of a fetch. Callers that only care about
// "data or no data" can ignore it; logging and telemetry layers use it to
// tell a misconfigured base URL from a transient network failure.
type Status string

const (
	// StatusOK means the fetch resolved with data.
	StatusOK Status = "ok"
	// StatusEmpty means the fetch resolved but there was nothing there.
	StatusEmpty Status = "empty"
	// StatusConfigError means no base URL is configured.
	StatusConfigError Status = "config_error"
	// StatusFetchError means the request failed or returned non-2xx.
	StatusFetchError Status = "fetch_error"
)

// Client issues conversation API calls against a configured base URL.
// All expected failure modes of the read paths (missing configuration,
// network error, non-2xx response) degrade to a nil/empty result plus a
// logged diagnostic; they never surface as errors. The thin UI has no retry
// or error-detail requirement beyond showing nothing.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a data access client. baseURL may be empty, in which
// case every fetch degrades to an empty result with StatusConfigError.
// Pass nil httpClient for a default with a 30s timeout, nil logger for
// slog.Default.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
		logger:  logger.With("component", "conversations"),
	}
}

// detailEnvelope is the wire shape of the conversation detail endpoint.
type detailEnvelope struct {
	Conversation Summary   `json:"conversation"`
	Messages     []Message `json:"messages"`
}

// FetchConversation fetches one conversation with its messages.
// Returns nil with a non-OK status on any expected failure.
func (c *Client) FetchConversation(ctx context.Context, id string) (*Conversation, Status) {
	if id == "" {
		return nil, StatusEmpty
	}
	if c.baseURL == "" {
		c.logConfigError()
		return nil, StatusConfigError
	}

	reqURL := fmt.Sprintf("%s/conversations/%s/messages", c.baseURL, url.PathEscape(id))
	body, status := c.get(ctx, reqURL)
	if status != StatusOK {
		return nil, status
	}

	var envelope detailEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		c.logger.Error("failed to decode conversation", "conversation_id", id, "error", err)
		return nil, StatusFetchError
	}

	conv := &Conversation{
		Summary:  envelope.Conversation,
		Messages: envelope.Messages,
	}
	if conv.ID == "" {
		conv.ID = id
	}
	return conv, StatusOK
}

// FetchPage fetches one page of conversation summaries, optionally filtered
// by a search term. Page numbering starts at 1. Returns an empty slice with
// a non-OK status on any expected failure.
func (c *Client) FetchPage(ctx context.Context, page int, searchQuery string) ([]Summary, Status) {
	if c.baseURL == "" {
		c.logConfigError()
		return nil, StatusConfigError
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(PageSize))
	if q := strings.TrimSpace(searchQuery); q != "" {
		params.Set("q", q)
	}

	reqURL := fmt.Sprintf("%s/conversations?%s", c.baseURL, params.Encode())
	body, status := c.get(ctx, reqURL)
	if status != StatusOK {
		return nil, status
	}

	var summaries []Summary
	if err := json.Unmarshal(body, &summaries); err != nil {
		c.logger.Error("failed to decode conversation list", "page", page, "error", err)
		return nil, StatusFetchError
	}
	if len(summaries) == 0 {
		return nil, StatusEmpty
	}
	return summaries, StatusOK
}

// SendMessage posts an outbound user message to a conversation. Unlike the
// read paths this returns an error: the send controller owns the logging
// and flag handling for failures.
func (c *Client) SendMessage(ctx context.Context, conversationID, text string) error {
	if c.baseURL == "" {
		c.logConfigError()
		return fmt.Errorf("server base URL not configured")
	}

	payload, err := json.Marshal(Message{
		Content:        Content{Role: RoleUser, Text: text},
		ConversationID: conversationID,
	})
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	reqURL := fmt.Sprintf("%s/conversations/%s/messages", c.baseURL, url.PathEscape(conversationID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sending message: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// DeleteConversation removes a conversation. Delete failures are
// user-actionable, so they propagate as errors rather than degrading to an
// empty result.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	if c.baseURL == "" {
		c.logConfigError()
		return fmt.Errorf("server base URL not configured")
	}

	reqURL := fmt.Sprintf("%s/conversations/%s", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, reqURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("deleting conversation: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// get issues a GET and returns the body on 2xx, or a classified status.
func (c *Client) get(ctx context.Context, reqURL string) ([]byte, Status) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		c.logger.Error("failed to build request", "url", reqURL, "error", err)
		return nil, StatusFetchError
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("request failed", "url", reqURL, "error", err)
		return nil, StatusFetchError
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, StatusEmpty
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		c.logger.Error("unexpected response status", "url", reqURL, "status", resp.StatusCode)
		return nil, StatusFetchError
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("failed to read response body", "url", reqURL, "error", err)
		return nil, StatusFetchError
	}
	return body, StatusOK
}

// logConfigError reports the missing base URL. Logged at every call site so
// the degraded fetches are traceable, matching the startup check in config.
func (c *Client) logConfigError() {
	c.logger.Error("server base URL is not configured; fetches degrade to empty results")
}
