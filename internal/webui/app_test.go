// ABOUTME: Handler tests for the chat UI over a fake backend
// ABOUTME: Covers sidebar grouping, chat view states, send, and delete flow

package webui

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinspace/twinchat/internal/appstate"
	"github.com/twinspace/twinchat/internal/conversations"
	"github.com/twinspace/twinchat/internal/events"
)

type fakeBackend struct {
	mu        sync.Mutex
	summaries []conversations.Summary
	convs     map[string]*conversations.Conversation
	sent      []string
	sendErrs  []error
	deleted   []string

	// sendDelay keeps SendMessage in flight past the triggering request.
	sendDelay time.Duration
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{convs: make(map[string]*conversations.Conversation)}
}

func (f *fakeBackend) FetchConversation(_ context.Context, id string) (*conversations.Conversation, conversations.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[id]
	if !ok {
		return nil, conversations.StatusEmpty
	}
	return conv, conversations.StatusOK
}

func (f *fakeBackend) FetchPage(_ context.Context, page int, searchQuery string) ([]conversations.Summary, conversations.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if page > 1 {
		return nil, conversations.StatusEmpty
	}
	var out []conversations.Summary
	for _, s := range f.summaries {
		if searchQuery == "" || strings.Contains(strings.ToLower(summaryTitle(s)), strings.ToLower(searchQuery)) {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, conversations.StatusEmpty
	}
	return out, conversations.StatusOK
}

func (f *fakeBackend) SendMessage(ctx context.Context, conversationID, text string) error {
	f.mu.Lock()
	delay := f.sendDelay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, conversationID+":"+text)
	f.sendErrs = append(f.sendErrs, ctx.Err())
	return ctx.Err()
}

func (f *fakeBackend) DeleteConversation(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	delete(f.convs, id)
	return nil
}

func (f *fakeBackend) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeBackend) sendContextErrs() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]error(nil), f.sendErrs...)
}

func (f *fakeBackend) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func (f *fakeBackend) addConversation(id, title string, updatedAt time.Time, msgs ...conversations.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	summary := conversations.Summary{
		ID:        id,
		Title:     &title,
		CreatedAt: updatedAt.Format(time.RFC3339),
		UpdatedAt: updatedAt.Format(time.RFC3339),
	}
	f.summaries = append(f.summaries, summary)
	f.convs[id] = &conversations.Conversation{Summary: summary, Messages: msgs}
}

func newTestApp(t *testing.T) (*App, *fakeBackend, *appstate.State, *events.Bus, *http.ServeMux) {
	t.Helper()
	state := appstate.New("", nil, appstate.WithSearchDebounce(0))
	t.Cleanup(state.Close)
	return newTestAppWithState(t, state)
}

func newTestAppWithState(t *testing.T, state *appstate.State) (*App, *fakeBackend, *appstate.State, *events.Bus, *http.ServeMux) {
	t.Helper()
	backend := newFakeBackend()
	bus := events.NewBus(nil)

	app := New(state, bus, backend, nil)
	t.Cleanup(app.Close)

	mux := http.NewServeMux()
	app.RegisterRoutes(mux)
	return app, backend, state, bus, mux
}

func msg(role conversations.Role, text string) conversations.Message {
	return conversations.Message{Content: conversations.Content{Role: role, Text: text}}
}

func TestShellRendersEmptyState(t *testing.T) {
	_, _, _, _, mux := newTestApp(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No conversation selected")
}

func TestSidebarGroupsByDate(t *testing.T) {
	_, backend, _, _, mux := newTestApp(t)
	now := time.Now()
	backend.addConversation("c1", "fresh chat", now)
	backend.addConversation("c2", "old chat", now.AddDate(0, 0, -30))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/sidebar", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Today")
	assert.Contains(t, body, "fresh chat")
	assert.Contains(t, body, "Older")
	assert.Contains(t, body, "old chat")
}

func TestSearchFiltersSidebar(t *testing.T) {
	_, backend, _, _, mux := newTestApp(t)
	now := time.Now()
	backend.addConversation("c1", "paris trip", now)
	backend.addConversation("c2", "grocery list", now)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/search?q=paris", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "paris trip")
	assert.NotContains(t, body, "grocery list")
}

func TestConversationViewFiltersMessages(t *testing.T) {
	_, backend, state, _, mux := newTestApp(t)
	backend.addConversation("c1", "chat", time.Now(),
		msg(conversations.RoleSystem, "you are a twin"),
		msg(conversations.RoleUser, "hello"),
		msg(conversations.RoleAssistant, "**hi there**"),
		msg(conversations.RoleAssistant, "   "),
	)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/conversations/c1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "you are a twin")
	assert.Contains(t, body, "hello")
	assert.Contains(t, body, "<strong>hi there</strong>")
	assert.Equal(t, "c1", state.ConversationID())
	assert.Equal(t, appstate.TypeTextVoice, state.ConversationType())
}

func TestSendDispatchesMessage(t *testing.T) {
	_, backend, state, _, mux := newTestApp(t)
	backend.addConversation("c1", "chat", time.Now())
	state.SetConversationID("c1")

	form := strings.NewReader("message=hello twin")
	req := httptest.NewRequest(http.MethodPost, "/ui/send", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Eventually(t, func() bool {
		return backend.sentCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSendOutlivesRequest(t *testing.T) {
	_, backend, state, _, mux := newTestApp(t)
	backend.sendDelay = 50 * time.Millisecond
	backend.addConversation("c1", "chat", time.Now())
	state.SetConversationID("c1")

	// A real server cancels the request context the moment the handler
	// returns; the in-flight dispatch must not be cut down with it.
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	resp, err := http.PostForm(srv.URL+"/ui/send", url.Values{"message": {"hello twin"}})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		return backend.sentCount() == 1
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, backend.sendContextErrs()[0])
}

func TestSearchSettlesAfterDebounce(t *testing.T) {
	state := appstate.New("", nil)
	t.Cleanup(state.Close)
	_, backend, _, _, mux := newTestAppWithState(t, state)
	now := time.Now()
	backend.addConversation("c1", "paris trip", now)
	backend.addConversation("c2", "grocery list", now)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/search?q=paris", nil))

	// The immediate response is fetched with the still-deferred query, so
	// it shows the unfiltered list but schedules a follow-up refetch.
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "grocery list")
	assert.Contains(t, body, `hx-trigger="load delay:300ms"`)

	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/sidebar", nil))
		b := rec.Body.String()
		return strings.Contains(b, "paris trip") && !strings.Contains(b, "grocery list")
	}, time.Second, 10*time.Millisecond)
}

func TestSendIgnoredWithoutConversation(t *testing.T) {
	_, backend, _, _, mux := newTestApp(t)

	form := strings.NewReader("message=hello")
	req := httptest.NewRequest(http.MethodPost, "/ui/send", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, backend.sentCount())
}

func TestDeleteClearsActiveConversation(t *testing.T) {
	_, backend, state, _, mux := newTestApp(t)
	backend.addConversation("c1", "chat", time.Now())
	state.SetConversationID("c1")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ui/conversations/c1/delete", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Eventually(t, func() bool {
		return len(backend.deletedIDs()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, state.ConversationID())
	assert.Contains(t, rec.Body.String(), "No conversation selected")
	assert.Equal(t, "sidebar-refresh", rec.Header().Get("HX-Trigger"))
}

func TestVoiceViewSuppressesComposer(t *testing.T) {
	_, backend, state, _, mux := newTestApp(t)
	backend.addConversation("c1", "chat", time.Now(),
		msg(conversations.RoleUser, "hello"))
	state.SetConversationID("c1")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ui/voice/enter", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Voice session")
	assert.NotContains(t, body, "composer")
	assert.Equal(t, appstate.TypeVoiceToVoice, state.ConversationType())

	// Leaving voice returns to the text layout
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ui/voice/leave", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, appstate.TypeTextVoice, state.ConversationType())
}

func TestSettingsToggleAndModelChange(t *testing.T) {
	_, _, _, bus, mux := newTestApp(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ui/settings/toggle", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Settings")

	var changed []string
	sub := bus.Subscribe(events.KindChangeLLMModel, func(e events.Event) {
		changed = append(changed, e.(events.ChangeLLMModel).ModelID)
	})
	defer sub.Close()

	form := strings.NewReader("model=large")
	req := httptest.NewRequest(http.MethodPost, "/ui/settings/model", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"large"}, changed)

	// Second toggle closes the panel
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ui/settings/toggle", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "model-picker")
}

func TestChatViewCarriesScrollRevision(t *testing.T) {
	_, backend, _, _, mux := newTestApp(t)
	backend.addConversation("c1", "chat", time.Now(), msg(conversations.RoleUser, "hello"))
	backend.addConversation("c2", "other", time.Now(), msg(conversations.RoleUser, "hi"))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/conversations/c1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-scroll-rev="1"`)

	// Re-rendering the same conversation with no new messages keeps the
	// revision, so the poll refresh does not re-scroll the pane.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/conversations/c1", nil))
	assert.Contains(t, rec.Body.String(), `data-scroll-rev="1"`)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/conversations/c2", nil))
	assert.Contains(t, rec.Body.String(), `data-scroll-rev="2"`)
}

func TestSpeakingTagsLastAssistantMessage(t *testing.T) {
	app, backend, state, _, mux := newTestApp(t)
	backend.addConversation("c1", "chat", time.Now(),
		msg(conversations.RoleAssistant, "first"),
		msg(conversations.RoleAssistant, "second"),
	)
	state.SetConversationID("c1")
	app.SetSpeechActive(func() bool { return true })

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/conversations/c1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, 1, strings.Count(body, "speaking"))
	assert.Contains(t, body, fmt.Sprintf("speaking\">%s", "<p>second</p>"))
}
