// ABOUTME: HTMX chat UI handlers: app shell, sidebar, chat view, composer
// ABOUTME: Session state and cross-component signals flow through appstate and the event bus

package webui

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/twinspace/twinchat/internal/appstate"
	"github.com/twinspace/twinchat/internal/chat"
	"github.com/twinspace/twinchat/internal/events"
	"github.com/twinspace/twinchat/internal/query"
)

// Backend is the slice of the conversation client the UI needs.
type Backend interface {
	query.Fetcher
	SendMessage(ctx context.Context, conversationID, text string) error
	DeleteConversation(ctx context.Context, id string) error
}

// ModelOption is one entry in the settings panel's model picker.
type ModelOption struct {
	ID   string
	Name string
}

// DefaultModels is the model picker content when the caller supplies none.
var DefaultModels = []ModelOption{
	{ID: "small", Name: "Small (fast)"},
	{ID: "large", Name: "Large (thorough)"},
}

// App serves the chat web interface for one session.
type App struct {
	state   *appstate.State
	bus     *events.Bus
	backend Backend
	convs   *query.ConversationQuery
	lists   *query.ListQuery
	send    *chat.SendController
	scroll  *chat.ScrollTracker
	logger  *slog.Logger

	// speechActive reports whether a voice session is currently speaking.
	// Wired to the voice hub at startup; nil means never speaking.
	speechActive func() bool

	mu           sync.Mutex
	sidebarOpen  bool
	settingsOpen bool
	models       []ModelOption
	currentModel string

	subs []*events.Subscription
}

// New wires the UI over the session state, event bus, and backend client.
// Pass nil logger for slog.Default.
func New(state *appstate.State, bus *events.Bus, backend Backend, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "webui")

	a := &App{
		state:        state,
		bus:          bus,
		backend:      backend,
		convs:        query.NewConversationQuery(backend, logger),
		lists:        query.NewListQuery(backend, logger),
		scroll:       &chat.ScrollTracker{},
		logger:       logger,
		sidebarOpen:  true,
		models:       DefaultModels,
		currentModel: DefaultModels[0].ID,
	}
	a.send = chat.NewSendController(state, backend, logger)
	a.send.OnDone(func() {
		if id := state.ConversationID(); id != "" {
			a.convs.Invalidate(id)
		}
		bus.Emit(events.UpdateSidebar{})
	})

	a.subs = append(a.subs,
		bus.Subscribe(events.KindToggleSettings, func(events.Event) {
			a.mu.Lock()
			a.settingsOpen = !a.settingsOpen
			a.mu.Unlock()
		}),
		bus.Subscribe(events.KindToggleSidebar, func(events.Event) {
			a.mu.Lock()
			a.sidebarOpen = !a.sidebarOpen
			a.mu.Unlock()
		}),
		bus.Subscribe(events.KindUpdateSidebar, func(events.Event) {
			a.lists.Invalidate()
		}),
		bus.Subscribe(events.KindShowChatMessages, func(events.Event) {
			if state.ConversationID() != "" {
				state.SetConversationType(appstate.TypeTextVoice)
			}
		}),
		bus.Subscribe(events.KindDeleteConversation, func(e events.Event) {
			del, ok := e.(events.DeleteConversation)
			if !ok {
				return
			}
			a.deleteConversation(del.ConversationID)
		}),
		bus.Subscribe(events.KindChangeLLMModel, func(e events.Event) {
			change, ok := e.(events.ChangeLLMModel)
			if !ok {
				return
			}
			a.mu.Lock()
			a.currentModel = change.ModelID
			a.mu.Unlock()
		}),
	)

	return a
}

// SetSpeechActive wires the voice-session speaking indicator.
func (a *App) SetSpeechActive(fn func() bool) {
	a.speechActive = fn
}

// SetModels replaces the settings panel's model picker entries.
func (a *App) SetModels(models []ModelOption) {
	if len(models) == 0 {
		return
	}
	a.mu.Lock()
	a.models = models
	a.currentModel = models[0].ID
	a.mu.Unlock()
}

// Close detaches the app from the event bus.
func (a *App) Close() {
	for _, sub := range a.subs {
		sub.Close()
	}
}

// RegisterRoutes registers all UI routes on the given mux.
func (a *App) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", a.handleShell)
	mux.HandleFunc("GET /ui/sidebar", a.handleSidebar)
	mux.HandleFunc("GET /ui/search", a.handleSearch)
	mux.HandleFunc("POST /ui/sidebar/more", a.handleSidebarMore)
	mux.HandleFunc("GET /ui/conversations/{id}", a.handleConversation)
	mux.HandleFunc("POST /ui/send", a.handleSend)
	mux.HandleFunc("POST /ui/conversations/{id}/delete", a.handleDelete)
	mux.HandleFunc("POST /ui/settings/toggle", a.handleToggleSettings)
	mux.HandleFunc("POST /ui/settings/model", a.handleChangeModel)
	mux.HandleFunc("POST /ui/voice/enter", a.handleEnterVoice)
	mux.HandleFunc("POST /ui/voice/leave", a.handleLeaveVoice)

	a.logger.Info("ui routes registered")
}

func (a *App) handleShell(w http.ResponseWriter, r *http.Request) {
	a.renderShell(w, r.Context())
}

func (a *App) handleSidebar(w http.ResponseWriter, r *http.Request) {
	a.renderSidebar(w, r.Context())
}

// handleSearch updates the raw search query. The sidebar rendered in the
// response still reads the deferred value, so a burst of keystrokes settles
// before the list refetches; while the two differ the response carries a
// delayed self-refetch that picks up the settled query.
func (a *App) handleSearch(w http.ResponseWriter, r *http.Request) {
	a.state.SetSearchQuery(r.URL.Query().Get("q"))
	a.renderSidebar(w, r.Context())
}

func (a *App) handleSidebarMore(w http.ResponseWriter, r *http.Request) {
	a.lists.FetchMore(r.Context(), a.state.DeferredSearchQuery())
	a.renderSidebar(w, r.Context())
}

func (a *App) handleConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Conversation ID required", http.StatusBadRequest)
		return
	}
	a.state.SetConversationID(id)
	a.bus.Emit(events.ShowChatMessages{})
	a.renderChatView(w, r.Context())
}

func (a *App) handleSend(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	input := r.FormValue("message")
	if !a.send.Submit(r.Context(), input) && strings.TrimSpace(input) != "" {
		a.logger.Debug("send rejected",
			"conversation_id", a.state.ConversationID(),
			"sending", a.send.Sending())
	}
	a.renderChatView(w, r.Context())
}

func (a *App) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Conversation ID required", http.StatusBadRequest)
		return
	}
	a.bus.Emit(events.DeleteConversation{ConversationID: id})

	w.Header().Set("HX-Trigger", "sidebar-refresh")
	a.renderChatView(w, r.Context())
}

func (a *App) handleToggleSettings(w http.ResponseWriter, r *http.Request) {
	a.bus.Emit(events.ToggleSettings{})
	a.renderSettings(w)
}

func (a *App) handleChangeModel(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	modelID := r.FormValue("model")
	if modelID == "" {
		http.Error(w, "Model required", http.StatusBadRequest)
		return
	}
	a.bus.Emit(events.ChangeLLMModel{ModelID: modelID})
	a.renderSettings(w)
}

func (a *App) handleEnterVoice(w http.ResponseWriter, r *http.Request) {
	if a.state.ConversationID() == "" {
		http.Error(w, "No active conversation", http.StatusBadRequest)
		return
	}
	a.state.SetConversationType(appstate.TypeVoiceToVoice)
	a.renderChatView(w, r.Context())
}

func (a *App) handleLeaveVoice(w http.ResponseWriter, r *http.Request) {
	a.bus.Emit(events.ShowChatMessages{})
	a.renderChatView(w, r.Context())
}

// deleteConversation services the bus signal: remove on the backend, drop the
// caches, and clear the active conversation if it was the one deleted.
func (a *App) deleteConversation(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
	defer cancel()

	if err := a.backend.DeleteConversation(ctx, id); err != nil {
		a.logger.Error("failed to delete conversation", "conversation_id", id, "error", err)
		return
	}
	a.convs.Invalidate(id)
	a.lists.Invalidate()
	if a.state.ConversationID() == id {
		a.state.SetConversationID("")
	}
}

func (a *App) speaking() bool {
	if a.speechActive == nil {
		return false
	}
	return a.speechActive()
}
