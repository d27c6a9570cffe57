// ABOUTME: Per-session application state for the chat page
// ABOUTME: Holds active conversation, conversation type, interaction mode, and search filter

package appstate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConversationType tags the kind of session the chat page is running.
type ConversationType string

const (
	// TypeNone means no active session.
	TypeNone ConversationType = ""
	// TypeTextVoice is the default conversational mode once a conversation exists.
	TypeTextVoice ConversationType = "text-voice"
	// TypeVoiceToVoice switches the page into the full-duplex voice layout.
	TypeVoiceToVoice ConversationType = "voice-to-voice"
)

// InteractionMode adjusts presentation tone. Free-form tag; the only value
// the core assigns itself is the default.
type InteractionMode string

// ModeInformational is the default interaction mode.
const ModeInformational InteractionMode = "informational"

// DefaultSearchDebounce is the quiet period before the deferred search query
// catches up with the raw value.
const DefaultSearchDebounce = 250 * time.Millisecond

// watcherBufferSize is the channel buffer for each watcher.
const watcherBufferSize = 64

// Field identifies which part of the state a Change notification refers to.
type Field string

const (
	FieldConversationID   Field = "conversation_id"
	FieldConversationType Field = "conversation_type"
	FieldInteractionMode  Field = "interaction_mode"
	FieldSearchQuery      Field = "search_query"
	FieldDeferredSearch   Field = "deferred_search"
)

// Change is delivered to watchers whenever a state field is replaced.
type Change struct {
	Field Field
}

// State is the single source of truth for one chat session. There is exactly
// one writer-owner per page lifetime; all other components hold the same
// handle and read through it. Writes are whole-field replacements.
//
// Setting the conversation id re-derives the conversation type on every
// change: a non-empty id yields TypeTextVoice, an empty id yields TypeNone.
// A later explicit SetConversationType (e.g. to TypeVoiceToVoice) sticks
// until the conversation id changes again.
type State struct {
	mu               sync.RWMutex
	conversationID   string
	conversationType ConversationType
	interactionMode  InteractionMode
	searchQuery      string
	deferredSearch   string

	debounce time.Duration
	timer    *time.Timer

	watchers map[string]chan Change
	logger   *slog.Logger
}

// Option configures a State at construction time.
type Option func(*State)

// WithSearchDebounce overrides the deferred-search quiet period.
// A zero duration makes the deferred value track the raw value synchronously,
// which tests rely on.
func WithSearchDebounce(d time.Duration) Option {
	return func(s *State) { s.debounce = d }
}

// New creates session state, optionally seeded with a conversation id from a
// route parameter. A non-empty initial id derives TypeTextVoice immediately.
// Pass nil logger for slog.Default.
func New(initialConversationID string, logger *slog.Logger, opts ...Option) *State {
	if logger == nil {
		logger = slog.Default()
	}
	s := &State{
		conversationID:  initialConversationID,
		interactionMode: ModeInformational,
		debounce:        DefaultSearchDebounce,
		watchers:        make(map[string]chan Change),
		logger:          logger.With("component", "appstate"),
	}
	if initialConversationID != "" {
		s.conversationType = TypeTextVoice
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConversationID returns the active conversation id; empty means none.
func (s *State) ConversationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversationID
}

// SetConversationID replaces the active conversation id and re-derives the
// conversation type. Setting the same id again is a no-op. No fetch is
// triggered here; consumers react to the change notification.
func (s *State) SetConversationID(id string) {
	s.mu.Lock()
	if s.conversationID == id {
		s.mu.Unlock()
		return
	}
	s.conversationID = id
	if id == "" {
		s.conversationType = TypeNone
	} else {
		s.conversationType = TypeTextVoice
	}
	s.mu.Unlock()

	s.notify(Change{Field: FieldConversationID})
	s.notify(Change{Field: FieldConversationType})
}

// ConversationType returns the current session type.
func (s *State) ConversationType() ConversationType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversationType
}

// SetConversationType replaces the session type without touching the
// conversation id. Used to enter or leave the voice-to-voice layout.
func (s *State) SetConversationType(t ConversationType) {
	s.mu.Lock()
	if s.conversationType == t {
		s.mu.Unlock()
		return
	}
	s.conversationType = t
	s.mu.Unlock()

	s.notify(Change{Field: FieldConversationType})
}

// InteractionMode returns the current interaction mode.
func (s *State) InteractionMode() InteractionMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.interactionMode
}

// SetInteractionMode replaces the interaction mode.
func (s *State) SetInteractionMode(m InteractionMode) {
	s.mu.Lock()
	if s.interactionMode == m {
		s.mu.Unlock()
		return
	}
	s.interactionMode = m
	s.mu.Unlock()

	s.notify(Change{Field: FieldInteractionMode})
}

// SearchQuery returns the raw search query as typed.
func (s *State) SearchQuery() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searchQuery
}

// DeferredSearchQuery returns the lag-tolerant view of the search query.
// It trails rapid writes by the debounce window and always converges to the
// latest raw value once input pauses. Expensive consumers (the conversation
// list filter) read this instead of the raw value.
func (s *State) DeferredSearchQuery() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deferredSearch
}

// SetSearchQuery replaces the raw search query and (re)schedules the deferred
// value update.
func (s *State) SetSearchQuery(q string) {
	s.mu.Lock()
	if s.searchQuery == q {
		s.mu.Unlock()
		return
	}
	s.searchQuery = q

	if s.debounce <= 0 {
		s.deferredSearch = q
		s.mu.Unlock()
		s.notify(Change{Field: FieldSearchQuery})
		s.notify(Change{Field: FieldDeferredSearch})
		return
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.settleSearch)
	s.mu.Unlock()

	s.notify(Change{Field: FieldSearchQuery})
}

// settleSearch copies the raw search query into the deferred view. Runs on
// the debounce timer; re-reads the raw value so it always converges to the
// latest write.
func (s *State) settleSearch() {
	s.mu.Lock()
	if s.deferredSearch == s.searchQuery {
		s.mu.Unlock()
		return
	}
	s.deferredSearch = s.searchQuery
	s.mu.Unlock()

	s.notify(Change{Field: FieldDeferredSearch})
}

// Watch registers a change watcher. The returned channel receives a Change
// for every field replacement until ctx is cancelled. Notifications are
// dropped, not blocked on, for watchers that fall behind.
func (s *State) Watch(ctx context.Context) <-chan Change {
	id := uuid.New().String()
	ch := make(chan Change, watcherBufferSize)

	s.mu.Lock()
	s.watchers[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if w, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(w)
		}
		s.mu.Unlock()
	}()

	return ch
}

// notify fans a change out to all watchers without blocking. The read lock
// is held across the sends: Watch's cleanup closes channels under the write
// lock, so a channel present here cannot be closed mid-send.
func (s *State) notify(c Change) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.watchers {
		select {
		case ch <- c:
		default:
			s.logger.Debug("dropped change for slow watcher", "field", string(c.Field))
		}
	}
}

// Close stops the pending debounce timer, if any.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
