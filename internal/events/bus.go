// ABOUTME: In-process typed event bus for one-shot UI commands
// ABOUTME: Provides synchronous publish/subscribe with a closed set of event kinds

package events

import (
	"log/slog"
	"sync"
)

// DefaultMaxListeners is the soft limit on subscriptions per event kind.
// Exceeding it logs a warning but never fails; it exists to flag
// subscription leaks from unpaired Subscribe/Close calls.
const DefaultMaxListeners = 10

// Kind identifies one of the closed set of bus events.
type Kind string

const (
	KindToggleSettings     Kind = "toggle_settings"
	KindToggleSidebar      Kind = "toggle_sidebar"
	KindUpdateSidebar      Kind = "update_sidebar"
	KindShowChatMessages   Kind = "show_chat_messages"
	KindDeleteConversation Kind = "delete_conversation"
	KindChangeLLMModel     Kind = "change_llm_model"
)

// Event is the closed union of bus payloads. Each payload type reports its
// own Kind so subscribers can type-assert on the concrete struct.
type Event interface {
	EventKind() Kind
}

// ToggleSettings requests that the settings panel be shown or hidden.
type ToggleSettings struct{}

// ToggleSidebar requests that the conversation sidebar be shown or hidden.
type ToggleSidebar struct{}

// UpdateSidebar requests a refresh of the sidebar's conversation list.
type UpdateSidebar struct{}

// ShowChatMessages requests that the chat view replace whatever overlay is up.
type ShowChatMessages struct{}

// DeleteConversation requests deletion of one conversation.
type DeleteConversation struct {
	ConversationID string
}

// ChangeLLMModel requests a switch of the active language model.
type ChangeLLMModel struct {
	ModelID string
}

func (ToggleSettings) EventKind() Kind     { return KindToggleSettings }
func (ToggleSidebar) EventKind() Kind      { return KindToggleSidebar }
func (UpdateSidebar) EventKind() Kind      { return KindUpdateSidebar }
func (ShowChatMessages) EventKind() Kind   { return KindShowChatMessages }
func (DeleteConversation) EventKind() Kind { return KindDeleteConversation }
func (ChangeLLMModel) EventKind() Kind     { return KindChangeLLMModel }

// Handler receives every event emitted for the kind it subscribed to.
type Handler func(Event)

// Subscription is the handle returned by Subscribe. Close removes the
// handler; it is safe to call multiple times.
type Subscription struct {
	bus    *Bus
	kind   Kind
	id     uint64
	closed bool
	mu     sync.Mutex
}

// Close unregisters the subscription's handler. Subsequent emits of the
// subscribed kind will not invoke it.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.bus.remove(s.kind, s.id)
}

type registration struct {
	id      uint64
	handler Handler
}

// Bus dispatches events synchronously to subscribers in registration order.
// It carries no persistence and makes no delivery guarantee beyond that
// ordering; it exists to decouple UI actions from the components that react
// to them.
type Bus struct {
	mu           sync.RWMutex
	subs         map[Kind][]registration
	nextID       uint64
	maxListeners int
	logger       *slog.Logger
}

// NewBus creates a bus with the default listener soft limit.
// Pass nil logger for slog.Default.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:         make(map[Kind][]registration),
		maxListeners: DefaultMaxListeners,
		logger:       logger.With("component", "events"),
	}
}

// SetMaxListeners overrides the per-kind soft limit.
func (b *Bus) SetMaxListeners(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maxListeners = n
}

// Subscribe registers handler for events of the given kind and returns the
// handle used to unregister it. Callers should pair Subscribe with
// Subscription.Close in symmetric setup/teardown.
func (b *Bus) Subscribe(kind Kind, handler Handler) *Subscription {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], registration{id: id, handler: handler})
	count := len(b.subs[kind])
	limit := b.maxListeners
	b.mu.Unlock()

	if limit > 0 && count > limit {
		b.logger.Warn("listener count exceeds soft limit",
			"kind", string(kind),
			"count", count,
			"limit", limit)
	}

	return &Subscription{bus: b, kind: kind, id: id}
}

// Emit synchronously invokes all handlers registered for the event's kind,
// in registration order. Dispatch is not isolated: a handler that panics
// aborts dispatch to later handlers.
func (b *Bus) Emit(event Event) {
	kind := event.EventKind()

	b.mu.RLock()
	regs := b.subs[kind]
	handlers := make([]Handler, len(regs))
	for i, r := range regs {
		handlers[i] = r.handler
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

// ListenerCount returns the number of live subscriptions for a kind.
func (b *Bus) ListenerCount(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}

// remove deletes the registration with the given id from the kind's list.
func (b *Bus) remove(kind Kind, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.subs[kind]
	for i, r := range regs {
		if r.id == id {
			b.subs[kind] = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(b.subs[kind]) == 0 {
		delete(b.subs, kind)
	}
}
