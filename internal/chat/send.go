// ABOUTME: Outbound message send controller for the chat composer
// ABOUTME: Enforces the disabled conditions and the single in-flight send flag

package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/twinspace/twinchat/internal/appstate"
)

// sendTimeout bounds the backend dispatch once a submit is accepted.
const sendTimeout = 30 * time.Second

// Sender dispatches one outbound message to the agent backend.
type Sender interface {
	SendMessage(ctx context.Context, conversationID, text string) error
}

// SendController owns the composer's "sending" flag. A submit is accepted
// only when there is non-blank input, an active conversation, no send in
// flight, and the session is not in voice-to-voice mode. The input is
// captured at submit time (optimistic clear is the caller's job); on failure
// the message is logged and lost, never restored or retried.
type SendController struct {
	mu      sync.Mutex
	sending bool

	state  *appstate.State
	sender Sender
	logger *slog.Logger

	// onDone, when set, is invoked after each send resolves. Used by the
	// web layer to schedule a refresh of the message list.
	onDone func()
}

// NewSendController creates a send controller bound to one session's state.
// Pass nil logger for slog.Default.
func NewSendController(state *appstate.State, sender Sender, logger *slog.Logger) *SendController {
	if logger == nil {
		logger = slog.Default()
	}
	return &SendController{
		state:  state,
		sender: sender,
		logger: logger.With("component", "chat"),
	}
}

// OnDone registers a callback invoked after a send resolves, successfully or
// not. Must be set before the first Submit.
func (c *SendController) OnDone(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDone = fn
}

// Sending reports whether a send is in flight. The composer's submit control
// is disabled while this is true.
func (c *SendController) Sending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// CanSend reports whether a submit with the given input would be accepted.
func (c *SendController) CanSend(input string) bool {
	if strings.TrimSpace(input) == "" {
		return false
	}
	if c.state.ConversationID() == "" {
		return false
	}
	if c.state.ConversationType() == appstate.TypeVoiceToVoice {
		return false
	}
	return !c.Sending()
}

// Submit dispatches the input as an outbound message. Returns false without
// side effects when the submit conditions are not met. The dispatch runs
// asynchronously on a context detached from the caller's cancellation, so a
// send accepted from an HTTP handler survives the request ending; the
// sending flag clears when it resolves.
func (c *SendController) Submit(ctx context.Context, input string) bool {
	text := strings.TrimSpace(input)
	if text == "" {
		return false
	}
	conversationID := c.state.ConversationID()
	if conversationID == "" {
		return false
	}
	if c.state.ConversationType() == appstate.TypeVoiceToVoice {
		return false
	}

	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return false
	}
	c.sending = true
	done := c.onDone
	c.mu.Unlock()

	go func() {
		// The caller's context is cancelled the moment its handler
		// returns; keep its values but not its cancellation.
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
		defer cancel()

		if err := c.sender.SendMessage(sendCtx, conversationID, text); err != nil {
			// The captured input is not restored; the message is lost
			// from the composer but nothing is retried.
			c.logger.Error("failed to send message",
				"conversation_id", conversationID,
				"error", err)
		}
		c.clearSending()
		if done != nil {
			done()
		}
	}()

	return true
}

// AssistantFinished clears the sending flag on the external "assistant
// finished" signal, whichever of it and the send completion arrives first.
func (c *SendController) AssistantFinished() {
	c.clearSending()
}

func (c *SendController) clearSending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sending = false
}
