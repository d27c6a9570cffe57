// ABOUTME: Message filtering and view selection rules for the chat page
// ABOUTME: Hides system/blank messages and routes between text chat and voice layouts

package chat

import (
	"github.com/twinspace/twinchat/internal/appstate"
	"github.com/twinspace/twinchat/internal/conversations"
)

// VisibleMessage is one renderable message, optionally tagged as the one
// currently being spoken.
type VisibleMessage struct {
	conversations.Message
	Speaking bool
}

// VisibleMessages applies the rendering rule to a conversation's message
// sequence: system-role messages and whitespace-only bodies are excluded
// (filtered, not deleted), relative order is preserved, and the most recent
// assistant message is tagged speaking only while the external speech
// session flag is active.
func VisibleMessages(msgs []conversations.Message, speechActive bool) []VisibleMessage {
	visible := make([]VisibleMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Content.Role == conversations.RoleSystem {
			continue
		}
		if m.IsBlank() {
			continue
		}
		visible = append(visible, VisibleMessage{Message: m})
	}

	if speechActive {
		for i := len(visible) - 1; i >= 0; i-- {
			if visible[i].Content.Role == conversations.RoleAssistant {
				visible[i].Speaking = true
				break
			}
		}
	}

	return visible
}

// View identifies which layout the chat page renders.
type View string

const (
	// ViewEmpty is the "No conversation selected" state.
	ViewEmpty View = "empty"
	// ViewChat is the filtered message list plus text composer.
	ViewChat View = "chat"
	// ViewVoice is the full-duplex voice session layout; it suppresses the
	// text composer entirely.
	ViewVoice View = "voice"
)

// ViewFor selects the layout for the current session state.
func ViewFor(state *appstate.State) View {
	if state.ConversationType() == appstate.TypeVoiceToVoice {
		return ViewVoice
	}
	if state.ConversationID() == "" {
		return ViewEmpty
	}
	return ViewChat
}
