// ABOUTME: Wire types for the conversation API
// ABOUTME: Defines Conversation, Message, and the role/content envelope

package conversations

import "strings"

// Role identifies the author class of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PageSize is the fixed per_page value for conversation list fetches.
const PageSize = 20

// Content is the role/text envelope carried by every message.
type Content struct {
	Role Role   `json:"role"`
	Text string `json:"content"`
}

// Message is a single entry in a conversation. The id and timestamp are
// absent for transient messages that have not been persisted yet.
type Message struct {
	ID             string  `json:"message_id,omitempty"`
	CreatedAt      string  `json:"created_at,omitempty"`
	Content        Content `json:"content"`
	ConversationID string  `json:"conversation_id,omitempty"`
}

// IsBlank reports whether the message body is empty or whitespace-only.
func (m Message) IsBlank() bool {
	return strings.TrimSpace(m.Content.Text) == ""
}

// Summary is one entry in the conversation list.
type Summary struct {
	ID        string  `json:"conversation_id"`
	Title     *string `json:"title,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// Conversation is a summary combined with its ordered message sequence.
// Message order is insertion order, which is chronological order.
type Conversation struct {
	Summary
	Messages []Message `json:"messages"`
}
