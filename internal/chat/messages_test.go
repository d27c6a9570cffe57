// ABOUTME: Tests for message filtering and view selection.
// ABOUTME: Validates system/blank exclusion, order preservation, speaking tag, and layout routing.

package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinspace/twinchat/internal/appstate"
	"github.com/twinspace/twinchat/internal/conversations"
)

func msg(role conversations.Role, text string) conversations.Message {
	return conversations.Message{Content: conversations.Content{Role: role, Text: text}}
}

func TestVisibleMessages_FiltersSystemAndBlank(t *testing.T) {
	msgs := []conversations.Message{
		msg(conversations.RoleSystem, "you are a helpful twin"),
		msg(conversations.RoleUser, "hello"),
		msg(conversations.RoleAssistant, "   \n"),
		msg(conversations.RoleAssistant, "hi there"),
		msg(conversations.RoleUser, ""),
		msg(conversations.RoleUser, "how are you?"),
	}

	visible := VisibleMessages(msgs, false)

	require.Len(t, visible, 3)
	assert.Equal(t, "hello", visible[0].Content.Text)
	assert.Equal(t, "hi there", visible[1].Content.Text)
	assert.Equal(t, "how are you?", visible[2].Content.Text)
}

func TestVisibleMessages_PreservesOrder(t *testing.T) {
	var msgs []conversations.Message
	for _, text := range []string{"a", "b", "c", "d"} {
		msgs = append(msgs, msg(conversations.RoleUser, text))
	}

	visible := VisibleMessages(msgs, false)

	require.Len(t, visible, 4)
	for i, text := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, text, visible[i].Content.Text)
	}
}

func TestVisibleMessages_SpeakingTagsLatestAssistant(t *testing.T) {
	msgs := []conversations.Message{
		msg(conversations.RoleAssistant, "first"),
		msg(conversations.RoleUser, "question"),
		msg(conversations.RoleAssistant, "second"),
		msg(conversations.RoleUser, "another"),
	}

	visible := VisibleMessages(msgs, true)

	require.Len(t, visible, 4)
	assert.False(t, visible[0].Speaking)
	assert.True(t, visible[2].Speaking, "only the most recent assistant message speaks")
	assert.False(t, visible[3].Speaking)
}

func TestVisibleMessages_NoSpeakingWhenFlagInactive(t *testing.T) {
	msgs := []conversations.Message{
		msg(conversations.RoleAssistant, "hello"),
	}

	visible := VisibleMessages(msgs, false)

	require.Len(t, visible, 1)
	assert.False(t, visible[0].Speaking)
}

func TestVisibleMessages_Empty(t *testing.T) {
	assert.Empty(t, VisibleMessages(nil, true))
}

func TestViewFor(t *testing.T) {
	tests := []struct {
		name           string
		conversationID string
		convType       appstate.ConversationType
		want           View
	}{
		{"no conversation", "", appstate.TypeNone, ViewEmpty},
		{"active conversation", "conv-1", appstate.TypeTextVoice, ViewChat},
		{"voice-to-voice", "conv-1", appstate.TypeVoiceToVoice, ViewVoice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := appstate.New(tt.conversationID, nil)
			defer state.Close()
			if tt.convType != appstate.TypeNone {
				state.SetConversationType(tt.convType)
			}

			assert.Equal(t, tt.want, ViewFor(state))
		})
	}
}

func TestScrollTracker(t *testing.T) {
	var tracker ScrollTracker
	require.Equal(t, uint64(0), tracker.Revision())

	// First observation of a conversation bumps.
	tracker.Observe("conv-1", 2)
	assert.Equal(t, uint64(1), tracker.Revision())

	// Same conversation, same count: no bump.
	tracker.Observe("conv-1", 2)
	assert.Equal(t, uint64(1), tracker.Revision())

	// New messages bump.
	tracker.Observe("conv-1", 3)
	assert.Equal(t, uint64(2), tracker.Revision())

	// Conversation switch bumps even if the count shrinks.
	tracker.Observe("conv-2", 1)
	assert.Equal(t, uint64(3), tracker.Revision())
}
