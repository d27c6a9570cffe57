// ABOUTME: Tests for the in-memory mock store.
// ABOUTME: Checks the behaviors server tests rely on: pagination, search, and cascade delete.

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore_ImplementsStore(t *testing.T) {
	var _ Store = NewMockStore()
}

func TestMockStore_ConversationPagination(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 23; i++ {
		require.NoError(t, m.CreateConversation(ctx, &Conversation{
			ID:        fmt.Sprintf("conv-%02d", i),
			TwinID:    "twin-1",
			UserID:    "user-1",
			UpdatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	page1, err := m.ListConversations(ctx, ListConversationsParams{Page: 1, PerPage: 20})
	require.NoError(t, err)
	assert.Len(t, page1, 20)

	page2, err := m.ListConversations(ctx, ListConversationsParams{Page: 2, PerPage: 20})
	require.NoError(t, err)
	assert.Len(t, page2, 3)
}

func TestMockStore_SearchMatchesTwinName(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	require.NoError(t, m.CreateTwin(ctx, &Twin{ID: "twin-1", Name: "Marie Curie", OwnerID: "u"}))
	require.NoError(t, m.CreateConversation(ctx, &Conversation{ID: "conv-1", TwinID: "twin-1", UserID: "u"}))
	require.NoError(t, m.CreateConversation(ctx, &Conversation{ID: "conv-2", TwinID: "twin-2", UserID: "u"}))

	results, err := m.ListConversations(ctx, ListConversationsParams{Search: "curie"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "conv-1", results[0].ID)
}

func TestMockStore_DeleteConversationDropsMessages(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	require.NoError(t, m.CreateConversation(ctx, &Conversation{ID: "conv-1", TwinID: "t", UserID: "u"}))
	require.NoError(t, m.SaveMessage(ctx, &Message{ID: "m1", ConversationID: "conv-1", SenderType: "user", Content: "hi"}))

	require.NoError(t, m.DeleteConversation(ctx, "conv-1"))

	msgs, err := m.GetConversationMessages(ctx, "conv-1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
