// ABOUTME: Tests for the conversation detail query cache.
// ABOUTME: Validates de-duplication, disabled empty keys, invalidation, and stale-response discard.

package query

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinspace/twinchat/internal/conversations"
)

// fakeFetcher counts calls and lets tests gate fetch completion.
type fakeFetcher struct {
	mu           sync.Mutex
	detailCalls  atomic.Int64
	pageCalls    atomic.Int64
	conversation *conversations.Conversation
	status       conversations.Status
	pages        map[int][]conversations.Summary
	block        chan struct{} // if non-nil, fetches wait on it
}

func (f *fakeFetcher) FetchConversation(ctx context.Context, id string) (*conversations.Conversation, conversations.Status) {
	f.detailCalls.Add(1)
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conversation, f.status
}

func (f *fakeFetcher) FetchPage(ctx context.Context, page int, searchQuery string) ([]conversations.Summary, conversations.Status) {
	f.pageCalls.Add(1)
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	summaries := f.pages[page]
	if len(summaries) == 0 {
		return nil, conversations.StatusEmpty
	}
	return summaries, conversations.StatusOK
}

func (f *fakeFetcher) setConversation(conv *conversations.Conversation, status conversations.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conversation = conv
	f.status = status
}

func conv(id string) *conversations.Conversation {
	return &conversations.Conversation{Summary: conversations.Summary{ID: id}}
}

func TestConversationQuery_Get(t *testing.T) {
	fetcher := &fakeFetcher{conversation: conv("conv-42"), status: conversations.StatusOK}
	q := NewConversationQuery(fetcher, nil)

	got, status := q.Get(context.Background(), "conv-42")

	require.Equal(t, conversations.StatusOK, status)
	require.NotNil(t, got)
	assert.Equal(t, "conv-42", got.ID)
	assert.Equal(t, int64(1), fetcher.detailCalls.Load())
}

func TestConversationQuery_EmptyIDDisabled(t *testing.T) {
	fetcher := &fakeFetcher{}
	q := NewConversationQuery(fetcher, nil)

	got, status := q.Get(context.Background(), "")

	assert.Nil(t, got)
	assert.Equal(t, conversations.StatusEmpty, status)
	assert.Equal(t, int64(0), fetcher.detailCalls.Load(), "empty id must never fetch")
}

func TestConversationQuery_CachedSecondGet(t *testing.T) {
	fetcher := &fakeFetcher{conversation: conv("conv-1"), status: conversations.StatusOK}
	q := NewConversationQuery(fetcher, nil)

	q.Get(context.Background(), "conv-1")
	q.Get(context.Background(), "conv-1")

	assert.Equal(t, int64(1), fetcher.detailCalls.Load())
}

func TestConversationQuery_ConcurrentGetsShareOneFetch(t *testing.T) {
	fetcher := &fakeFetcher{
		conversation: conv("conv-1"),
		status:       conversations.StatusOK,
		block:        make(chan struct{}),
	}
	q := NewConversationQuery(fetcher, nil)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*conversations.Conversation, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = q.Get(context.Background(), "conv-1")
		}(i)
	}

	// Let all callers pile up behind the single in-flight fetch.
	assert.Eventually(t, func() bool {
		return fetcher.detailCalls.Load() == 1
	}, time.Second, time.Millisecond)
	close(fetcher.block)
	wg.Wait()

	assert.Equal(t, int64(1), fetcher.detailCalls.Load(), "concurrent gets must share one request")
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, "conv-1", r.ID)
	}
}

func TestConversationQuery_InvalidateRefetches(t *testing.T) {
	fetcher := &fakeFetcher{conversation: conv("conv-1"), status: conversations.StatusOK}
	q := NewConversationQuery(fetcher, nil)

	q.Get(context.Background(), "conv-1")
	q.Invalidate("conv-1")
	q.Get(context.Background(), "conv-1")

	assert.Equal(t, int64(2), fetcher.detailCalls.Load())
}

func TestConversationQuery_InvalidateUnknownKeyIsNoop(t *testing.T) {
	q := NewConversationQuery(&fakeFetcher{}, nil)
	q.Invalidate("never-fetched")
}

func TestConversationQuery_StaleResponseDiscarded(t *testing.T) {
	fetcher := &fakeFetcher{
		conversation: conv("old"),
		status:       conversations.StatusOK,
		block:        make(chan struct{}),
	}
	q := NewConversationQuery(fetcher, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Get(context.Background(), "conv-1")
	}()

	// Invalidate while the first fetch is still in flight, then swap the
	// fetcher's answer. The first response must not survive.
	assert.Eventually(t, func() bool {
		return fetcher.detailCalls.Load() == 1
	}, time.Second, time.Millisecond)
	q.Invalidate("conv-1")
	fetcher.setConversation(conv("new"), conversations.StatusOK)
	close(fetcher.block)
	<-done

	got, status := q.Get(context.Background(), "conv-1")
	require.Equal(t, conversations.StatusOK, status)
	assert.Equal(t, "new", got.ID, "stale late response must not overwrite newer state")
}

func TestConversationQuery_NullResultIsCached(t *testing.T) {
	fetcher := &fakeFetcher{conversation: nil, status: conversations.StatusEmpty}
	q := NewConversationQuery(fetcher, nil)

	got, status := q.Get(context.Background(), "gone")
	assert.Nil(t, got)
	assert.Equal(t, conversations.StatusEmpty, status)

	// A resolved-to-nothing entry is still a resolved entry.
	q.Get(context.Background(), "gone")
	assert.Equal(t, int64(1), fetcher.detailCalls.Load())
}

func TestConversationQuery_Peek(t *testing.T) {
	fetcher := &fakeFetcher{conversation: conv("conv-1"), status: conversations.StatusOK}
	q := NewConversationQuery(fetcher, nil)

	_, ok := q.Peek("conv-1")
	assert.False(t, ok, "cold entry must not peek")

	q.Get(context.Background(), "conv-1")
	got, ok := q.Peek("conv-1")
	require.True(t, ok)
	assert.Equal(t, "conv-1", got.ID)
	assert.Equal(t, int64(1), fetcher.detailCalls.Load(), "peek must not fetch")
}
