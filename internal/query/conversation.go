// ABOUTME: Cached conversation detail queries with request de-duplication
// ABOUTME: Guarantees at most one in-flight fetch per conversation id

package query

import (
	"context"
	"log/slog"
	"sync"

	"github.com/twinspace/twinchat/internal/conversations"
)

// Fetcher is the slice of the data access client the query layer needs.
type Fetcher interface {
	FetchConversation(ctx context.Context, id string) (*conversations.Conversation, conversations.Status)
	FetchPage(ctx context.Context, page int, searchQuery string) ([]conversations.Summary, conversations.Status)
}

// convEntry is one cache slot, keyed by conversation id.
type convEntry struct {
	conv     *conversations.Conversation
	status   conversations.Status
	resolved bool
	stale    bool

	// generation is bumped by Invalidate. A fetch started under an older
	// generation must not write its result back: a stale late response
	// would otherwise overwrite newer state.
	generation uint64

	// inflight is non-nil while a fetch is outstanding; it is closed when
	// the fetch resolves. Waiters block on it instead of issuing their own
	// request.
	inflight chan struct{}
}

// ConversationQuery caches conversation details by id. For a fixed id there
// is at most one in-flight request at a time; concurrent callers share the
// eventual result. Invalidate marks an entry stale so the next Get refetches.
type ConversationQuery struct {
	mu      sync.Mutex
	fetcher Fetcher
	entries map[string]*convEntry
	logger  *slog.Logger
}

// NewConversationQuery creates the detail query cache.
// Pass nil logger for slog.Default.
func NewConversationQuery(fetcher Fetcher, logger *slog.Logger) *ConversationQuery {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConversationQuery{
		fetcher: fetcher,
		entries: make(map[string]*convEntry),
		logger:  logger.With("component", "query"),
	}
}

// Get returns the conversation for id, fetching on a cold or stale entry.
// An empty id disables the query: nil is returned and nothing is fetched.
// The returned status is StatusOK for cached data, or whatever the resolving
// fetch produced.
func (q *ConversationQuery) Get(ctx context.Context, id string) (*conversations.Conversation, conversations.Status) {
	if id == "" {
		return nil, conversations.StatusEmpty
	}

	for {
		q.mu.Lock()
		entry, ok := q.entries[id]
		if !ok {
			entry = &convEntry{}
			q.entries[id] = entry
		}

		if entry.resolved && !entry.stale {
			conv, status := entry.conv, entry.status
			q.mu.Unlock()
			return conv, status
		}

		if entry.inflight != nil {
			wait := entry.inflight
			q.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, conversations.StatusFetchError
			}
		}

		done := make(chan struct{})
		entry.inflight = done
		gen := entry.generation
		q.mu.Unlock()

		conv, status := q.fetcher.FetchConversation(ctx, id)

		q.mu.Lock()
		current := entry.generation == gen
		if current {
			entry.conv = conv
			entry.status = status
			entry.resolved = true
			entry.stale = false
		} else {
			q.logger.Debug("discarding stale fetch result", "conversation_id", id)
		}
		entry.inflight = nil
		q.mu.Unlock()
		close(done)

		if !current {
			continue
		}
		return conv, status
	}
}

// Peek returns the cached conversation without fetching. The second return
// reports whether a resolved entry exists.
func (q *ConversationQuery) Peek(id string) (*conversations.Conversation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.entries[id]
	if !ok || !entry.resolved || entry.stale {
		return nil, false
	}
	return entry.conv, true
}

// Invalidate marks the entry for id stale. The next Get refetches; a fetch
// already in flight at invalidation time resolves but its result is
// discarded.
func (q *ConversationQuery) Invalidate(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.entries[id]
	if !ok {
		return
	}
	entry.stale = true
	entry.generation++
}

// InvalidateAll marks every cached entry stale.
func (q *ConversationQuery) InvalidateAll() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, entry := range q.entries {
		entry.stale = true
		entry.generation++
	}
}
