// ABOUTME: Paginated conversation list queries keyed by search term
// ABOUTME: Accumulates pages client-side and applies the page-full "maybe more" heuristic

package query

import (
	"context"
	"log/slog"
	"sync"

	"github.com/twinspace/twinchat/internal/conversations"
)

// listEntry accumulates fetched pages for one search key.
type listEntry struct {
	pages      [][]conversations.Summary
	nextPage   int // 1-based page number to fetch next
	hasMore    bool
	fetched    bool // page 1 has resolved at least once
	generation uint64
	inflight   chan struct{}
}

// ListQuery caches paginated conversation lists keyed by search query. Pages
// are concatenated into one flat list for display. The next page is requested
// only if the previous page was full-sized: a page that happens to be exactly
// full with no further data costs one trailing fetch that returns empty,
// which is accepted, not a bug.
type ListQuery struct {
	mu      sync.Mutex
	fetcher Fetcher
	entries map[string]*listEntry
	logger  *slog.Logger
}

// NewListQuery creates the list query cache. Pass nil logger for slog.Default.
func NewListQuery(fetcher Fetcher, logger *slog.Logger) *ListQuery {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListQuery{
		fetcher: fetcher,
		entries: make(map[string]*listEntry),
		logger:  logger.With("component", "query"),
	}
}

// Conversations returns the flattened list for the search key, fetching the
// first page if the key is cold. Concurrent callers with the same key share
// one fetch.
func (q *ListQuery) Conversations(ctx context.Context, searchQuery string) []conversations.Summary {
	for {
		q.mu.Lock()
		entry := q.entry(searchQuery)

		if entry.fetched {
			flat := flatten(entry.pages)
			q.mu.Unlock()
			return flat
		}

		if entry.inflight != nil {
			wait := entry.inflight
			q.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil
			}
		}

		q.startFetchLocked(ctx, searchQuery, entry)
	}
}

// HasMore reports whether another page might exist for the search key.
// False until the first page has resolved.
func (q *ListQuery) HasMore(searchQuery string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.entries[searchQuery]
	if !ok || !entry.fetched {
		return false
	}
	return entry.hasMore
}

// FetchMore requests the next page for the search key. No-op when the
// previous page was not full-sized or a fetch is already in flight.
func (q *ListQuery) FetchMore(ctx context.Context, searchQuery string) {
	q.mu.Lock()
	entry := q.entry(searchQuery)
	if !entry.fetched || !entry.hasMore || entry.inflight != nil {
		q.mu.Unlock()
		return
	}
	q.startFetchLocked(ctx, searchQuery, entry)
}

// Invalidate drops all accumulated pages for every search key. The next
// Conversations call refetches from page 1. Fetches in flight at
// invalidation time resolve but their results are discarded.
func (q *ListQuery) Invalidate() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, entry := range q.entries {
		entry.pages = nil
		entry.nextPage = 1
		entry.hasMore = false
		entry.fetched = false
		entry.generation++
	}
}

// entry returns the cache slot for a key, creating it cold. Must be called
// with mu held.
func (q *ListQuery) entry(searchQuery string) *listEntry {
	entry, ok := q.entries[searchQuery]
	if !ok {
		entry = &listEntry{nextPage: 1}
		q.entries[searchQuery] = entry
	}
	return entry
}

// startFetchLocked fetches entry's next page. Called with mu held; releases
// it for the duration of the network call.
func (q *ListQuery) startFetchLocked(ctx context.Context, searchQuery string, entry *listEntry) {
	done := make(chan struct{})
	entry.inflight = done
	gen := entry.generation
	page := entry.nextPage
	q.mu.Unlock()

	summaries, status := q.fetcher.FetchPage(ctx, page, searchQuery)

	q.mu.Lock()
	if entry.generation == gen {
		if len(summaries) > 0 {
			entry.pages = append(entry.pages, summaries)
		}
		entry.nextPage = page + 1
		entry.hasMore = len(summaries) == conversations.PageSize
		entry.fetched = true
		if status != conversations.StatusOK && status != conversations.StatusEmpty {
			q.logger.Debug("list fetch degraded to empty page",
				"search", searchQuery,
				"page", page,
				"status", string(status))
		}
	} else {
		q.logger.Debug("discarding stale page result", "search", searchQuery, "page", page)
	}
	entry.inflight = nil
	q.mu.Unlock()
	close(done)
}

// flatten concatenates pages into a single ordered slice.
func flatten(pages [][]conversations.Summary) []conversations.Summary {
	total := 0
	for _, p := range pages {
		total += len(p)
	}
	flat := make([]conversations.Summary, 0, total)
	for _, p := range pages {
		flat = append(flat, p...)
	}
	return flat
}
