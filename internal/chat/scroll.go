// ABOUTME: Revision counter backing the best-effort auto-scroll behavior
// ABOUTME: Bumps whenever the active conversation changes or new messages render

package chat

import "sync"

// ScrollTracker turns "conversation changed or messages grew" into a
// monotonically increasing revision. The web layer compares revisions to
// decide whether to emit a scroll-to-bottom hint; with no scrollable
// container present the hint is simply ignored.
type ScrollTracker struct {
	mu           sync.Mutex
	conversation string
	count        int
	revision     uint64
}

// Observe records the currently rendered conversation and its visible
// message count, bumping the revision when either changed.
func (t *ScrollTracker) Observe(conversationID string, messageCount int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if conversationID != t.conversation || messageCount > t.count {
		t.revision++
	}
	t.conversation = conversationID
	t.count = messageCount
}

// Revision returns the current scroll revision.
func (t *ScrollTracker) Revision() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.revision
}
