// Package appstate holds the per-session chat state: which conversation is
// active, whether the session is text or full-duplex voice, the interaction
// mode, and the live search filter with its deferred read view.
//
// One State is created per chat session and the same handle is passed to
// every consumer; there is no process-global state.
package appstate
