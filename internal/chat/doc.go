// Package chat holds the presentation contract for the chat page: which
// messages are visible, which layout renders, when the composer accepts a
// submit, and when the view should scroll to the bottom.
package chat
