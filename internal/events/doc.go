// Package events provides the in-process event bus used for one-shot UI
// commands that do not belong in session state (sidebar refreshes,
// conversation deletion requests, panel toggles).
package events
