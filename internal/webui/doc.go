// Package webui serves the HTMX chat interface. Handlers render server-side
// partials over one session's appstate; cross-component signals (sidebar
// refresh, deletes, settings, model switches) travel over the event bus so
// panels stay decoupled from each other.
package webui
