// ABOUTME: Template data types and render helpers for the chat UI
// ABOUTME: Groups sidebar entries by date and renders assistant markdown

package webui

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/yuin/goldmark"

	"github.com/twinspace/twinchat/internal/chat"
	"github.com/twinspace/twinchat/internal/conversations"
)

const deleteTimeout = 10 * time.Second

// shellData holds data for the main app shell.
type shellData struct {
	Title       string
	SidebarOpen bool
	Sidebar     sidebarData
	Chat        chatViewData
}

// sidebarData holds the grouped conversation list.
type sidebarData struct {
	HasConversations bool
	SearchQuery      string
	// Settling is true while the raw search query is ahead of the deferred
	// value the list was fetched with; the template schedules a refetch.
	Settling  bool
	HasMore   bool
	Today     []sidebarItem
	Yesterday []sidebarItem
	Week      []sidebarItem
	Older     []sidebarItem
}

// sidebarItem is one conversation entry in the sidebar.
type sidebarItem struct {
	ID        string
	Title     string
	Active    bool
	UpdatedAt time.Time
}

// chatViewData holds data for the chat view partial.
type chatViewData struct {
	View           chat.View
	ConversationID string
	Title          string
	Messages       []renderedMessage
	CanSend        bool
	Sending        bool
	// ScrollRev bumps when the conversation changes or messages grow; the
	// page scrolls the message pane to the bottom when it sees a new value.
	ScrollRev uint64
}

// renderedMessage is one message ready for the template, with assistant
// bodies already converted from markdown.
type renderedMessage struct {
	Role     conversations.Role
	Body     template.HTML
	Speaking bool
}

// settingsData holds data for the settings panel partial.
type settingsData struct {
	Open         bool
	Models       []ModelOption
	CurrentModel string
}

func summaryTitle(s conversations.Summary) string {
	if s.Title != nil && *s.Title != "" {
		return *s.Title
	}
	return "Conversation"
}

// groupByDate splits summaries into Today/Yesterday/This week/Older buckets
// by their updated_at timestamp.
func groupByDate(summaries []conversations.Summary, activeID string, now time.Time) sidebarData {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterday := today.AddDate(0, 0, -1)
	weekAgo := today.AddDate(0, 0, -7)

	var data sidebarData
	for _, s := range summaries {
		updated, err := time.Parse(time.RFC3339, s.UpdatedAt)
		if err != nil {
			updated = time.Time{}
		}
		item := sidebarItem{
			ID:        s.ID,
			Title:     summaryTitle(s),
			Active:    s.ID == activeID,
			UpdatedAt: updated,
		}
		switch {
		case !updated.Before(today):
			data.Today = append(data.Today, item)
		case !updated.Before(yesterday):
			data.Yesterday = append(data.Yesterday, item)
		case updated.After(weekAgo):
			data.Week = append(data.Week, item)
		default:
			data.Older = append(data.Older, item)
		}
	}
	data.HasConversations = len(summaries) > 0
	return data
}

// renderMarkdown converts an assistant message body to HTML. User messages
// stay plain text and are escaped by the template instead.
func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String())
}

func renderMessages(visible []chat.VisibleMessage) []renderedMessage {
	out := make([]renderedMessage, 0, len(visible))
	for _, m := range visible {
		rendered := renderedMessage{
			Role:     m.Content.Role,
			Speaking: m.Speaking,
		}
		if m.Content.Role == conversations.RoleAssistant {
			rendered.Body = renderMarkdown(m.Content.Text)
		} else {
			rendered.Body = template.HTML(template.HTMLEscapeString(m.Content.Text))
		}
		out = append(out, rendered)
	}
	return out
}

func (a *App) buildSidebar(ctx context.Context) sidebarData {
	searchQuery := a.state.DeferredSearchQuery()
	summaries := a.lists.Conversations(ctx, searchQuery)
	data := groupByDate(summaries, a.state.ConversationID(), time.Now())
	data.SearchQuery = a.state.SearchQuery()
	data.Settling = data.SearchQuery != searchQuery
	data.HasMore = a.lists.HasMore(searchQuery)
	return data
}

func (a *App) buildChatView(ctx context.Context) chatViewData {
	view := chat.ViewFor(a.state)
	data := chatViewData{
		View:           view,
		ConversationID: a.state.ConversationID(),
		Sending:        a.send.Sending(),
	}
	if view == chat.ViewEmpty {
		return data
	}

	conv, status := a.convs.Get(ctx, data.ConversationID)
	if status == conversations.StatusOK && conv != nil {
		data.Title = summaryTitle(conv.Summary)
		visible := chat.VisibleMessages(conv.Messages, a.speaking())
		data.Messages = renderMessages(visible)
		a.scroll.Observe(conv.ID, len(visible))
	}
	data.ScrollRev = a.scroll.Revision()
	data.CanSend = view == chat.ViewChat && !data.Sending
	return data
}

func (a *App) renderShell(w http.ResponseWriter, ctx context.Context) {
	a.mu.Lock()
	sidebarOpen := a.sidebarOpen
	a.mu.Unlock()

	data := shellData{
		Title:       "Twin Chat",
		SidebarOpen: sidebarOpen,
		Sidebar:     a.buildSidebar(ctx),
		Chat:        a.buildChatView(ctx),
	}

	tmpl := template.Must(template.ParseFS(templateFS,
		"templates/base.html",
		"templates/app.html",
		"templates/partials/sidebar.html",
		"templates/partials/chat_view.html",
	))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		a.logger.Error("failed to render app shell", "error", err)
	}
}

func (a *App) renderSidebar(w http.ResponseWriter, ctx context.Context) {
	data := a.buildSidebar(ctx)

	tmpl := template.Must(template.ParseFS(templateFS, "templates/partials/sidebar.html"))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "sidebar", data); err != nil {
		a.logger.Error("failed to render sidebar", "error", err)
	}
}

func (a *App) renderChatView(w http.ResponseWriter, ctx context.Context) {
	data := a.buildChatView(ctx)

	tmpl := template.Must(template.ParseFS(templateFS, "templates/partials/chat_view.html"))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "chat_view", data); err != nil {
		a.logger.Error("failed to render chat view", "error", err)
	}
}

func (a *App) renderSettings(w http.ResponseWriter) {
	a.mu.Lock()
	data := settingsData{
		Open:         a.settingsOpen,
		Models:       a.models,
		CurrentModel: a.currentModel,
	}
	a.mu.Unlock()

	tmpl := template.Must(template.ParseFS(templateFS, "templates/partials/settings.html"))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "settings", data); err != nil {
		a.logger.Error("failed to render settings", "error", err)
	}
}
