// ABOUTME: In-memory Store implementation for tests
// ABOUTME: Mirrors SQLite semantics including pagination, search, and cascade deletes

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MockStore is an in-memory Store for tests.
type MockStore struct {
	mu            sync.Mutex
	twins         map[string]*Twin
	categories    map[string]*Category
	twinCats      map[string]map[string]bool // twinID -> categoryID set
	conversations map[string]*Conversation
	messages      map[string][]*Message // conversationID -> ordered messages
	jobs          map[string]*ProcessingJob
}

// NewMockStore creates an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{
		twins:         make(map[string]*Twin),
		categories:    make(map[string]*Category),
		twinCats:      make(map[string]map[string]bool),
		conversations: make(map[string]*Conversation),
		messages:      make(map[string][]*Message),
		jobs:          make(map[string]*ProcessingJob),
	}
}

func (m *MockStore) CreateTwin(ctx context.Context, twin *Twin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.twins[twin.ID]; ok {
		return ErrDuplicate
	}
	cp := *twin
	m.twins[twin.ID] = &cp
	return nil
}

func (m *MockStore) GetTwin(ctx context.Context, id string) (*Twin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	twin, ok := m.twins[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *twin
	return &cp, nil
}

func (m *MockStore) UpdateTwin(ctx context.Context, twin *Twin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.twins[twin.ID]
	if !ok {
		return ErrNotFound
	}
	cp := *twin
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now()
	m.twins[twin.ID] = &cp
	return nil
}

func (m *MockStore) DeleteTwin(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.twins[id]; !ok {
		return ErrNotFound
	}
	delete(m.twins, id)
	delete(m.twinCats, id)
	return nil
}

func (m *MockStore) ListTwins(ctx context.Context, limit int) ([]*Twin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	twins := make([]*Twin, 0, len(m.twins))
	for _, t := range m.twins {
		cp := *t
		twins = append(twins, &cp)
	}
	sort.Slice(twins, func(i, j int) bool {
		return twins[i].UpdatedAt.After(twins[j].UpdatedAt)
	})
	if len(twins) > limit {
		twins = twins[:limit]
	}
	return twins, nil
}

func (m *MockStore) CreateCategory(ctx context.Context, category *Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories {
		if c.Name == category.Name {
			return ErrDuplicate
		}
	}
	cp := *category
	m.categories[category.ID] = &cp
	return nil
}

func (m *MockStore) ListCategories(ctx context.Context) ([]*Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	categories := make([]*Category, 0, len(m.categories))
	for _, c := range m.categories {
		cp := *c
		categories = append(categories, &cp)
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}

func (m *MockStore) AssignCategory(ctx context.Context, twinID, categoryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.twinCats[twinID] == nil {
		m.twinCats[twinID] = make(map[string]bool)
	}
	m.twinCats[twinID][categoryID] = true
	return nil
}

func (m *MockStore) ListTwinsByCategory(ctx context.Context, categoryID string) ([]*Twin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var twins []*Twin
	for twinID, cats := range m.twinCats {
		if cats[categoryID] {
			if t, ok := m.twins[twinID]; ok {
				cp := *t
				twins = append(twins, &cp)
			}
		}
	}
	sort.Slice(twins, func(i, j int) bool {
		return twins[i].Name < twins[j].Name
	})
	return twins, nil
}

func (m *MockStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[conv.ID]; ok {
		return ErrDuplicate
	}
	cp := *conv
	m.conversations[conv.ID] = &cp
	return nil
}

func (m *MockStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *conv
	return &cp, nil
}

func (m *MockStore) ListConversations(ctx context.Context, params ListConversationsParams) ([]*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	page := params.Page
	if page < 1 {
		page = 1
	}
	perPage := params.PerPage
	if perPage <= 0 {
		perPage = 20
	}

	var convs []*Conversation
	for _, c := range m.conversations {
		if params.Search != "" {
			twinName := ""
			if t, ok := m.twins[c.TwinID]; ok {
				twinName = t.Name
			}
			needle := strings.ToLower(params.Search)
			if !strings.Contains(strings.ToLower(c.Title), needle) &&
				!strings.Contains(strings.ToLower(twinName), needle) {
				continue
			}
		}
		cp := *c
		convs = append(convs, &cp)
	}
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})

	start := (page - 1) * perPage
	if start >= len(convs) {
		return nil, nil
	}
	end := start + perPage
	if end > len(convs) {
		end = len(convs)
	}
	return convs[start:end], nil
}

func (m *MockStore) DeleteConversation(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[id]; !ok {
		return ErrNotFound
	}
	delete(m.conversations, id)
	delete(m.messages, id)
	return nil
}

func (m *MockStore) SaveMessage(ctx context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], &cp)
	if conv, ok := m.conversations[msg.ConversationID]; ok {
		conv.UpdatedAt = time.Now()
	}
	return nil
}

func (m *MockStore) GetConversationMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[conversationID]
	out := make([]*Message, len(msgs))
	for i, msg := range msgs {
		cp := *msg
		out[i] = &cp
	}
	return out, nil
}

func (m *MockStore) CreateProcessingJob(ctx context.Context, job *ProcessingJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return ErrDuplicate
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *MockStore) GetProcessingJob(ctx context.Context, id string) (*ProcessingJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *MockStore) UpdateProcessingJob(ctx context.Context, job *ProcessingJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return ErrNotFound
	}
	cp := *job
	cp.UpdatedAt = time.Now()
	m.jobs[job.ID] = &cp
	return nil
}

func (m *MockStore) Close() error {
	return nil
}
