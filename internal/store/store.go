// ABOUTME: Store interface and data types for twinchat persistence
// ABOUTME: Defines Twin, Conversation, Message structs and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when trying to create an entity that already exists
var ErrDuplicate = errors.New("already exists")

// Twin status constants
const (
	TwinStatusDraft      = "draft"
	TwinStatusActive     = "active"
	TwinStatusProcessing = "processing"
	TwinStatusError      = "error"
)

// Twin represents a user-defined AI persona
type Twin struct {
	ID          string
	Name        string
	Description string
	ImageURL    string
	OwnerID     string
	Status      string
	Tags        []string
	// Features and ModelData hold the image processing output as raw JSON;
	// empty until a processing job completes.
	Features  string
	ModelData string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Category groups twins for browsing
type Category struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// Conversation is a thread of messages between one user and one twin
type Conversation struct {
	ID        string
	Title     string // empty means untitled
	TwinID    string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is a single persisted entry in a conversation.
// SenderType is "system", "user", or "assistant".
type Message struct {
	ID             string
	ConversationID string
	SenderType     string
	Content        string
	CreatedAt      time.Time
}

// ProcessingJob status constants
const (
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusError      = "error"
)

// ProcessingJob tracks one simulated twin image processing run
type ProcessingJob struct {
	ID           string
	TwinID       string
	Status       string
	Result       string // raw JSON, empty until completed
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ListConversationsParams specifies pagination and filtering for conversation lists.
type ListConversationsParams struct {
	Page    int    // 1-based, defaults to 1
	PerPage int    // defaults to 20
	Search  string // optional: matches conversation title or twin name
}

// Store defines the interface for twinchat persistence
type Store interface {
	// Twins
	CreateTwin(ctx context.Context, twin *Twin) error
	GetTwin(ctx context.Context, id string) (*Twin, error)
	UpdateTwin(ctx context.Context, twin *Twin) error
	DeleteTwin(ctx context.Context, id string) error
	ListTwins(ctx context.Context, limit int) ([]*Twin, error)

	// Categories
	CreateCategory(ctx context.Context, category *Category) error
	ListCategories(ctx context.Context) ([]*Category, error)
	AssignCategory(ctx context.Context, twinID, categoryID string) error
	ListTwinsByCategory(ctx context.Context, categoryID string) ([]*Twin, error)

	// Conversations
	CreateConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversations(ctx context.Context, params ListConversationsParams) ([]*Conversation, error)
	DeleteConversation(ctx context.Context, id string) error

	// Messages
	SaveMessage(ctx context.Context, msg *Message) error
	GetConversationMessages(ctx context.Context, conversationID string) ([]*Message, error)

	// Processing jobs
	CreateProcessingJob(ctx context.Context, job *ProcessingJob) error
	GetProcessingJob(ctx context.Context, id string) (*ProcessingJob, error)
	UpdateProcessingJob(ctx context.Context, job *ProcessingJob) error

	Close() error
}
