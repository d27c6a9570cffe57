// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides twin/conversation/message persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS twins (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			owner_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'draft',
			tags TEXT NOT NULL DEFAULT '[]',
			features TEXT NOT NULL DEFAULT '',
			model_data TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS twin_categories (
			twin_id TEXT NOT NULL,
			category_id TEXT NOT NULL,
			PRIMARY KEY (twin_id, category_id),
			FOREIGN KEY (twin_id) REFERENCES twins(id) ON DELETE CASCADE,
			FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			twin_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY (twin_id) REFERENCES twins(id)
		);

		CREATE INDEX IF NOT EXISTS idx_conversations_updated
			ON conversations(updated_at);

		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			sender_type TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
			ON messages(conversation_id, created_at);

		CREATE TABLE IF NOT EXISTS processing_jobs (
			id TEXT PRIMARY KEY,
			twin_id TEXT NOT NULL,
			status TEXT NOT NULL,
			result TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY (twin_id) REFERENCES twins(id) ON DELETE CASCADE
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// formatTime converts a time to its stored text representation.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime converts a stored text timestamp back to a time.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CreateTwin inserts a new twin
func (s *SQLiteStore) CreateTwin(ctx context.Context, twin *Twin) error {
	tags, err := json.Marshal(twin.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO twins (id, name, description, image_url, owner_id, status, tags, features, model_data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		twin.ID, twin.Name, twin.Description, twin.ImageURL, twin.OwnerID,
		twin.Status, string(tags), twin.Features, twin.ModelData,
		formatTime(twin.CreatedAt), formatTime(twin.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting twin: %w", err)
	}
	return nil
}

// GetTwin retrieves a twin by id
func (s *SQLiteStore) GetTwin(ctx context.Context, id string) (*Twin, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, image_url, owner_id, status, tags, features, model_data, created_at, updated_at
		FROM twins WHERE id = ?`, id)
	return scanTwin(row)
}

// rowScanner abstracts sql.Row and sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTwin(row rowScanner) (*Twin, error) {
	var twin Twin
	var tags, createdAt, updatedAt string

	err := row.Scan(&twin.ID, &twin.Name, &twin.Description, &twin.ImageURL,
		&twin.OwnerID, &twin.Status, &tags, &twin.Features, &twin.ModelData,
		&createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning twin: %w", err)
	}

	if err := json.Unmarshal([]byte(tags), &twin.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	twin.CreatedAt = parseTime(createdAt)
	twin.UpdatedAt = parseTime(updatedAt)
	return &twin, nil
}

// UpdateTwin replaces a twin's mutable fields
func (s *SQLiteStore) UpdateTwin(ctx context.Context, twin *Twin) error {
	tags, err := json.Marshal(twin.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE twins
		SET name = ?, description = ?, image_url = ?, status = ?, tags = ?,
			features = ?, model_data = ?, updated_at = ?
		WHERE id = ?`,
		twin.Name, twin.Description, twin.ImageURL, twin.Status, string(tags),
		twin.Features, twin.ModelData, formatTime(time.Now()), twin.ID,
	)
	if err != nil {
		return fmt.Errorf("updating twin: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTwin removes a twin and its category assignments
func (s *SQLiteStore) DeleteTwin(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM twins WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting twin: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTwins returns twins ordered by most recently updated
func (s *SQLiteStore) ListTwins(ctx context.Context, limit int) ([]*Twin, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, image_url, owner_id, status, tags, features, model_data, created_at, updated_at
		FROM twins ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing twins: %w", err)
	}
	defer rows.Close()

	var twins []*Twin
	for rows.Next() {
		twin, err := scanTwin(rows)
		if err != nil {
			return nil, err
		}
		twins = append(twins, twin)
	}
	return twins, rows.Err()
}

// CreateCategory inserts a new category
func (s *SQLiteStore) CreateCategory(ctx context.Context, category *Category) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, description, created_at)
		VALUES (?, ?, ?, ?)`,
		category.ID, category.Name, category.Description, formatTime(category.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting category: %w", err)
	}
	return nil
}

// ListCategories returns all categories by name
func (s *SQLiteStore) ListCategories(ctx context.Context) ([]*Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []*Category
	for rows.Next() {
		var c Category
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		c.CreatedAt = parseTime(createdAt)
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

// AssignCategory links a twin to a category; repeat assignments are no-ops
func (s *SQLiteStore) AssignCategory(ctx context.Context, twinID, categoryID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO twin_categories (twin_id, category_id) VALUES (?, ?)`,
		twinID, categoryID,
	)
	if err != nil {
		return fmt.Errorf("assigning category: %w", err)
	}
	return nil
}

// ListTwinsByCategory returns the twins assigned to a category
func (s *SQLiteStore) ListTwinsByCategory(ctx context.Context, categoryID string) ([]*Twin, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.description, t.image_url, t.owner_id, t.status, t.tags, t.features, t.model_data, t.created_at, t.updated_at
		FROM twins t
		JOIN twin_categories tc ON tc.twin_id = t.id
		WHERE tc.category_id = ?
		ORDER BY t.name`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("listing twins by category: %w", err)
	}
	defer rows.Close()

	var twins []*Twin
	for rows.Next() {
		twin, err := scanTwin(rows)
		if err != nil {
			return nil, err
		}
		twins = append(twins, twin)
	}
	return twins, rows.Err()
}

// CreateConversation inserts a new conversation
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, title, twin_id, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.Title, conv.TwinID, conv.UserID,
		formatTime(conv.CreatedAt), formatTime(conv.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting conversation: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation by id
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var conv Conversation
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, twin_id, user_id, created_at, updated_at
		FROM conversations WHERE id = ?`, id).
		Scan(&conv.ID, &conv.Title, &conv.TwinID, &conv.UserID, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}

	conv.CreatedAt = parseTime(createdAt)
	conv.UpdatedAt = parseTime(updatedAt)
	return &conv, nil
}

// ListConversations returns one page of conversations, most recently updated
// first, optionally filtered by a search term matching the conversation
// title or the twin's name.
func (s *SQLiteStore) ListConversations(ctx context.Context, params ListConversationsParams) ([]*Conversation, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	perPage := params.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	query := `
		SELECT c.id, c.title, c.twin_id, c.user_id, c.created_at, c.updated_at
		FROM conversations c
		LEFT JOIN twins t ON t.id = c.twin_id`
	args := []any{}

	if params.Search != "" {
		query += ` WHERE c.title LIKE ? OR t.name LIKE ?`
		pattern := "%" + params.Search + "%"
		args = append(args, pattern, pattern)
	}

	query += ` ORDER BY c.updated_at DESC LIMIT ? OFFSET ?`
	args = append(args, perPage, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var convs []*Conversation
	for rows.Next() {
		var conv Conversation
		var createdAt, updatedAt string
		if err := rows.Scan(&conv.ID, &conv.Title, &conv.TwinID, &conv.UserID, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		conv.CreatedAt = parseTime(createdAt)
		conv.UpdatedAt = parseTime(updatedAt)
		convs = append(convs, &conv)
	}
	return convs, rows.Err()
}

// DeleteConversation removes a conversation and its messages
func (s *SQLiteStore) DeleteConversation(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveMessage persists a message and touches its conversation's updated_at
// so list ordering follows activity.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_type, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.SenderType, msg.Content, formatTime(msg.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE conversations SET updated_at = ? WHERE id = ?`,
		formatTime(time.Now()), msg.ConversationID,
	)
	if err != nil {
		return fmt.Errorf("touching conversation: %w", err)
	}

	return tx.Commit()
}

// GetConversationMessages returns a conversation's messages in insertion order
func (s *SQLiteStore) GetConversationMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender_type, content, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at, id`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		var msg Message
		var createdAt string
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderType, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.CreatedAt = parseTime(createdAt)
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}

// CreateProcessingJob inserts a new processing job
func (s *SQLiteStore) CreateProcessingJob(ctx context.Context, job *ProcessingJob) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processing_jobs (id, twin_id, status, result, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.TwinID, job.Status, job.Result, job.ErrorMessage,
		formatTime(job.CreatedAt), formatTime(job.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting processing job: %w", err)
	}
	return nil
}

// GetProcessingJob retrieves a processing job by id
func (s *SQLiteStore) GetProcessingJob(ctx context.Context, id string) (*ProcessingJob, error) {
	var job ProcessingJob
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, twin_id, status, result, error_message, created_at, updated_at
		FROM processing_jobs WHERE id = ?`, id).
		Scan(&job.ID, &job.TwinID, &job.Status, &job.Result, &job.ErrorMessage, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning processing job: %w", err)
	}

	job.CreatedAt = parseTime(createdAt)
	job.UpdatedAt = parseTime(updatedAt)
	return &job, nil
}

// UpdateProcessingJob replaces a job's status, result, and error message
func (s *SQLiteStore) UpdateProcessingJob(ctx context.Context, job *ProcessingJob) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE processing_jobs
		SET status = ?, result = ?, error_message = ?, updated_at = ?
		WHERE id = ?`,
		job.Status, job.Result, job.ErrorMessage, formatTime(time.Now()), job.ID,
	)
	if err != nil {
		return fmt.Errorf("updating processing job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
