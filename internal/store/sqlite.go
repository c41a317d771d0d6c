package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/Chenghao-Wen/NoteTree/internal/models"
)

// SQLiteStore handles SQLite database operations. It is the development and
// test backend; production runs PostgresStore.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/notetree.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/notetree.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	// SQLite allows a single writer; funneling through one connection keeps
	// concurrent increments from tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS counters (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		faiss_id INTEGER UNIQUE NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		parent_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notes_user_id ON notes(user_id);
	CREATE INDEX IF NOT EXISTS idx_notes_parent_id ON notes(parent_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// NextSequence atomically increments the named counter and returns the new
// value.
func (s *SQLiteStore) NextSequence(ctx context.Context, name string) (int64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO counters (name, value) VALUES (?, 1)
		ON CONFLICT(name) DO UPDATE SET value = value + 1
		RETURNING value
	`, name).Scan(&value)
	if err != nil {
		return 0, err
	}
	return value, nil
}

// CreateUser creates a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, name, email, passwordHash, now, now)
	if err != nil {
		return nil, err
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, `
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM users WHERE id = ?
	`, id)
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, `
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM users WHERE email = ?
	`, email)
}

func (s *SQLiteStore) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// CreateNote persists a note. An empty ID is filled with a fresh ULID.
func (s *SQLiteStore) CreateNote(ctx context.Context, note *models.Note) error {
	if note.ID == "" {
		note.ID = ulid.Make().String()
	}
	now := time.Now().UTC()
	note.CreatedAt = now
	note.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (id, user_id, faiss_id, title, content, category, parent_id, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, note.ID, note.UserID, note.FaissID, note.Title, note.Content,
		note.Category, note.ParentID, note.Status, note.ErrorMessage,
		note.CreatedAt, note.UpdatedAt)
	return err
}

// GetNote retrieves a note by ID. Returns (nil, nil) when not found.
func (s *SQLiteStore) GetNote(ctx context.Context, id string) (*models.Note, error) {
	note := &models.Note{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, faiss_id, title, content, category, parent_id, status, error_message, created_at, updated_at
		FROM notes WHERE id = ?
	`, id).Scan(
		&note.ID,
		&note.UserID,
		&note.FaissID,
		&note.Title,
		&note.Content,
		&note.Category,
		&note.ParentID,
		&note.Status,
		&note.ErrorMessage,
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return note, nil
}

// ListNotesByUser retrieves all notes owned by a user, oldest first.
// ULIDs sort lexicographically by creation time.
func (s *SQLiteStore) ListNotesByUser(ctx context.Context, userID string) ([]models.Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, faiss_id, title, content, category, parent_id, status, error_message, created_at, updated_at
		FROM notes
		WHERE user_id = ?
		ORDER BY id ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []models.Note
	for rows.Next() {
		var note models.Note
		err := rows.Scan(
			&note.ID,
			&note.UserID,
			&note.FaissID,
			&note.Title,
			&note.Content,
			&note.Category,
			&note.ParentID,
			&note.Status,
			&note.ErrorMessage,
			&note.CreatedAt,
			&note.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}

	return notes, rows.Err()
}

// UpdateNoteStatus updates a note's pipeline status.
func (s *SQLiteStore) UpdateNoteStatus(ctx context.Context, id string, status models.NoteStatus, errorMessage string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notes
		SET status = ?, error_message = ?, updated_at = ?
		WHERE id = ?
	`, status, errorMessage, time.Now().UTC(), id)
	return err
}

// DeleteNote removes a note.
func (s *SQLiteStore) DeleteNote(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	return err
}
