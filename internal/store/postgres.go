package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/Chenghao-Wen/NoteTree/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool and
// ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// initSchema creates tables if they don't exist.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS counters (
		name TEXT PRIMARY KEY,
		value BIGINT NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		faiss_id BIGINT UNIQUE NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		parent_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_notes_user_id ON notes(user_id);
	CREATE INDEX IF NOT EXISTS idx_notes_parent_id ON notes(parent_id);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// NextSequence atomically increments the named counter and returns the new
// value. The upsert-increment is a single statement, so concurrent callers
// are serialized by the database row lock.
func (s *PostgresStore) NextSequence(ctx context.Context, name string) (int64, error) {
	var value int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO counters (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		RETURNING value
	`, name).Scan(&value)
	if err != nil {
		return 0, err
	}
	return value, nil
}

// CreateUser creates a new user record.
func (s *PostgresStore) CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, email, password_hash, created_at, updated_at
	`, uuid.New(), name, email, passwordHash).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, `
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM users WHERE id = $1
	`, id)
}

// GetUserByEmail retrieves a user by email.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, `
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`, email)
}

func (s *PostgresStore) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// CreateNote persists a note. An empty ID is filled with a fresh ULID;
// timestamps are set server-side.
func (s *PostgresStore) CreateNote(ctx context.Context, note *models.Note) error {
	if note.ID == "" {
		note.ID = ulid.Make().String()
	}
	now := time.Now().UTC()
	note.CreatedAt = now
	note.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO notes (id, user_id, faiss_id, title, content, category, parent_id, status, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, note.ID, note.UserID, note.FaissID, note.Title, note.Content,
		note.Category, note.ParentID, note.Status, note.ErrorMessage,
		note.CreatedAt, note.UpdatedAt)
	return err
}

// GetNote retrieves a note by ID. Returns (nil, nil) when not found.
func (s *PostgresStore) GetNote(ctx context.Context, id string) (*models.Note, error) {
	note := &models.Note{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, faiss_id, title, content, category, parent_id, status, error_message, created_at, updated_at
		FROM notes WHERE id = $1
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
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return note, nil
}

// ListNotesByUser retrieves all notes owned by a user, oldest first.
func (s *PostgresStore) ListNotesByUser(ctx context.Context, userID string) ([]models.Note, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, faiss_id, title, content, category, parent_id, status, error_message, created_at, updated_at
		FROM notes
		WHERE user_id = $1
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
func (s *PostgresStore) UpdateNoteStatus(ctx context.Context, id string, status models.NoteStatus, errorMessage string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notes
		SET status = $2, error_message = $3, updated_at = NOW()
		WHERE id = $1
	`, id, status, errorMessage)
	return err
}

// DeleteNote removes a note.
func (s *PostgresStore) DeleteNote(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	return err
}
