package store

import (
	"context"

	"github.com/Chenghao-Wen/NoteTree/internal/models"
)

// DataStore defines the interface for durable storage of users, notes and
// sequence counters. Both PostgresStore and SQLiteStore implement this
// interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Sequence counters. NextSequence atomically increments the named
	// counter and returns the new value; the first call for a name
	// returns 1. No two calls ever observe the same value.
	NextSequence(ctx context.Context, name string) (int64, error)

	// User operations
	CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// Note operations
	CreateNote(ctx context.Context, note *models.Note) error
	GetNote(ctx context.Context, id string) (*models.Note, error)
	ListNotesByUser(ctx context.Context, userID string) ([]models.Note, error)
	UpdateNoteStatus(ctx context.Context, id string, status models.NoteStatus, errorMessage string) error
	DeleteNote(ctx context.Context, id string) error
}
