package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/Chenghao-Wen/NoteTree/internal/auth"
	"github.com/Chenghao-Wen/NoteTree/internal/jobs"
	"github.com/Chenghao-Wen/NoteTree/internal/models"
	"github.com/Chenghao-Wen/NoteTree/internal/store"
)

// emailRegex validates email addresses per RFC 5322 (simplified).
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// JobSubmitter is the slice of the job service the HTTP layer consumes.
type JobSubmitter interface {
	SubmitIndexingJob(ctx context.Context, userID string, in jobs.CreateNoteInput) (*models.Note, error)
	SubmitSearchJob(ctx context.Context, userID, query string) (*models.SearchJob, error)
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	db     store.DataStore
	redis  *store.RedisStore
	jobs   JobSubmitter
	tokens *auth.TokenService
	logger zerolog.Logger
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(db store.DataStore, redis *store.RedisStore, jobs JobSubmitter, tokens *auth.TokenService, logger zerolog.Logger) *Handler {
	return &Handler{db: db, redis: redis, jobs: jobs, tokens: tokens, logger: logger}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// sanitizeName trims and limits name to 100 characters, removing control
// characters.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)

	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	if len(name) > 100 {
		name = name[:100]
	}

	return name
}

// isValidEmail validates email addresses using RFC 5322 pattern.
func isValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}
