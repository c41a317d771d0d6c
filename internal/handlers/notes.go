package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/Chenghao-Wen/NoteTree/internal/api/middleware"
	"github.com/Chenghao-Wen/NoteTree/internal/jobs"
	"github.com/Chenghao-Wen/NoteTree/internal/models"
)

// CreateNoteRequest represents the note creation request.
type CreateNoteRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category,omitempty"`
	ParentID string `json:"parentId,omitempty"`
}

// CreateNoteResponse acknowledges a queued note. Status is PENDING: the
// resource exists but indexing happens asynchronously.
type CreateNoteResponse struct {
	ID      string            `json:"id"`
	FaissID int64             `json:"faissId"`
	Status  models.NoteStatus `json:"status"`
}

// NoteListResponse represents the note list response.
type NoteListResponse struct {
	Notes []models.Note `json:"notes"`
	Total int           `json:"total"`
}

// CreateNote accepts a note and queues it for indexing (authenticated).
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		h.Error(w, http.StatusBadRequest, "title is required")
		return
	}
	if utf8.RuneCountInString(req.Title) > 200 {
		h.Error(w, http.StatusBadRequest, "title too long (max 200 chars)")
		return
	}
	if req.Content == "" {
		h.Error(w, http.StatusBadRequest, "content is required")
		return
	}
	if utf8.RuneCountInString(req.Category) > 50 {
		h.Error(w, http.StatusBadRequest, "category too long (max 50 chars)")
		return
	}

	note, err := h.jobs.SubmitIndexingJob(r.Context(), userID, jobs.CreateNoteInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		ParentID: req.ParentID,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("userId", userID).Msg("note submission failed")
		h.Error(w, http.StatusInternalServerError, "failed to create note")
		return
	}

	h.JSON(w, http.StatusAccepted, CreateNoteResponse{
		ID:      note.ID,
		FaissID: note.FaissID,
		Status:  note.Status,
	})
}

// ListNotes returns all notes owned by the caller (authenticated).
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	notes, err := h.db.ListNotesByUser(r.Context(), userID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if notes == nil {
		notes = []models.Note{}
	}

	h.JSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// GetNote returns a single note owned by the caller (authenticated).
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, status, msg := h.ownedNote(r)
	if note == nil {
		h.Error(w, status, msg)
		return
	}
	h.JSON(w, http.StatusOK, note)
}

// DeleteNote removes a note owned by the caller (authenticated).
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	note, status, msg := h.ownedNote(r)
	if note == nil {
		h.Error(w, status, msg)
		return
	}

	if err := h.db.DeleteNote(r.Context(), note.ID); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to delete note")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ownedNote loads the {id} note and checks ownership. Returns a nil note
// with a status and message when the request should be refused.
func (h *Handler) ownedNote(r *http.Request) (*models.Note, int, string) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		return nil, http.StatusUnauthorized, "authentication required"
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		return nil, http.StatusBadRequest, "note ID is required"
	}

	note, err := h.db.GetNote(r.Context(), id)
	if err != nil {
		return nil, http.StatusInternalServerError, "database error"
	}
	if note == nil {
		return nil, http.StatusNotFound, "note not found"
	}
	if note.UserID != userID {
		return nil, http.StatusForbidden, "not your note"
	}
	return note, http.StatusOK, ""
}
