package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/Chenghao-Wen/NoteTree/internal/api/middleware"
)

// SearchRequest represents the semantic search request.
type SearchRequest struct {
	Query string `json:"query"`
}

// SearchResponse acknowledges a queued search job. The result arrives later
// as a search.result event on the caller's live connection.
type SearchResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// Search queues a semantic search job (authenticated).
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Bounds are in characters, not bytes; multibyte scripts count per rune.
	req.Query = strings.TrimSpace(req.Query)
	switch n := utf8.RuneCountInString(req.Query); {
	case n < 2:
		h.Error(w, http.StatusBadRequest, "query too short (min 2 chars)")
		return
	case n > 500:
		h.Error(w, http.StatusBadRequest, "query too long (max 500 chars)")
		return
	}

	job, err := h.jobs.SubmitSearchJob(r.Context(), userID, req.Query)
	if err != nil {
		h.logger.Error().Err(err).Str("userId", userID).Msg("search submission failed")
		h.Error(w, http.StatusInternalServerError, "failed to queue search")
		return
	}

	h.JSON(w, http.StatusAccepted, SearchResponse{
		JobID:  job.JobID,
		Status: "ACCEPTED",
	})
}
