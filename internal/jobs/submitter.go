// Package jobs hands work off to the external AI worker: it persists the
// primary record, then appends a job to a durable Redis stream. Results come
// back asynchronously over the broadcast channel (see internal/ws).
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Chenghao-Wen/NoteTree/internal/metrics"
	"github.com/Chenghao-Wen/NoteTree/internal/models"
)

// FaissCounter is the sequence counter that assigns vector-index slots.
const FaissCounter = "note_faiss_id"

// SequenceAllocator hands out unique ascending IDs for the vector index.
type SequenceAllocator interface {
	NextSequence(ctx context.Context, name string) (int64, error)
}

// NoteStore persists note records.
type NoteStore interface {
	CreateNote(ctx context.Context, note *models.Note) error
}

// StreamAppender appends jobs to the durable streams the worker consumes.
type StreamAppender interface {
	AppendIndexingJob(ctx context.Context, job models.IndexingJob) error
	AppendSearchJob(ctx context.Context, job models.SearchJob) error
}

// CreateNoteInput is the user-supplied part of a new note.
type CreateNoteInput struct {
	Title    string
	Content  string
	Category string
	ParentID string
}

// Submitter accepts note and search submissions, persists what must be
// durable and enqueues the downstream work. Collaborators are injected once
// at startup.
type Submitter struct {
	notes  NoteStore
	seq    SequenceAllocator
	stream StreamAppender
	logger zerolog.Logger
}

// NewSubmitter creates a Submitter.
func NewSubmitter(notes NoteStore, seq SequenceAllocator, stream StreamAppender, logger zerolog.Logger) *Submitter {
	return &Submitter{
		notes:  notes,
		seq:    seq,
		stream: stream,
		logger: logger.With().Str("component", "submitter").Logger(),
	}
}

// SubmitIndexingJob allocates a vector-index slot, persists the note as
// PENDING and enqueues an indexing job. The caller gets the persisted note
// back immediately; indexing completes asynchronously.
//
// A failed stream append does NOT fail the call: the note row is the source
// of truth and stays PENDING for a later reconciliation pass to re-enqueue.
// The failure is logged at error level with the note ID.
func (s *Submitter) SubmitIndexingJob(ctx context.Context, userID string, in CreateNoteInput) (*models.Note, error) {
	faissID, err := s.seq.NextSequence(ctx, FaissCounter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSequenceUnavailable, err)
	}

	note := &models.Note{
		UserID:   userID,
		FaissID:  faissID,
		Title:    in.Title,
		Content:  in.Content,
		Category: in.Category,
		ParentID: in.ParentID,
		Status:   models.NoteStatusPending,
	}
	if err := s.notes.CreateNote(ctx, note); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	job := models.IndexingJob{
		NoteID:  note.ID,
		FaissID: faissID,
		UserID:  userID,
		Content: in.Content,
	}
	if err := s.stream.AppendIndexingJob(ctx, job); err != nil {
		metrics.EnqueueFailures.WithLabelValues("indexing").Inc()
		s.logger.Error().
			Err(err).
			Str("noteId", note.ID).
			Int64("faissId", faissID).
			Msg("note persisted but indexing job enqueue failed; note stays PENDING until reconciliation")
	}

	metrics.NotesCreated.Inc()
	return note, nil
}

// SubmitSearchJob enqueues a semantic-search query. Nothing is persisted, so
// an append failure simply propagates.
func (s *Submitter) SubmitSearchJob(ctx context.Context, userID, query string) (*models.SearchJob, error) {
	job := models.SearchJob{
		JobID:     uuid.NewString(),
		UserID:    userID,
		Query:     query,
		Timestamp: time.Now().UnixMilli(),
	}

	if err := s.stream.AppendSearchJob(ctx, job); err != nil {
		metrics.EnqueueFailures.WithLabelValues("search").Inc()
		return nil, fmt.Errorf("%w: %v", ErrEnqueueFailure, err)
	}

	metrics.SearchJobsQueued.Inc()
	s.logger.Info().
		Str("jobId", job.JobID).
		Str("userId", userID).
		Msg("search job queued")

	return &job, nil
}
