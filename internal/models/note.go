package models

import "time"

// NoteStatus tracks a note's progress through the external indexing pipeline.
type NoteStatus string

const (
	NoteStatusPending  NoteStatus = "PENDING"
	NoteStatusIndexing NoteStatus = "INDEXING"
	NoteStatusReady    NoteStatus = "READY"
	NoteStatusFailed   NoteStatus = "FAILED"
)

// Note is a single node in a user's knowledge tree.
type Note struct {
	ID           string     `json:"id"` // ULID
	UserID       string     `json:"userId"`
	FaissID      int64      `json:"faissId"` // Slot in the external vector index
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Category     string     `json:"category,omitempty"`
	ParentID     string     `json:"parentId,omitempty"`
	Status       NoteStatus `json:"status"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
