package models

import (
	"encoding/json"
	"fmt"
)

// EventKind discriminates notification payloads on the broadcast channel.
type EventKind string

const (
	EventNoteStatusChanged EventKind = "note.status_changed"
	EventSearchResult      EventKind = "search.result"
)

// Notification is the envelope the AI worker publishes to the results
// channel. Data is decoded into a concrete payload based on Event.
type Notification struct {
	Event  EventKind       `json:"event"`
	UserID string          `json:"userId"`
	Data   json.RawMessage `json:"data"`
}

// NoteStatusChanged reports the outcome of an indexing job.
type NoteStatusChanged struct {
	NoteID     string `json:"noteId"`
	Status     string `json:"status"` // READY or FAILED
	AICategory string `json:"aiCategory,omitempty"`
}

// RelatedNote is one scored hit in a search result.
type RelatedNote struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// SearchResult carries the answer to a queued search job.
type SearchResult struct {
	JobID        string        `json:"jobId"`
	Summary      string        `json:"summary"`
	RelatedNotes []RelatedNote `json:"relatedNotes"`
}

// DecodePayload decodes Data into the payload type selected by Event.
// Unrecognized kinds are an error so callers can drop the message instead of
// forwarding something they cannot interpret.
func (n *Notification) DecodePayload() (any, error) {
	switch n.Event {
	case EventNoteStatusChanged:
		var p NoteStatusChanged
		if err := json.Unmarshal(n.Data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case EventSearchResult:
		var p SearchResult
		if err := json.Unmarshal(n.Data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	default:
		return nil, fmt.Errorf("unrecognized event kind %q", n.Event)
	}
}
