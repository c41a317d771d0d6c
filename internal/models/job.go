package models

// IndexingJob is the unit of work appended to the indexing stream. The
// external worker embeds Content and writes the vector into the slot
// identified by FaissID.
type IndexingJob struct {
	NoteID  string
	FaissID int64
	UserID  string
	Content string
}

// SearchJob is the unit of work appended to the search stream. The result is
// delivered asynchronously over the broadcast channel, keyed by UserID.
type SearchJob struct {
	JobID     string
	UserID    string
	Query     string
	Timestamp int64 // Unix ms
}
