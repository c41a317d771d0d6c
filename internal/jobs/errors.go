package jobs

import "errors"

var (
	// ErrSequenceUnavailable means the counter store could not be reached.
	// Nothing has been persisted when this is returned.
	ErrSequenceUnavailable = errors.New("sequence allocator unavailable")

	// ErrPersistenceFailure means the note write failed. No job was
	// enqueued.
	ErrPersistenceFailure = errors.New("note persistence failed")

	// ErrEnqueueFailure means the stream append failed. On the search path
	// it surfaces to the caller; on the indexing path it is logged and
	// swallowed (see Submitter.SubmitIndexingJob).
	ErrEnqueueFailure = errors.New("job enqueue failed")
)
