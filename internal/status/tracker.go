package status

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultStuckTimeout is how long a record may sit in processing
	// before it is considered abandoned.
	DefaultStuckTimeout = 10 * time.Minute

	// maxErrorMessageLen bounds stored failure messages.
	maxErrorMessageLen = 500
)

// ErrAlreadyProcessing is returned when an upload is attempted for a file
// whose indexing is still in flight.
var ErrAlreadyProcessing = errors.New("file is already being processed")

// Tracker manages the indexing lifecycle of uploaded files on top of a
// Store. Transitions: pending -> processing -> ready or error, with
// error -> processing on retry. A processing record older than the stuck
// timeout may be taken over by a new upload, and ready records are
// re-created from pending on re-upload.
type Tracker struct {
	store        Store
	stuckTimeout time.Duration
	now          func() time.Time
}

// NewTracker creates a Tracker. A non-positive stuckTimeout falls back to
// DefaultStuckTimeout.
func NewTracker(store Store, stuckTimeout time.Duration) *Tracker {
	if stuckTimeout <= 0 {
		stuckTimeout = DefaultStuckTimeout
	}
	return &Tracker{
		store:        store,
		stuckTimeout: stuckTimeout,
		now:          time.Now,
	}
}

// Begin registers the file and moves it into processing, resetting any
// previous outcome. Returns ErrAlreadyProcessing if a live processing
// record exists; a processing record older than the stuck timeout is
// taken over instead.
func (t *Tracker) Begin(ctx context.Context, fileID, orgID, userID, filename string) (*Record, error) {
	existing, err := t.store.Get(ctx, fileID, orgID, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if existing != nil && existing.Status == StateProcessing {
		age := t.now().Sub(existing.CreatedAt)
		if age <= t.stuckTimeout {
			return nil, ErrAlreadyProcessing
		}
	}

	rec := &Record{
		FileID:    fileID,
		OrgID:     orgID,
		UserID:    userID,
		Filename:  filename,
		Status:    StateProcessing,
		CreatedAt: t.now().UTC(),
	}
	if err := t.store.Put(ctx, rec); err != nil {
		return nil, err
	}

	return rec, nil
}

// MarkReady records a successful index with the number of chunks written.
// A zero chunk count is valid (a file with no indexable content).
func (t *Tracker) MarkReady(ctx context.Context, fileID, orgID, userID string, chunkCount int) error {
	rec, err := t.store.Get(ctx, fileID, orgID, userID)
	if err != nil {
		return err
	}

	indexedAt := t.now().UTC()
	rec.Status = StateReady
	rec.ChunkCount = chunkCount
	rec.IndexedAt = &indexedAt
	rec.ErrorMessage = ""

	return t.store.Put(ctx, rec)
}

// MarkError records an indexing failure. The message is truncated to keep
// stored rows bounded.
func (t *Tracker) MarkError(ctx context.Context, fileID, orgID, userID, message string) error {
	rec, err := t.store.Get(ctx, fileID, orgID, userID)
	if err != nil {
		return err
	}

	rec.Status = StateError
	rec.ChunkCount = 0
	rec.IndexedAt = nil
	rec.ErrorMessage = truncate(message, maxErrorMessageLen)

	return t.store.Put(ctx, rec)
}

// Get returns the record for the file within the tenant scope.
func (t *Tracker) Get(ctx context.Context, fileID, orgID, userID string) (*Record, error) {
	return t.store.Get(ctx, fileID, orgID, userID)
}

// Delete removes the record. Deleting a missing record is not an error.
func (t *Tracker) Delete(ctx context.Context, fileID, orgID, userID string) error {
	return t.store.Delete(ctx, fileID, orgID, userID)
}

// Sweep marks every processing record older than the stuck timeout as
// errored and returns the affected file IDs.
func (t *Tracker) Sweep(ctx context.Context) ([]string, error) {
	cutoff := t.now().UTC().Add(-t.stuckTimeout)

	stuck, err := t.store.ListProcessingOlderThan(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	var swept []string
	for _, rec := range stuck {
		rec.Status = StateError
		rec.ChunkCount = 0
		rec.IndexedAt = nil
		rec.ErrorMessage = fmt.Sprintf("indexing timed out after %s", t.stuckTimeout)

		if err := t.store.Put(ctx, rec); err != nil {
			return swept, err
		}
		swept = append(swept, rec.FileID)
	}

	return swept, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
