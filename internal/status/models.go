package status

import "time"

// State is the indexing lifecycle state of an uploaded file.
type State string

const (
	// StatePending means the file is registered but indexing has not started.
	StatePending State = "pending"
	// StateProcessing means chunking, embedding, or upserting is underway.
	StateProcessing State = "processing"
	// StateReady means the file is fully indexed and searchable.
	StateReady State = "ready"
	// StateError means indexing failed; the record keeps the failure message.
	StateError State = "error"
)

// Record tracks the indexing lifecycle of a single uploaded file.
// A file is identified by its file ID within an (org, user) tenant scope.
type Record struct {
	FileID       string
	OrgID        string
	UserID       string
	Filename     string
	Status       State
	ChunkCount   int
	CreatedAt    time.Time
	IndexedAt    *time.Time
	ErrorMessage string
}
