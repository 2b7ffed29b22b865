package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_index.go -package=mocks docindex/internal/vectorstore VectorIndex

import "context"

// ChunkRecord is the persisted unit in the vector index: one chunk of one
// document with its embedding and tenant tags.
type ChunkRecord struct {
	ID            string // fileID + "_" + chunkIndex
	FileID        string
	OrgID         string
	UserID        string
	Filename      string
	Content       string
	ChunkIndex    int
	TokenCount    int
	SectionHeader string
	Vector        []float32
}

// ScoredChunk is a search result: a stored chunk with its similarity score.
type ScoredChunk struct {
	FileID        string
	Filename      string
	Content       string
	ChunkIndex    int
	SectionHeader string
	Score         float32
}

// VectorIndex is a tenant-scoped collection abstraction over a vector-search
// service. Every query and delete is filtered by (org_id, user_id); there is
// no ambient tenant, it must be passed explicitly on every call.
type VectorIndex interface {
	// EnsureSchema idempotently creates the collection and its filterable
	// field indexes. A dimension mismatch with an existing collection is a
	// fatal startup condition, not silently degraded search.
	EnsureSchema(ctx context.Context) error

	// Upsert writes records in batches. A batch failure is reported with the
	// chunk range of the failing batch.
	Upsert(ctx context.Context, records []ChunkRecord) error

	// Search returns at most topK chunks for the tenant, ordered by
	// descending similarity score, ties broken by ascending chunk index.
	// An empty fileIDs slice searches all of the tenant's files.
	Search(ctx context.Context, queryVector []float32, orgID, userID string, fileIDs []string, topK int) ([]ScoredChunk, error)

	// Delete removes every record for the file within the tenant. Deleting
	// zero records is success.
	Delete(ctx context.Context, fileID, orgID, userID string) error

	// Count returns the number of records stored for the file within the
	// tenant without loading record contents.
	Count(ctx context.Context, fileID, orgID, userID string) (int, error)
}
