package rag

//go:generate mockgen -source=engine.go -destination=mocks/mock_engine.go -package=mocks

import (
	"context"
	"errors"
	"fmt"

	"docindex/internal/chunker"
	"docindex/internal/contextutil"
	"docindex/internal/embedding"
	"docindex/internal/status"
	"docindex/internal/vectorstore"
)

// DefaultDirectContextMaxChars is the size below which a file skips
// indexing entirely and is served back as raw text.
const DefaultDirectContextMaxChars = 50000

const (
	defaultTopK = 15
	maxTopK     = 50
)

// Chunker splits document text into ordered, overlapping chunks.
type Chunker interface {
	Chunk(text string) []chunker.Chunk
}

// Engine composes chunking, embedding, the vector index, and the lifecycle
// tracker into the document operations exposed to the rest of the system.
type Engine interface {
	// UploadDocument chunks, embeds, and indexes a document, tracking its
	// lifecycle. Small documents bypass indexing and go straight to ready.
	UploadDocument(ctx context.Context, fileID, orgID, userID, text, filename string) (UploadResult, error)

	// SearchDocuments embeds the query once and returns the tenant's most
	// similar chunks, optionally restricted to specific files.
	SearchDocuments(ctx context.Context, query, orgID, userID string, fileIDs []string, topK int) ([]vectorstore.ScoredChunk, error)

	// GetDocumentStatus reports whether a file is indexed and searchable.
	// Returns status.ErrNotFound for unknown files.
	GetDocumentStatus(ctx context.Context, fileID, orgID, userID string) (StatusResult, error)

	// DeleteDocument removes a file's vectors and status record. Deleting
	// an unknown file is a no-op.
	DeleteDocument(ctx context.Context, fileID, orgID, userID string) error

	// SweepStuckUploads marks files stuck in processing as errored.
	SweepStuckUploads(ctx context.Context) (SweepResult, error)
}

// ragEngine implements the Engine interface.
type ragEngine struct {
	chunker               Chunker
	embedder              embedding.Embedder
	index                 vectorstore.VectorIndex
	tracker               *status.Tracker
	directContextMaxChars int
}

// NewEngine creates a new document engine. A non-positive
// directContextMaxChars falls back to DefaultDirectContextMaxChars.
func NewEngine(
	chunker Chunker,
	embedder embedding.Embedder,
	index vectorstore.VectorIndex,
	tracker *status.Tracker,
	directContextMaxChars int,
) Engine {
	if directContextMaxChars <= 0 {
		directContextMaxChars = DefaultDirectContextMaxChars
	}
	return &ragEngine{
		chunker:               chunker,
		embedder:              embedder,
		index:                 index,
		tracker:               tracker,
		directContextMaxChars: directContextMaxChars,
	}
}

func (e *ragEngine) UploadDocument(ctx context.Context, fileID, orgID, userID, text, filename string) (UploadResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if fileID == "" || orgID == "" || userID == "" {
		return UploadResult{}, fmt.Errorf("file ID, org ID, and user ID are required")
	}

	if _, err := e.tracker.Begin(ctx, fileID, orgID, userID, filename); err != nil {
		return UploadResult{}, fmt.Errorf("failed to begin indexing: %w", err)
	}

	logger.InfoContext(ctx, "upload started",
		"file_id", fileID,
		"filename", filename,
		"text_chars", len(text),
	)

	// Drop any vectors left from a previous version of this file so a
	// re-upload with fewer chunks does not leave stale results behind.
	if err := e.index.Delete(ctx, fileID, orgID, userID); err != nil {
		return UploadResult{}, e.fail(ctx, fileID, orgID, userID, fmt.Errorf("failed to clear previous index entries: %w", err))
	}

	// Small files skip retrieval entirely; callers serve the raw text.
	if len(text) < e.directContextMaxChars {
		if err := e.tracker.MarkReady(ctx, fileID, orgID, userID, 0); err != nil {
			return UploadResult{}, fmt.Errorf("failed to mark file ready: %w", err)
		}
		logger.InfoContext(ctx, "upload served as direct context", "file_id", fileID)
		return UploadResult{ChunkCount: 0, Note: "below indexing threshold; served as direct context"}, nil
	}

	chunks := e.chunker.Chunk(text)
	if len(chunks) == 0 {
		if err := e.tracker.MarkReady(ctx, fileID, orgID, userID, 0); err != nil {
			return UploadResult{}, fmt.Errorf("failed to mark file ready: %w", err)
		}
		return UploadResult{ChunkCount: 0, Note: "no content to index"}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return UploadResult{}, e.fail(ctx, fileID, orgID, userID, fmt.Errorf("failed to embed chunks: %w", err))
	}
	if len(vectors) != len(chunks) {
		err := fmt.Errorf("%w: %d chunks, %d vectors", embedding.ErrCountMismatch, len(chunks), len(vectors))
		return UploadResult{}, e.fail(ctx, fileID, orgID, userID, err)
	}

	records := make([]vectorstore.ChunkRecord, len(chunks))
	for i, c := range chunks {
		records[i] = vectorstore.ChunkRecord{
			ID:            fmt.Sprintf("%s_%d", fileID, c.Index),
			FileID:        fileID,
			OrgID:         orgID,
			UserID:        userID,
			Filename:      filename,
			Content:       c.Content,
			ChunkIndex:    c.Index,
			TokenCount:    c.TokenCount,
			SectionHeader: c.SectionHeader,
			Vector:        vectors[i],
		}
	}

	if err := e.index.Upsert(ctx, records); err != nil {
		return UploadResult{}, e.fail(ctx, fileID, orgID, userID, fmt.Errorf("failed to upsert chunks: %w", err))
	}

	if err := e.tracker.MarkReady(ctx, fileID, orgID, userID, len(chunks)); err != nil {
		return UploadResult{}, fmt.Errorf("failed to mark file ready: %w", err)
	}

	logger.InfoContext(ctx, "upload indexed",
		"file_id", fileID,
		"chunk_count", len(chunks),
	)

	return UploadResult{ChunkCount: len(chunks)}, nil
}

// fail records the failure on the lifecycle tracker and returns the original
// error. The tracker write uses a detached context so a cancelled upload is
// still marked instead of lingering in processing.
func (e *ragEngine) fail(ctx context.Context, fileID, orgID, userID string, err error) error {
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "upload failed", "file_id", fileID, "error", err)

	markCtx := context.WithoutCancel(ctx)
	if markErr := e.tracker.MarkError(markCtx, fileID, orgID, userID, err.Error()); markErr != nil {
		logger.ErrorContext(ctx, "failed to record upload error", "file_id", fileID, "error", markErr)
	}

	return err
}

func (e *ragEngine) SearchDocuments(ctx context.Context, query, orgID, userID string, fileIDs []string, topK int) ([]vectorstore.ScoredChunk, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if orgID == "" || userID == "" {
		return nil, fmt.Errorf("org ID and user ID are required")
	}

	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	queryVector, err := e.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := e.index.Search(ctx, queryVector, orgID, userID, fileIDs, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	logger.InfoContext(ctx, "search completed",
		"top_k", topK,
		"file_filter_count", len(fileIDs),
		"results", len(results),
	)

	return results, nil
}

func (e *ragEngine) GetDocumentStatus(ctx context.Context, fileID, orgID, userID string) (StatusResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	rec, err := e.tracker.Get(ctx, fileID, orgID, userID)
	if err != nil {
		return StatusResult{}, err
	}

	res := StatusResult{
		FileID:     rec.FileID,
		Filename:   rec.Filename,
		Status:     string(rec.Status),
		Indexed:    rec.Status == status.StateReady,
		ChunkCount: rec.ChunkCount,
	}

	switch rec.Status {
	case status.StatePending:
		res.Note = "queued for indexing"
	case status.StateProcessing:
		res.Note = "indexing in progress"
	case status.StateError:
		res.Note = rec.ErrorMessage
	case status.StateReady:
		if rec.ChunkCount == 0 {
			res.Note = "not chunked; served as direct context"
			break
		}
		// Cross-check the index so a ready record whose vectors went missing
		// does not report as searchable. A count failure keeps the recorded
		// state rather than failing the status read.
		stored, err := e.index.Count(ctx, fileID, orgID, userID)
		if err != nil {
			logger.WarnContext(ctx, "failed to verify indexed chunk count",
				"file_id", fileID, "error", err)
			break
		}
		if stored != rec.ChunkCount {
			res.Indexed = false
			res.Note = fmt.Sprintf("index incomplete: %d of %d chunks stored; re-upload to repair", stored, rec.ChunkCount)
		}
	}

	return res, nil
}

func (e *ragEngine) DeleteDocument(ctx context.Context, fileID, orgID, userID string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if err := e.index.Delete(ctx, fileID, orgID, userID); err != nil {
		return fmt.Errorf("failed to delete index entries: %w", err)
	}

	if err := e.tracker.Delete(ctx, fileID, orgID, userID); err != nil && !errors.Is(err, status.ErrNotFound) {
		return fmt.Errorf("failed to delete status record: %w", err)
	}

	logger.InfoContext(ctx, "document deleted", "file_id", fileID)
	return nil
}

func (e *ragEngine) SweepStuckUploads(ctx context.Context) (SweepResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	fileIDs, err := e.tracker.Sweep(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("failed to sweep stuck uploads: %w", err)
	}

	if len(fileIDs) > 0 {
		logger.WarnContext(ctx, "stuck uploads marked as errored",
			"count", len(fileIDs),
			"file_ids", fileIDs,
		)
	}

	return SweepResult{CleanedCount: len(fileIDs), FileIDs: fileIDs}, nil
}
