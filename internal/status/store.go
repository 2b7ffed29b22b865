package status

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no record exists for the requested file
// within the caller's tenant scope.
var ErrNotFound = errors.New("status record not found")

// Store persists file index status records.
type Store interface {
	// Get returns the record for fileID within the (orgID, userID) scope.
	// Returns ErrNotFound if no such record exists or it belongs to a
	// different tenant.
	Get(ctx context.Context, fileID, orgID, userID string) (*Record, error)

	// Put inserts the record, replacing any existing record for the same
	// (fileID, orgID, userID) key. File IDs are client-supplied, so the same
	// file ID under a different tenant is a distinct record.
	Put(ctx context.Context, rec *Record) error

	// ListProcessingOlderThan returns all records in the processing state
	// whose created_at is before cutoff.
	ListProcessingOlderThan(ctx context.Context, cutoff time.Time) ([]*Record, error)

	// Delete removes the record for fileID within the (orgID, userID)
	// scope. Deleting a missing record is not an error.
	Delete(ctx context.Context, fileID, orgID, userID string) error
}

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed status store.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(ctx context.Context, fileID, orgID, userID string) (*Record, error) {
	query := `SELECT file_id, org_id, user_id, filename, status, chunk_count,
		created_at, indexed_at, error_message
		FROM file_index_status
		WHERE file_id = ? AND org_id = ? AND user_id = ?`

	rec := &Record{}
	var status string
	var indexedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, fileID, orgID, userID).Scan(
		&rec.FileID, &rec.OrgID, &rec.UserID, &rec.Filename, &status,
		&rec.ChunkCount, &rec.CreatedAt, &indexedAt, &rec.ErrorMessage,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get status record: %w", err)
	}

	rec.Status = State(status)
	if indexedAt.Valid {
		t := indexedAt.Time
		rec.IndexedAt = &t
	}

	return rec, nil
}

func (s *SQLiteStore) Put(ctx context.Context, rec *Record) error {
	query := `INSERT OR REPLACE INTO file_index_status
		(file_id, org_id, user_id, filename, status, chunk_count,
		created_at, indexed_at, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var indexedAt sql.NullTime
	if rec.IndexedAt != nil {
		indexedAt = sql.NullTime{Time: *rec.IndexedAt, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		rec.FileID, rec.OrgID, rec.UserID, rec.Filename, string(rec.Status),
		rec.ChunkCount, rec.CreatedAt, indexedAt, rec.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to put status record: %w", err)
	}

	return nil
}

func (s *SQLiteStore) ListProcessingOlderThan(ctx context.Context, cutoff time.Time) ([]*Record, error) {
	query := `SELECT file_id, org_id, user_id, filename, status, chunk_count,
		created_at, indexed_at, error_message
		FROM file_index_status
		WHERE status = ? AND created_at < ?
		ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, string(StateProcessing), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list processing records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec := &Record{}
		var status string
		var indexedAt sql.NullTime

		if err := rows.Scan(
			&rec.FileID, &rec.OrgID, &rec.UserID, &rec.Filename, &status,
			&rec.ChunkCount, &rec.CreatedAt, &indexedAt, &rec.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("failed to scan status record: %w", err)
		}

		rec.Status = State(status)
		if indexedAt.Valid {
			t := indexedAt.Time
			rec.IndexedAt = &t
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, fileID, orgID, userID string) error {
	query := `DELETE FROM file_index_status
		WHERE file_id = ? AND org_id = ? AND user_id = ?`

	if _, err := s.db.ExecContext(ctx, query, fileID, orgID, userID); err != nil {
		return fmt.Errorf("failed to delete status record: %w", err)
	}

	return nil
}
