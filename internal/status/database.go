package status

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens a SQLite database connection at the given path.
// It enables foreign keys and sets connection pool settings.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys (disabled by default in SQLite)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate runs database migrations to create the required tables.
// It is idempotent and can be run multiple times safely.
func Migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS file_index_status (
			file_id TEXT NOT NULL,
			org_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			status TEXT NOT NULL,
			chunk_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			indexed_at DATETIME,
			error_message TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (file_id, org_id, user_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_file_index_status_status
			ON file_index_status(status);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
