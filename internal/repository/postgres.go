package repository

import (
	"database/sql"

	_ "github.com/lib/pq"
)

// NewPostgresDB creates and initializes a PostgreSQL database connection.
// Field devices default to the local SQLite file; postgres serves shared
// back-office deployments.
func NewPostgresDB(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := createPostgresTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createPostgresTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS survey_sessions (
		session_id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		saved_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_survey_sessions_saved_at ON survey_sessions(saved_at);

	CREATE TABLE IF NOT EXISTS pending_uploads (
		id TEXT PRIMARY KEY,
		destination TEXT NOT NULL,
		survey_json BYTEA NOT NULL,
		placements_json BYTEA,
		photos TEXT NOT NULL,
		queued_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pending_uploads_queued_at ON pending_uploads(queued_at);
	`

	_, err := db.Exec(schema)
	return err
}
