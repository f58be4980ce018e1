package repository

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteDB creates and initializes a SQLite database
func NewSQLiteDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	-- Autosaved session state, one row per session id
	CREATE TABLE IF NOT EXISTS survey_sessions (
		session_id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		saved_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_survey_sessions_saved_at ON survey_sessions(saved_at);

	-- Deferred submissions awaiting connectivity
	CREATE TABLE IF NOT EXISTS pending_uploads (
		id TEXT PRIMARY KEY,
		destination TEXT NOT NULL,
		survey_json BLOB NOT NULL,
		placements_json BLOB,
		photos TEXT NOT NULL,
		queued_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pending_uploads_queued_at ON pending_uploads(queued_at);
	`

	_, err := db.Exec(schema)
	return err
}
