package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sitesurvey/server/internal/models"
	"github.com/sitesurvey/server/internal/observability"
)

// SessionRepository persists autosaved session state as JSON, one row per
// session id. Placeholders are $N, which both sqlite and postgres accept.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Save upserts the session snapshot under its id.
func (r *SessionRepository) Save(ctx context.Context, saved *models.SavedSession) error {
	ctx, span := observability.StartDBSpan(ctx, "upsert", "survey_sessions")
	defer span.End()

	state, err := json.Marshal(saved.State)
	if err != nil {
		observability.RecordError(span, err)
		return fmt.Errorf("marshal session state: %w", err)
	}

	query := `INSERT INTO survey_sessions (session_id, state, saved_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET
			state = EXCLUDED.state,
			saved_at = EXCLUDED.saved_at`

	_, err = r.db.ExecContext(ctx, query, saved.SessionID, string(state), saved.SavedAt)
	if err != nil {
		observability.RecordError(span, err)
		return err
	}
	observability.SetSuccess(span)
	return nil
}

// Load retrieves the saved state for a session id, or (nil, nil) when none
// exists.
func (r *SessionRepository) Load(ctx context.Context, sessionID string) (*models.SavedSession, error) {
	query := `SELECT session_id, state, saved_at FROM survey_sessions WHERE session_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, sessionID))
}

// Latest retrieves the most recently saved session, or (nil, nil) when the
// store is empty. Used on startup to offer resuming an interrupted walk.
func (r *SessionRepository) Latest(ctx context.Context) (*models.SavedSession, error) {
	query := `SELECT session_id, state, saved_at FROM survey_sessions
		ORDER BY saved_at DESC LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query))
}

// Delete removes a saved session.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM survey_sessions WHERE session_id = $1`, sessionID)
	return err
}

func (r *SessionRepository) scanOne(row *sql.Row) (*models.SavedSession, error) {
	var saved models.SavedSession
	var state string

	err := row.Scan(&saved.SessionID, &state, &saved.SavedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	saved.State = &models.Session{}
	if err := json.Unmarshal([]byte(state), saved.State); err != nil {
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}
	return &saved, nil
}
