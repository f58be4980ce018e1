package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sitesurvey/server/internal/models"
)

// UploadQueueRepository is the durable pending-upload queue. Ordering is
// queued-at ascending so replay delivers oldest first.
type UploadQueueRepository struct {
	db *sql.DB
}

// NewUploadQueueRepository creates a new UploadQueueRepository
func NewUploadQueueRepository(db *sql.DB) *UploadQueueRepository {
	return &UploadQueueRepository{db: db}
}

// Enqueue appends a pending upload.
func (r *UploadQueueRepository) Enqueue(ctx context.Context, entry *models.PendingUpload) error {
	photos, err := json.Marshal(entry.Photos)
	if err != nil {
		return fmt.Errorf("marshal photo list: %w", err)
	}

	query := `INSERT INTO pending_uploads (id, destination, survey_json, placements_json, photos, queued_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Destination,
		entry.SurveyJSON,
		entry.PlacementsJSON,
		string(photos),
		entry.QueuedAt,
	)
	return err
}

// List returns all pending uploads, oldest first.
func (r *UploadQueueRepository) List(ctx context.Context) ([]*models.PendingUpload, error) {
	query := `SELECT id, destination, survey_json, placements_json, photos, queued_at
		FROM pending_uploads ORDER BY queued_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.PendingUpload
	for rows.Next() {
		var entry models.PendingUpload
		var photos string
		var placements []byte

		if err := rows.Scan(&entry.ID, &entry.Destination, &entry.SurveyJSON, &placements, &photos, &entry.QueuedAt); err != nil {
			return nil, err
		}
		entry.PlacementsJSON = placements
		if err := json.Unmarshal([]byte(photos), &entry.Photos); err != nil {
			return nil, fmt.Errorf("unmarshal photo list for %s: %w", entry.ID, err)
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// Remove deletes exactly one entry by id.
func (r *UploadQueueRepository) Remove(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pending_uploads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrUploadNotFound
	}
	return nil
}

// Count returns the number of queued uploads.
func (r *UploadQueueRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_uploads`).Scan(&n)
	return n, err
}
