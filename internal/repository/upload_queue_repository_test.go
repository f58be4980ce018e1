package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitesurvey/server/internal/models"
)

func pendingUpload(id string, queuedAt time.Time) *models.PendingUpload {
	return &models.PendingUpload{
		ID:          id,
		Destination: "projects/acme",
		SurveyJSON:  []byte(`{"surveyId":"survey_1"}`),
		Photos: []models.UploadedPhoto{
			{PhotoID: "p1", Filename: "20260301_lobby_overview_1.jpg", StoredPath: "survey_1/lobby/shot.jpg"},
		},
		QueuedAt: queuedAt,
	}
}

func TestUploadQueueRepository_EnqueueList(t *testing.T) {
	t.Run("round-trips an entry", func(t *testing.T) {
		repo := NewUploadQueueRepository(setupTestDB(t))
		ctx := context.Background()

		entry := pendingUpload("upload_1", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
		entry.PlacementsJSON = []byte(`{"cameras":[]}`)
		require.NoError(t, repo.Enqueue(ctx, entry))

		entries, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)

		got := entries[0]
		assert.Equal(t, "upload_1", got.ID)
		assert.Equal(t, "projects/acme", got.Destination)
		assert.JSONEq(t, `{"surveyId":"survey_1"}`, string(got.SurveyJSON))
		assert.JSONEq(t, `{"cameras":[]}`, string(got.PlacementsJSON))
		require.Len(t, got.Photos, 1)
		assert.Equal(t, "20260301_lobby_overview_1.jpg", got.Photos[0].Filename)
	})

	t.Run("lists oldest first", func(t *testing.T) {
		repo := NewUploadQueueRepository(setupTestDB(t))
		ctx := context.Background()

		require.NoError(t, repo.Enqueue(ctx, pendingUpload("upload_b", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))))
		require.NoError(t, repo.Enqueue(ctx, pendingUpload("upload_a", time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC))))

		entries, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "upload_a", entries[0].ID)
		assert.Equal(t, "upload_b", entries[1].ID)
	})

	t.Run("survives a database reopen", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "queue.db")
		ctx := context.Background()

		db, err := NewSQLiteDB(path)
		require.NoError(t, err)
		repo := NewUploadQueueRepository(db)
		require.NoError(t, repo.Enqueue(ctx, pendingUpload("upload_1", time.Now().UTC())))
		require.NoError(t, db.Close())

		db, err = NewSQLiteDB(path)
		require.NoError(t, err)
		defer db.Close()

		entries, err := NewUploadQueueRepository(db).List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "upload_1", entries[0].ID)
	})
}

func TestUploadQueueRepository_Remove(t *testing.T) {
	repo := NewUploadQueueRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Enqueue(ctx, pendingUpload("upload_1", time.Now().UTC())))

	require.NoError(t, repo.Remove(ctx, "upload_1"))
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.ErrorIs(t, repo.Remove(ctx, "upload_1"), models.ErrUploadNotFound)
}
