package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitesurvey/server/internal/models"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleSession(id string) *models.Session {
	return &models.Session{
		ID:       id,
		SiteName: "Acme HQ",
		Dataset: models.CameraDataset{Cameras: []models.CameraRecord{
			{ID: "c1", Room: "Lobby", FloorID: "f1", Latitude: 50.85, Longitude: 4.35},
		}},
		Rooms: []*models.Room{
			{
				Key:     models.RoomKey{FloorID: "f1", Name: "Lobby"},
				Cameras: []*models.Camera{{ID: "c1"}},
				Survey:  models.NewSurveyRecord(),
			},
		},
	}
}

func TestSessionRepository_SaveLoad(t *testing.T) {
	t.Run("round-trips session state", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))
		ctx := context.Background()

		session := sampleSession("survey_1")
		session.Rooms[0].Survey.Notes = "round trip"
		savedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		err := repo.Save(ctx, &models.SavedSession{SessionID: "survey_1", State: session, SavedAt: savedAt})
		require.NoError(t, err)

		loaded, err := repo.Load(ctx, "survey_1")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, "survey_1", loaded.SessionID)
		assert.Equal(t, "round trip", loaded.State.Rooms[0].Survey.Notes)
		assert.True(t, savedAt.Equal(loaded.SavedAt))
	})

	t.Run("absence is nil nil", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))

		loaded, err := repo.Load(context.Background(), "survey_missing")
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("save is an upsert", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))
		ctx := context.Background()

		session := sampleSession("survey_1")
		require.NoError(t, repo.Save(ctx, &models.SavedSession{SessionID: "survey_1", State: session, SavedAt: time.Now().UTC()}))

		session.Rooms[0].Survey.Notes = "second write"
		require.NoError(t, repo.Save(ctx, &models.SavedSession{SessionID: "survey_1", State: session, SavedAt: time.Now().UTC()}))

		loaded, err := repo.Load(ctx, "survey_1")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, "second write", loaded.State.Rooms[0].Survey.Notes)
	})
}

func TestSessionRepository_Latest(t *testing.T) {
	t.Run("returns the most recent save", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))
		ctx := context.Background()

		older := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		newer := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
		require.NoError(t, repo.Save(ctx, &models.SavedSession{SessionID: "survey_old", State: sampleSession("survey_old"), SavedAt: older}))
		require.NoError(t, repo.Save(ctx, &models.SavedSession{SessionID: "survey_new", State: sampleSession("survey_new"), SavedAt: newer}))

		latest, err := repo.Latest(ctx)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, "survey_new", latest.SessionID)
	})

	t.Run("empty store is nil nil", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))

		latest, err := repo.Latest(context.Background())
		require.NoError(t, err)
		assert.Nil(t, latest)
	})
}

func TestSessionRepository_Delete(t *testing.T) {
	repo := NewSessionRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &models.SavedSession{SessionID: "survey_1", State: sampleSession("survey_1"), SavedAt: time.Now().UTC()}))
	require.NoError(t, repo.Delete(ctx, "survey_1"))

	loaded, err := repo.Load(ctx, "survey_1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
