package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitesurvey/server/internal/models"
	"github.com/sitesurvey/server/internal/services"
)

// stubSessionStore satisfies repository.SessionStore without persisting.
type stubSessionStore struct{}

func (stubSessionStore) Save(ctx context.Context, saved *models.SavedSession) error { return nil }
func (stubSessionStore) Load(ctx context.Context, id string) (*models.SavedSession, error) {
	return nil, nil
}
func (stubSessionStore) Latest(ctx context.Context) (*models.SavedSession, error) { return nil, nil }
func (stubSessionStore) Delete(ctx context.Context, id string) error { return nil }

func newExportTestService(t *testing.T) *services.SessionService {
	t.Helper()
	svc := services.NewSessionService(stubSessionStore{}, time.Millisecond)
	_, err := svc.Create(context.Background(), models.CreateSessionRequest{
		SiteName: "Acme HQ",
		Dataset: models.CameraDataset{Cameras: []models.CameraRecord{
			{ID: "c1", Name: "Cam 1", Room: "Lobby", FloorID: "f1", Latitude: 50.85, Longitude: 4.35},
		}},
	})
	require.NoError(t, err)
	return svc
}

func TestExportHandler_Download(t *testing.T) {
	t.Run("local photos are referenced by generated filenames", func(t *testing.T) {
		svc := newExportTestService(t)
		session, err := svc.Session()
		require.NoError(t, err)
		roomID := session.Rooms[0].ID()

		_, err = svc.AttachPhoto(roomID, &models.Photo{
			ID:         "p1",
			Label:      models.LabelOverview,
			StoredPath: "local/p1.jpg",
			Extension:  "jpg",
			FileHash:   "hash1",
			CapturedAt: time.Now().UTC(),
		})
		require.NoError(t, err)

		h := NewExportHandler(svc, services.NewExportService())
		rec := httptest.NewRecorder()
		h.Download(rec, httptest.NewRequest(http.MethodGet, "/api/export", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

		var doc models.ExportDocument
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
		require.Len(t, doc.Rooms, 1)
		require.Len(t, doc.Rooms[0].Survey.Photos, 1)
		photo := doc.Rooms[0].Survey.Photos[0]
		assert.NotEmpty(t, photo.Filename)
		assert.Contains(t, photo.Filename, "_lobby_overview_1.jpg")
		assert.Empty(t, photo.RemoteRef)
	})

	t.Run("no active session is a 404", func(t *testing.T) {
		svc := services.NewSessionService(stubSessionStore{}, time.Millisecond)
		h := NewExportHandler(svc, services.NewExportService())
		rec := httptest.NewRecorder()
		h.Download(rec, httptest.NewRequest(http.MethodGet, "/api/export", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
