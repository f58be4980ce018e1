package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitesurvey/server/internal/dataset"
	"github.com/sitesurvey/server/internal/models"
)

func exportSession() *models.Session {
	ds := builderDataset()
	session := &models.Session{
		ID:       "survey_acme_1700000000000",
		SiteName: "Acme HQ",
		MapRef:   "maps/acme-hq",
		Dataset:  ds,
		Rooms:    BuildSurveyItems(dataset.Parse(ds)),
	}
	session.Rooms[0].Survey.Completed = true
	session.Rooms[0].Survey.Photos = []*models.Photo{
		{
			ID:         "p1",
			Label:      models.LabelOverview,
			CapturedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			StoredPath: "survey/lobby/img1.jpg",
			Extension:  "jpg",
		},
		{
			ID:         "p2",
			Label:      models.LabelMountLocation,
			CapturedAt: time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC),
			StoredPath: "survey/lobby/img2.heic",
			Extension:  "heic",
		},
	}
	cam := session.Rooms[0].Cameras[1]
	cam.NewLatitude = f64(50.8515)
	cam.NewLongitude = f64(4.3515)
	cam.Repositioned = true
	return session
}

func frozenExporter() *ExportService {
	return &ExportService{Now: func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}}
}

func TestExportService_BuildExport(t *testing.T) {
	t.Run("summarizes rooms and repositions", func(t *testing.T) {
		doc := frozenExporter().BuildExport(exportSession())

		assert.Equal(t, "survey_acme_1700000000000", doc.SurveyID)
		assert.Equal(t, "Acme HQ", doc.SiteName)
		assert.Equal(t, 3, doc.Summary.TotalRooms)
		assert.Equal(t, 1, doc.Summary.CompletedRooms)
		assert.Equal(t, 4, doc.Summary.TotalCameras)
		assert.Equal(t, 1, doc.Summary.RepositionedCameras)
		assert.Equal(t, 1, doc.CameraChanges.Repositioned)
		require.Len(t, doc.Rooms, 3)
		assert.Len(t, doc.Rooms[0].Survey.Photos, 2)
	})

	t.Run("is byte-identical under a frozen clock", func(t *testing.T) {
		exporter := frozenExporter()
		session := exportSession()

		first, err := exporter.MarshalExport(exporter.BuildExport(session))
		require.NoError(t, err)
		second, err := exporter.MarshalExport(exporter.BuildExport(session))
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("never embeds photo binaries", func(t *testing.T) {
		exporter := frozenExporter()
		data, err := exporter.MarshalExport(exporter.BuildExport(exportSession()))
		require.NoError(t, err)

		assert.NotContains(t, string(data), "survey/lobby/img1.jpg")
	})
}

func TestExportService_BuildExportWithFilenames(t *testing.T) {
	t.Run("generates date-slug-label-index filenames", func(t *testing.T) {
		doc, artifacts := frozenExporter().BuildExportWithFilenames(exportSession())

		require.Len(t, artifacts, 2)
		assert.Equal(t, "20260301_lobby_overview_1.jpg", artifacts[0].Filename)
		assert.Equal(t, "20260301_lobby_mount-location_2.heic", artifacts[1].Filename)
		assert.Equal(t, "20260301_lobby_overview_1.jpg", doc.Rooms[0].Survey.Photos[0].Filename)
	})

	t.Run("already-uploaded photos produce no artifact", func(t *testing.T) {
		session := exportSession()
		session.Rooms[0].Survey.Photos[0].RemoteRef = "https://remote/files/p1"

		doc, artifacts := frozenExporter().BuildExportWithFilenames(session)

		require.Len(t, artifacts, 1)
		assert.Equal(t, "p2", artifacts[0].PhotoID)
		assert.Empty(t, doc.Rooms[0].Survey.Photos[0].Filename)
		assert.Equal(t, "https://remote/files/p1", doc.Rooms[0].Survey.Photos[0].RemoteRef)
	})

	t.Run("missing extension defaults to jpg", func(t *testing.T) {
		session := exportSession()
		session.Rooms[0].Survey.Photos[0].Extension = ""

		_, artifacts := frozenExporter().BuildExportWithFilenames(session)
		assert.True(t, strings.HasSuffix(artifacts[0].Filename, ".jpg"))
	})
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "server-room-2", Slugify("Server Room #2"))
	assert.Equal(t, "lobby", Slugify("Lobby"))
	assert.Equal(t, "room", Slugify("***"))
}
