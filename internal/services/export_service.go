package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sitesurvey/server/internal/models"
)

// ExportService builds the canonical export document. The clock is a field
// so exports are byte-identical under a frozen clock.
type ExportService struct {
	Now func() time.Time
}

// NewExportService creates an ExportService on the system clock.
func NewExportService() *ExportService {
	return &ExportService{Now: time.Now}
}

// PhotoArtifact is one photo binary to upload alongside the export
// document, referenced from it by filename.
type PhotoArtifact struct {
	PhotoID    string
	Filename   string
	StoredPath string
}

// BuildExport serializes the full session into the export document,
// including the reposition change log. Photo entries carry metadata only.
func (s *ExportService) BuildExport(session *models.Session) *models.ExportDocument {
	doc := &models.ExportDocument{
		SurveyID:   session.ID,
		SiteName:   session.SiteName,
		MapRef:     session.MapRef,
		ExportedAt: s.Now().UTC(),
		Summary: models.ExportSummary{
			TotalRooms:          len(session.Rooms),
			CompletedRooms:      CompletedCount(session.Rooms),
			TotalCameras:        len(session.Dataset.Cameras),
			RepositionedCameras: RepositionedCount(session.Rooms),
		},
		Rooms:         make([]models.ExportRoom, 0, len(session.Rooms)),
		CameraChanges: BuildChangeLog(session.Dataset, session.Rooms),
	}

	for _, room := range session.Rooms {
		doc.Rooms = append(doc.Rooms, exportRoom(room))
	}
	return doc
}

// BuildExportWithFilenames builds the export variant where locally-held
// photos are referenced by generated filenames, plus the artifact list to
// upload. Photos already uploaded keep their remote reference and produce
// no artifact.
func (s *ExportService) BuildExportWithFilenames(session *models.Session) (*models.ExportDocument, []PhotoArtifact) {
	doc := s.BuildExport(session)
	date := doc.ExportedAt.Format("20060102")

	var artifacts []PhotoArtifact
	for i, room := range session.Rooms {
		slug := Slugify(room.Key.Name)
		for j, photo := range room.Survey.Photos {
			if photo.RemoteRef != "" || photo.StoredPath == "" {
				continue
			}
			ext := photo.Extension
			if ext == "" {
				ext = "jpg"
			}
			name := fmt.Sprintf("%s_%s_%s_%d.%s", date, slug, photo.Label, j+1, ext)
			doc.Rooms[i].Survey.Photos[j].Filename = name
			artifacts = append(artifacts, PhotoArtifact{
				PhotoID:    photo.ID,
				Filename:   name,
				StoredPath: photo.StoredPath,
			})
		}
	}
	return doc, artifacts
}

// MarshalExport renders the document as indented JSON for download and
// submission.
func (s *ExportService) MarshalExport(doc *models.ExportDocument) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

func exportRoom(room *models.Room) models.ExportRoom {
	out := models.ExportRoom{
		FloorID:   room.Key.FloorID,
		FloorName: room.FloorName,
		Room:      room.Key.Name,
		Cameras:   make([]models.ExportCamera, 0, len(room.Cameras)),
		Survey:    exportSurvey(room.Survey),
	}
	for _, cam := range room.Cameras {
		ec := models.ExportCamera{
			ID:           cam.ID,
			Name:         cam.Name,
			MountType:    cam.MountType,
			Original:     cam.Original,
			NewPosition:  cam.NewPosition(),
			Repositioned: cam.Repositioned,
			Height:       cam.Height,
			Rotation:     cam.Rotation,
			FieldOfView:  cam.FieldOfView,
			Range:        cam.Range,
			Tilt:         cam.Tilt,
		}
		if cam.RepositionReason != nil {
			ec.Reason = *cam.RepositionReason
		}
		out.Cameras = append(out.Cameras, ec)
	}
	return out
}

func exportSurvey(rec models.SurveyRecord) models.ExportSurvey {
	out := models.ExportSurvey{
		CeilingHeight:   rec.CeilingHeight,
		CeilingUnit:     rec.CeilingUnit,
		PowerOutlet:     rec.PowerOutlet,
		MountingSurface: rec.MountingSurface,
		Network:         rec.Network,
		Obstructions:    rec.Obstructions,
		Notes:           rec.Notes,
		Photos:          make([]models.ExportPhoto, 0, len(rec.Photos)),
		Completed:       rec.Completed,
		CompletedAt:     rec.CompletedAt,
	}
	for _, p := range rec.Photos {
		out.Photos = append(out.Photos, models.ExportPhoto{
			Label:      p.Label,
			CapturedAt: p.CapturedAt,
			RemoteRef:  p.RemoteRef,
		})
	}
	return out
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases a room name and collapses everything else to dashes.
func Slugify(name string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "room"
	}
	return slug
}
