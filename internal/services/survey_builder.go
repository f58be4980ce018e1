package services

import (
	"github.com/sitesurvey/server/internal/dataset"
	"github.com/sitesurvey/server/internal/models"
)

// BuildSurveyItems flattens a parsed hierarchy into the ordered room survey
// items, floor order then room order within floor. Pure and deterministic:
// the same parse result always yields identical output.
func BuildSurveyItems(parsed dataset.ParseResult) []*models.Room {
	items := make([]*models.Room, 0, parsed.TotalRooms)

	for _, floor := range parsed.Floors {
		for _, pr := range floor.Rooms {
			room := &models.Room{
				Key:       models.RoomKey{FloorID: floor.ID, Name: pr.Name},
				Index:     len(items),
				FloorName: floor.Name,
				Center:    pr.Center,
				Cameras:   make([]*models.Camera, 0, len(pr.Cameras)),
				Survey:    models.NewSurveyRecord(),
			}
			for _, rec := range pr.Cameras {
				room.Cameras = append(room.Cameras, surveyCamera(rec, floor.ID, pr.Name))
			}
			items = append(items, room)
		}
	}
	return items
}

// surveyCamera clones a dataset record into its survey-mutable shape with
// reposition state zeroed.
func surveyCamera(rec models.CameraRecord, floorID, roomName string) *models.Camera {
	return &models.Camera{
		ID:          rec.ID,
		Name:        rec.Name,
		MountType:   rec.MountType,
		Original:    rec.Coordinate(),
		Height:      rec.Height,
		Rotation:    rec.Rotation,
		FieldOfView: rec.FieldOfView,
		Range:       rec.Range,
		Tilt:        rec.Tilt,
		FloorID:     floorID,
		RoomName:    roomName,
	}
}
