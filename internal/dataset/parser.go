// Package dataset turns the flat camera plan export into the floor/room/camera
// hierarchy the survey works through.
package dataset

import (
	"fmt"

	"github.com/sitesurvey/server/internal/models"
)

// UnknownFloorID is the bucket for cameras without a floor identifier.
const UnknownFloorID = "unknown"

// ParsedRoom is one room within a parsed floor. Center is the coordinate of
// the first camera seen in the room; arbitrary but deterministic.
type ParsedRoom struct {
	Name    string
	FloorID string
	Center  models.Coordinate
	Cameras []models.CameraRecord
}

// Floor is one floor with its rooms in first-seen order.
type Floor struct {
	ID    string
	Name  string
	Rooms []*ParsedRoom
}

// ParseResult is the parsed hierarchy plus totals.
type ParseResult struct {
	Floors       []*Floor
	TotalRooms   int
	TotalCameras int
}

// roomKeyFor picks the grouping key for a record: explicit room, then camera
// name, then a synthesized label so unnamed cameras still get a room each.
func roomKeyFor(rec models.CameraRecord) string {
	if rec.Room != "" {
		return rec.Room
	}
	if rec.Name != "" {
		return rec.Name
	}
	return fmt.Sprintf("Camera %s", rec.ID)
}

// Parse groups the dataset by floor and room, preserving first-seen order at
// both levels. An empty dataset parses to an empty floor list; upstream
// validation already rejected inputs without a cameras array entirely.
func Parse(ds models.CameraDataset) ParseResult {
	var floors []*Floor
	floorByID := make(map[string]*Floor)
	roomByKey := make(map[models.RoomKey]*ParsedRoom)
	floorNames := make(map[string]string)

	for _, rec := range ds.Cameras {
		floorID := rec.FloorID
		if floorID == "" {
			floorID = UnknownFloorID
		}

		floor, ok := floorByID[floorID]
		if !ok {
			floor = &Floor{ID: floorID}
			floorByID[floorID] = floor
			floors = append(floors, floor)
		}
		if rec.FloorName != "" && floorNames[floorID] == "" {
			floorNames[floorID] = rec.FloorName
		}

		key := models.RoomKey{FloorID: floorID, Name: roomKeyFor(rec)}
		room, ok := roomByKey[key]
		if !ok {
			room = &ParsedRoom{
				Name:    key.Name,
				FloorID: floorID,
				Center:  rec.Coordinate(),
			}
			roomByKey[key] = room
			floor.Rooms = append(floor.Rooms, room)
		}
		room.Cameras = append(room.Cameras, rec)
	}

	for i, floor := range floors {
		floor.Name = floorDisplayName(floorNames[floor.ID], i, len(floors))
	}

	result := ParseResult{Floors: floors, TotalCameras: len(ds.Cameras)}
	for _, floor := range floors {
		result.TotalRooms += len(floor.Rooms)
	}
	return result
}

// floorDisplayName resolves a human-readable floor label: a camera-supplied
// name wins; a single-floor dataset reads "All Rooms"; otherwise the floor
// gets an ordinal label.
func floorDisplayName(supplied string, index, floorCount int) string {
	if supplied != "" {
		return supplied
	}
	if floorCount == 1 {
		return "All Rooms"
	}
	return fmt.Sprintf("Floor %d", index+1)
}
