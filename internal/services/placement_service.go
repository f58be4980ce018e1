package services

import (
	"math"

	"github.com/sitesurvey/server/internal/models"
)

// earthRadiusMeters is the mean Earth radius used for displacement.
const earthRadiusMeters = 6371000

// HaversineMeters returns the great-circle distance between two coordinates,
// rounded to one decimal place.
func HaversineMeters(a, b models.Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	d := 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
	return math.Round(d*10) / 10
}

// BuildChangeLog assembles the reposition audit log from the current rooms
// and the immutable imported dataset. Originals come from the dataset, never
// from the mutable session, so the diff stays re-derivable at any point. A
// camera missing from the dataset degrades to a nil original and distance
// instead of failing; the log is advisory, not load-bearing.
func BuildChangeLog(dataset models.CameraDataset, rooms []*models.Room) models.ChangeLog {
	originals := make(map[string]models.Coordinate, len(dataset.Cameras))
	for _, rec := range dataset.Cameras {
		originals[rec.ID] = rec.Coordinate()
	}

	log := models.ChangeLog{Changes: []models.CameraChange{}}
	for _, room := range rooms {
		for _, cam := range room.Cameras {
			log.TotalCameras++
			if !cam.Repositioned {
				continue
			}
			log.Repositioned++

			newPos := cam.NewPosition()
			if newPos == nil {
				// Invariant violation upstream; skip rather than crash.
				continue
			}

			change := models.CameraChange{
				CameraID:    cam.ID,
				Name:        cam.Name,
				Room:        room.Key.Name,
				NewPosition: *newPos,
			}
			if cam.RepositionReason != nil {
				change.Reason = *cam.RepositionReason
			}
			if orig, ok := originals[cam.ID]; ok {
				o := orig
				change.Original = &o
				d := HaversineMeters(orig, *newPos)
				change.DistanceMeters = &d
			}
			log.Changes = append(log.Changes, change)
		}
	}
	log.Unchanged = log.TotalCameras - log.Repositioned
	return log
}

// BuildUpdatedPlacements returns the imported dataset with coordinates
// overwritten for every repositioned camera. Every original camera id stays
// present and non-repositioned cameras pass through untouched.
func BuildUpdatedPlacements(dataset models.CameraDataset, rooms []*models.Room) models.CameraDataset {
	updated := make(map[string]models.Coordinate)
	for _, room := range rooms {
		for _, cam := range room.Cameras {
			if cam.Repositioned {
				if pos := cam.NewPosition(); pos != nil {
					updated[cam.ID] = *pos
				}
			}
		}
	}

	out := dataset.Clone()
	for i := range out.Cameras {
		if pos, ok := updated[out.Cameras[i].ID]; ok {
			out.Cameras[i].Latitude = pos.Latitude
			out.Cameras[i].Longitude = pos.Longitude
		}
	}
	return out
}

// RepositionedCount returns how many cameras are marked repositioned.
func RepositionedCount(rooms []*models.Room) int {
	n := 0
	for _, room := range rooms {
		for _, cam := range room.Cameras {
			if cam.Repositioned {
				n++
			}
		}
	}
	return n
}
