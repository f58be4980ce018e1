package services

import (
	"math"

	"github.com/sitesurvey/server/internal/models"
)

// Progress is recomputed on every read; at tens to low hundreds of rooms a
// derived scan is cheaper than cache invalidation would be to get right.

// CompletedCount returns the number of completed rooms.
func CompletedCount(rooms []*models.Room) int {
	n := 0
	for _, r := range rooms {
		if r.Survey.Completed {
			n++
		}
	}
	return n
}

// ProgressPercent returns rounded completion, 0 for an empty room list.
func ProgressPercent(rooms []*models.Room) int {
	if len(rooms) == 0 {
		return 0
	}
	return int(math.Round(100 * float64(CompletedCount(rooms)) / float64(len(rooms))))
}

// NextIncompleteRoom ring-scans the ordered room list starting just after
// afterRoomID, wrapping to the start, and returns the first incomplete room.
// ok is false when every room is complete. An unknown afterRoomID scans from
// the beginning.
func NextIncompleteRoom(rooms []*models.Room, afterRoomID string) (room *models.Room, ok bool) {
	if len(rooms) == 0 {
		return nil, false
	}

	start := 0
	for i, r := range rooms {
		if r.ID() == afterRoomID {
			start = i + 1
			break
		}
	}

	for offset := 0; offset < len(rooms); offset++ {
		r := rooms[(start+offset)%len(rooms)]
		if !r.Survey.Completed {
			return r, true
		}
	}
	return nil, false
}

// FloorProgressFor aggregates completion per floor in floor first-seen
// order, for floor-tab labels.
func FloorProgressFor(rooms []*models.Room) []models.FloorProgress {
	var out []models.FloorProgress
	index := make(map[string]int)

	for _, r := range rooms {
		i, ok := index[r.Key.FloorID]
		if !ok {
			i = len(out)
			index[r.Key.FloorID] = i
			out = append(out, models.FloorProgress{
				FloorID:   r.Key.FloorID,
				FloorName: r.FloorName,
			})
		}
		out[i].Total++
		if r.Survey.Completed {
			out[i].Completed++
		}
	}
	return out
}

// ProgressFor assembles the full derived progress view.
func ProgressFor(rooms []*models.Room) models.ProgressResponse {
	return models.ProgressResponse{
		TotalRooms:      len(rooms),
		CompletedRooms:  CompletedCount(rooms),
		ProgressPercent: ProgressPercent(rooms),
		Floors:          FloorProgressFor(rooms),
	}
}
