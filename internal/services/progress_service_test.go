package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitesurvey/server/internal/models"
)

func progressRooms() []*models.Room {
	mk := func(idx int, floorID, name string) *models.Room {
		return &models.Room{
			Key:       models.RoomKey{FloorID: floorID, Name: name},
			Index:     idx,
			FloorName: floorID,
			Survey:    models.NewSurveyRecord(),
		}
	}
	return []*models.Room{
		mk(0, "f1", "Lobby"),
		mk(1, "f1", "Hall"),
		mk(2, "f2", "Office"),
	}
}

func TestProgressPercent(t *testing.T) {
	t.Run("one of three complete rounds to 33", func(t *testing.T) {
		rooms := progressRooms()
		rooms[0].Survey.Completed = true

		assert.Equal(t, 33, ProgressPercent(rooms))
		assert.Equal(t, 1, CompletedCount(rooms))
	})

	t.Run("two of three complete rounds to 67", func(t *testing.T) {
		rooms := progressRooms()
		rooms[0].Survey.Completed = true
		rooms[1].Survey.Completed = true

		assert.Equal(t, 67, ProgressPercent(rooms))
	})

	t.Run("empty room list is zero", func(t *testing.T) {
		assert.Equal(t, 0, ProgressPercent(nil))
	})
}

func TestNextIncompleteRoom(t *testing.T) {
	t.Run("returns first room after the given one", func(t *testing.T) {
		rooms := progressRooms()

		next, ok := NextIncompleteRoom(rooms, rooms[0].ID())
		require.True(t, ok)
		assert.Equal(t, "Hall", next.Key.Name)
	})

	t.Run("wraps around past the end", func(t *testing.T) {
		rooms := progressRooms()
		rooms[1].Survey.Completed = true
		rooms[2].Survey.Completed = true

		next, ok := NextIncompleteRoom(rooms, rooms[1].ID())
		require.True(t, ok)
		assert.Equal(t, "Lobby", next.Key.Name)
	})

	t.Run("skips completed rooms", func(t *testing.T) {
		rooms := progressRooms()
		rooms[1].Survey.Completed = true

		next, ok := NextIncompleteRoom(rooms, rooms[0].ID())
		require.True(t, ok)
		assert.Equal(t, "Office", next.Key.Name)
	})

	t.Run("unknown id scans from the start", func(t *testing.T) {
		rooms := progressRooms()

		next, ok := NextIncompleteRoom(rooms, "f9/Nowhere")
		require.True(t, ok)
		assert.Equal(t, "Lobby", next.Key.Name)
	})

	t.Run("all complete yields none", func(t *testing.T) {
		rooms := progressRooms()
		for _, r := range rooms {
			r.Survey.Completed = true
		}

		next, ok := NextIncompleteRoom(rooms, rooms[0].ID())
		assert.False(t, ok)
		assert.Nil(t, next)
	})
}

func TestFloorProgressFor(t *testing.T) {
	t.Run("aggregates per floor in first-seen order", func(t *testing.T) {
		rooms := progressRooms()
		rooms[0].Survey.Completed = true

		floors := FloorProgressFor(rooms)
		require.Len(t, floors, 2)
		assert.Equal(t, "f1", floors[0].FloorID)
		assert.Equal(t, 2, floors[0].Total)
		assert.Equal(t, 1, floors[0].Completed)
		assert.Equal(t, "f2", floors[1].FloorID)
		assert.Equal(t, 1, floors[1].Total)
		assert.Equal(t, 0, floors[1].Completed)
	})
}
