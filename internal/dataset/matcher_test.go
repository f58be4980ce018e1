package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matcherFloors() []*Floor {
	return []*Floor{
		{ID: "building-a/floor-1"},
		{ID: "building-a/floor-2"},
	}
}

func TestMatchFloor(t *testing.T) {
	t.Run("exact id wins", func(t *testing.T) {
		f, kind := MatchFloor(matcherFloors(), "building-a/floor-2")
		require.NotNil(t, f)
		assert.Equal(t, "building-a/floor-2", f.ID)
		assert.Equal(t, MatchExact, kind)
		assert.False(t, kind.Degraded())
	})

	t.Run("substring match either direction", func(t *testing.T) {
		f, kind := MatchFloor(matcherFloors(), "floor-2")
		require.NotNil(t, f)
		assert.Equal(t, "building-a/floor-2", f.ID)
		assert.Equal(t, MatchSubstring, kind)
	})

	t.Run("falls back to the first floor", func(t *testing.T) {
		f, kind := MatchFloor(matcherFloors(), "no-such-floor")
		require.NotNil(t, f)
		assert.Equal(t, "building-a/floor-1", f.ID)
		assert.Equal(t, MatchFirstFloor, kind)
		assert.True(t, kind.Degraded())
	})

	t.Run("empty reference still resolves to the first floor", func(t *testing.T) {
		f, kind := MatchFloor(matcherFloors(), "")
		require.NotNil(t, f)
		assert.Equal(t, MatchFirstFloor, kind)
	})

	t.Run("no floors yields none", func(t *testing.T) {
		f, kind := MatchFloor(nil, "anything")
		assert.Nil(t, f)
		assert.Equal(t, MatchNone, kind)
	})
}
