package services

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitesurvey/server/internal/models"
)

func setupTestStorage(t *testing.T) *PhotoStorageService {
	t.Helper()
	svc, err := NewPhotoStorageService(t.TempDir(), nil, 50)
	require.NoError(t, err)
	return svc
}

func TestPhotoStorageService_Store(t *testing.T) {
	t.Run("stores file under session and room folders", func(t *testing.T) {
		svc := setupTestStorage(t)
		content := []byte("fake image content")

		storedPath, err := svc.Store(
			bytes.NewReader(content),
			"survey_1700000000000",
			"lobby",
			"overview.jpg",
			int64(len(content)),
		)

		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(storedPath, "survey_1700000000000/lobby/"))
		assert.True(t, strings.HasSuffix(storedPath, ".jpg"))
		assert.True(t, svc.Exists(storedPath))
	})

	t.Run("creates unique filename for duplicates", func(t *testing.T) {
		svc := setupTestStorage(t)
		content := []byte("content")

		path1, err := svc.Store(bytes.NewReader(content), "s1", "lobby", "shot.jpg", int64(len(content)))
		require.NoError(t, err)
		path2, err := svc.Store(bytes.NewReader(content), "s1", "lobby", "shot.jpg", int64(len(content)))
		require.NoError(t, err)

		assert.NotEqual(t, path1, path2)
		assert.True(t, svc.Exists(path1))
		assert.True(t, svc.Exists(path2))
	})

	t.Run("rejects disallowed extensions", func(t *testing.T) {
		svc := setupTestStorage(t)
		_, err := svc.Store(bytes.NewReader([]byte("x")), "s1", "lobby", "notes.txt", 1)
		assert.ErrorIs(t, err, models.ErrInvalidExtension)
	})

	t.Run("rejects oversized files", func(t *testing.T) {
		svc, err := NewPhotoStorageService(t.TempDir(), nil, 1)
		require.NoError(t, err)

		_, err = svc.Store(bytes.NewReader(nil), "s1", "lobby", "big.jpg", 2*1024*1024)
		assert.ErrorIs(t, err, models.ErrFileTooLarge)
	})
}

func TestPhotoStorageService_Open(t *testing.T) {
	t.Run("round-trips stored content with size", func(t *testing.T) {
		svc := setupTestStorage(t)
		content := []byte("round trip payload")

		storedPath, err := svc.Store(bytes.NewReader(content), "s1", "hall", "shot.jpg", int64(len(content)))
		require.NoError(t, err)

		f, size, err := svc.Open(storedPath)
		require.NoError(t, err)
		defer f.Close()

		got, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, content, got)
		assert.Equal(t, int64(len(content)), size)
	})

	t.Run("rejects path traversal", func(t *testing.T) {
		svc := setupTestStorage(t)
		_, _, err := svc.Open("../../etc/passwd")
		assert.ErrorIs(t, err, models.ErrPathTraversal)
	})
}

func TestPhotoStorageService_Delete(t *testing.T) {
	svc := setupTestStorage(t)
	content := []byte("doomed")

	storedPath, err := svc.Store(bytes.NewReader(content), "s1", "lobby", "gone.jpg", int64(len(content)))
	require.NoError(t, err)

	assert.True(t, svc.Delete(storedPath))
	assert.False(t, svc.Exists(storedPath))
	assert.False(t, svc.Delete(storedPath))
}
