package services

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashService_ComputeHashBytes(t *testing.T) {
	svc := NewHashService()

	t.Run("known value", func(t *testing.T) {
		// sha256("hello")
		assert.Equal(t,
			"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
			svc.ComputeHashBytes([]byte("hello")),
		)
	})

	t.Run("reader and bytes agree", func(t *testing.T) {
		data := []byte("some photo bytes")
		fromReader, err := svc.ComputeHash(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, svc.ComputeHashBytes(data), fromReader)
	})

	t.Run("different content differs", func(t *testing.T) {
		assert.NotEqual(t, svc.ComputeHashBytes([]byte("a")), svc.ComputeHashBytes([]byte("b")))
	})
}
