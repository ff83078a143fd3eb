package sharelink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	t.Run("requires leading slash", func(t *testing.T) {
		got, err := NormalizePath("docs/readme.md")
		require.NoError(t, err)
		assert.Equal(t, "/docs/readme.md", got)
	})

	t.Run("drops dot segments", func(t *testing.T) {
		got, err := NormalizePath("/docs/./readme.md")
		require.NoError(t, err)
		assert.Equal(t, "/docs/readme.md", got)
	})

	t.Run("collapses empty segments", func(t *testing.T) {
		got, err := NormalizePath("//docs//readme.md")
		require.NoError(t, err)
		assert.Equal(t, "/docs/readme.md", got)
	})

	t.Run("rejects traversal", func(t *testing.T) {
		_, err := NormalizePath("/docs/../secrets.env")
		require.Error(t, err)
	})

	t.Run("rejects encoded traversal", func(t *testing.T) {
		_, err := NormalizePath("/docs/%2e%2e/secrets.env")
		require.Error(t, err)
	})

	t.Run("root resolves to slash", func(t *testing.T) {
		got, err := NormalizePath("/")
		require.NoError(t, err)
		assert.Equal(t, "/", got)
	})
}
