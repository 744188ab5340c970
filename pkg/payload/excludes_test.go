package payload

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveCopyExcludes(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "repo/.gitignore", []byte(`
# build artifacts
__pycache__/
*.ckpt

wandb
`), 0o644))

	t.Run("gitignore patterns plus git metadata", func(t *testing.T) {
		excludes, err := deriveCopyExcludes(fs, "repo", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"__pycache__/", "*.ckpt", "wandb", ".git"}, excludes)
	})

	t.Run("manual additions", func(t *testing.T) {
		excludes, err := deriveCopyExcludes(fs, "repo", []string{"notebooks"})
		require.NoError(t, err)
		assert.Equal(t, []string{"__pycache__/", "*.ckpt", "wandb", ".git", "notebooks"}, excludes)
	})

	t.Run("manual subtractions", func(t *testing.T) {
		excludes, err := deriveCopyExcludes(fs, "repo", []string{"!*.ckpt"})
		require.NoError(t, err)
		assert.Equal(t, []string{"__pycache__/", "wandb", ".git"}, excludes)
	})

	t.Run("missing gitignore", func(t *testing.T) {
		excludes, err := deriveCopyExcludes(fs, "bare", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{".git"}, excludes)
	})
}
