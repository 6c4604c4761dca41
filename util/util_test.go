package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensionSets(t *testing.T) {
	assert.True(t, MediaExt.Contains(Ext("clip.MP4")))
	assert.True(t, MediaExt.Contains(Ext("photo.JPG")))
	assert.False(t, BannerExt.Contains(Ext("anim.gif")))
	assert.True(t, IsVideo("a.mov"))
	assert.False(t, IsVideo("a.png"))
}

func TestDirSize(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "media"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "media", "a.jpg"), make([]byte, 100), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.png"), make([]byte, 28), 0o644))

	size, err := DirSize(root)
	require.NoError(t, err)
	assert.Equal(t, int64(128), size)

	size, err = DirSize(filepath.Join(root, "missing"))
	require.NoError(t, err)
	assert.Zero(t, size)
}
