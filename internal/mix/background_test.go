package mix

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func TestFindBackground(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "background_audiofile_01.mp3"))
	touch(t, filepath.Join(dir, "background_audiofile_03.opus"))
	touch(t, filepath.Join(dir, "background_audiofile_04.txt")) // not on the whitelist

	p, ok := FindBackground(dir, 1)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "background_audiofile_01.mp3"), p)

	_, ok = FindBackground(dir, 2)
	assert.False(t, ok)

	p, ok = FindBackground(dir, 3)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "background_audiofile_03.opus"), p)

	_, ok = FindBackground(dir, 4)
	assert.False(t, ok)
}

func TestFindBackgroundPrefersWhitelistOrder(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "background_audiofile_02.flac"))
	touch(t, filepath.Join(dir, "background_audiofile_02.wav"))

	p, ok := FindBackground(dir, 2)
	require.True(t, ok)
	// wav comes first in the extension whitelist
	assert.Equal(t, filepath.Join(dir, "background_audiofile_02.wav"), p)
}
