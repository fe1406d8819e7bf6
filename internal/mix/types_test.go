package mix

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"mp3": FormatMP3, ".mp3": FormatMP3, "MP3": FormatMP3,
		"wav": FormatWAV, ".m4a": FormatM4A,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("flac")
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestSlotsFromArgs(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "track.wav")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0o644))

	t.Run("mixes remote and local, filters separators", func(t *testing.T) {
		slots, err := SlotsFromArgs([]string{
			"https://www.youtube.com/watch?v=abc",
			"\\", "|", "",
			local,
		})
		require.NoError(t, err)
		require.Len(t, slots, 2)
		assert.Equal(t, Slot{Index: 1, Kind: SourceRemote, Source: "https://www.youtube.com/watch?v=abc"}, slots[0])
		assert.Equal(t, Slot{Index: 2, Kind: SourceLocal, Source: local}, slots[1])
	})

	t.Run("extras past the slot limit are ignored", func(t *testing.T) {
		args := make([]string, 6)
		for i := range args {
			args[i] = "https://example.com/v"
		}
		slots, err := SlotsFromArgs(args)
		require.NoError(t, err)
		assert.Len(t, slots, MaxSlots)
	})

	t.Run("garbage argument fails", func(t *testing.T) {
		_, err := SlotsFromArgs([]string{"not a url and not a file"})
		require.ErrorIs(t, err, ErrUnresolvedSource)
	})

	t.Run("local file with unsupported extension fails", func(t *testing.T) {
		bad := filepath.Join(dir, "notes.txt")
		require.NoError(t, os.WriteFile(bad, []byte("x"), 0o644))
		_, err := SlotsFromArgs([]string{bad})
		require.ErrorIs(t, err, ErrUnresolvedSource)
	})
}

func TestParamsValidateResolvesFormat(t *testing.T) {
	p := Params{Speed: 1, SilenceSeconds: 0, OutputPath: "x/y/out.m4a"}
	require.NoError(t, p.Validate())
	assert.Equal(t, FormatM4A, p.Format)
}
