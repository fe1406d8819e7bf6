package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "mp3", cfg.Defaults.Format)
	assert.Equal(t, 10*time.Minute, cfg.Download.GetDownloadTimeout())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
paths:
  background_dir: /srv/backgrounds
defaults:
  speed: 1.5
logging:
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/srv/backgrounds", cfg.Paths.BackgroundDir)
	assert.Equal(t, 1.5, cfg.Defaults.Speed)
	assert.Equal(t, "json", cfg.Logging.Format)
	// Untouched sections keep their defaults.
	assert.Equal(t, "yt-dlp", cfg.Tools.YtDlp)
	assert.Equal(t, 160, cfg.Download.MaxAudioBitrate)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		errPart string
	}{
		{"bad port", "server:\n  port: 99999\n", "port"},
		{"zero speed", "defaults:\n  speed: 0\n", "speed"},
		{"bad format", "defaults:\n  format: flac\n", "format"},
		{"negative silence", "defaults:\n  silence_seconds: -1\n", "silence"},
		{"bad log level", "logging:\n  level: loud\n", "level"},
		{"empty tool", "tools:\n  ffmpeg: \"\"\n", "tool"},
		{"bad bitrate", "download:\n  max_audio_bitrate: -1\n", "bitrate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errPart)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var sb strings.Builder
	log := (&LoggingConfig{Level: "debug", Format: "json"}).NewLogger(&sb)
	log.Debug("hello", "k", "v")
	assert.Contains(t, sb.String(), `"msg":"hello"`)

	sb.Reset()
	log = (&LoggingConfig{Level: "warn", Format: "text"}).NewLogger(&sb)
	log.Info("dropped")
	assert.Empty(t, sb.String())
	log.Warn("kept", slog.String("k", "v"))
	assert.Contains(t, sb.String(), "kept")
}
