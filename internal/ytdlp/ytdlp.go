// Package ytdlp acquires remote audio through the yt-dlp command-line
// tool, selecting an audio-only stream within a bitrate ceiling.
package ytdlp

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/1hanhT2/Audio-Joiner-for-NEC/internal/mix"
)

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Config tunes the downloader. Zero values get sensible defaults.
type Config struct {
	Binary          string        // binary name, default "yt-dlp"
	MaxAudioBitrate int           // kbps ceiling for stream selection, default 160
	Retries         uint64        // additional attempts on failure, default 2
	Timeout         time.Duration // per-attempt limit, default 10m
}

// Client implements mix.Fetcher.
type Client struct {
	binary     string
	maxBitrate int
	retries    uint64
	timeout    time.Duration
	run        runFunc
}

func New(cfg Config) *Client {
	c := &Client{
		binary:     cfg.Binary,
		maxBitrate: cfg.MaxAudioBitrate,
		retries:    cfg.Retries,
		timeout:    cfg.Timeout,
		run:        execRun,
	}
	if c.binary == "" {
		c.binary = "yt-dlp"
	}
	if c.maxBitrate <= 0 {
		c.maxBitrate = 160
	}
	if cfg.Retries == 0 {
		c.retries = 2
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Minute
	}
	return c
}

// Check verifies the binary is resolvable on PATH.
func (c *Client) Check() error {
	if _, err := exec.LookPath(c.binary); err != nil {
		return fmt.Errorf("%w: %s", mix.ErrMissingTool, c.binary)
	}
	return nil
}

// formatSelector prefers streams at or below the bitrate ceiling and
// falls back to the best available audio.
func (c *Client) formatSelector() string {
	return fmt.Sprintf("bestaudio[abr<=%d]/bestaudio", c.maxBitrate)
}

// Fetch downloads the audio-only stream for url into destDir named
// baseName.<ext>, where the extension is whatever container the remote
// side serves. Transient failures are retried with exponential backoff;
// exhaustion surfaces as mix.ErrUnresolvedSource.
func (c *Client) Fetch(ctx context.Context, url, destDir, baseName string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("%w: empty URL", mix.ErrUnresolvedSource)
	}

	template := filepath.Join(destDir, baseName+".%(ext)s")
	args := []string{
		"-f", c.formatSelector(),
		"--no-playlist",
		"-o", template,
		url,
	}

	operation := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		out, err := c.run(attemptCtx, c.binary, args...)
		if err != nil {
			return fmt.Errorf("%s: %v – %s", c.binary, err, tail(out))
		}
		return nil
	}

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.retries)
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", fmt.Errorf("fetch %s: %w: %v", url, mix.ErrUnresolvedSource, err)
	}

	path, err := c.locate(destDir, baseName)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	return path, nil
}

// locate finds the downloaded file; yt-dlp decides the final extension.
func (c *Client) locate(destDir, baseName string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(destDir, baseName+".*"))
	if err != nil {
		return "", fmt.Errorf("glob downloads: %w", err)
	}
	for _, m := range matches {
		// In-flight artifacts from interrupted attempts.
		if strings.HasSuffix(m, ".part") || strings.HasSuffix(m, ".ytdl") {
			continue
		}
		return m, nil
	}
	return "", fmt.Errorf("%w: no downloaded file for %s", mix.ErrUnresolvedSource, baseName)
}

func tail(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) > 4 {
		lines = lines[len(lines)-4:]
	}
	return strings.Join(lines, "\n")
}
