package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/1hanhT2/Audio-Joiner-for-NEC/internal/mix"
)

// Intermediate representation shared by every segment before
// concatenation: consumer-grade CD sample rate, 16-bit PCM, stereo.
const (
	sampleRate       = "44100"
	channels         = "2"
	codecPCM         = "pcm_s16le"
	codecMP3         = "libmp3lame"
	codecAAC         = "aac"
	outputBitrate    = "192k"
	silenceGenerator = "anullsrc=r=48000:cl=stereo"
)

// runFunc executes an external command and returns its combined output.
// Swapped out in tests to capture argument assembly.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Config names the external binaries. Zero values fall back to the
// conventional names on PATH.
type Config struct {
	FFmpeg  string
	FFprobe string
}

// Tool implements mix.AudioTool on top of the ffmpeg and ffprobe
// command-line interfaces.
type Tool struct {
	ffmpeg  string
	ffprobe string
	run     runFunc
}

func New(cfg Config) *Tool {
	t := &Tool{ffmpeg: cfg.FFmpeg, ffprobe: cfg.FFprobe, run: execRun}
	if t.ffmpeg == "" {
		t.ffmpeg = "ffmpeg"
	}
	if t.ffprobe == "" {
		t.ffprobe = "ffprobe"
	}
	return t
}

// Check verifies both binaries are resolvable on PATH.
func (t *Tool) Check() error {
	for _, bin := range []string{t.ffmpeg, t.ffprobe} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%w: %s", mix.ErrMissingTool, bin)
		}
	}
	return nil
}

func (t *Tool) ffmpegRun(ctx context.Context, args ...string) error {
	out, err := t.run(ctx, t.ffmpeg, args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %v – %s",
			t.ffmpeg, strings.Join(args, " "), mix.ErrProcessingFailure, err, tail(out))
	}
	return nil
}

// tail keeps the last few lines of tool output; ffmpeg prints its banner
// first and the actual failure last.
func tail(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) > 4 {
		lines = lines[len(lines)-4:]
	}
	return strings.Join(lines, "\n")
}

// Normalize re-encodes any input to the intermediate representation.
func (t *Tool) Normalize(ctx context.Context, src, dst string) error {
	return t.ffmpegRun(ctx, normalizeArgs(src, dst)...)
}

func normalizeArgs(src, dst string) []string {
	return []string{"-y", "-i", src, "-ar", sampleRate, "-ac", channels, "-c:a", codecPCM, dst}
}

// ChangeSpeed applies the atempo filter. atempo accepts 0.5–2.0 per
// instance, so out-of-range factors are folded into a chain.
func (t *Tool) ChangeSpeed(ctx context.Context, src, dst string, factor float64) error {
	if factor <= 0 {
		return fmt.Errorf("%w: speed factor must be > 0", mix.ErrInvalidParameter)
	}
	args := []string{"-y", "-i", src,
		"-filter:a", atempoFilter(factor),
		"-ar", sampleRate, "-ac", channels, "-c:a", codecPCM, dst}
	return t.ffmpegRun(ctx, args...)
}

func atempoFilter(factor float64) string {
	var parts []string
	s := factor
	for s > 2.0 {
		parts = append(parts, "atempo=2.0")
		s /= 2.0
	}
	for s < 0.5 {
		parts = append(parts, "atempo=0.5")
		s /= 0.5
	}
	parts = append(parts, fmt.Sprintf("atempo=%.6f", s))
	return strings.Join(parts, ",")
}

// ChangeGain applies a volume adjustment in decibels.
func (t *Tool) ChangeGain(ctx context.Context, src, dst string, gainDB float64) error {
	args := []string{"-y", "-i", src,
		"-filter:a", fmt.Sprintf("volume=%.2fdB", gainDB),
		"-ar", sampleRate, "-ac", channels, "-c:a", codecPCM, dst}
	return t.ffmpegRun(ctx, args...)
}

// GenerateSilence synthesizes a stereo silence segment of the given
// duration at the intermediate representation.
func (t *Tool) GenerateSilence(ctx context.Context, dst string, seconds float64) error {
	args := []string{"-y",
		"-f", "lavfi", "-i", silenceGenerator,
		"-t", strconv.FormatFloat(seconds, 'f', -1, 64),
		"-ar", sampleRate, "-ac", channels, "-c:a", codecPCM, dst}
	return t.ffmpegRun(ctx, args...)
}

// Concatenate joins segments in order using the concat demuxer. All
// segments must already share the intermediate representation.
func (t *Tool) Concatenate(ctx context.Context, segments []string, dst string) error {
	if len(segments) == 0 {
		return fmt.Errorf("%w: nothing to concatenate", mix.ErrProcessingFailure)
	}
	list := filepath.Join(filepath.Dir(dst), "concat_list.txt")
	if err := writeConcatList(list, segments); err != nil {
		return err
	}
	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", list,
		"-c:a", codecPCM, dst}
	return t.ffmpegRun(ctx, args...)
}

// writeConcatList emits the demuxer's list format, one quoted path per
// line. Single quotes inside paths need the '\'' escape.
func writeConcatList(path string, segments []string) error {
	var sb strings.Builder
	for _, seg := range segments {
		abs, err := filepath.Abs(seg)
		if err != nil {
			return fmt.Errorf("abs segment path: %w", err)
		}
		fmt.Fprintf(&sb, "file '%s'\n", strings.ReplaceAll(filepath.ToSlash(abs), "'", `'\''`))
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return nil
}

// Transcode encodes the final artifact: 192 kbps for the lossy formats,
// 16-bit PCM for wav.
func (t *Tool) Transcode(ctx context.Context, src, dst string, format mix.Format) error {
	args := []string{"-y", "-i", src}
	switch format {
	case mix.FormatMP3:
		args = append(args, "-c:a", codecMP3, "-b:a", outputBitrate)
	case mix.FormatM4A:
		args = append(args, "-c:a", codecAAC, "-b:a", outputBitrate)
	case mix.FormatWAV:
		args = append(args, "-c:a", codecPCM)
	default:
		return fmt.Errorf("%w: unsupported output format %q", mix.ErrInvalidParameter, format)
	}
	return t.ffmpegRun(ctx, append(args, dst)...)
}
