package mix

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Format is the output container/codec selection.
type Format string

const (
	FormatMP3 Format = "mp3"
	FormatWAV Format = "wav"
	FormatM4A Format = "m4a"
)

// ParseFormat maps a user-supplied name (with or without a leading dot)
// to a supported output format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "mp3":
		return FormatMP3, nil
	case "wav":
		return FormatWAV, nil
	case "m4a":
		return FormatM4A, nil
	}
	return "", fmt.Errorf("%w: unsupported output format %q", ErrInvalidParameter, s)
}

// FormatForPath selects the output format from a file extension.
func FormatForPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Ext returns the file extension for the format, including the dot.
func (f Format) Ext() string { return "." + string(f) }

// SourceKind classifies where a slot's audio comes from.
type SourceKind int

const (
	SourceNone SourceKind = iota
	SourceRemote
	SourceLocal
)

func (k SourceKind) String() string {
	switch k {
	case SourceRemote:
		return "remote"
	case SourceLocal:
		return "local"
	}
	return "none"
}

// Slot is one of up to four input positions. Index is 1-based and also
// selects the slot's background track by naming convention.
type Slot struct {
	Index  int
	Kind   SourceKind
	Source string // URL for remote slots, file path for local ones
}

// MaxSlots is the number of input positions the sequence supports.
const MaxSlots = 4

// separator tokens that show up when shell commands are pasted across
// platforms; they are dropped rather than treated as sources.
var straySeparators = map[string]bool{"/": true, "\\": true, "|": true, "": true}

// SlotsFromArgs builds input slots from positional CLI arguments. An
// argument naming an existing file becomes a local slot, anything that
// parses as an http(s) URL becomes a remote slot. Extras beyond MaxSlots
// are ignored.
func SlotsFromArgs(args []string) ([]Slot, error) {
	var slots []Slot
	for _, raw := range args {
		arg := strings.TrimSpace(raw)
		if straySeparators[arg] {
			continue
		}
		if len(slots) == MaxSlots {
			break
		}
		idx := len(slots) + 1
		if st, err := os.Stat(arg); err == nil && !st.IsDir() {
			if !hasAudioExt(arg) {
				return nil, fmt.Errorf("%w: %s: unsupported audio extension", ErrUnresolvedSource, arg)
			}
			slots = append(slots, Slot{Index: idx, Kind: SourceLocal, Source: arg})
			continue
		}
		u, err := url.Parse(arg)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, fmt.Errorf("%w: %q is neither an existing file nor an http(s) URL", ErrUnresolvedSource, arg)
		}
		slots = append(slots, Slot{Index: idx, Kind: SourceRemote, Source: arg})
	}
	return slots, nil
}

// Params are the processing parameters applied to a single run.
type Params struct {
	Speed            float64 // tempo multiplier for main audio, > 0
	SilenceSeconds   float64 // silence inserted between the two repeats
	BackgroundGainDB float64 // gain applied to background segments
	BackgroundDir    string  // directory searched for background files
	OutputPath       string  // final artifact destination
	Format           Format  // derived from OutputPath when empty
	KeepWork         bool    // retain the working directory after the run
}

// Gain limits; values outside are almost certainly typos of the dB sign
// or magnitude.
const (
	MinBackgroundGainDB = -60.0
	MaxBackgroundGainDB = 6.0
)

// Validate checks parameter ranges and resolves Format from OutputPath
// when unset.
func (p *Params) Validate() error {
	if p.Speed <= 0 {
		return fmt.Errorf("%w: speed must be > 0, got %g", ErrInvalidParameter, p.Speed)
	}
	if p.SilenceSeconds < 0 {
		return fmt.Errorf("%w: silence duration must be >= 0, got %g", ErrInvalidParameter, p.SilenceSeconds)
	}
	if p.BackgroundGainDB < MinBackgroundGainDB || p.BackgroundGainDB > MaxBackgroundGainDB {
		return fmt.Errorf("%w: background gain %g dB outside [%g, %g]",
			ErrInvalidParameter, p.BackgroundGainDB, MinBackgroundGainDB, MaxBackgroundGainDB)
	}
	if p.OutputPath == "" {
		return fmt.Errorf("%w: output path is empty", ErrInvalidParameter)
	}
	if p.Format == "" {
		f, err := FormatForPath(p.OutputPath)
		if err != nil {
			return err
		}
		p.Format = f
	}
	return nil
}

// Result describes the finished output artifact.
type Result struct {
	Path     string        `json:"path"`
	Duration time.Duration `json:"duration"`
	Format   Format        `json:"format"`
	Slots    int           `json:"slots"`
	WorkDir  string        `json:"work_dir,omitempty"` // set when KeepWork was requested
}

// AudioTool is the subset of an external audio processor the builder
// needs. All paths are absolute; every operation writes its result in the
// common intermediate representation except Transcode, which produces the
// final artifact.
type AudioTool interface {
	Check() error
	Normalize(ctx context.Context, src, dst string) error
	ChangeSpeed(ctx context.Context, src, dst string, factor float64) error
	ChangeGain(ctx context.Context, src, dst string, gainDB float64) error
	GenerateSilence(ctx context.Context, dst string, seconds float64) error
	Concatenate(ctx context.Context, segments []string, dst string) error
	Transcode(ctx context.Context, src, dst string, format Format) error
	Probe(ctx context.Context, path string) (time.Duration, error)
}

// Fetcher acquires a remote source into destDir. The returned path is the
// downloaded file, whatever container the remote side produced.
type Fetcher interface {
	Check() error
	Fetch(ctx context.Context, url, destDir, baseName string) (string, error)
}
