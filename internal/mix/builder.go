package mix

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
)

// Builder assembles the output sequence: per slot, background (if any),
// then the speed-adjusted audio twice with silence in between, all slots
// concatenated in ascending order and transcoded to the requested format.
type Builder struct {
	Tool    AudioTool
	Fetcher Fetcher
	Log     *slog.Logger

	// WorkRoot is the parent directory for per-run working directories.
	// Empty means the system temp directory.
	WorkRoot string
}

func (b *Builder) logger() *slog.Logger {
	if b.Log != nil {
		return b.Log
	}
	return slog.Default()
}

// Build runs the full pipeline for the given slots and parameters. On any
// failure the run aborts with no partial output; the working directory is
// removed at run end, success or failure, unless params.KeepWork is set.
func (b *Builder) Build(ctx context.Context, slots []Slot, params Params) (*Result, error) {
	log := b.logger()

	if err := params.Validate(); err != nil {
		return nil, err
	}

	var active []Slot
	remote := false
	for _, s := range slots {
		if s.Kind == SourceNone {
			continue
		}
		active = append(active, s)
		if s.Kind == SourceRemote {
			remote = true
		}
	}
	if len(active) == 0 {
		return nil, fmt.Errorf("%w: provide at least one source (up to %d)", ErrNoInputs, MaxSlots)
	}
	if len(active) > MaxSlots {
		active = active[:MaxSlots]
	}

	if err := b.Tool.Check(); err != nil {
		return nil, err
	}
	if remote {
		if b.Fetcher == nil {
			return nil, fmt.Errorf("%w: no downloader configured for remote sources", ErrMissingTool)
		}
		if err := b.Fetcher.Check(); err != nil {
			return nil, err
		}
	}

	outPath, err := filepath.Abs(params.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("resolve output path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), fs.ModePerm); err != nil {
		return nil, fmt.Errorf("mkdir output dir: %w", err)
	}

	work, err := os.MkdirTemp(b.WorkRoot, "audiomix_")
	if err != nil {
		return nil, fmt.Errorf("create working directory: %w", err)
	}
	log.Info("working directory created", "dir", work)
	if !params.KeepWork {
		defer func() {
			if rmErr := os.RemoveAll(work); rmErr != nil {
				log.Warn("failed to remove working directory", "dir", work, "error", rmErr)
			}
		}()
	}

	sequence, err := b.assemble(ctx, active, params, work)
	if err != nil {
		return nil, err
	}

	log.Info("transcoding output", "path", outPath, "format", string(params.Format))
	if err := b.Tool.Transcode(ctx, sequence, outPath, params.Format); err != nil {
		return nil, fmt.Errorf("transcode: %w", err)
	}

	dur, err := b.Tool.Probe(ctx, outPath)
	if err != nil {
		return nil, fmt.Errorf("probe output: %w", err)
	}
	log.Info("output written", "path", outPath, "duration", dur)

	res := &Result{Path: outPath, Duration: dur, Format: params.Format, Slots: len(active)}
	if params.KeepWork {
		res.WorkDir = work
	}
	return res, nil
}

// assemble produces the concatenated sequence in the intermediate
// representation and returns its path inside work.
func (b *Builder) assemble(ctx context.Context, active []Slot, params Params, work string) (string, error) {
	log := b.logger()

	// Resolve every source before doing any audio work so a bad slot fails
	// the run early.
	resolved := make([]string, len(active))
	for i, s := range active {
		switch s.Kind {
		case SourceRemote:
			log.Info("downloading", "slot", s.Index, "url", s.Source)
			path, err := b.Fetcher.Fetch(ctx, s.Source, work, fmt.Sprintf("slot%02d", s.Index))
			if err != nil {
				return "", fmt.Errorf("slot %d: %w", s.Index, err)
			}
			resolved[i] = path
		case SourceLocal:
			st, err := os.Stat(s.Source)
			if err != nil || st.IsDir() {
				return "", fmt.Errorf("slot %d: %w: %s", s.Index, ErrUnresolvedSource, s.Source)
			}
			resolved[i] = s.Source
		}
	}

	// Normalize main audio to the intermediate representation, then apply
	// the tempo change. Backgrounds keep their original tempo.
	mains := make([]string, len(active))
	for i, s := range active {
		norm := filepath.Join(work, fmt.Sprintf("slot%02d.norm.wav", s.Index))
		log.Info("normalizing", "slot", s.Index)
		if err := b.Tool.Normalize(ctx, resolved[i], norm); err != nil {
			return "", fmt.Errorf("normalize slot %d: %w", s.Index, err)
		}
		mains[i] = norm
	}
	if math.Abs(params.Speed-1.0) > 1e-9 {
		for i, s := range active {
			sped := filepath.Join(work, fmt.Sprintf("slot%02d.x%g.wav", s.Index, params.Speed))
			log.Info("adjusting speed", "slot", s.Index, "factor", params.Speed)
			if err := b.Tool.ChangeSpeed(ctx, mains[i], sped, params.Speed); err != nil {
				return "", fmt.Errorf("speed-adjust slot %d: %w", s.Index, err)
			}
			mains[i] = sped
		}
	}

	var silence string
	if params.SilenceSeconds > 0 {
		silence = filepath.Join(work, "silence.wav")
		log.Info("generating silence", "seconds", params.SilenceSeconds)
		if err := b.Tool.GenerateSilence(ctx, silence, params.SilenceSeconds); err != nil {
			return "", fmt.Errorf("generate silence: %w", err)
		}
	}

	// Per-slot chain: background (when present), audio, silence, audio.
	var order []string
	for i, s := range active {
		if params.BackgroundDir != "" {
			if bgSrc, ok := FindBackground(params.BackgroundDir, s.Index); ok {
				bg := filepath.Join(work, fmt.Sprintf("background%02d.wav", s.Index))
				log.Info("preparing background", "slot", s.Index, "source", bgSrc)
				if err := b.Tool.Normalize(ctx, bgSrc, bg); err != nil {
					return "", fmt.Errorf("normalize background %d: %w", s.Index, err)
				}
				if params.BackgroundGainDB != 0 {
					gained := filepath.Join(work, fmt.Sprintf("background%02d.gain.wav", s.Index))
					if err := b.Tool.ChangeGain(ctx, bg, gained, params.BackgroundGainDB); err != nil {
						return "", fmt.Errorf("gain-adjust background %d: %w", s.Index, err)
					}
					bg = gained
				}
				order = append(order, bg)
			} else {
				log.Info("no background for slot", "slot", s.Index)
			}
		}
		order = append(order, mains[i])
		if silence != "" {
			order = append(order, silence)
		}
		order = append(order, mains[i])
	}

	sequence := filepath.Join(work, "sequence.wav")
	log.Info("concatenating", "segments", len(order))
	if err := b.Tool.Concatenate(ctx, order, sequence); err != nil {
		return "", fmt.Errorf("concatenate: %w", err)
	}
	return sequence, nil
}
