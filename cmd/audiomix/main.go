// Command audiomix downloads or accepts up to four audio sources, mixes
// them with background tracks and inserted silence, and writes one
// output file.
//
//	audiomix [flags] <url-or-file> [<url-or-file> ...]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/1hanhT2/Audio-Joiner-for-NEC/internal/config"
	"github.com/1hanhT2/Audio-Joiner-for-NEC/internal/ffmpeg"
	"github.com/1hanhT2/Audio-Joiner-for-NEC/internal/mix"
	"github.com/1hanhT2/Audio-Joiner-for-NEC/internal/ytdlp"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "audiomix: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = pflag.String("config", "", "optional YAML config file")
		out        = pflag.String("out", "final_output.mp3", "output file (.mp3/.wav/.m4a selects the encoder)")
		speed      = pflag.Float64("speed", 1.0, "tempo factor for main audio (e.g. 1.25 speeds up 25%)")
		silence    = pflag.Float64("silence", 5.0, "silence in seconds between the two repeats of each audio")
		bgDir      = pflag.String("bg-dir", ".", "directory containing background_audiofile_01..04.*")
		bgGain     = pflag.Float64("bg-gain-db", -6.0, "background gain in dB (negative is quieter)")
		keepWork   = pflag.Bool("keep-work", false, "keep intermediate files")
		logLevel   = pflag.String("log-level", "", "log level: debug, info, warn, error")
		timeout    = pflag.Duration("timeout", 0, "overall run timeout (0 = none)")
	)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: audiomix [flags] <url-or-file> [<url-or-file> ...]\n\nFlags:\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	log := cfg.Logging.NewLogger(os.Stderr)

	// Config supplies defaults for anything not given on the command line.
	flags := pflag.CommandLine
	if !flags.Changed("speed") {
		*speed = cfg.Defaults.Speed
	}
	if !flags.Changed("silence") {
		*silence = cfg.Defaults.SilenceSeconds
	}
	if !flags.Changed("bg-gain-db") {
		*bgGain = cfg.Defaults.BackgroundGainDB
	}
	if !flags.Changed("bg-dir") {
		*bgDir = cfg.Paths.BackgroundDir
	}

	slots, err := mix.SlotsFromArgs(pflag.Args())
	if err != nil {
		return err
	}

	params := mix.Params{
		Speed:            *speed,
		SilenceSeconds:   *silence,
		BackgroundGainDB: *bgGain,
		BackgroundDir:    *bgDir,
		OutputPath:       *out,
		KeepWork:         *keepWork || cfg.Paths.KeepWork,
	}

	builder := &mix.Builder{
		Tool: ffmpeg.New(ffmpeg.Config{FFmpeg: cfg.Tools.FFmpeg, FFprobe: cfg.Tools.FFprobe}),
		Fetcher: ytdlp.New(ytdlp.Config{
			Binary:          cfg.Tools.YtDlp,
			MaxAudioBitrate: cfg.Download.MaxAudioBitrate,
			Retries:         uint64(cfg.Download.Retries),
			Timeout:         cfg.Download.GetDownloadTimeout(),
		}),
		Log:      log,
		WorkRoot: cfg.Paths.WorkDir,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := builder.Build(ctx, slots, params)
	if err != nil {
		return err
	}

	log.Info("done", "elapsed", time.Since(start).Round(time.Millisecond))
	fmt.Printf("Output: %s (%s, %s)\n", res.Path, res.Format, res.Duration.Round(time.Second))
	if res.WorkDir != "" {
		fmt.Printf("Working files kept at: %s\n", res.WorkDir)
	}
	return nil
}
