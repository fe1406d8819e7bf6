// Command audiomixweb serves the mixing form and job API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/1hanhT2/Audio-Joiner-for-NEC/internal/config"
	"github.com/1hanhT2/Audio-Joiner-for-NEC/internal/ffmpeg"
	"github.com/1hanhT2/Audio-Joiner-for-NEC/internal/metrics"
	"github.com/1hanhT2/Audio-Joiner-for-NEC/internal/mix"
	"github.com/1hanhT2/Audio-Joiner-for-NEC/internal/web"
	"github.com/1hanhT2/Audio-Joiner-for-NEC/internal/ytdlp"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audiomixweb: %v\n", err)
		os.Exit(1)
	}
	log := cfg.Logging.NewLogger(os.Stderr)

	if err := os.MkdirAll(cfg.Paths.OutputDir, 0o755); err != nil {
		log.Error("cannot create output directory", "dir", cfg.Paths.OutputDir, "error", err)
		os.Exit(1)
	}

	tool := ffmpeg.New(ffmpeg.Config{FFmpeg: cfg.Tools.FFmpeg, FFprobe: cfg.Tools.FFprobe})
	fetcher := ytdlp.New(ytdlp.Config{
		Binary:          cfg.Tools.YtDlp,
		MaxAudioBitrate: cfg.Download.MaxAudioBitrate,
		Retries:         uint64(cfg.Download.Retries),
		Timeout:         cfg.Download.GetDownloadTimeout(),
	})

	mixFn := func(ctx context.Context, log *slog.Logger, slots []mix.Slot, params mix.Params) (*mix.Result, error) {
		b := &mix.Builder{Tool: tool, Fetcher: fetcher, Log: log, WorkRoot: cfg.Paths.WorkDir}
		return b.Build(ctx, slots, params)
	}

	srv := web.New(cfg, log, metrics.New(), mixFn,
		web.Check{Name: "ffmpeg", Fn: tool.Check},
		web.Check{Name: "yt-dlp", Fn: fetcher.Check},
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	httpServer := &http.Server{Addr: addr, Handler: srv.Handler()}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GetShutdownTimeout())
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown incomplete", "error", err)
	}
}
