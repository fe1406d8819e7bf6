// Package web serves the mixing form and a small JSON job API around the
// sequence builder.
package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/1hanhT2/Audio-Joiner-for-NEC/internal/config"
	"github.com/1hanhT2/Audio-Joiner-for-NEC/internal/metrics"
	"github.com/1hanhT2/Audio-Joiner-for-NEC/internal/mix"
)

//go:embed index.html
var indexHTML []byte

// MixFunc runs one mix. The logger receives per-stage progress and is
// wired to the job's log buffer.
type MixFunc func(ctx context.Context, log *slog.Logger, slots []mix.Slot, params mix.Params) (*mix.Result, error)

// Check is a named readiness probe, one per external tool.
type Check struct {
	Name string
	Fn   func() error
}

// Server handles the form, the job API and the operational endpoints.
type Server struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *metrics.Metrics
	mix     MixFunc
	checks  []Check
	jobs    *Store

	// Runs are serialized: each owns its working directory exclusively and
	// the machines this runs on are not sized for parallel transcodes.
	runMu sync.Mutex
}

func New(cfg *config.Config, log *slog.Logger, m *metrics.Metrics, mixFn MixFunc, checks ...Check) *Server {
	return &Server{
		cfg:     cfg,
		log:     log,
		metrics: m,
		mix:     mixFn,
		checks:  checks,
		jobs:    NewStore(),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /api/mix", s.handleMix)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleJobStatus)
	mux.HandleFunc("GET /api/jobs/{id}/download", s.handleJobDownload)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (s *Server) count(r *http.Request, route string) {
	s.metrics.HTTPRequests.WithLabelValues(r.Method, route).Inc()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.count(r, "/")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// mixRequest is the form submission. Absent numeric fields fall back to
// the configured defaults.
type mixRequest struct {
	URLs             []string `json:"urls"`
	Speed            *float64 `json:"speed"`
	SilenceSeconds   *float64 `json:"silence_seconds"`
	BackgroundGainDB *float64 `json:"background_gain_db"`
	Format           string   `json:"format"`
}

func (s *Server) handleMix(w http.ResponseWriter, r *http.Request) {
	s.count(r, "/api/mix")

	var req mixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	var slots []mix.Slot
	for _, raw := range req.URLs {
		u := strings.TrimSpace(raw)
		if u == "" {
			continue
		}
		if len(slots) == mix.MaxSlots {
			break
		}
		slots = append(slots, mix.Slot{Index: len(slots) + 1, Kind: mix.SourceRemote, Source: u})
	}
	if len(slots) == 0 {
		httpError(w, http.StatusBadRequest, "provide at least one URL")
		return
	}

	d := s.cfg.Defaults
	formatName := req.Format
	if formatName == "" {
		formatName = d.Format
	}
	format, err := mix.ParseFormat(formatName)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := newJob(format)
	params := mix.Params{
		Speed:            orDefault(req.Speed, d.Speed),
		SilenceSeconds:   orDefault(req.SilenceSeconds, d.SilenceSeconds),
		BackgroundGainDB: orDefault(req.BackgroundGainDB, d.BackgroundGainDB),
		BackgroundDir:    s.cfg.Paths.BackgroundDir,
		OutputPath:       filepath.Join(s.cfg.Paths.OutputDir, job.ID()+format.Ext()),
		Format:           format,
		KeepWork:         s.cfg.Paths.KeepWork,
	}
	if err := params.Validate(); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.jobs.add(job)
	go s.runJob(job, slots, params)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"id":         job.ID(),
		"status_url": "/api/jobs/" + job.ID(),
	})
}

func (s *Server) runJob(job *Job, slots []mix.Slot, params mix.Params) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	job.setRunning()
	s.metrics.MixesStarted.Inc()
	start := time.Now()

	res, err := s.mix(context.Background(), newJobLogger(job), slots, params)
	s.metrics.MixDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		job.fail(err)
		s.metrics.MixesFailed.WithLabelValues(mix.Kind(err)).Inc()
		s.log.Error("mix failed", "job", job.ID(), "kind", mix.Kind(err), "error", err)
		return
	}
	job.succeed(res)
	s.metrics.MixesSucceeded.Inc()
	s.log.Info("mix finished", "job", job.ID(), "output", res.Path, "duration", res.Duration)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	s.count(r, "/api/jobs")
	job, ok := s.jobs.get(r.PathValue("id"))
	if !ok {
		httpError(w, http.StatusNotFound, "unknown job")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.view())
}

func (s *Server) handleJobDownload(w http.ResponseWriter, r *http.Request) {
	s.count(r, "/api/jobs/download")
	job, ok := s.jobs.get(r.PathValue("id"))
	if !ok {
		httpError(w, http.StatusNotFound, "unknown job")
		return
	}
	path, ok := job.outputFile()
	if !ok {
		httpError(w, http.StatusConflict, "job has no output yet")
		return
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "mixed_audio"+filepath.Ext(path)))
	http.ServeFile(w, r, path)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.count(r, "/healthz")
	status := map[string]string{}
	healthy := true
	for _, c := range s.checks {
		if err := c.Fn(); err != nil {
			status[c.Name] = err.Error()
			healthy = false
		} else {
			status[c.Name] = "ok"
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(map[string]any{"healthy": healthy, "tools": status})
}

func httpError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func orDefault(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}
