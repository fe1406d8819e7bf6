package web

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/1hanhT2/Audio-Joiner-for-NEC/internal/mix"
)

// JobState is the lifecycle of a queued mix run.
type JobState string

const (
	JobQueued  JobState = "queued"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// Job tracks one mix run submitted through the form.
type Job struct {
	mu sync.Mutex

	id       string
	created  time.Time
	state    JobState
	lines    []string
	errText  string
	errKind  string
	output   string
	format   mix.Format
	duration time.Duration
	finished time.Time
}

func newJob(format mix.Format) *Job {
	return &Job{
		id:      uuid.NewString(),
		created: time.Now(),
		state:   JobQueued,
		format:  format,
	}
}

func (j *Job) ID() string { return j.id }

func (j *Job) setRunning() {
	j.mu.Lock()
	j.state = JobRunning
	j.mu.Unlock()
}

func (j *Job) succeed(res *mix.Result) {
	j.mu.Lock()
	j.state = JobDone
	j.output = res.Path
	j.duration = res.Duration
	j.finished = time.Now()
	j.mu.Unlock()
}

func (j *Job) fail(err error) {
	j.mu.Lock()
	j.state = JobFailed
	j.errText = err.Error()
	j.errKind = mix.Kind(err)
	j.finished = time.Now()
	j.mu.Unlock()
}

func (j *Job) appendLine(line string) {
	j.mu.Lock()
	j.lines = append(j.lines, line)
	j.mu.Unlock()
}

// outputFile returns the artifact path once the job finished.
func (j *Job) outputFile() (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != JobDone {
		return "", false
	}
	return j.output, true
}

// jobView is the JSON representation served by the status endpoint.
type jobView struct {
	ID              string   `json:"id"`
	State           JobState `json:"state"`
	Created         string   `json:"created"`
	Finished        string   `json:"finished,omitempty"`
	Log             []string `json:"log"`
	Error           string   `json:"error,omitempty"`
	ErrorKind       string   `json:"error_kind,omitempty"`
	Format          string   `json:"format"`
	DurationSeconds float64  `json:"duration_seconds,omitempty"`
}

func (j *Job) view() jobView {
	j.mu.Lock()
	defer j.mu.Unlock()
	v := jobView{
		ID:        j.id,
		State:     j.state,
		Created:   j.created.Format(time.RFC3339),
		Log:       append([]string(nil), j.lines...),
		Error:     j.errText,
		ErrorKind: j.errKind,
		Format:    string(j.format),
	}
	if !j.finished.IsZero() {
		v.Finished = j.finished.Format(time.RFC3339)
	}
	if j.state == JobDone {
		v.DurationSeconds = j.duration.Seconds()
	}
	return v
}

// Store is an in-memory job registry. Jobs are kept for the lifetime of
// the process; the service is a short-lived personal tool, not a fleet.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job)}
}

func (s *Store) add(j *Job) {
	s.mu.Lock()
	s.jobs[j.id] = j
	s.mu.Unlock()
}

func (s *Store) get(id string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	return j, ok
}

// jobLogHandler is a slog.Handler that records pipeline progress on the
// job so the form can poll and display it while the run is in flight.
type jobLogHandler struct {
	job   *Job
	attrs []slog.Attr
}

func newJobLogger(j *Job) *slog.Logger {
	return slog.New(&jobLogHandler{job: j})
}

func (h *jobLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (h *jobLogHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	sb.WriteString(r.Message)
	write := func(a slog.Attr) bool {
		fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value.Any())
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(write)
	h.job.appendLine(sb.String())
	return nil
}

func (h *jobLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &jobLogHandler{job: h.job, attrs: merged}
}

func (h *jobLogHandler) WithGroup(string) slog.Handler { return h }
