package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1hanhT2/Audio-Joiner-for-NEC/internal/config"
	"github.com/1hanhT2/Audio-Joiner-for-NEC/internal/metrics"
	"github.com/1hanhT2/Audio-Joiner-for-NEC/internal/mix"
)

func newTestServer(t *testing.T, mixFn MixFunc, checks ...Check) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.OutputDir = t.TempDir()

	s := New(cfg, slog.New(slog.DiscardHandler), metrics.NewWith(prometheus.NewRegistry()), mixFn, checks...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func okMix(t *testing.T) MixFunc {
	return func(_ context.Context, log *slog.Logger, slots []mix.Slot, params mix.Params) (*mix.Result, error) {
		log.Info("downloading", "slot", 1)
		require.NoError(t, os.WriteFile(params.OutputPath, []byte("fake audio"), 0o644))
		return &mix.Result{
			Path:     params.OutputPath,
			Duration: 30 * time.Second,
			Format:   params.Format,
			Slots:    len(slots),
		}, nil
	}
}

func postMix(t *testing.T, ts *httptest.Server, body string) (*http.Response, map[string]string) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/mix", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func waitForState(t *testing.T, ts *httptest.Server, id string, want JobState) jobView {
	t.Helper()
	var view jobView
	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/api/jobs/" + id)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
			return false
		}
		return view.State == want
	}, 5*time.Second, 20*time.Millisecond)
	return view
}

func TestIndexServesForm(t *testing.T) {
	ts := newTestServer(t, okMix(t))
	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestMixJobLifecycle(t *testing.T) {
	ts := newTestServer(t, okMix(t))

	resp, out := postMix(t, ts, `{"urls":["https://example.com/watch?v=a","",""],"speed":1.25}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.NotEmpty(t, out["id"])

	view := waitForState(t, ts, out["id"], JobDone)
	assert.Equal(t, "mp3", view.Format)
	assert.InDelta(t, 30.0, view.DurationSeconds, 1e-9)
	assert.NotEmpty(t, view.Log) // builder progress reached the job log

	dl, err := http.Get(ts.URL + "/api/jobs/" + out["id"] + "/download")
	require.NoError(t, err)
	defer dl.Body.Close()
	assert.Equal(t, http.StatusOK, dl.StatusCode)
	assert.Contains(t, dl.Header.Get("Content-Disposition"), "mixed_audio.mp3")
}

func TestMixJobFailure(t *testing.T) {
	failing := func(context.Context, *slog.Logger, []mix.Slot, mix.Params) (*mix.Result, error) {
		return nil, fmt.Errorf("slot 1: %w", mix.ErrUnresolvedSource)
	}
	ts := newTestServer(t, failing)

	_, out := postMix(t, ts, `{"urls":["https://example.com/watch?v=a"]}`)
	view := waitForState(t, ts, out["id"], JobFailed)
	assert.Equal(t, "unresolved_source", view.ErrorKind)
	assert.Contains(t, view.Error, "slot 1")

	dl, err := http.Get(ts.URL + "/api/jobs/" + out["id"] + "/download")
	require.NoError(t, err)
	defer dl.Body.Close()
	assert.Equal(t, http.StatusConflict, dl.StatusCode)
}

func TestMixRejectsBadRequests(t *testing.T) {
	ts := newTestServer(t, okMix(t))

	cases := []struct {
		name string
		body string
	}{
		{"no urls", `{"urls":[]}`},
		{"blank urls", `{"urls":["", "  "]}`},
		{"bad json", `{`},
		{"bad format", `{"urls":["https://example.com/v"],"format":"flac"}`},
		{"bad speed", `{"urls":["https://example.com/v"],"speed":-1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, out := postMix(t, ts, tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestUnknownJob(t *testing.T) {
	ts := newTestServer(t, okMix(t))
	resp, err := http.Get(ts.URL + "/api/jobs/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		ts := newTestServer(t, okMix(t), Check{Name: "ffmpeg", Fn: func() error { return nil }})
		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing tool", func(t *testing.T) {
		ts := newTestServer(t, okMix(t), Check{Name: "yt-dlp", Fn: func() error { return mix.ErrMissingTool }})
		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, okMix(t))
	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
