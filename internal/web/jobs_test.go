package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1hanhT2/Audio-Joiner-for-NEC/internal/mix"
)

func TestJobLoggerCapturesAttrs(t *testing.T) {
	job := newJob(mix.FormatMP3)
	log := newJobLogger(job)

	log.Info("downloading", "slot", 1, "url", "https://example.com/v")
	log.With("stage", "concat").Info("concatenating", "segments", 8)
	log.Debug("ignored")

	view := job.view()
	require.Len(t, view.Log, 2)
	assert.Equal(t, "downloading slot=1 url=https://example.com/v", view.Log[0])
	assert.Equal(t, "concatenating stage=concat segments=8", view.Log[1])
}

func TestStore(t *testing.T) {
	s := NewStore()
	j := newJob(mix.FormatWAV)
	s.add(j)

	got, ok := s.get(j.ID())
	require.True(t, ok)
	assert.Same(t, j, got)

	_, ok = s.get("missing")
	assert.False(t, ok)
}
