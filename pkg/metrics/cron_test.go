package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsRecordsResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.now = func() time.Time { return time.Unix(1_800_000_000, 0) }

	m.Record("presence_sweep", 250*time.Millisecond, nil)
	m.Record("presence_sweep", 10*time.Millisecond, errors.New("db down"))

	mfs, err := reg.Gather()
	require.NoError(t, err)

	ok, err := findSeries(mfs, "cron_job_runs_total", map[string]string{"job": "presence_sweep", "result": CronResultOK})
	require.NoError(t, err)
	assert.Equal(t, 1.0, ok.GetCounter().GetValue())

	failed, err := findSeries(mfs, "cron_job_runs_total", map[string]string{"job": "presence_sweep", "result": CronResultError})
	require.NoError(t, err)
	assert.Equal(t, 1.0, failed.GetCounter().GetValue())

	hist, err := findSeries(mfs, "cron_job_duration_seconds", map[string]string{"job": "presence_sweep"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), hist.GetHistogram().GetSampleCount())

	last, err := findSeries(mfs, "cron_job_last_success_timestamp_seconds", map[string]string{"job": "presence_sweep"})
	require.NoError(t, err)
	assert.Equal(t, 1_800_000_000.0, last.GetGauge().GetValue())
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var m *CronJobMetrics
	m.Record("x", time.Second, nil)
	NewCronJobMetrics(nil).Record("x", time.Second, errors.New("boom"))
}
