package http

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findMetric(t *testing.T, families []*dto.MetricFamily, name string) *dto.MetricFamily {
	t.Helper()
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestMetricsRegistry_ObserveAnalysis(t *testing.T) {
	m := NewMetricsRegistry()
	require.NoError(t, m.Register())

	m.ObserveAnalysis("ok", 150*time.Millisecond)
	m.ObserveAnalysis("ok", 50*time.Millisecond)
	m.ObserveAnalysis("error", 10*time.Millisecond)

	families, err := m.Gather().Gather()
	require.NoError(t, err)

	runs := findMetric(t, families, "pctrun_analysis_runs_total")
	require.NotNil(t, runs)

	byOutcome := map[string]float64{}
	for _, metric := range runs.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "outcome" {
				byOutcome[label.GetValue()] = metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, byOutcome["ok"])
	assert.Equal(t, 1.0, byOutcome["error"])

	duration := findMetric(t, families, "pctrun_analysis_duration_seconds")
	require.NotNil(t, duration)
	require.Len(t, duration.GetMetric(), 1)
	assert.Equal(t, uint64(3), duration.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestMetricsRegistry_RequestDuration(t *testing.T) {
	m := NewMetricsRegistry()
	require.NoError(t, m.Register())

	m.ObserveRequest("/v1/analysis", 200, 25*time.Millisecond)
	m.ObserveRequest("/v1/analysis", 422, 5*time.Millisecond)

	families, err := m.Gather().Gather()
	require.NoError(t, err)

	reqs := findMetric(t, families, "pctrun_http_request_duration_seconds")
	require.NotNil(t, reqs)
	assert.Len(t, reqs.GetMetric(), 2, "one series per path/status pair")
}

func TestMetricsRegistry_CacheHitRatio(t *testing.T) {
	m := NewMetricsRegistry()
	require.NoError(t, m.Register())

	m.SetCacheHitRatio(0.75)

	families, err := m.Gather().Gather()
	require.NoError(t, err)

	ratio := findMetric(t, families, "pctrun_cache_hit_ratio")
	require.NotNil(t, ratio)
	require.Len(t, ratio.GetMetric(), 1)
	assert.Equal(t, 0.75, ratio.GetMetric()[0].GetGauge().GetValue())
}
