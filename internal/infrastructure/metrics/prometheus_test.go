package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pipeline-api/internal/domain/pipeline"
	"github.com/jhoicas/pipeline-api/internal/infrastructure/metrics"
)

func TestPrometheus_Contadores(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.BatchFinished("committed")
	m.BatchFinished("committed")
	m.BatchFinished("rolled_back")
	m.ItemTransitioned(pipeline.KindJob)
	m.AutomationFinished("created")
	m.FeedLoaded("cache")
	m.ObserveBackend("PATCH", "jobs", 200, 20*time.Millisecond)
	m.ObserveBackend("GET", "pipeline", 0, time.Second)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, n := range []string{
		"pipeline_batches_total", "pipeline_transitions_total", "pipeline_automation_total",
		"pipeline_feed_loads_total", "pipeline_backend_request_duration_seconds",
	} {
		assert.True(t, names[n], "falta la métrica %s", n)
	}

	n, err := testutil.GatherAndCount(reg, "pipeline_batches_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "dos series: committed y rolled_back")

	n, err = testutil.GatherAndCount(reg, "pipeline_backend_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "el error de red se etiqueta como status=error")
}

func TestRegisterSessionGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	open := 3
	metrics.RegisterSessionGauge(reg, func() int { return open })

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, float64(3), families[0].GetMetric()[0].GetGauge().GetValue())
}
