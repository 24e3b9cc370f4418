package jobmetrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("promotions:expire").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("promotions:expire").End(boom), boom)
	m.AddAffected("promotions:expire", 3)
	m.AddAffected("promotions:expire", 0)

	expected := `
# HELP storefront_jobs_total Total job executions partitioned by task type and status.
# TYPE storefront_jobs_total counter
storefront_jobs_total{job="promotions:expire",status="failure"} 1
storefront_jobs_total{job="promotions:expire",status="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "storefront_jobs_total"))
	require.Equal(t, float64(1), testutil.ToFloat64(m.failures.WithLabelValues("promotions:expire")))
	require.Equal(t, float64(3), testutil.ToFloat64(m.affected.WithLabelValues("promotions:expire")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	tracker := m.Track("x")
	require.NoError(t, tracker.End(nil))
	m.AddAffected("x", 1)
}
