package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservationsAreRecorded(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveUpstream("propublica", "ok")
	m.ObserveUpstream("propublica", "ok")
	m.ObserveUpstream("efts", "error")
	m.ObserveRetry("fetch")
	m.ObserveResolution(1.5, 12, true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("propublica", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("efts", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRetries.WithLabelValues("fetch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResolveTruncated))

	families, err := registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsNoOp(t *testing.T) {
	var m *Metrics
	m.ObserveUpstream("propublica", "ok")
	m.ObserveRetry("metadata")
	m.ObserveResolution(0.1, 1, false)
}
