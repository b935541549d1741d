package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorder(reg).(*PrometheusRecorder)

	rec.IncCounter(ProviderError, map[string]string{"network": "0xa4ec", "kind": "UserRejected"})
	rec.IncCounter(ProviderError, map[string]string{"network": "0xa4ec", "kind": "UserRejected"})
	rec.ObserveLatency(ProviderCall, 20*time.Millisecond, map[string]string{"network": "0xa4ec"})

	got := testutil.ToFloat64(rec.counters.With(prometheus.Labels{
		"type": ProviderError, "network": "0xa4ec", "kind": "UserRejected",
	}))
	assert.Equal(t, 2.0, got)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 2)
}

func TestNoopRecorder(t *testing.T) {
	rec := NewNoopRecorder()
	assert.NotPanics(t, func() {
		rec.IncCounter(SessionTransition, nil)
		rec.ObserveLatency(ProviderCall, time.Second, nil)
	})
}
