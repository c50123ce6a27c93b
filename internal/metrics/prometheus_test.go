package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveCycle("auto", "applied", 120*time.Millisecond)
	m.ObserveCycle("auto", "applied", 80*time.Millisecond)
	m.IncSkippedCycle()
	m.IncDecision("geographic_traffic")
	m.IncRegionAction("asia-southeast1", "updated")
	m.ObserveAPICall("resize", time.Second, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cyclesTotal.WithLabelValues("auto", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cyclesSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisionsTotal.WithLabelValues("geographic_traffic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.regionActionsTotal.WithLabelValues("asia-southeast1", "updated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.apiCallsTotal.WithLabelValues("resize", "error")))
}

func TestMetrics_Gauges(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetSignals(19.5, 435, 150)
	m.SetColdMaxNodes("asia-southeast1", 1)
	m.SetCircuitBreakerState("telemetry", 1)
	m.SetLoopRunning(true)

	assert.Equal(t, 19.5, testutil.ToFloat64(m.asiaShare))
	assert.Equal(t, 435.0, testutil.ToFloat64(m.totalRequests))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.hotLatency))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.coldMaxNodes.WithLabelValues("asia-southeast1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loopRunning))
}

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.IncDecision("latency")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `cold_autoscaler_decisions_total{trigger="latency"} 1`)
}
