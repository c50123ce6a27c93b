package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OldStager01/cold-autoscaler/internal/logger"
)

const namespace = "cold_autoscaler"

type Metrics struct {
	registry *prometheus.Registry

	cyclesTotal         *prometheus.CounterVec
	cyclesSkipped       prometheus.Counter
	cycleDuration       prometheus.Histogram
	decisionsTotal      *prometheus.CounterVec
	regionActionsTotal  *prometheus.CounterVec
	apiCallsTotal       *prometheus.CounterVec
	apiCallDuration     *prometheus.HistogramVec
	telemetryErrors     *prometheus.CounterVec
	asiaShare           prometheus.Gauge
	totalRequests       prometheus.Gauge
	hotLatency          prometheus.Gauge
	coldMaxNodes        *prometheus.GaugeVec
	circuitBreakerState *prometheus.GaugeVec
	loopRunning         prometheus.Gauge
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide metrics, registered on their own registry.
func Get() *Metrics {
	once.Do(func() {
		instance = New(prometheus.NewRegistry())
	})
	return instance
}

func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		cyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Autoscaler iterations by action and outcome",
		}, []string{"action", "outcome"}),
		cyclesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_skipped_total",
			Help:      "Iterations skipped because telemetry was unavailable",
		}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of autoscaler iterations",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
		}),
		decisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Scaling decisions by trigger",
		}, []string{"trigger"}),
		regionActionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "region_actions_total",
			Help:      "Per-region cluster actions by status",
		}, []string{"region", "status"}),
		apiCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cluster_api_calls_total",
			Help:      "Cluster inventory calls by operation and result",
		}, []string{"op", "result"}),
		apiCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cluster_api_call_duration_seconds",
			Help:      "Cluster inventory call latency",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"op"}),
		telemetryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_errors_total",
			Help:      "Telemetry fetch failures by signal",
		}, []string{"signal"}),
		asiaShare: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "asia_traffic_percentage",
			Help:      "Share of requests originating in Asia during the last cycle",
		}),
		totalRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "total_requests",
			Help:      "Requests observed during the last cycle",
		}),
		hotLatency: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hot_regions_latency_ms",
			Help:      "Average latency of the hot regions during the last cycle",
		}),
		coldMaxNodes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cold_region_max_nodes",
			Help:      "Autoscaler ceiling last applied to a cold region",
		}, []string{"region"}),
		circuitBreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),
		loopRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "loop_running",
			Help:      "1 while the scheduled loop is running",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveCycle(action, outcome string, d time.Duration) {
	m.cyclesTotal.WithLabelValues(action, outcome).Inc()
	m.cycleDuration.Observe(d.Seconds())
}

func (m *Metrics) IncSkippedCycle() {
	m.cyclesSkipped.Inc()
}

func (m *Metrics) IncDecision(trigger string) {
	m.decisionsTotal.WithLabelValues(trigger).Inc()
}

func (m *Metrics) IncRegionAction(region, status string) {
	m.regionActionsTotal.WithLabelValues(region, status).Inc()
}

func (m *Metrics) ObserveAPICall(op string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.apiCallsTotal.WithLabelValues(op, result).Inc()
	m.apiCallDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) IncTelemetryError(signal string) {
	m.telemetryErrors.WithLabelValues(signal).Inc()
}

func (m *Metrics) SetSignals(asiaPercentage float64, total int64, hotLatencyMs float64) {
	m.asiaShare.Set(asiaPercentage)
	m.totalRequests.Set(float64(total))
	m.hotLatency.Set(hotLatencyMs)
}

func (m *Metrics) SetColdMaxNodes(region string, max int) {
	m.coldMaxNodes.WithLabelValues(region).Set(float64(max))
}

func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.circuitBreakerState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) SetLoopRunning(running bool) {
	if running {
		m.loopRunning.Set(1)
		return
	}
	m.loopRunning.Set(0)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func StartServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Get().Handler())

	addr := ":" + strconv.Itoa(port)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	logger.Infof("Prometheus metrics server listening on %s", addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Prometheus server error: %v", err)
		}
	}()
	return srv
}
