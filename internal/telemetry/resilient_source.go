package telemetry

import (
	"context"
	"time"

	"github.com/OldStager01/cold-autoscaler/internal/logger"
	"github.com/OldStager01/cold-autoscaler/internal/resilience"
	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

// ResilientSource retries a flaky source and stops calling it while it keeps
// failing. Traffic and latency have separate breakers.
type ResilientSource struct {
	source         Source
	trafficBreaker *resilience.CircuitBreaker
	latencyBreaker *resilience.CircuitBreaker
	retry          resilience.RetryConfig
}

type ResilientSourceConfig struct {
	Source        Source
	MaxFailures   int
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	OnStateChange func(name string, from, to resilience.State)
}

func NewResilientSource(cfg ResilientSourceConfig) *ResilientSource {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 1 * time.Second
	}

	breaker := func(name string) *resilience.CircuitBreaker {
		return resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:          name,
			MaxFailures:   cfg.MaxFailures,
			Timeout:       cfg.Timeout,
			OnStateChange: cfg.OnStateChange,
		})
	}

	return &ResilientSource{
		source:         cfg.Source,
		trafficBreaker: breaker("telemetry_traffic"),
		latencyBreaker: breaker("telemetry_latency"),
		retry: resilience.RetryConfig{
			Attempts: cfg.RetryAttempts,
			Delay:    cfg.RetryDelay,
		},
	}
}

func (r *ResilientSource) FetchTraffic(ctx context.Context) (models.TrafficSnapshot, error) {
	var snapshot models.TrafficSnapshot
	err := r.run(ctx, r.trafficBreaker, func(ctx context.Context) error {
		var err error
		snapshot, err = r.source.FetchTraffic(ctx)
		return err
	})
	if err != nil {
		return models.TrafficSnapshot{}, unavailable("traffic", err)
	}
	return snapshot, nil
}

func (r *ResilientSource) FetchLatency(ctx context.Context) (models.LatencySnapshot, error) {
	var snapshot models.LatencySnapshot
	err := r.run(ctx, r.latencyBreaker, func(ctx context.Context) error {
		var err error
		snapshot, err = r.source.FetchLatency(ctx)
		return err
	})
	if err != nil {
		return models.LatencySnapshot{}, unavailable("latency", err)
	}
	return snapshot, nil
}

func (r *ResilientSource) run(ctx context.Context, cb *resilience.CircuitBreaker, fn func(ctx context.Context) error) error {
	retry := r.retry
	retry.OnRetry = func(attempt int, err error) {
		logger.WithField("breaker", cb.Name()).Warnf(
			"Telemetry attempt %d/%d failed: %v", attempt, retry.Attempts, err,
		)
	}

	return cb.ExecuteContext(ctx, func(ctx context.Context) error {
		return resilience.Retry(ctx, retry, fn)
	})
}

func (r *ResilientSource) CircuitStates() map[string]resilience.State {
	return map[string]resilience.State{
		r.trafficBreaker.Name(): r.trafficBreaker.State(),
		r.latencyBreaker.Name(): r.latencyBreaker.State(),
	}
}

func (r *ResilientSource) ResetCircuits() {
	r.trafficBreaker.Reset()
	r.latencyBreaker.Reset()
}
