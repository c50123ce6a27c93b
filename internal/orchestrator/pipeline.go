package orchestrator

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/OldStager01/cold-autoscaler/internal/classifier"
	"github.com/OldStager01/cold-autoscaler/internal/logger"
	"github.com/OldStager01/cold-autoscaler/internal/metrics"
	"github.com/OldStager01/cold-autoscaler/internal/resilience"
	"github.com/OldStager01/cold-autoscaler/internal/telemetry"
	"github.com/OldStager01/cold-autoscaler/pkg/config"
	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

// Pipeline is the telemetry chain feeding the loop:
// provider -> retries and circuit breakers -> optional snapshot cache.
type Pipeline struct {
	source    telemetry.Source
	resilient *telemetry.ResilientSource
	health    []healthChecker
	redis     *redis.Client
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NewPipeline builds the chain from configuration. A non-nil base replaces
// the configured providers.
func NewPipeline(cfg *config.Config, cls *classifier.Classifier, m *metrics.Metrics, base telemetry.Source) (*Pipeline, error) {
	p := &Pipeline{}

	if base == nil {
		traffic, err := p.provider(cfg, cfg.Telemetry.Provider, cls)
		if err != nil {
			return nil, err
		}
		latency := traffic
		if lp := cfg.Telemetry.LatencyProvider; lp != "" && lp != cfg.Telemetry.Provider {
			if latency, err = p.provider(cfg, lp, cls); err != nil {
				return nil, err
			}
		}
		base = telemetry.Combined{Traffic: traffic, Latency: latency}
	}

	p.resilient = telemetry.NewResilientSource(telemetry.ResilientSourceConfig{
		Source:        base,
		MaxFailures:   cfg.Telemetry.CircuitBreaker.MaxFailures,
		Timeout:       cfg.Telemetry.CircuitBreaker.Timeout,
		RetryAttempts: cfg.Telemetry.RetryAttempts,
		RetryDelay:    cfg.Telemetry.RetryDelay,
		OnStateChange: func(name string, from, to resilience.State) {
			m.SetCircuitBreakerState(name, int(to))
			logger.Warnf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	p.source = p.resilient

	if cfg.Telemetry.Cache.Enabled {
		var store telemetry.SnapshotStore
		switch cfg.Telemetry.Cache.Backend {
		case "redis":
			p.redis = newRedisClient(cfg.Redis)
			store = telemetry.NewRedisStore(p.redis, cfg.Redis.KeyPrefix)
		default:
			store = telemetry.NewMemoryStore()
		}
		p.source = telemetry.NewCachedSource(p.source, store, cfg.Telemetry.Cache.MaxAge)
	}

	return p, nil
}

func (p *Pipeline) provider(cfg *config.Config, name string, cls *classifier.Classifier) (telemetry.Source, error) {
	switch name {
	case "mock", "":
		return telemetry.NewMockSource(), nil
	case "http":
		src := telemetry.NewHTTPSource(telemetry.HTTPSourceConfig{
			Endpoint:   cfg.Telemetry.Endpoint,
			Timeout:    cfg.Telemetry.Timeout,
			HotRegions: cfg.Regions.Hot,
		})
		p.health = append(p.health, src)
		return src, nil
	case "prometheus":
		pc := cfg.Telemetry.Prometheus
		return telemetry.NewPrometheusSource(telemetry.PrometheusConfig{
			Address:      pc.Address,
			LatencyQuery: pc.LatencyQuery,
			LatencyLabel: pc.LatencyLabel,
			TrafficQuery: pc.TrafficQuery,
			TrafficLabel: pc.TrafficLabel,
			HotRegions:   cfg.Regions.Hot,
			Tagger:       cls,
		})
	default:
		return nil, fmt.Errorf("unknown telemetry provider %q", name)
	}
}

func (p *Pipeline) FetchTraffic(ctx context.Context) (models.TrafficSnapshot, error) {
	return p.source.FetchTraffic(ctx)
}

func (p *Pipeline) FetchLatency(ctx context.Context) (models.LatencySnapshot, error) {
	return p.source.FetchLatency(ctx)
}

// HealthCheck checks the providers that support it and the cache backend.
func (p *Pipeline) HealthCheck(ctx context.Context) error {
	for _, h := range p.health {
		if err := h.HealthCheck(ctx); err != nil {
			return err
		}
	}
	if p.redis != nil {
		if err := p.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// CircuitStates reports the breaker state per signal.
func (p *Pipeline) CircuitStates() map[string]string {
	out := make(map[string]string)
	for name, state := range p.resilient.CircuitStates() {
		out[name] = state.String()
	}
	return out
}

func (p *Pipeline) Close() {
	for _, h := range p.health {
		if c, ok := h.(interface{ Close() error }); ok {
			c.Close()
		}
	}
	if p.redis != nil {
		if err := p.redis.Close(); err != nil {
			logger.Warnf("Failed to close redis client: %v", err)
		}
	}
}
