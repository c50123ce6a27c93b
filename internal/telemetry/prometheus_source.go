package telemetry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/OldStager01/cold-autoscaler/internal/classifier"
	"github.com/OldStager01/cold-autoscaler/internal/logger"
	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

const (
	DefaultLatencyQuery = `avg by (region) (backend_latency_ms)`
	DefaultTrafficQuery = `sum by (country) (increase(http_requests_total[5m]))`
)

type PrometheusConfig struct {
	Address      string
	LatencyQuery string
	LatencyLabel string
	TrafficQuery string
	TrafficLabel string
	HotRegions   []string
	// Tagger pre-tags origins; when nil they are left for the classifier.
	Tagger *classifier.Classifier
}

// PrometheusSource reads traffic and latency vectors from a Prometheus server.
type PrometheusSource struct {
	api    v1.API
	config PrometheusConfig
}

func NewPrometheusSource(cfg PrometheusConfig) (*PrometheusSource, error) {
	client, err := api.NewClient(api.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("error creating prometheus client: %w", err)
	}
	return newPrometheusSource(v1.NewAPI(client), cfg), nil
}

func newPrometheusSource(a v1.API, cfg PrometheusConfig) *PrometheusSource {
	if cfg.LatencyQuery == "" {
		cfg.LatencyQuery = DefaultLatencyQuery
	}
	if cfg.LatencyLabel == "" {
		cfg.LatencyLabel = "region"
	}
	if cfg.TrafficQuery == "" {
		cfg.TrafficQuery = DefaultTrafficQuery
	}
	if cfg.TrafficLabel == "" {
		cfg.TrafficLabel = "country"
	}
	return &PrometheusSource{api: a, config: cfg}
}

func (p *PrometheusSource) FetchLatency(ctx context.Context) (models.LatencySnapshot, error) {
	vector, err := p.query(ctx, p.config.LatencyQuery)
	if err != nil {
		return models.LatencySnapshot{}, unavailable("latency", err)
	}

	perBackend := make(map[string]float64, len(vector))
	for _, sample := range vector {
		v := float64(sample.Value)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < 0 {
			return models.LatencySnapshot{}, unavailable("latency",
				fmt.Errorf("%w: negative latency in sample %s", ErrInvalidResponse, sample.Metric))
		}
		perBackend[string(sample.Metric[model.LabelName(p.config.LatencyLabel)])] = v
	}

	return models.NewLatencySnapshot(perBackend, p.config.HotRegions), nil
}

func (p *PrometheusSource) FetchTraffic(ctx context.Context) (models.TrafficSnapshot, error) {
	vector, err := p.query(ctx, p.config.TrafficQuery)
	if err != nil {
		return models.TrafficSnapshot{}, unavailable("traffic", err)
	}

	snapshot := models.TrafficSnapshot{
		CapturedAt: time.Now(),
		Source:     "prometheus",
		Origins:    make(map[string]models.OriginTraffic, len(vector)),
	}
	for _, sample := range vector {
		v := float64(sample.Value)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < 0 {
			return models.TrafficSnapshot{}, unavailable("traffic",
				fmt.Errorf("%w: negative request count in sample %s", ErrInvalidResponse, sample.Metric))
		}
		origin := string(sample.Metric[model.LabelName(p.config.TrafficLabel)])
		traffic := snapshot.Origins[origin]
		traffic.Requests += int64(math.Round(v))
		if p.config.Tagger != nil {
			traffic.Region = p.config.Tagger.Tag(origin)
		}
		snapshot.Origins[origin] = traffic
	}

	return snapshot, nil
}

func (p *PrometheusSource) query(ctx context.Context, q string) (model.Vector, error) {
	result, warnings, err := p.api.Query(ctx, q, time.Now())
	if err != nil {
		return nil, err
	}
	if len(warnings) > 0 {
		logger.Warnf("Prometheus query warnings: %v", warnings)
	}

	vector, ok := result.(model.Vector)
	if !ok {
		got := "nothing"
		if result != nil {
			got = result.Type().String()
		}
		return nil, fmt.Errorf("%w: expected vector result, got %s", ErrInvalidResponse, got)
	}
	return vector, nil
}
