package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

// MockSource serves fixed snapshots. The defaults are a quiet European and
// American day with light Asian traffic.
type MockSource struct {
	mu         sync.RWMutex
	traffic    models.TrafficSnapshot
	latency    models.LatencySnapshot
	trafficErr error
	latencyErr error
}

func NewMockSource() *MockSource {
	return &MockSource{
		traffic: DefaultMockTraffic(),
		latency: models.LatencySnapshot{
			HotRegionsAvgLatencyMs: 150,
			PerRegion: map[string]float64{
				"europe-west2": 120,
				"us-south1":    180,
			},
		},
	}
}

func DefaultMockTraffic() models.TrafficSnapshot {
	return models.TrafficSnapshot{
		Source: "mock",
		Origins: map[string]models.OriginTraffic{
			"singapore":     {Requests: 60, Region: models.RegionAsia},
			"thailand":      {Requests: 25, Region: models.RegionAsia},
			"united states": {Requests: 200, Region: models.RegionAmericas},
			"canada":        {Requests: 50, Region: models.RegionAmericas},
			"germany":       {Requests: 150, Region: models.RegionEurope},
			"france":        {Requests: 80, Region: models.RegionEurope},
		},
	}
}

func (m *MockSource) SetTraffic(s models.TrafficSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.traffic = s
}

func (m *MockSource) SetLatency(ms float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = models.LatencySnapshot{HotRegionsAvgLatencyMs: ms}
}

func (m *MockSource) SetErrors(trafficErr, latencyErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trafficErr = trafficErr
	m.latencyErr = latencyErr
}

func (m *MockSource) FetchTraffic(ctx context.Context) (models.TrafficSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.TrafficSnapshot{}, unavailable("traffic", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.trafficErr != nil {
		return models.TrafficSnapshot{}, unavailable("traffic", m.trafficErr)
	}

	out := m.traffic
	out.Origins = make(map[string]models.OriginTraffic, len(m.traffic.Origins))
	for k, v := range m.traffic.Origins {
		out.Origins[k] = v
	}
	out.CapturedAt = time.Now()
	return out, nil
}

func (m *MockSource) FetchLatency(ctx context.Context) (models.LatencySnapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.LatencySnapshot{}, unavailable("latency", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.latencyErr != nil {
		return models.LatencySnapshot{}, unavailable("latency", m.latencyErr)
	}

	out := m.latency
	out.CapturedAt = time.Now()
	return out, nil
}
