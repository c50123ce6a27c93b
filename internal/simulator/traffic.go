package simulator

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/OldStager01/cold-autoscaler/internal/telemetry"
	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

type TrafficSimConfig struct {
	// Origins holds the base request count per origin.
	Origins map[string]models.OriginTraffic
	// Backends holds the base latency in ms per hot backend region.
	Backends map[string]float64
	// Variance is the relative jitter applied to every value, 0.1 = ±10%.
	Variance float64
	Seed     int64
}

// DefaultTrafficSimConfig mirrors the mock telemetry data.
func DefaultTrafficSimConfig() TrafficSimConfig {
	return TrafficSimConfig{
		Origins: telemetry.DefaultMockTraffic().Origins,
		Backends: map[string]float64{
			"europe-west2": 120,
			"us-south1":    180,
		},
		Variance: 0.1,
	}
}

// Spike multiplies one region's traffic and adds latency to every backend.
type Spike struct {
	Region       models.Region
	Multiplier   float64
	ExtraLatency float64
	StartTime    time.Time
	Duration     time.Duration
	RampUp       time.Duration
}

// factor returns how far into the spike we are, 0 when over.
func (s *Spike) factor(now time.Time) float64 {
	elapsed := now.Sub(s.StartTime)
	switch {
	case elapsed < 0 || elapsed > s.Duration:
		return 0
	case s.RampUp > 0 && elapsed < s.RampUp:
		return float64(elapsed) / float64(s.RampUp)
	default:
		return 1
	}
}

// TrafficSim produces traffic and latency snapshots for the HTTP source.
type TrafficSim struct {
	origins  map[string]models.OriginTraffic
	backends map[string]float64
	variance float64
	pattern  Pattern
	spike    *Spike
	rng      *rand.Rand
	mu       sync.Mutex
	now      func() time.Time
}

func NewTrafficSim(cfg TrafficSimConfig) *TrafficSim {
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	origins := make(map[string]models.OriginTraffic, len(cfg.Origins))
	for k, v := range cfg.Origins {
		origins[k] = v
	}
	backends := make(map[string]float64, len(cfg.Backends))
	for k, v := range cfg.Backends {
		backends[k] = v
	}

	return &TrafficSim{
		origins:  origins,
		backends: backends,
		variance: cfg.Variance,
		pattern:  PatternSteady,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		now:      time.Now,
	}
}

func (t *TrafficSim) Traffic() models.TrafficSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	snapshot := models.TrafficSnapshot{
		CapturedAt: now,
		Source:     "simulator",
		Origins:    make(map[string]models.OriginTraffic, len(t.origins)),
	}

	for origin, base := range t.origins {
		value := t.pattern.Apply(float64(base.Requests), base.Region, now)
		if t.spike != nil && t.spike.Region == base.Region {
			value *= 1 + (t.spike.Multiplier-1)*t.spike.factor(now)
		}
		snapshot.Origins[origin] = models.OriginTraffic{
			Requests: int64(math.Round(t.jitter(value))),
			Region:   base.Region,
		}
	}

	t.expireSpike(now)
	return snapshot
}

func (t *TrafficSim) Latency() telemetry.LatencyResponse {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	resp := telemetry.LatencyResponse{
		CapturedAt: now,
		Backends:   make(map[string]float64, len(t.backends)),
	}

	extra := 0.0
	if t.spike != nil {
		extra = t.spike.ExtraLatency * t.spike.factor(now)
	}
	for backend, base := range t.backends {
		resp.Backends[backend] = math.Round(t.jitter(base+extra)*10) / 10
	}

	t.expireSpike(now)
	return resp
}

func (t *TrafficSim) jitter(value float64) float64 {
	if t.variance > 0 {
		value *= 1 + (t.rng.Float64()*2-1)*t.variance
	}
	if value < 0 {
		return 0
	}
	return value
}

func (t *TrafficSim) expireSpike(now time.Time) {
	if t.spike != nil && now.Sub(t.spike.StartTime) > t.spike.Duration {
		t.spike = nil
	}
}

func (t *TrafficSim) SetPattern(p Pattern) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pattern = p
}

func (t *TrafficSim) Pattern() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pattern.Name()
}

func (t *TrafficSim) SetBaseRequests(origin string, requests int64, region models.Region) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.origins[origin] = models.OriginTraffic{Requests: requests, Region: region}
}

func (t *TrafficSim) SetVariance(v float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.variance = v
}

func (t *TrafficSim) InjectSpike(spike Spike) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if spike.StartTime.IsZero() {
		spike.StartTime = t.now()
	}
	t.spike = &spike
}

func (t *TrafficSim) Status() map[string]interface{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	spikeInfo := map[string]interface{}{"active": false}
	if t.spike != nil {
		remaining := t.spike.Duration - t.now().Sub(t.spike.StartTime)
		if remaining < 0 {
			remaining = 0
		}
		spikeInfo = map[string]interface{}{
			"active":        true,
			"region":        t.spike.Region,
			"multiplier":    t.spike.Multiplier,
			"extra_latency": t.spike.ExtraLatency,
			"remaining":     remaining.String(),
		}
	}

	return map[string]interface{}{
		"origins":  len(t.origins),
		"backends": len(t.backends),
		"variance": t.variance,
		"pattern":  t.pattern.Name(),
		"spike":    spikeInfo,
	}
}
