package models

import "time"

// LatencySnapshot carries the average latency observed on the hot regions'
// backends, optionally broken down per hot region.
type LatencySnapshot struct {
	HotRegionsAvgLatencyMs float64            `json:"hot_regions_avg_latency_ms"`
	PerRegion              map[string]float64 `json:"per_region,omitempty"`
	CapturedAt             time.Time          `json:"captured_at"`
}

// NewLatencySnapshot averages the backend latencies that belong to one of the
// hot regions. Backends outside the hot set and non-positive samples are
// ignored.
func NewLatencySnapshot(perBackend map[string]float64, hotRegions []string) LatencySnapshot {
	snapshot := LatencySnapshot{
		PerRegion:  make(map[string]float64),
		CapturedAt: time.Now(),
	}

	var sum float64
	var count int
	for _, region := range hotRegions {
		latency, ok := perBackend[region]
		if !ok || latency <= 0 {
			continue
		}
		snapshot.PerRegion[region] = latency
		sum += latency
		count++
	}

	if count > 0 {
		snapshot.HotRegionsAvgLatencyMs = sum / float64(count)
	}
	return snapshot
}

// AverageHotLatency is the hot-region average of NewLatencySnapshot.
func AverageHotLatency(perBackend map[string]float64, hotRegions []string) float64 {
	return NewLatencySnapshot(perBackend, hotRegions).HotRegionsAvgLatencyMs
}
