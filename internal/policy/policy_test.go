package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

var coldRegions = []string{"asia-southeast1"}

func traffic(asia, total int64) models.RegionalTraffic {
	rt := models.RegionalTraffic{
		Total: total,
		Requests: map[models.Region]int64{
			models.RegionAsia:     asia,
			models.RegionEurope:   total - asia,
			models.RegionAmericas: 0,
			models.RegionUnknown:  0,
		},
		Percentages: map[models.Region]float64{},
	}
	if total > 0 {
		rt.Percentages[models.RegionAsia] = float64(asia) / float64(total) * 100
		rt.Percentages[models.RegionEurope] = float64(total-asia) / float64(total) * 100
	}
	return rt
}

func latency(ms float64) models.LatencySnapshot {
	return models.LatencySnapshot{HotRegionsAvgLatencyMs: ms}
}

func TestDecide_Scenarios(t *testing.T) {
	defaults := models.DefaultThresholds()

	tests := []struct {
		name          string
		traffic       models.RegionalTraffic
		latency       float64
		shouldScale   bool
		trigger       models.Trigger
		targetNodes   int
		reason        string
		targetRegions []string
	}{
		{
			name:          "geographic traffic wakes cold region",
			traffic:       traffic(85, 435),
			latency:       150,
			shouldScale:   true,
			trigger:       models.TriggerGeographicTraffic,
			targetNodes:   1,
			reason:        "High Asia requests (85 >= 50) + High Asia percentage (19.5% >= 10.0%) + High total traffic (435 >= 300)",
			targetRegions: coldRegions,
		},
		{
			name:          "latency alone wakes cold region",
			traffic:       traffic(10, 400),
			latency:       550,
			shouldScale:   true,
			trigger:       models.TriggerLatency,
			targetNodes:   1,
			reason:        "High latency to hot clusters (550ms >= 500ms)",
			targetRegions: coldRegions,
		},
		{
			name:          "quiet traffic releases cold region",
			traffic:       traffic(5, 1000),
			latency:       150,
			shouldScale:   true,
			trigger:       models.TriggerScaleDown,
			targetNodes:   0,
			reason:        "Low Asia requests (5 < 50) + Low Asia percentage (0.5% < 2.0%) + Low latency (150ms < 200ms)",
			targetRegions: coldRegions,
		},
		{
			name:          "dead zone leaves capacity alone",
			traffic:       traffic(20, 400),
			latency:       300,
			shouldScale:   false,
			trigger:       models.TriggerNone,
			targetNodes:   0,
			reason:        "Asia requests below threshold (20 < 50), Asia percentage below threshold (5.0% < 10.0%), Latency below threshold (300ms < 500ms)",
			targetRegions: []string{},
		},
		{
			name:          "asia signal without total volume does not scale",
			traffic:       traffic(60, 200),
			latency:       300,
			shouldScale:   false,
			trigger:       models.TriggerNone,
			reason:        "Total requests below threshold (200 < 300), Latency below threshold (300ms < 500ms)",
			targetRegions: []string{},
		},
		{
			name:          "asia signal without volume but high latency is a latency trigger",
			traffic:       traffic(60, 200),
			latency:       600,
			shouldScale:   true,
			trigger:       models.TriggerLatency,
			targetNodes:   1,
			reason:        "High Asia requests (60 >= 50) + High Asia percentage (30.0% >= 10.0%) + High latency to hot clusters (600ms >= 500ms)",
			targetRegions: coldRegions,
		},
		{
			name:          "zero traffic with low latency scales down",
			traffic:       traffic(0, 0),
			latency:       0,
			shouldScale:   true,
			trigger:       models.TriggerScaleDown,
			targetNodes:   0,
			targetRegions: coldRegions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.traffic, latency(tt.latency), defaults, coldRegions)

			assert.Equal(t, tt.shouldScale, d.ShouldScale)
			assert.Equal(t, tt.trigger, d.Trigger)
			assert.Equal(t, tt.targetNodes, d.TargetNodeCount)
			assert.Equal(t, tt.targetRegions, d.TargetRegions)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, d.Reason)
			}
		})
	}
}

func TestDecide_ScenarioC(t *testing.T) {
	// percentage is taken as reported by the source, not recomputed
	rt := models.RegionalTraffic{
		Total:       50,
		Requests:    map[models.Region]int64{models.RegionAsia: 5},
		Percentages: map[models.Region]float64{models.RegionAsia: 0.5},
	}

	d := Decide(rt, latency(150), models.DefaultThresholds(), coldRegions)

	assert.True(t, d.ShouldScale)
	assert.Equal(t, models.TriggerScaleDown, d.Trigger)
	assert.Equal(t, 0, d.TargetNodeCount)
}

func TestDecide_Deterministic(t *testing.T) {
	rt := traffic(85, 435)
	lat := latency(520)

	first := Decide(rt, lat, models.DefaultThresholds(), []string{"b", "a"})
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Decide(rt, lat, models.DefaultThresholds(), []string{"b", "a"}))
	}
	assert.Equal(t, []string{"a", "b"}, first.TargetRegions)
}

func TestDecide_HysteresisDeadZone(t *testing.T) {
	th := models.DefaultThresholds()
	th.Lower.AsiaRequests = 20

	// each case moves exactly one signal into its dead zone while keeping the
	// others below their lower bounds
	tests := []struct {
		name    string
		traffic models.RegionalTraffic
		latency float64
	}{
		{"latency between bounds", traffic(5, 1000), 350},
		{"asia requests between bounds", traffic(30, 10000), 100},
		{"asia percentage between bounds", traffic(15, 300), 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.traffic, latency(tt.latency), th, coldRegions)
			assert.False(t, d.ShouldScale)
			assert.Equal(t, models.TriggerNone, d.Trigger)
		})
	}
}

func TestDecide_ConfiguredNodeCount(t *testing.T) {
	th := models.DefaultThresholds()
	th.ScaleUpNodes = 2

	d := Decide(traffic(85, 435), latency(100), th, coldRegions)

	assert.Equal(t, 2, d.TargetNodeCount)
}

func TestDecide_ObservedInputs(t *testing.T) {
	d := Decide(traffic(85, 435), latency(120), models.DefaultThresholds(), coldRegions)

	assert.Equal(t, int64(85), d.Observed.AsiaRequests)
	assert.Equal(t, int64(435), d.Observed.TotalRequests)
	assert.InDelta(t, 19.54, d.Observed.AsiaPercentage, 0.01)
	assert.Equal(t, 120.0, d.Observed.HotLatencyMs)
}

func TestThresholdSource(t *testing.T) {
	src := NewThresholdSource(models.DefaultThresholds(), []string{"asia-southeast1", "asia-southeast1", " "})

	d, err := src.Decide(context.Background(), traffic(85, 435), latency(100))

	require.NoError(t, err)
	assert.Equal(t, []string{"asia-southeast1"}, d.TargetRegions)
	assert.Equal(t, []string{"asia-southeast1"}, src.ColdRegions())
}

func TestOverride(t *testing.T) {
	up, err := Override(ActionUp, 3, coldRegions, "")
	require.NoError(t, err)
	assert.True(t, up.ShouldScale)
	assert.Equal(t, 3, up.TargetNodeCount)
	assert.Equal(t, models.TriggerManual, up.Trigger)
	assert.Equal(t, "Manual up to 3 nodes", up.Reason)

	down, err := Override(ActionDown, 5, coldRegions, "maintenance")
	require.NoError(t, err)
	assert.Equal(t, 0, down.TargetNodeCount)
	assert.Equal(t, "maintenance", down.Reason)

	_, err = Override(ActionUp, 0, coldRegions, "")
	assert.Error(t, err)

	_, err = Override(ActionAuto, 1, coldRegions, "")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		input    string
		expected Action
		wantErr  bool
	}{
		{"up", ActionUp, false},
		{" DOWN ", ActionDown, false},
		{"auto", ActionAuto, false},
		{"", ActionAuto, false},
		{"sideways", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			a, err := ParseAction(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownAction)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, a)
		})
	}
}
