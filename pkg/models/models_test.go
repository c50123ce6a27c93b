package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

func TestParseRegion(t *testing.T) {
	tests := []struct {
		input    string
		expected models.Region
	}{
		{"asia", models.RegionAsia},
		{" Europe ", models.RegionEurope},
		{"AMERICAS", models.RegionAmericas},
		{"", models.RegionUnknown},
		{"antarctica", models.RegionUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, models.ParseRegion(tt.input))
		})
	}
}

func TestNewLatencySnapshot(t *testing.T) {
	tests := []struct {
		name       string
		perBackend map[string]float64
		hot        []string
		expected   float64
	}{
		{
			name:       "averages hot backends",
			perBackend: map[string]float64{"europe-west2": 120, "us-south1": 180},
			hot:        []string{"europe-west2", "us-south1"},
			expected:   150,
		},
		{
			name:       "ignores cold backends",
			perBackend: map[string]float64{"europe-west2": 120, "asia-southeast1": 900},
			hot:        []string{"europe-west2", "us-south1"},
			expected:   120,
		},
		{
			name:       "no samples yields zero",
			perBackend: map[string]float64{},
			hot:        []string{"europe-west2"},
			expected:   0,
		},
		{
			name:       "non-positive samples are skipped",
			perBackend: map[string]float64{"europe-west2": 0, "us-south1": 300},
			hot:        []string{"europe-west2", "us-south1"},
			expected:   300,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := models.NewLatencySnapshot(tt.perBackend, tt.hot)
			assert.InDelta(t, tt.expected, snapshot.HotRegionsAvgLatencyMs, 0.0001)
			assert.InDelta(t, tt.expected, models.AverageHotLatency(tt.perBackend, tt.hot), 0.0001)
		})
	}
}

func TestScalingThresholds_Validate(t *testing.T) {
	require.NoError(t, models.DefaultThresholds().Validate())

	th := models.DefaultThresholds()
	th.Upper.AsiaRequests = -1
	th.Lower.LatencyMs = -5
	th.ScaleUpNodes = 0

	err := th.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upper asia requests")
	assert.Contains(t, err.Error(), "lower latency")
	assert.Contains(t, err.Error(), "scale up node count")
}

func TestScaleDecision_Action(t *testing.T) {
	assert.Equal(t, "scale_up", models.ScaleDecision{ShouldScale: true, TargetNodeCount: 1}.Action())
	assert.Equal(t, "scale_down", models.ScaleDecision{ShouldScale: true}.Action())
	assert.Equal(t, "none", models.ScaleDecision{TargetNodeCount: 1}.Action())
}

func TestCycleResult_Tally(t *testing.T) {
	cycle := models.NewCycleResult("auto")
	cycle.Results = []models.ClusterActionResult{
		{Region: "a", Status: models.ActionUpdated},
		{Region: "b", Status: models.ActionNoChange},
		{Region: "c", Status: models.ActionError},
		{Region: "d", Status: models.ActionError},
	}

	cycle.Finish()

	assert.Equal(t, 1, cycle.Succeeded)
	assert.Equal(t, 1, cycle.Unchanged)
	assert.Equal(t, 2, cycle.Failed)
	assert.True(t, cycle.HasFailures())
	assert.NotEmpty(t, cycle.ID)
}

func TestCycleResult_SummarySkipped(t *testing.T) {
	cycle := models.NewCycleResult("auto")
	cycle.Skipped = true
	cycle.SkipReason = "telemetry unavailable"

	assert.Equal(t, "cycle skipped: telemetry unavailable", cycle.Summary())
}

func TestNewRegionEvent(t *testing.T) {
	tests := []struct {
		name     string
		result   models.ClusterActionResult
		wantType models.EventType
		severity models.EventSeverity
		message  string
	}{
		{"updated", models.ClusterActionResult{Region: "asia-southeast1", Status: models.ActionUpdated, Message: "0-0 -> 0-1"}, models.EventTypeRegionUpdated, models.SeverityInfo, "0-0 -> 0-1"},
		{"unchanged", models.ClusterActionResult{Region: "asia-southeast1", Status: models.ActionNoChange, Message: "already 0-1"}, models.EventTypeRegionUnchanged, models.SeverityInfo, "already 0-1"},
		{"failed", models.ClusterActionResult{Region: "asia-southeast1", Status: models.ActionError, Error: "quota exceeded"}, models.EventTypeRegionFailed, models.SeverityCritical, "Scaling failed: quota exceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := models.NewRegionEvent("cycle-1", tt.result)
			assert.Equal(t, tt.wantType, e.Type)
			assert.Equal(t, tt.severity, e.Severity)
			assert.Equal(t, tt.message, e.Message)
			assert.Equal(t, "cycle-1", e.CycleID)
			assert.Equal(t, "asia-southeast1", e.Region)
		})
	}
}

func TestEventSeverity_AtLeast(t *testing.T) {
	assert.True(t, models.SeverityCritical.AtLeast(models.SeverityWarning))
	assert.True(t, models.SeverityWarning.AtLeast(models.SeverityWarning))
	assert.False(t, models.SeverityInfo.AtLeast(models.SeverityWarning))
	assert.False(t, models.EventSeverity("bogus").AtLeast(models.SeverityWarning))
}
