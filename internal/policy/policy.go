package policy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

const withinNormalRange = "Traffic and latency within normal range"

// Decide evaluates the scaling rules in precedence order: scale up, scale
// down, no change. The first matching branch wins.
func Decide(
	traffic models.RegionalTraffic,
	latency models.LatencySnapshot,
	thresholds models.ScalingThresholds,
	coldRegions []string,
) models.ScaleDecision {
	in := models.DecisionInputs{
		AsiaRequests:   traffic.RequestsFor(models.RegionAsia),
		AsiaPercentage: traffic.PercentageFor(models.RegionAsia),
		TotalRequests:  traffic.Total,
		HotLatencyMs:   latency.HotRegionsAvgLatencyMs,
	}

	if decision, ok := scaleUp(in, thresholds); ok {
		decision.TargetRegions = NormalizeRegions(coldRegions)
		return decision
	}

	if decision, ok := scaleDown(in, thresholds.Lower); ok {
		decision.TargetRegions = NormalizeRegions(coldRegions)
		return decision
	}

	return noChange(in, thresholds.Upper)
}

func scaleUp(in models.DecisionInputs, th models.ScalingThresholds) (models.ScaleDecision, bool) {
	upper := th.Upper

	highAsiaRequests := in.AsiaRequests >= upper.AsiaRequests
	highAsiaPercentage := in.AsiaPercentage >= upper.AsiaPercentage
	asiaSignal := highAsiaRequests || highAsiaPercentage
	highTotal := in.TotalRequests >= upper.MinTotalRequests
	highLatency := in.HotLatencyMs >= upper.LatencyMs

	geographic := asiaSignal && highTotal
	if !geographic && !highLatency {
		return models.ScaleDecision{}, false
	}

	var reasons []string
	if highAsiaRequests {
		reasons = append(reasons, fmt.Sprintf("High Asia requests (%d >= %d)", in.AsiaRequests, upper.AsiaRequests))
	}
	if highAsiaPercentage {
		reasons = append(reasons, fmt.Sprintf("High Asia percentage (%.1f%% >= %.1f%%)", in.AsiaPercentage, upper.AsiaPercentage))
	}
	if asiaSignal && highTotal {
		reasons = append(reasons, fmt.Sprintf("High total traffic (%d >= %d)", in.TotalRequests, upper.MinTotalRequests))
	}
	if highLatency {
		reasons = append(reasons, fmt.Sprintf("High latency to hot clusters (%.0fms >= %.0fms)", in.HotLatencyMs, upper.LatencyMs))
	}

	trigger := models.TriggerGeographicTraffic
	if !geographic {
		trigger = models.TriggerLatency
	}

	return models.ScaleDecision{
		ShouldScale:     true,
		TargetNodeCount: th.ScaleUpNodes,
		Trigger:         trigger,
		Reason:          strings.Join(reasons, " + "),
		Observed:        in,
	}, true
}

func scaleDown(in models.DecisionInputs, lower models.LowerThresholds) (models.ScaleDecision, bool) {
	if in.AsiaRequests >= lower.AsiaRequests ||
		in.AsiaPercentage >= lower.AsiaPercentage ||
		in.HotLatencyMs >= lower.LatencyMs {
		return models.ScaleDecision{}, false
	}

	reason := strings.Join([]string{
		fmt.Sprintf("Low Asia requests (%d < %d)", in.AsiaRequests, lower.AsiaRequests),
		fmt.Sprintf("Low Asia percentage (%.1f%% < %.1f%%)", in.AsiaPercentage, lower.AsiaPercentage),
		fmt.Sprintf("Low latency (%.0fms < %.0fms)", in.HotLatencyMs, lower.LatencyMs),
	}, " + ")

	return models.ScaleDecision{
		ShouldScale:     true,
		TargetNodeCount: 0,
		Trigger:         models.TriggerScaleDown,
		Reason:          reason,
		Observed:        in,
	}, true
}

func noChange(in models.DecisionInputs, upper models.UpperThresholds) models.ScaleDecision {
	var reasons []string
	if in.AsiaRequests < upper.AsiaRequests {
		reasons = append(reasons, fmt.Sprintf("Asia requests below threshold (%d < %d)", in.AsiaRequests, upper.AsiaRequests))
	}
	if in.AsiaPercentage < upper.AsiaPercentage {
		reasons = append(reasons, fmt.Sprintf("Asia percentage below threshold (%.1f%% < %.1f%%)", in.AsiaPercentage, upper.AsiaPercentage))
	}
	if in.TotalRequests < upper.MinTotalRequests {
		reasons = append(reasons, fmt.Sprintf("Total requests below threshold (%d < %d)", in.TotalRequests, upper.MinTotalRequests))
	}
	if in.HotLatencyMs < upper.LatencyMs {
		reasons = append(reasons, fmt.Sprintf("Latency below threshold (%.0fms < %.0fms)", in.HotLatencyMs, upper.LatencyMs))
	}

	reason := withinNormalRange
	if len(reasons) > 0 {
		reason = strings.Join(reasons, ", ")
	}

	return models.ScaleDecision{
		ShouldScale:   false,
		TargetRegions: []string{},
		Trigger:       models.TriggerNone,
		Reason:        reason,
		Observed:      in,
	}
}

// NormalizeRegions trims, de-duplicates and sorts region identifiers.
func NormalizeRegions(regions []string) []string {
	seen := make(map[string]struct{}, len(regions))
	out := make([]string, 0, len(regions))
	for _, r := range regions {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
