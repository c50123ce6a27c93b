package models

type Trigger string

const (
	TriggerGeographicTraffic Trigger = "geographic_traffic"
	TriggerLatency           Trigger = "latency"
	TriggerScaleDown         Trigger = "scale_down"
	TriggerNone              Trigger = "none"
	TriggerManual            Trigger = "manual"
)

// DecisionInputs records the signal values a decision was derived from.
type DecisionInputs struct {
	AsiaRequests   int64   `json:"asia_requests"`
	AsiaPercentage float64 `json:"asia_percentage"`
	TotalRequests  int64   `json:"total_requests"`
	HotLatencyMs   float64 `json:"hot_latency_ms"`
}

// ScaleDecision is the outcome of one policy evaluation. It is built fresh
// each cycle and never mutated afterwards.
type ScaleDecision struct {
	ShouldScale     bool           `json:"should_scale"`
	TargetRegions   []string       `json:"target_regions"`
	TargetNodeCount int            `json:"target_node_count"`
	Trigger         Trigger        `json:"trigger"`
	Reason          string         `json:"reason"`
	Observed        DecisionInputs `json:"observed"`
}

func (d ScaleDecision) IsScaleUp() bool {
	return d.ShouldScale && d.TargetNodeCount > 0
}

func (d ScaleDecision) IsScaleDown() bool {
	return d.ShouldScale && d.TargetNodeCount == 0
}

// Action returns a short label for logs and metrics.
func (d ScaleDecision) Action() string {
	switch {
	case d.IsScaleUp():
		return "scale_up"
	case d.IsScaleDown():
		return "scale_down"
	default:
		return "none"
	}
}
