package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewUUID returns a random identifier for cycles and events.
func NewUUID() string {
	return uuid.New().String()
}

// CycleResult summarises one autoscaler iteration, scheduled or manual.
type CycleResult struct {
	ID         string                `json:"id"`
	Action     string                `json:"action"`
	StartedAt  time.Time             `json:"started_at"`
	DurationMs int64                 `json:"duration_ms"`
	Skipped    bool                  `json:"skipped"`
	SkipReason string                `json:"skip_reason,omitempty"`
	Traffic    *RegionalTraffic      `json:"traffic,omitempty"`
	Latency    *LatencySnapshot      `json:"latency,omitempty"`
	Decision   *ScaleDecision        `json:"decision,omitempty"`
	Results    []ClusterActionResult `json:"results"`
	Succeeded  int                   `json:"succeeded"`
	Unchanged  int                   `json:"unchanged"`
	Failed     int                   `json:"failed"`
}

func NewCycleResult(action string) *CycleResult {
	return &CycleResult{
		ID:        NewUUID(),
		Action:    action,
		StartedAt: time.Now(),
		Results:   []ClusterActionResult{},
	}
}

// Tally recounts the per-region outcomes.
func (c *CycleResult) Tally() {
	c.Succeeded, c.Unchanged, c.Failed = 0, 0, 0
	for _, r := range c.Results {
		switch r.Status {
		case ActionUpdated:
			c.Succeeded++
		case ActionNoChange:
			c.Unchanged++
		case ActionError:
			c.Failed++
		}
	}
}

func (c *CycleResult) Finish() {
	c.Tally()
	c.DurationMs = time.Since(c.StartedAt).Milliseconds()
}

func (c *CycleResult) HasFailures() bool {
	return c.Failed > 0
}

func (c *CycleResult) Summary() string {
	if c.Skipped {
		return "cycle skipped: " + c.SkipReason
	}
	reason := ""
	if c.Decision != nil {
		reason = c.Decision.Reason
	}
	return fmt.Sprintf("%d updated, %d unchanged, %d failed (%s)",
		c.Succeeded, c.Unchanged, c.Failed, reason)
}
