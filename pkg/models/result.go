package models

type ActionStatus string

const (
	ActionNoChange ActionStatus = "no_change"
	ActionUpdated  ActionStatus = "updated"
	ActionError    ActionStatus = "error"
)

// ClusterActionResult is the outcome of applying a decision to one region.
type ClusterActionResult struct {
	Region         string       `json:"region"`
	Cluster        string       `json:"cluster,omitempty"`
	NodePool       string       `json:"node_pool,omitempty"`
	Status         ActionStatus `json:"status"`
	PreviousBounds *Bounds      `json:"previous_bounds,omitempty"`
	TargetBounds   Bounds       `json:"target_bounds"`
	Woken          bool         `json:"woken,omitempty"`
	Message        string       `json:"message,omitempty"`
	Error          string       `json:"error,omitempty"`
}

func (r ClusterActionResult) IsError() bool {
	return r.Status == ActionError
}
