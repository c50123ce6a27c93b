package models

import "fmt"

type ClusterStatus string

const (
	ClusterStatusRunning      ClusterStatus = "RUNNING"
	ClusterStatusProvisioning ClusterStatus = "PROVISIONING"
	ClusterStatusReconciling  ClusterStatus = "RECONCILING"
	ClusterStatusStopping     ClusterStatus = "STOPPING"
	ClusterStatusError        ClusterStatus = "ERROR"
	ClusterStatusUnknown      ClusterStatus = "UNKNOWN"
)

// Bounds are the autoscaler limits of a node pool.
type Bounds struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (b Bounds) String() string {
	return fmt.Sprintf("min=%d, max=%d", b.Min, b.Max)
}

type NodePool struct {
	Name      string `json:"name"`
	MinNodes  int    `json:"min_nodes"`
	MaxNodes  int    `json:"max_nodes"`
	NodeCount int    `json:"node_count"`
}

func (p NodePool) Bounds() Bounds {
	return Bounds{Min: p.MinNodes, Max: p.MaxNodes}
}

// ClusterInfo is a read-only view of a regional cluster, fetched every cycle.
type ClusterInfo struct {
	Name      string        `json:"name"`
	Region    string        `json:"region"`
	Status    ClusterStatus `json:"status"`
	NodePools []NodePool    `json:"node_pools"`
}

func (c *ClusterInfo) IsRunning() bool {
	return c.Status == ClusterStatusRunning
}
