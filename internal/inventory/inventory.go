package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

var (
	ErrClusterNotFound = errors.New("cluster not found")
	ErrPoolNotFound    = errors.New("node pool not found")
	ErrOperationFailed = errors.New("cluster operation failed")
)

const DefaultNamePattern = "{project}-gke-{region}"

// Inventory describes and mutates the regional clusters the autoscaler
// manages. Implementations must be safe for concurrent use.
type Inventory interface {
	// Describe returns a fresh view of the cluster serving region.
	Describe(ctx context.Context, region string) (*models.ClusterInfo, error)

	// UpdateAutoscalingBounds sets the node pool autoscaler limits.
	UpdateAutoscalingBounds(ctx context.Context, region, pool string, min, max int) error

	// Resize forces the node pool to the given node count.
	Resize(ctx context.Context, region, pool string, nodes int) error
}

// ClusterName expands a naming pattern such as "{project}-gke-{region}".
func ClusterName(pattern, project, region string) string {
	if pattern == "" {
		pattern = DefaultNamePattern
	}
	return strings.NewReplacer("{project}", project, "{region}", region).Replace(pattern)
}
