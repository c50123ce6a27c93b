package inventory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	container "google.golang.org/api/container/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/OldStager01/cold-autoscaler/internal/logger"
	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

const (
	operationPending = "PENDING"
	operationRunning = "RUNNING"
	operationDone    = "DONE"
)

// gkeOperations wraps the container API calls the inventory relies on.
type gkeOperations interface {
	getCluster(ctx context.Context, name string) (*container.Cluster, error)
	getOperation(ctx context.Context, name string) (*container.Operation, error)
	setAutoscaling(ctx context.Context, pool string, req *container.SetNodePoolAutoscalingRequest) (*container.Operation, error)
	setSize(ctx context.Context, pool string, req *container.SetNodePoolSizeRequest) (*container.Operation, error)
}

type gkeSDKClient struct {
	*container.Service
}

func (c *gkeSDKClient) getCluster(ctx context.Context, name string) (*container.Cluster, error) {
	return c.Projects.Locations.Clusters.Get(name).Context(ctx).Do()
}

func (c *gkeSDKClient) getOperation(ctx context.Context, name string) (*container.Operation, error) {
	return c.Projects.Locations.Operations.Get(name).Context(ctx).Do()
}

func (c *gkeSDKClient) setAutoscaling(ctx context.Context, pool string, req *container.SetNodePoolAutoscalingRequest) (*container.Operation, error) {
	return c.Projects.Locations.Clusters.NodePools.SetAutoscaling(pool, req).Context(ctx).Do()
}

func (c *gkeSDKClient) setSize(ctx context.Context, pool string, req *container.SetNodePoolSizeRequest) (*container.Operation, error) {
	return c.Projects.Locations.Clusters.NodePools.SetSize(pool, req).Context(ctx).Do()
}

type GKEConfig struct {
	ProjectID       string
	NamePattern     string
	CredentialsFile string
	Endpoint        string
	PollInterval    time.Duration
}

// GKEInventory manages regional Google Kubernetes Engine clusters.
type GKEInventory struct {
	project      string
	namePattern  string
	pollInterval time.Duration
	ops          gkeOperations
}

func NewGKEInventory(ctx context.Context, cfg GKEConfig, opts ...option.ClientOption) (*GKEInventory, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("gke inventory requires a project id")
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := container.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create container service: %w", err)
	}

	return newGKEInventory(cfg, &gkeSDKClient{svc}), nil
}

func newGKEInventory(cfg GKEConfig, ops gkeOperations) *GKEInventory {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &GKEInventory{
		project:      cfg.ProjectID,
		namePattern:  cfg.NamePattern,
		pollInterval: cfg.PollInterval,
		ops:          ops,
	}
}

func (g *GKEInventory) clusterPath(region string) string {
	return fmt.Sprintf("projects/%s/locations/%s/clusters/%s",
		g.project, region, ClusterName(g.namePattern, g.project, region))
}

func (g *GKEInventory) poolPath(region, pool string) string {
	return fmt.Sprintf("%s/nodePools/%s", g.clusterPath(region), pool)
}

func (g *GKEInventory) operationPath(region, name string) string {
	if strings.HasPrefix(name, "projects/") {
		return name
	}
	return fmt.Sprintf("projects/%s/locations/%s/operations/%s", g.project, region, name)
}

func (g *GKEInventory) Describe(ctx context.Context, region string) (*models.ClusterInfo, error) {
	cluster, err := g.ops.getCluster(ctx, g.clusterPath(region))
	if err != nil {
		return nil, wrapAPIError(err)
	}

	info := &models.ClusterInfo{
		Name:      cluster.Name,
		Region:    region,
		Status:    models.ClusterStatus(cluster.Status),
		NodePools: make([]models.NodePool, 0, len(cluster.NodePools)),
	}
	for _, np := range cluster.NodePools {
		if np == nil {
			continue
		}
		pool := models.NodePool{Name: np.Name}
		if as := np.Autoscaling; as != nil && as.Enabled {
			pool.MinNodes = int(as.TotalMinNodeCount)
			pool.MaxNodes = int(as.TotalMaxNodeCount)
			if pool.MinNodes == 0 && pool.MaxNodes == 0 {
				pool.MinNodes = int(as.MinNodeCount)
				pool.MaxNodes = int(as.MaxNodeCount)
			}
		}
		info.NodePools = append(info.NodePools, pool)
	}

	return info, nil
}

func (g *GKEInventory) UpdateAutoscalingBounds(ctx context.Context, region, pool string, min, max int) error {
	req := &container.SetNodePoolAutoscalingRequest{
		Autoscaling: &container.NodePoolAutoscaling{
			Enabled:           true,
			TotalMinNodeCount: int64(min),
			TotalMaxNodeCount: int64(max),
			// zero bounds are meaningful and must not be dropped by omitempty
			ForceSendFields: []string{"TotalMinNodeCount", "TotalMaxNodeCount"},
		},
	}

	logger.WithRegion(region).Infof("Setting autoscaling of pool %s to min=%d, max=%d", pool, min, max)

	op, err := g.ops.setAutoscaling(ctx, g.poolPath(region, pool), req)
	if err != nil {
		return wrapAPIError(err)
	}
	return g.wait(ctx, region, op)
}

func (g *GKEInventory) Resize(ctx context.Context, region, pool string, nodes int) error {
	req := &container.SetNodePoolSizeRequest{
		NodeCount:       int64(nodes),
		ForceSendFields: []string{"NodeCount"},
	}

	logger.WithRegion(region).Infof("Resizing pool %s to %d nodes", pool, nodes)

	op, err := g.ops.setSize(ctx, g.poolPath(region, pool), req)
	if err != nil {
		return wrapAPIError(err)
	}
	return g.wait(ctx, region, op)
}

// wait polls the long-running operation until it is done or ctx expires.
func (g *GKEInventory) wait(ctx context.Context, region string, op *container.Operation) error {
	if op == nil {
		return nil
	}

	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for {
		switch op.Status {
		case operationDone:
			if op.Error != nil && op.Error.Code != 0 {
				return fmt.Errorf("%w: %s", ErrOperationFailed, op.Error.Message)
			}
			return nil
		case operationPending, operationRunning, "":
		default:
			return fmt.Errorf("%w: unexpected operation status %q", ErrOperationFailed, op.Status)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for operation %s: %w", op.Name, ctx.Err())
		case <-ticker.C:
		}

		next, err := g.ops.getOperation(ctx, g.operationPath(region, op.Name))
		if err != nil {
			return wrapAPIError(err)
		}
		op = next
	}
}

func wrapAPIError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrClusterNotFound, apiErr.Message)
	}
	return err
}
