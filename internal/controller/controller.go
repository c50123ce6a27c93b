package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/OldStager01/cold-autoscaler/internal/inventory"
	"github.com/OldStager01/cold-autoscaler/internal/logger"
	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

var (
	ErrClusterUnreachable = errors.New("cluster unreachable")
	ErrClusterNotRunning  = errors.New("cluster not running")
	ErrNoNodePool         = errors.New("no node pool found")
	ErrResizeFailed       = errors.New("resize call failed")
)

const (
	OpDescribe     = "describe"
	OpUpdateBounds = "update_bounds"
	OpResize       = "resize"
)

// Observer receives one notification per inventory call.
type Observer interface {
	ObserveAPICall(op string, d time.Duration, err error)
}

type Config struct {
	DescribeTimeout time.Duration
	UpdateTimeout   time.Duration
	ResizeTimeout   time.Duration
	PoolMarker      string
	MaxConcurrency  int
	Observer        Observer
}

// Controller drives a scaling decision onto the cold regions' clusters. It
// keeps no state between calls; every Apply starts from a fresh Describe.
type Controller struct {
	config Config
}

func New(cfg Config) *Controller {
	if cfg.DescribeTimeout <= 0 {
		cfg.DescribeTimeout = 30 * time.Second
	}
	if cfg.UpdateTimeout <= 0 {
		cfg.UpdateTimeout = 180 * time.Second
	}
	if cfg.ResizeTimeout <= 0 {
		cfg.ResizeTimeout = 300 * time.Second
	}
	if cfg.PoolMarker == "" {
		cfg.PoolMarker = "cold"
	}
	cfg.PoolMarker = strings.ToLower(cfg.PoolMarker)

	return &Controller{config: cfg}
}

// Apply brings every target region of the decision to the bounds
// {0, TargetNodeCount}. Regions are processed concurrently and results are
// returned in the decision's region order. Failures are reported per region
// and never returned as an error.
func (c *Controller) Apply(ctx context.Context, decision models.ScaleDecision, inv inventory.Inventory) []models.ClusterActionResult {
	results := make([]models.ClusterActionResult, len(decision.TargetRegions))
	if len(results) == 0 {
		return results
	}

	// a stop request must not abort a resize half-way; per-call timeouts
	// still bound every request
	actionCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	if c.config.MaxConcurrency > 0 {
		g.SetLimit(c.config.MaxConcurrency)
	}

	target := models.Bounds{Min: 0, Max: decision.TargetNodeCount}
	for i, region := range decision.TargetRegions {
		g.Go(func() error {
			results[i] = c.applyRegion(actionCtx, region, target, inv)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (c *Controller) applyRegion(ctx context.Context, region string, target models.Bounds, inv inventory.Inventory) models.ClusterActionResult {
	log := logger.WithRegion(region)
	result := models.ClusterActionResult{
		Region:       region,
		TargetBounds: target,
	}

	info, err := c.describe(ctx, region, inv)
	if err != nil {
		log.WithError(err).Warn("Cluster could not be described")
		return failed(result, err)
	}
	result.Cluster = info.Name

	pool, err := c.selectPool(info)
	if err != nil {
		log.WithError(err).Warn("No node pool to scale")
		return failed(result, err)
	}
	result.NodePool = pool.Name

	current := pool.Bounds()
	result.PreviousBounds = &current

	if current == target {
		result.Status = models.ActionNoChange
		result.Message = fmt.Sprintf("Node pool %s already at %s", pool.Name, target)
		log.Debug(result.Message)
		return result
	}

	if err := c.call(ctx, OpUpdateBounds, c.config.UpdateTimeout, func(ctx context.Context) error {
		return inv.UpdateAutoscalingBounds(ctx, region, pool.Name, target.Min, target.Max)
	}); err != nil {
		log.WithError(err).Errorf("Failed to update bounds of pool %s", pool.Name)
		return failed(result, fmt.Errorf("%w: %w", ErrResizeFailed, err))
	}

	// raising the ceiling alone does not start nodes in a pool scaled to zero
	if current.Max == 0 && target.Max > 0 {
		if err := c.call(ctx, OpResize, c.config.ResizeTimeout, func(ctx context.Context) error {
			return inv.Resize(ctx, region, pool.Name, 1)
		}); err != nil {
			log.WithError(err).Errorf("Bounds updated but pool %s could not be woken", pool.Name)
			result.Message = fmt.Sprintf("Bounds updated to %s but wake-up resize failed", target)
			return failed(result, fmt.Errorf("%w: %w", ErrResizeFailed, err))
		}
		result.Woken = true
	}

	result.Status = models.ActionUpdated
	result.Message = fmt.Sprintf("Node pool %s updated from %s to %s", pool.Name, current, target)
	if result.Woken {
		result.Message += ", resized to 1 node"
	}
	log.Info(result.Message)

	return result
}

func (c *Controller) describe(ctx context.Context, region string, inv inventory.Inventory) (*models.ClusterInfo, error) {
	var info *models.ClusterInfo
	err := c.call(ctx, OpDescribe, c.config.DescribeTimeout, func(ctx context.Context) error {
		var err error
		info, err = inv.Describe(ctx, region)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClusterUnreachable, err)
	}
	if !info.IsRunning() {
		return info, fmt.Errorf("%w: %s is %s", ErrClusterNotRunning, info.Name, info.Status)
	}
	return info, nil
}

// selectPool prefers a pool named after the cold marker or the region and
// falls back to the first pool.
func (c *Controller) selectPool(info *models.ClusterInfo) (models.NodePool, error) {
	if len(info.NodePools) == 0 {
		return models.NodePool{}, fmt.Errorf("%w in cluster %s", ErrNoNodePool, info.Name)
	}

	region := strings.ToLower(info.Region)
	for _, pool := range info.NodePools {
		name := strings.ToLower(pool.Name)
		if strings.Contains(name, c.config.PoolMarker) || (region != "" && strings.Contains(name, region)) {
			return pool, nil
		}
	}
	return info.NodePools[0], nil
}

func (c *Controller) call(ctx context.Context, op string, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	if c.config.Observer != nil {
		c.config.Observer.ObserveAPICall(op, time.Since(start), err)
	}
	return err
}

func failed(result models.ClusterActionResult, err error) models.ClusterActionResult {
	result.Status = models.ActionError
	result.Error = err.Error()
	if result.Message == "" {
		result.Message = err.Error()
	}
	return result
}
