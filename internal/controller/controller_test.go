package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/cold-autoscaler/internal/inventory"
	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

const region = "asia-southeast1"

func scaleTo(nodes int, regions ...string) models.ScaleDecision {
	if len(regions) == 0 {
		regions = []string{region}
	}
	return models.ScaleDecision{ShouldScale: true, TargetRegions: regions, TargetNodeCount: nodes}
}

func newSim(pools ...models.NodePool) *inventory.SimulatorInventory {
	sim := inventory.NewSimulatorInventory(inventory.SimulatorConfig{})
	if len(pools) == 0 {
		pools = []models.NodePool{{Name: "cold-pool"}}
	}
	sim.AddCluster(models.ClusterInfo{
		Name:      "uporto-cd-gke-" + region,
		Region:    region,
		Status:    models.ClusterStatusRunning,
		NodePools: pools,
	})
	return sim
}

func TestApply_WakeProtocolOrder(t *testing.T) {
	sim := newSim()
	ctrl := New(Config{})

	results := ctrl.Apply(context.Background(), scaleTo(2), sim)

	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, models.ActionUpdated, r.Status)
	assert.True(t, r.Woken)
	assert.Equal(t, &models.Bounds{Min: 0, Max: 0}, r.PreviousBounds)
	assert.Equal(t, models.Bounds{Min: 0, Max: 2}, r.TargetBounds)
	assert.Equal(t, "cold-pool", r.NodePool)

	calls := sim.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, inventory.OpDescribe, calls[0].Op)
	assert.Equal(t, inventory.OpUpdateBounds, calls[1].Op)
	assert.Equal(t, 2, calls[1].Max)
	assert.Equal(t, inventory.OpResize, calls[2].Op)
	assert.Equal(t, 1, calls[2].Nodes)
}

func TestApply_Idempotent(t *testing.T) {
	sim := newSim()
	ctrl := New(Config{})
	ctx := context.Background()

	first := ctrl.Apply(ctx, scaleTo(1), sim)
	require.Equal(t, models.ActionUpdated, first[0].Status)

	sim.ResetCalls()
	second := ctrl.Apply(ctx, scaleTo(1), sim)

	assert.Equal(t, models.ActionNoChange, second[0].Status)
	assert.Equal(t, 1, sim.CallCount(inventory.OpDescribe))
	assert.Equal(t, 0, sim.CallCount(inventory.OpUpdateBounds))
	assert.Equal(t, 0, sim.CallCount(inventory.OpResize))
}

func TestApply_ScaleDownHasNoResize(t *testing.T) {
	sim := newSim(models.NodePool{Name: "cold-pool", MaxNodes: 1, NodeCount: 1})

	results := New(Config{}).Apply(context.Background(), scaleTo(0), sim)

	assert.Equal(t, models.ActionUpdated, results[0].Status)
	assert.False(t, results[0].Woken)
	assert.Equal(t, 1, sim.CallCount(inventory.OpUpdateBounds))
	assert.Equal(t, 0, sim.CallCount(inventory.OpResize))
}

func TestApply_RaisingNonZeroCeilingDoesNotResize(t *testing.T) {
	sim := newSim(models.NodePool{Name: "cold-pool", MaxNodes: 1, NodeCount: 1})

	results := New(Config{}).Apply(context.Background(), scaleTo(3), sim)

	assert.Equal(t, models.ActionUpdated, results[0].Status)
	assert.Equal(t, 0, sim.CallCount(inventory.OpResize))
}

func TestApply_PoolSelection(t *testing.T) {
	tests := []struct {
		name     string
		pools    []models.NodePool
		expected string
	}{
		{
			name:     "prefers cold marker",
			pools:    []models.NodePool{{Name: "default-pool"}, {Name: "Cold-Workers"}},
			expected: "Cold-Workers",
		},
		{
			name:     "matches region name",
			pools:    []models.NodePool{{Name: "default-pool"}, {Name: "pool-asia-southeast1"}},
			expected: "pool-asia-southeast1",
		},
		{
			name:     "falls back to first pool",
			pools:    []models.NodePool{{Name: "default-pool"}, {Name: "gpu"}},
			expected: "default-pool",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := newSim(tt.pools...)

			results := New(Config{}).Apply(context.Background(), scaleTo(1), sim)

			assert.Equal(t, tt.expected, results[0].NodePool)
			assert.Equal(t, models.ActionUpdated, results[0].Status)
		})
	}
}

func TestApply_ErrorResults(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(sim *inventory.SimulatorInventory)
		pools      []models.NodePool
		errSubstr  string
		noMutation bool
	}{
		{
			name: "describe fails",
			setup: func(sim *inventory.SimulatorInventory) {
				sim.SetFailure(inventory.OpDescribe, region, errors.New("403 forbidden"))
			},
			errSubstr:  "cluster unreachable: 403 forbidden",
			noMutation: true,
		},
		{
			name: "cluster not running",
			setup: func(sim *inventory.SimulatorInventory) {
				sim.SetStatus(region, models.ClusterStatusReconciling)
			},
			errSubstr:  "cluster not running",
			noMutation: true,
		},
		{
			name:       "no node pools",
			pools:      []models.NodePool{},
			errSubstr:  "no node pool found",
			noMutation: true,
		},
		{
			name: "update fails verbatim",
			setup: func(sim *inventory.SimulatorInventory) {
				sim.SetFailure(inventory.OpUpdateBounds, region, errors.New("googleapi: Error 429: quota"))
			},
			errSubstr: "googleapi: Error 429: quota",
		},
		{
			name: "wake resize fails",
			setup: func(sim *inventory.SimulatorInventory) {
				sim.SetFailure(inventory.OpResize, region, errors.New("zone exhausted"))
			},
			errSubstr: "zone exhausted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := inventory.NewSimulatorInventory(inventory.SimulatorConfig{})
			pools := tt.pools
			if pools == nil {
				pools = []models.NodePool{{Name: "cold-pool"}}
			}
			sim.AddCluster(models.ClusterInfo{Name: "c", Region: region, NodePools: pools})
			if tt.setup != nil {
				tt.setup(sim)
			}

			results := New(Config{}).Apply(context.Background(), scaleTo(1), sim)

			require.Len(t, results, 1)
			assert.Equal(t, models.ActionError, results[0].Status)
			assert.Contains(t, results[0].Error, tt.errSubstr)
			if tt.noMutation {
				assert.Equal(t, 0, sim.CallCount(inventory.OpUpdateBounds))
			}
		})
	}
}

func TestApply_FailuresDoNotBlockOtherRegions(t *testing.T) {
	sim := inventory.NewSimulatorInventory(inventory.SimulatorConfig{})
	sim.SeedColdRegions("p", "", []string{"asia-east1", "asia-southeast1", "australia-southeast1"})
	sim.SetFailure(inventory.OpDescribe, "asia-southeast1", errors.New("unreachable"))

	results := New(Config{}).Apply(context.Background(),
		scaleTo(1, "asia-east1", "asia-southeast1", "australia-southeast1"), sim)

	require.Len(t, results, 3)
	assert.Equal(t, "asia-east1", results[0].Region)
	assert.Equal(t, models.ActionUpdated, results[0].Status)
	assert.Equal(t, "asia-southeast1", results[1].Region)
	assert.Equal(t, models.ActionError, results[1].Status)
	assert.Equal(t, "australia-southeast1", results[2].Region)
	assert.Equal(t, models.ActionUpdated, results[2].Status)
}

func TestApply_TimeoutIsAnErrorResult(t *testing.T) {
	sim := inventory.NewSimulatorInventory(inventory.SimulatorConfig{OpLatency: 200 * time.Millisecond})
	sim.SeedColdRegions("p", "", []string{region})

	results := New(Config{DescribeTimeout: 10 * time.Millisecond}).Apply(context.Background(), scaleTo(1), sim)

	assert.Equal(t, models.ActionError, results[0].Status)
	assert.Contains(t, results[0].Error, context.DeadlineExceeded.Error())
}

func TestApply_CancelledContextStillFinishes(t *testing.T) {
	sim := newSim()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := New(Config{}).Apply(ctx, scaleTo(1), sim)

	assert.Equal(t, models.ActionUpdated, results[0].Status)
}

func TestApply_EmptyTargets(t *testing.T) {
	sim := newSim()

	results := New(Config{}).Apply(context.Background(), models.ScaleDecision{}, sim)

	assert.Empty(t, results)
	assert.Empty(t, sim.Calls())
}

type recordingObserver struct {
	mu  sync.Mutex
	ops []string
}

func (r *recordingObserver) ObserveAPICall(op string, _ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

func TestApply_ObserverSeesEveryCall(t *testing.T) {
	obs := &recordingObserver{}
	sim := newSim()

	New(Config{Observer: obs}).Apply(context.Background(), scaleTo(1), sim)

	assert.Equal(t, []string{OpDescribe, OpUpdateBounds, OpResize}, obs.ops)
}
