package inventory

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	container "google.golang.org/api/container/v1"
	"google.golang.org/api/googleapi"

	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

type fakeGKE struct {
	mu          sync.Mutex
	cluster     *container.Cluster
	getErr      error
	pending     int
	opError     *container.Status
	calls       []string
	autoscaling *container.SetNodePoolAutoscalingRequest
	size        *container.SetNodePoolSizeRequest
}

func (f *fakeGKE) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeGKE) getCluster(_ context.Context, name string) (*container.Cluster, error) {
	f.record("get " + name)
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.cluster, nil
}

func (f *fakeGKE) getOperation(_ context.Context, name string) (*container.Operation, error) {
	f.record("op " + name)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending > 0 {
		f.pending--
		return &container.Operation{Name: "op-1", Status: operationRunning}, nil
	}
	return &container.Operation{Name: "op-1", Status: operationDone, Error: f.opError}, nil
}

func (f *fakeGKE) setAutoscaling(_ context.Context, pool string, req *container.SetNodePoolAutoscalingRequest) (*container.Operation, error) {
	f.record("autoscaling " + pool)
	f.autoscaling = req
	return &container.Operation{Name: "op-1", Status: operationPending}, nil
}

func (f *fakeGKE) setSize(_ context.Context, pool string, req *container.SetNodePoolSizeRequest) (*container.Operation, error) {
	f.record("size " + pool)
	f.size = req
	return &container.Operation{Name: "op-1", Status: operationPending}, nil
}

func newTestGKE(f *fakeGKE) *GKEInventory {
	return newGKEInventory(GKEConfig{ProjectID: "uporto-cd", PollInterval: time.Millisecond}, f)
}

func TestGKE_Describe(t *testing.T) {
	f := &fakeGKE{cluster: &container.Cluster{
		Name:   "uporto-cd-gke-asia-southeast1",
		Status: "RUNNING",
		NodePools: []*container.NodePool{
			{Name: "default-pool"},
			{Name: "cold-pool", Autoscaling: &container.NodePoolAutoscaling{Enabled: true, TotalMaxNodeCount: 2}},
			{Name: "legacy", Autoscaling: &container.NodePoolAutoscaling{Enabled: true, MinNodeCount: 1, MaxNodeCount: 3}},
		},
	}}
	inv := newTestGKE(f)

	info, err := inv.Describe(context.Background(), "asia-southeast1")

	require.NoError(t, err)
	assert.Equal(t, models.ClusterStatusRunning, info.Status)
	assert.Equal(t, "asia-southeast1", info.Region)
	require.Len(t, info.NodePools, 3)
	assert.Equal(t, models.Bounds{}, info.NodePools[0].Bounds())
	assert.Equal(t, models.Bounds{Min: 0, Max: 2}, info.NodePools[1].Bounds())
	assert.Equal(t, models.Bounds{Min: 1, Max: 3}, info.NodePools[2].Bounds())
	assert.Equal(t, []string{"get projects/uporto-cd/locations/asia-southeast1/clusters/uporto-cd-gke-asia-southeast1"}, f.calls)
}

func TestGKE_DescribeNotFound(t *testing.T) {
	f := &fakeGKE{getErr: &googleapi.Error{Code: http.StatusNotFound, Message: "cluster missing"}}

	_, err := newTestGKE(f).Describe(context.Background(), "asia-southeast1")

	assert.ErrorIs(t, err, ErrClusterNotFound)
}

func TestGKE_UpdateBoundsWaitsForOperation(t *testing.T) {
	f := &fakeGKE{pending: 2}

	err := newTestGKE(f).UpdateAutoscalingBounds(context.Background(), "asia-southeast1", "cold-pool", 0, 1)

	require.NoError(t, err)
	require.NotNil(t, f.autoscaling)
	assert.True(t, f.autoscaling.Autoscaling.Enabled)
	assert.Equal(t, int64(0), f.autoscaling.Autoscaling.TotalMinNodeCount)
	assert.Equal(t, int64(1), f.autoscaling.Autoscaling.TotalMaxNodeCount)
	assert.Contains(t, f.autoscaling.Autoscaling.ForceSendFields, "TotalMinNodeCount")
	assert.Len(t, f.calls, 4)
	assert.Equal(t, "op projects/uporto-cd/locations/asia-southeast1/operations/op-1", f.calls[1])
}

func TestGKE_ResizeSurfacesOperationError(t *testing.T) {
	f := &fakeGKE{opError: &container.Status{Code: 8, Message: "quota exceeded"}}

	err := newTestGKE(f).Resize(context.Background(), "asia-southeast1", "cold-pool", 1)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOperationFailed)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, int64(1), f.size.NodeCount)
}

func TestGKE_WaitHonoursDeadline(t *testing.T) {
	f := &fakeGKE{pending: 1 << 30}
	inv := newGKEInventory(GKEConfig{ProjectID: "p", PollInterval: 5 * time.Millisecond}, f)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := inv.Resize(ctx, "asia-southeast1", "cold-pool", 1)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestNewGKEInventory_RequiresProject(t *testing.T) {
	_, err := NewGKEInventory(context.Background(), GKEConfig{})
	assert.Error(t, err)
}
