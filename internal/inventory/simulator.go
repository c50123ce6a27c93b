package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/OldStager01/cold-autoscaler/internal/logger"
	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

type Op string

const (
	OpDescribe     Op = "describe"
	OpUpdateBounds Op = "update_bounds"
	OpResize       Op = "resize"
)

// Call records one request made against the simulator.
type Call struct {
	Op     Op
	Region string
	Pool   string
	Min    int
	Max    int
	Nodes  int
	At     time.Time
}

type SimulatorCallbacks struct {
	OnBoundsUpdated func(region, pool string, from, to models.Bounds)
	OnResized       func(region, pool string, nodes int)
}

type SimulatorConfig struct {
	// ProvisionDelay is how long a resize takes to show up in NodeCount.
	ProvisionDelay time.Duration
	// OpLatency is added to every call and honours context deadlines.
	OpLatency time.Duration
	Callbacks SimulatorCallbacks
}

type failureKey struct {
	op     Op
	region string
}

// SimulatorInventory keeps regional clusters in memory.
type SimulatorInventory struct {
	clusters       map[string]*models.ClusterInfo
	failures       map[failureKey]error
	calls          []Call
	provisionDelay time.Duration
	opLatency      time.Duration
	callbacks      SimulatorCallbacks
	mu             sync.Mutex
}

func NewSimulatorInventory(cfg SimulatorConfig) *SimulatorInventory {
	return &SimulatorInventory{
		clusters:       make(map[string]*models.ClusterInfo),
		failures:       make(map[failureKey]error),
		provisionDelay: cfg.ProvisionDelay,
		opLatency:      cfg.OpLatency,
		callbacks:      cfg.Callbacks,
	}
}

// AddCluster registers or replaces the cluster serving info.Region.
func (s *SimulatorInventory) AddCluster(info models.ClusterInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := copyCluster(&info)
	if c.Status == "" {
		c.Status = models.ClusterStatusRunning
	}
	s.clusters[info.Region] = c

	logger.WithRegion(info.Region).Infof("Simulated cluster %s registered with %d node pools", info.Name, len(info.NodePools))
}

// SeedColdRegions registers a scaled-to-zero cluster with a single cold pool
// for every region.
func (s *SimulatorInventory) SeedColdRegions(project, pattern string, regions []string) {
	for _, region := range regions {
		s.AddCluster(models.ClusterInfo{
			Name:   ClusterName(pattern, project, region),
			Region: region,
			Status: models.ClusterStatusRunning,
			NodePools: []models.NodePool{
				{Name: "cold-pool"},
			},
		})
	}
}

func (s *SimulatorInventory) SetStatus(region string, status models.ClusterStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clusters[region]; ok {
		c.Status = status
	}
}

// SetFailure makes every op call for region fail with err until cleared.
func (s *SimulatorInventory) SetFailure(op Op, region string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[failureKey{op: op, region: region}] = err
}

func (s *SimulatorInventory) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[failureKey]error)
}

func (s *SimulatorInventory) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *SimulatorInventory) CallCount(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for _, c := range s.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (s *SimulatorInventory) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *SimulatorInventory) Describe(ctx context.Context, region string) (*models.ClusterInfo, error) {
	if err := s.begin(ctx, Call{Op: OpDescribe, Region: region}); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clusters[region]
	if !ok {
		return nil, fmt.Errorf("%w: region %s", ErrClusterNotFound, region)
	}
	return copyCluster(c), nil
}

func (s *SimulatorInventory) UpdateAutoscalingBounds(ctx context.Context, region, pool string, min, max int) error {
	if err := s.begin(ctx, Call{Op: OpUpdateBounds, Region: region, Pool: pool, Min: min, Max: max}); err != nil {
		return err
	}

	s.mu.Lock()
	np, err := s.pool(region, pool)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	from := np.Bounds()
	np.MinNodes = min
	np.MaxNodes = max
	if np.NodeCount > max {
		np.NodeCount = max
	}
	s.mu.Unlock()

	logger.WithRegion(region).Infof("Simulated pool %s bounds %s -> %s", pool, from, models.Bounds{Min: min, Max: max})

	if s.callbacks.OnBoundsUpdated != nil {
		s.callbacks.OnBoundsUpdated(region, pool, from, models.Bounds{Min: min, Max: max})
	}
	return nil
}

func (s *SimulatorInventory) Resize(ctx context.Context, region, pool string, nodes int) error {
	if err := s.begin(ctx, Call{Op: OpResize, Region: region, Pool: pool, Nodes: nodes}); err != nil {
		return err
	}

	s.mu.Lock()
	if _, err := s.pool(region, pool); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	if s.provisionDelay > 0 {
		go s.simulateProvisioning(region, pool, nodes)
	} else {
		s.setNodeCount(region, pool, nodes)
	}
	return nil
}

func (s *SimulatorInventory) simulateProvisioning(region, pool string, nodes int) {
	time.Sleep(s.provisionDelay)
	s.setNodeCount(region, pool, nodes)
}

func (s *SimulatorInventory) setNodeCount(region, pool string, nodes int) {
	s.mu.Lock()
	np, err := s.pool(region, pool)
	if err != nil {
		s.mu.Unlock()
		logger.WithRegion(region).Errorf("Failed to provision pool %s: %v", pool, err)
		return
	}
	np.NodeCount = nodes
	s.mu.Unlock()

	logger.WithRegion(region).Infof("Simulated pool %s now has %d nodes", pool, nodes)

	if s.callbacks.OnResized != nil {
		s.callbacks.OnResized(region, pool, nodes)
	}
}

// begin logs the call, applies the simulated latency and returns any
// injected failure.
func (s *SimulatorInventory) begin(ctx context.Context, call Call) error {
	call.At = time.Now()

	s.mu.Lock()
	s.calls = append(s.calls, call)
	injected := s.failures[failureKey{op: call.Op, region: call.Region}]
	s.mu.Unlock()

	if s.opLatency > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.opLatency):
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	return injected
}

// pool must be called with s.mu held.
func (s *SimulatorInventory) pool(region, name string) (*models.NodePool, error) {
	c, ok := s.clusters[region]
	if !ok {
		return nil, fmt.Errorf("%w: region %s", ErrClusterNotFound, region)
	}
	for i := range c.NodePools {
		if c.NodePools[i].Name == name {
			return &c.NodePools[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrPoolNotFound, name, c.Name)
}

func copyCluster(c *models.ClusterInfo) *models.ClusterInfo {
	out := *c
	out.NodePools = make([]models.NodePool, len(c.NodePools))
	copy(out.NodePools, c.NodePools)
	return &out
}
