package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/OldStager01/cold-autoscaler/internal/autoscaler"
	"github.com/OldStager01/cold-autoscaler/internal/classifier"
	"github.com/OldStager01/cold-autoscaler/internal/controller"
	"github.com/OldStager01/cold-autoscaler/internal/events"
	"github.com/OldStager01/cold-autoscaler/internal/inventory"
	"github.com/OldStager01/cold-autoscaler/internal/logger"
	"github.com/OldStager01/cold-autoscaler/internal/metrics"
	"github.com/OldStager01/cold-autoscaler/internal/policy"
	"github.com/OldStager01/cold-autoscaler/internal/telemetry"
	"github.com/OldStager01/cold-autoscaler/pkg/config"
	"github.com/OldStager01/cold-autoscaler/pkg/database"
	"github.com/OldStager01/cold-autoscaler/pkg/database/queries"
	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

// Orchestrator owns the long-lived components: the event bus, the event
// logger, the telemetry pipeline, the cluster inventory and the loop.
type Orchestrator struct {
	config      *config.Config
	db          *database.DB
	eventBus    *events.EventBus
	eventLogger *events.EventLogger
	pipeline    *Pipeline
	inventory   inventory.Inventory
	loop        *autoscaler.Loop
	metrics     *metrics.Metrics
	stopOnce    sync.Once
}

// Options lets callers substitute collaborators, mostly for tests.
type Options struct {
	Metrics   *metrics.Metrics
	Inventory inventory.Inventory
	Source    telemetry.Source
}

// New wires every component from configuration. db may be nil.
func New(ctx context.Context, cfg *config.Config, db *database.DB, opts Options) (*Orchestrator, error) {
	m := opts.Metrics
	if m == nil {
		m = metrics.Get()
	}

	eventBus := events.NewEventBus(cfg.Events.BufferSize)

	var recorder events.CycleRecorder
	if db != nil {
		recorder = queries.NewDecisionRepository(db.DB)
	}
	eventLogger := events.NewEventLogger(recorder, eventBus.SubscribeAll())

	cls := classifier.New(classifier.NewCountryTable(cfg.Classifier.Countries))

	pipeline, err := NewPipeline(cfg, cls, m, opts.Source)
	if err != nil {
		eventBus.Close()
		return nil, fmt.Errorf("failed to build telemetry pipeline: %w", err)
	}

	inv := opts.Inventory
	if inv == nil {
		inv, err = newInventory(ctx, cfg)
		if err != nil {
			pipeline.Close()
			eventBus.Close()
			return nil, fmt.Errorf("failed to build cluster inventory: %w", err)
		}
	}

	ctrl := controller.New(controller.Config{
		DescribeTimeout: cfg.Cluster.DescribeTimeout,
		UpdateTimeout:   cfg.Cluster.UpdateTimeout,
		ResizeTimeout:   cfg.Cluster.ResizeTimeout,
		PoolMarker:      cfg.Cluster.PoolMarker,
		MaxConcurrency:  cfg.Cluster.MaxConcurrency,
		Observer:        m,
	})

	loop, err := autoscaler.New(autoscaler.Config{
		Interval:     cfg.Loop.Interval,
		Schedule:     autoscaler.Schedule(cfg.Loop.Schedule),
		CycleTimeout: cfg.Loop.CycleTimeout,
		ColdRegions:  cfg.Regions.Cold,
		ScaleUpNodes: cfg.Thresholds.ScaleUpNodes,
		Source:       pipeline,
		Classifier:   cls,
		Decider:      policy.NewThresholdSource(cfg.Thresholds.ToModel(), cfg.Regions.Cold),
		Controller:   ctrl,
		Inventory:    inv,
		Publisher:    events.NewPublisher(eventBus),
		Metrics:      m,
	})
	if err != nil {
		pipeline.Close()
		eventBus.Close()
		return nil, err
	}

	return &Orchestrator{
		config:      cfg,
		db:          db,
		eventBus:    eventBus,
		eventLogger: eventLogger,
		pipeline:    pipeline,
		inventory:   inv,
		loop:        loop,
		metrics:     m,
	}, nil
}

func newInventory(ctx context.Context, cfg *config.Config) (inventory.Inventory, error) {
	switch cfg.Cluster.Provider {
	case "gke":
		return inventory.NewGKEInventory(ctx, inventory.GKEConfig{
			ProjectID:       cfg.Regions.ProjectID,
			NamePattern:     cfg.Cluster.NamePattern,
			CredentialsFile: cfg.Cluster.CredentialsFile,
			Endpoint:        cfg.Cluster.Endpoint,
			PollInterval:    cfg.Cluster.PollInterval,
		})
	case "simulator", "":
		sim := inventory.NewSimulatorInventory(inventory.SimulatorConfig{
			ProvisionDelay: cfg.Cluster.ProvisionDelay,
			Callbacks: inventory.SimulatorCallbacks{
				OnBoundsUpdated: func(region, pool string, from, to models.Bounds) {
					logger.WithRegion(region).Infof("Simulated pool %s bounds %s -> %s", pool, from, to)
				},
				OnResized: func(region, pool string, nodes int) {
					logger.WithRegion(region).Infof("Simulated pool %s now has %d nodes", pool, nodes)
				},
			},
		})
		sim.SeedColdRegions(cfg.Regions.ProjectID, cfg.Cluster.NamePattern, cfg.Regions.Cold)
		return sim, nil
	default:
		return nil, fmt.Errorf("unknown cluster provider %q", cfg.Cluster.Provider)
	}
}

// Start begins event logging and, when configured, the scheduled loop.
func (o *Orchestrator) Start() error {
	logger.Info("Orchestrator starting")
	o.eventLogger.Start()

	if o.config.Loop.AutoStart {
		return o.loop.Start()
	}
	return nil
}

func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		logger.Info("Orchestrator stopping")

		o.loop.Stop()
		o.eventLogger.Stop()
		o.eventBus.Close()
		o.pipeline.Close()

		logger.Info("Orchestrator stopped")
	})
}

func (o *Orchestrator) Loop() *autoscaler.Loop {
	return o.loop
}

func (o *Orchestrator) Pipeline() *Pipeline {
	return o.pipeline
}

func (o *Orchestrator) Inventory() inventory.Inventory {
	return o.inventory
}

func (o *Orchestrator) Metrics() *metrics.Metrics {
	return o.metrics
}

func (o *Orchestrator) Thresholds() models.ScalingThresholds {
	return o.config.Thresholds.ToModel()
}

func (o *Orchestrator) SubscribeEvents(eventType models.EventType) <-chan *models.Event {
	return o.eventBus.Subscribe(eventType)
}

func (o *Orchestrator) SubscribeAllEvents() <-chan *models.Event {
	return o.eventBus.SubscribeAll()
}

func newRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
