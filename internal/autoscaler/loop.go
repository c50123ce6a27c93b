package autoscaler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/OldStager01/cold-autoscaler/internal/classifier"
	"github.com/OldStager01/cold-autoscaler/internal/controller"
	"github.com/OldStager01/cold-autoscaler/internal/events"
	"github.com/OldStager01/cold-autoscaler/internal/inventory"
	"github.com/OldStager01/cold-autoscaler/internal/logger"
	"github.com/OldStager01/cold-autoscaler/internal/metrics"
	"github.com/OldStager01/cold-autoscaler/internal/policy"
	"github.com/OldStager01/cold-autoscaler/internal/telemetry"
	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

var (
	ErrInvalidConfig = errors.New("invalid autoscaler configuration")
	// ErrStopping is returned by Start while Stop is still waiting for the
	// last iteration.
	ErrStopping = errors.New("autoscaler loop is stopping")
	// ErrDecisionUnavailable marks a cycle skipped because the decision
	// source failed.
	ErrDecisionUnavailable = errors.New("decision unavailable")
)

type Status string

const (
	StatusStopped  Status = "stopped"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
)

// Schedule selects how the next iteration is timed.
type Schedule string

const (
	// ScheduleFixedRate starts iterations interval apart; ticks that fall
	// inside a running iteration are dropped.
	ScheduleFixedRate Schedule = "fixed_rate"
	// ScheduleAfterCompletion waits interval after an iteration ends.
	ScheduleAfterCompletion Schedule = "after_completion"
)

type Config struct {
	Interval     time.Duration
	Schedule     Schedule
	CycleTimeout time.Duration
	ColdRegions  []string
	ScaleUpNodes int

	Source     telemetry.Source
	Classifier *classifier.Classifier
	Decider    policy.DecisionSource
	Controller *controller.Controller
	Inventory  inventory.Inventory
	Publisher  *events.Publisher
	Metrics    *metrics.Metrics
}

// Loop runs the autoscaler iteration on a schedule and on demand.
type Loop struct {
	config Config

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	status  Status
	mu      sync.Mutex
	last    *models.CycleResult
	lastMu  sync.RWMutex
	started time.Time
}

func New(cfg Config) (*Loop, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = 300 * time.Second
	}
	if cfg.Schedule == "" {
		cfg.Schedule = ScheduleFixedRate
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = cfg.Interval
	}
	if cfg.ScaleUpNodes <= 0 {
		cfg.ScaleUpNodes = 1
	}
	if cfg.Classifier == nil {
		cfg.Classifier = classifier.New(nil)
	}
	if cfg.Controller == nil {
		cfg.Controller = controller.New(controller.Config{})
	}

	switch {
	case cfg.Source == nil:
		return nil, errors.Join(ErrInvalidConfig, errors.New("telemetry source is required"))
	case cfg.Decider == nil:
		return nil, errors.Join(ErrInvalidConfig, errors.New("decision source is required"))
	case cfg.Inventory == nil:
		return nil, errors.Join(ErrInvalidConfig, errors.New("cluster inventory is required"))
	case cfg.Schedule != ScheduleFixedRate && cfg.Schedule != ScheduleAfterCompletion:
		return nil, errors.Join(ErrInvalidConfig, errors.New("unknown schedule "+string(cfg.Schedule)))
	}
	cfg.ColdRegions = policy.NormalizeRegions(cfg.ColdRegions)

	return &Loop{
		config: cfg,
		status: StatusStopped,
	}, nil
}

// Start launches the scheduled loop. The first iteration runs immediately.
// Starting a running loop is a no-op; starting a stopping loop fails with
// ErrStopping.
func (l *Loop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.status {
	case StatusRunning:
		return nil
	case StatusStopping:
		return ErrStopping
	}

	l.ctx, l.cancel = context.WithCancel(context.Background())
	l.status = StatusRunning
	l.started = time.Now()
	l.wg.Add(1)
	go l.run(l.ctx)

	if l.config.Metrics != nil {
		l.config.Metrics.SetLoopRunning(true)
	}
	l.config.Publisher.LoopStarted(l.config.Interval.String())
	logger.WithFields(map[string]interface{}{
		"interval": l.config.Interval.String(),
		"schedule": l.config.Schedule,
	}).Info("Autoscaler loop started")
	return nil
}

// Stop cancels the schedule and waits for the in-flight iteration. Cluster
// actions already issued by that iteration run to completion.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.status != StatusRunning {
		l.mu.Unlock()
		return
	}
	l.status = StatusStopping
	cancel := l.cancel
	l.mu.Unlock()

	cancel()
	l.wg.Wait()

	l.mu.Lock()
	l.status = StatusStopped
	l.mu.Unlock()

	if l.config.Metrics != nil {
		l.config.Metrics.SetLoopRunning(false)
	}
	l.config.Publisher.LoopStopped()
	logger.Info("Autoscaler loop stopped")
}

func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

func (l *Loop) IsRunning() bool {
	return l.Status() == StatusRunning
}

// StartedAt returns when the loop was last started.
func (l *Loop) StartedAt() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started
}

func (l *Loop) Interval() time.Duration {
	return l.config.Interval
}

func (l *Loop) Schedule() Schedule {
	return l.config.Schedule
}

func (l *Loop) run(ctx context.Context) {
	defer l.wg.Done()

	if l.config.Schedule == ScheduleAfterCompletion {
		l.runAfterCompletion(ctx)
		return
	}

	ticker := time.NewTicker(l.config.Interval)
	defer ticker.Stop()

	l.scheduledCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.scheduledCycle(ctx)
		}
	}
}

func (l *Loop) runAfterCompletion(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			l.scheduledCycle(ctx)
			timer.Reset(l.config.Interval)
		}
	}
}

func (l *Loop) scheduledCycle(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, l.config.CycleTimeout)
	defer cancel()

	if _, err := l.RunOnce(ctx, Trigger{Action: policy.ActionAuto}); err != nil {
		logger.Errorf("Scheduled iteration failed: %v", err)
	}
}
