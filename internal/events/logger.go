package events

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/OldStager01/cold-autoscaler/internal/logger"
	"github.com/OldStager01/cold-autoscaler/internal/resilience"
	"github.com/OldStager01/cold-autoscaler/pkg/models"
	"github.com/sirupsen/logrus"
)

const (
	defaultSaveTimeout  = 5 * time.Second
	defaultSaveAttempts = 3
	defaultSaveDelay    = 200 * time.Millisecond
)

// CycleRecorder persists completed cycles.
type CycleRecorder interface {
	SaveCycle(ctx context.Context, cycle *models.CycleResult) error
}

// EventLogger writes one log line per bus event and hands completed cycles to
// the recorder.
type EventLogger struct {
	recorder  CycleRecorder
	eventChan <-chan *models.Event
	retry     resilience.RetryConfig
	timeout   time.Duration

	persisted atomic.Int64
	failed    atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEventLogger logs every event it receives. recorder may be nil when no
// database is configured.
func NewEventLogger(recorder CycleRecorder, eventChan <-chan *models.Event) *EventLogger {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventLogger{
		recorder:  recorder,
		eventChan: eventChan,
		retry: resilience.RetryConfig{
			Attempts: defaultSaveAttempts,
			Delay:    defaultSaveDelay,
		},
		timeout: defaultSaveTimeout,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

func (l *EventLogger) Start() {
	go l.run()
}

// Stop flushes whatever is already buffered, then returns.
func (l *EventLogger) Stop() {
	l.cancel()
	<-l.done
}

// Persisted and Failed count cycle saves since start.
func (l *EventLogger) Persisted() int64 { return l.persisted.Load() }
func (l *EventLogger) Failed() int64    { return l.failed.Load() }

func (l *EventLogger) run() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			l.drain()
			return
		case event, ok := <-l.eventChan:
			if !ok {
				return
			}
			l.processEvent(event)
		}
	}
}

func (l *EventLogger) drain() {
	for {
		select {
		case event, ok := <-l.eventChan:
			if !ok {
				return
			}
			l.processEvent(event)
		default:
			return
		}
	}
}

func (l *EventLogger) processEvent(event *models.Event) {
	entry := eventEntry(event)

	switch {
	case event.Severity.AtLeast(models.SeverityCritical):
		entry.Error(event.Message)
	case event.Severity.AtLeast(models.SeverityWarning):
		entry.Warn(event.Message)
	default:
		if event.Type == models.EventTypeCycleComplete || event.Type == models.EventTypeDecisionMade {
			entry.Info(event.Message)
		} else {
			entry.Debug(event.Message)
		}
	}

	if event.Type == models.EventTypeCycleComplete {
		l.persistCycle(event)
	}
}

func eventEntry(event *models.Event) *logrus.Entry {
	fields := map[string]interface{}{
		"event_type": event.Type,
		"severity":   event.Severity,
	}
	if event.Region != "" {
		fields["region"] = event.Region
	}
	if event.CycleID != "" {
		fields["cycle_id"] = event.CycleID
	}
	if event.TraceID != "" {
		fields["trace_id"] = event.TraceID
	}
	if cycle, ok := event.Data.(*models.CycleResult); ok {
		fields["succeeded"] = cycle.Succeeded
		fields["failed"] = cycle.Failed
		fields["unchanged"] = cycle.Unchanged
	}
	return logger.WithFields(fields)
}

// persistCycle runs on a fresh context so a stopping logger still records
// the cycles it drains.
func (l *EventLogger) persistCycle(event *models.Event) {
	if l.recorder == nil {
		return
	}
	cycle, ok := event.Data.(*models.CycleResult)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	retry := l.retry
	retry.OnRetry = func(attempt int, err error) {
		logger.WithCycle(cycle.ID).Warnf("Persisting cycle failed (attempt %d): %v", attempt, err)
	}

	err := resilience.Retry(ctx, retry, func(ctx context.Context) error {
		return l.recorder.SaveCycle(ctx, cycle)
	})
	if err != nil {
		l.failed.Add(1)
		logger.WithCycle(cycle.ID).Errorf("Failed to persist cycle: %v", err)
		return
	}
	l.persisted.Add(1)
}
