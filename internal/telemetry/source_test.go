package telemetry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/cold-autoscaler/internal/resilience"
	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

type flakySource struct {
	failures int32
	calls    int32
	err      error
}

func (f *flakySource) FetchTraffic(context.Context) (models.TrafficSnapshot, error) {
	if atomic.AddInt32(&f.calls, 1) <= f.failures {
		return models.TrafficSnapshot{}, f.err
	}
	return DefaultMockTraffic(), nil
}

func (f *flakySource) FetchLatency(context.Context) (models.LatencySnapshot, error) {
	if atomic.AddInt32(&f.calls, 1) <= f.failures {
		return models.LatencySnapshot{}, f.err
	}
	return models.LatencySnapshot{HotRegionsAvgLatencyMs: 42}, nil
}

func TestMockSource(t *testing.T) {
	src := NewMockSource()
	ctx := context.Background()

	traffic, err := src.FetchTraffic(ctx)
	require.NoError(t, err)
	assert.Len(t, traffic.Origins, 6)

	latency, err := src.FetchLatency(ctx)
	require.NoError(t, err)
	assert.Equal(t, 150.0, latency.HotRegionsAvgLatencyMs)

	src.SetErrors(errors.New("down"), nil)
	_, err = src.FetchTraffic(ctx)
	assert.ErrorIs(t, err, ErrTelemetryUnavailable)
}

func TestMockSource_ReturnsIndependentCopies(t *testing.T) {
	src := NewMockSource()

	first, _ := src.FetchTraffic(context.Background())
	first.Origins["singapore"] = models.OriginTraffic{Requests: 9999}

	second, _ := src.FetchTraffic(context.Background())
	assert.Equal(t, int64(60), second.Origins["singapore"].Requests)
}

func TestCombined(t *testing.T) {
	traffic := NewMockSource()
	latency := NewMockSource()
	latency.SetLatency(550)

	src := Combined{Traffic: traffic, Latency: latency}

	l, err := src.FetchLatency(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 550.0, l.HotRegionsAvgLatencyMs)
}

func TestResilientSource_RetriesThenSucceeds(t *testing.T) {
	inner := &flakySource{failures: 2, err: errors.New("timeout")}
	src := NewResilientSource(ResilientSourceConfig{
		Source:        inner,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	})

	snapshot, err := src.FetchTraffic(context.Background())

	require.NoError(t, err)
	assert.Len(t, snapshot.Origins, 6)
	assert.Equal(t, int32(3), atomic.LoadInt32(&inner.calls))
}

func TestResilientSource_OpensBreaker(t *testing.T) {
	inner := &flakySource{failures: 1000, err: errors.New("down")}
	src := NewResilientSource(ResilientSourceConfig{
		Source:        inner,
		MaxFailures:   2,
		Timeout:       time.Hour,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := src.FetchLatency(ctx)
		assert.ErrorIs(t, err, ErrTelemetryUnavailable)
	}

	_, err := src.FetchLatency(ctx)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.ErrorIs(t, err, ErrTelemetryUnavailable)
	assert.Equal(t, int32(2), atomic.LoadInt32(&inner.calls))
	assert.Equal(t, resilience.StateOpen, src.CircuitStates()["telemetry_latency"])
	assert.Equal(t, resilience.StateClosed, src.CircuitStates()["telemetry_traffic"])
}

func TestCachedSource_FallsBackToRecentSnapshot(t *testing.T) {
	inner := NewMockSource()
	src := NewCachedSource(inner, NewMemoryStore(), time.Minute)
	ctx := context.Background()

	_, err := src.FetchTraffic(ctx)
	require.NoError(t, err)
	_, err = src.FetchLatency(ctx)
	require.NoError(t, err)

	inner.SetErrors(errors.New("down"), errors.New("down"))

	traffic, err := src.FetchTraffic(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cache", traffic.Source)
	assert.Equal(t, int64(60), traffic.Origins["singapore"].Requests)

	latency, err := src.FetchLatency(ctx)
	require.NoError(t, err)
	assert.Equal(t, 150.0, latency.HotRegionsAvgLatencyMs)
}

func TestCachedSource_NoSnapshotPropagatesError(t *testing.T) {
	inner := NewMockSource()
	inner.SetErrors(errors.New("down"), errors.New("down"))
	src := NewCachedSource(inner, NewMemoryStore(), time.Minute)

	_, err := src.FetchTraffic(context.Background())

	assert.ErrorIs(t, err, ErrTelemetryUnavailable)
}

func TestCachedSource_StaleSnapshotIsRejected(t *testing.T) {
	store := NewMemoryStore()
	old := DefaultMockTraffic()
	old.CapturedAt = time.Now().Add(-time.Hour)
	src := NewCachedSource(NewMockSource(), store, time.Minute)
	src.save(context.Background(), trafficKey, old)

	inner := NewMockSource()
	inner.SetErrors(errors.New("down"), nil)
	src.source = inner

	_, err := src.FetchTraffic(context.Background())

	assert.ErrorIs(t, err, ErrTelemetryUnavailable)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "k", []byte("v"), 10*time.Millisecond))
	v, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	time.Sleep(20 * time.Millisecond)
	_, err = store.Load(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
