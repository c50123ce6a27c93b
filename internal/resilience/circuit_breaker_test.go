package resilience_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/cold-autoscaler/internal/resilience"
)

func TestCircuitBreaker_Execute(t *testing.T) {
	tests := []struct {
		name          string
		config        resilience.CircuitBreakerConfig
		execFunc      func() error
		expectedErr   error
		expectedState resilience.State
	}{
		{
			name: "successful execution stays closed",
			config: resilience.CircuitBreakerConfig{
				MaxFailures: 3,
				Timeout:     5 * time.Second,
			},
			execFunc:      func() error { return nil },
			expectedErr:   nil,
			expectedState: resilience.StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := resilience.NewCircuitBreaker(tt.config)

			err := cb.Execute(tt.execFunc)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedState, cb.State())
		})
	}
}

func TestCircuitBreaker_StateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		config        resilience.CircuitBreakerConfig
		setup         func(cb *resilience.CircuitBreaker)
		expectedState resilience.State
	}{
		{
			name: "transition to open after max failures",
			config: resilience.CircuitBreakerConfig{
				MaxFailures: 3,
				Timeout:     5 * time.Second,
			},
			setup: func(cb *resilience.CircuitBreaker) {
				for i := 0; i < 3; i++ {
					cb.Execute(func() error { return errors.New("fail") })
				}
			},
			expectedState: resilience.StateOpen,
		},
		{
			name: "transition to half-open after timeout",
			config: resilience.CircuitBreakerConfig{
				MaxFailures: 3,
				Timeout:     50 * time.Millisecond,
			},
			setup: func(cb *resilience.CircuitBreaker) {
				for i := 0; i < 3; i++ {
					cb.Execute(func() error { return errors.New("fail") })
				}
				time.Sleep(100 * time.Millisecond)
				cb.Execute(func() error { return nil })
			},
			expectedState: resilience.StateHalfOpen,
		},
		{
			name: "transition from half-open to closed on success",
			config: resilience.CircuitBreakerConfig{
				MaxFailures: 3,
				Timeout:     50 * time.Millisecond,
				HalfOpenMax: 2,
			},
			setup: func(cb *resilience.CircuitBreaker) {
				for i := 0; i < 3; i++ {
					cb.Execute(func() error { return errors.New("fail") })
				}
				time.Sleep(100 * time.Millisecond)
				for i := 0; i < 3; i++ {
					cb.Execute(func() error { return nil })
				}
			},
			expectedState: resilience.StateClosed,
		},
		{
			name: "reset returns to closed",
			config: resilience.CircuitBreakerConfig{
				MaxFailures: 3,
				Timeout:     1 * time.Hour,
			},
			setup: func(cb *resilience.CircuitBreaker) {
				for i := 0; i < 3; i++ {
					cb.Execute(func() error { return errors.New("fail") })
				}
				cb.Reset()
			},
			expectedState: resilience.StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := resilience.NewCircuitBreaker(tt.config)

			tt.setup(cb)

			assert.Equal(t, tt.expectedState, cb.State())
		})
	}
}

func TestCircuitBreaker_OpenState_RejectsRequest(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures: 3,
		Timeout:     1 * time.Hour,
	})

	for i := 0; i < 3; i++ {
		cb.Execute(func() error { return errors.New("fail") })
	}

	err := cb.Execute(func() error { return nil })

	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}

func TestCircuitBreaker_CancelledCallsDoNotTrip(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures: 1,
		Timeout:     1 * time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	err := cb.ExecuteContext(ctx, func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, resilience.StateClosed, cb.State())
}

func TestCircuitBreaker_DoneContextIsNotExecuted(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := cb.ExecuteContext(ctx, func(context.Context) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	changes := make(chan resilience.State, 1)
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "telemetry",
		MaxFailures: 1,
		Timeout:     1 * time.Hour,
		OnStateChange: func(name string, from, to resilience.State) {
			assert.Equal(t, "telemetry", name)
			changes <- to
		},
	})

	_ = cb.Execute(func() error { return errors.New("fail") })

	select {
	case to := <-changes:
		assert.Equal(t, resilience.StateOpen, to)
	case <-time.After(time.Second):
		t.Fatal("state change callback not invoked")
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestCircuitBreaker_HalfOpenLimitsTrialCalls(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "telemetry_latency",
		MaxFailures: 1,
		Timeout:     time.Minute,
		HalfOpenMax: 1,
		Clock:       clock.now,
	})

	_ = cb.Execute(func() error { return errors.New("prometheus down") })
	require.Equal(t, resilience.StateOpen, cb.State())
	assert.Equal(t, time.Minute, cb.RetryAfter())

	err := cb.Execute(func() error { return nil })
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Contains(t, err.Error(), "telemetry_latency")

	clock.advance(time.Minute)
	assert.Zero(t, cb.RetryAfter())

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Execute(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	assert.Equal(t, resilience.StateHalfOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return nil }), resilience.ErrCircuitOpen)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, resilience.StateClosed, cb.State())
}

func TestCircuitBreaker_FailedTrialReopens(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures: 2,
		Timeout:     time.Minute,
		Clock:       clock.now,
	})

	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errors.New("fail") })
	}
	clock.advance(2 * time.Minute)
	_ = cb.Execute(func() error { return errors.New("still failing") })

	snap := cb.Snapshot()
	assert.Equal(t, resilience.StateOpen, snap.State)
	assert.Equal(t, clock.t, snap.OpenedAt)
	assert.Equal(t, time.Minute, cb.RetryAfter())
}

func TestRetry(t *testing.T) {
	tests := []struct {
		name          string
		attempts      int
		failuresFirst int
		expectErr     bool
		expectCalls   int32
	}{
		{name: "first attempt succeeds", attempts: 3, failuresFirst: 0, expectCalls: 1},
		{name: "succeeds after retries", attempts: 3, failuresFirst: 2, expectCalls: 3},
		{name: "exhausts attempts", attempts: 2, failuresFirst: 5, expectErr: true, expectCalls: 2},
		{name: "zero attempts means one", attempts: 0, failuresFirst: 5, expectErr: true, expectCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			var retried int32
			err := resilience.Retry(context.Background(), resilience.RetryConfig{
				Attempts: tt.attempts,
				Delay:    time.Millisecond,
				OnRetry:  func(int, error) { atomic.AddInt32(&retried, 1) },
			}, func(context.Context) error {
				if int(atomic.AddInt32(&calls, 1)) <= tt.failuresFirst {
					return errors.New("boom")
				}
				return nil
			})

			if tt.expectErr {
				require.Error(t, err)
				assert.Equal(t, "boom", err.Error())
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.expectCalls, atomic.LoadInt32(&calls))
			assert.Equal(t, tt.expectCalls-1, atomic.LoadInt32(&retried))
		})
	}
}

func TestRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32

	err := resilience.Retry(ctx, resilience.RetryConfig{Attempts: 10, Delay: time.Hour}, func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		cancel()
		return errors.New("unreachable")
	})

	assert.EqualError(t, err, "unreachable")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
