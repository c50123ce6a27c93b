package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

var (
	ErrTelemetryUnavailable = errors.New("telemetry unavailable")
	ErrInvalidResponse      = errors.New("invalid response from telemetry source")
)

// TrafficSource yields the per-origin request counts of the last window.
// An empty snapshot is a valid answer; failures must be returned as errors.
type TrafficSource interface {
	FetchTraffic(ctx context.Context) (models.TrafficSnapshot, error)
}

// LatencySource yields the latency observed on the hot regions.
type LatencySource interface {
	FetchLatency(ctx context.Context) (models.LatencySnapshot, error)
}

type Source interface {
	TrafficSource
	LatencySource
}

// Combined takes traffic from one source and latency from another.
type Combined struct {
	Traffic TrafficSource
	Latency LatencySource
}

func (c Combined) FetchTraffic(ctx context.Context) (models.TrafficSnapshot, error) {
	return c.Traffic.FetchTraffic(ctx)
}

func (c Combined) FetchLatency(ctx context.Context) (models.LatencySnapshot, error) {
	return c.Latency.FetchLatency(ctx)
}

func validateTraffic(s models.TrafficSnapshot) error {
	for origin, t := range s.Origins {
		if t.Requests < 0 {
			return fmt.Errorf("%w: negative request count %d for %q", ErrInvalidResponse, t.Requests, origin)
		}
	}
	return nil
}

func validateLatency(s models.LatencySnapshot) error {
	if s.HotRegionsAvgLatencyMs < 0 {
		return fmt.Errorf("%w: negative latency %.1f", ErrInvalidResponse, s.HotRegionsAvgLatencyMs)
	}
	return nil
}

func unavailable(signal string, err error) error {
	if errors.Is(err, ErrTelemetryUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrTelemetryUnavailable, signal, err)
}
