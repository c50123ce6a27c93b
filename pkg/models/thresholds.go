package models

import (
	"errors"
	"fmt"
)

// UpperThresholds must be reached for the cold region to be woken.
type UpperThresholds struct {
	AsiaRequests     int64   `json:"asia_requests"`
	AsiaPercentage   float64 `json:"asia_percentage"`
	MinTotalRequests int64   `json:"min_total_requests"`
	LatencyMs        float64 `json:"latency_ms"`
}

// LowerThresholds must all be undercut for the cold region to be released.
type LowerThresholds struct {
	AsiaRequests   int64   `json:"asia_requests"`
	AsiaPercentage float64 `json:"asia_percentage"`
	LatencyMs      float64 `json:"latency_ms"`
}

type ScalingThresholds struct {
	Upper        UpperThresholds `json:"upper"`
	Lower        LowerThresholds `json:"lower"`
	ScaleUpNodes int             `json:"scale_up_nodes"`
}

func DefaultThresholds() ScalingThresholds {
	return ScalingThresholds{
		Upper: UpperThresholds{
			AsiaRequests:     50,
			AsiaPercentage:   10.0,
			MinTotalRequests: 300,
			LatencyMs:        500,
		},
		Lower: LowerThresholds{
			AsiaRequests:   50,
			AsiaPercentage: 2.0,
			LatencyMs:      200,
		},
		ScaleUpNodes: 1,
	}
}

func (t ScalingThresholds) Validate() error {
	var errs []error

	if t.Upper.AsiaRequests < 0 {
		errs = append(errs, errors.New("upper asia requests threshold must not be negative"))
	}
	if t.Upper.AsiaPercentage < 0 || t.Upper.AsiaPercentage > 100 {
		errs = append(errs, errors.New("upper asia percentage threshold must be between 0 and 100"))
	}
	if t.Upper.MinTotalRequests < 0 {
		errs = append(errs, errors.New("upper min total requests threshold must not be negative"))
	}
	if t.Upper.LatencyMs < 0 {
		errs = append(errs, errors.New("upper latency threshold must not be negative"))
	}
	if t.Lower.AsiaRequests < 0 {
		errs = append(errs, errors.New("lower asia requests threshold must not be negative"))
	}
	if t.Lower.AsiaPercentage < 0 || t.Lower.AsiaPercentage > 100 {
		errs = append(errs, errors.New("lower asia percentage threshold must be between 0 and 100"))
	}
	if t.Lower.LatencyMs < 0 {
		errs = append(errs, errors.New("lower latency threshold must not be negative"))
	}
	if t.ScaleUpNodes <= 0 {
		errs = append(errs, fmt.Errorf("scale up node count must be positive, got %d", t.ScaleUpNodes))
	}

	return errors.Join(errs...)
}
