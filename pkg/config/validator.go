package config

import (
	"errors"
	"fmt"

	"github.com/OldStager01/cold-autoscaler/pkg/validation"
)

var ErrInvalidConfig = errors.New("config validation failed")

var (
	validModes        = map[string]bool{"development": true, "production": true, "test": true}
	validLogLevels    = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validSchedules    = map[string]bool{"fixed_rate": true, "after_completion": true}
	validTelemetry    = map[string]bool{"mock": true, "http": true, "prometheus": true}
	validClusters     = map[string]bool{"simulator": true, "gke": true}
	validCacheBackend = map[string]bool{"memory": true, "redis": true}
)

// Validate reports every problem at once. Any error is fatal at startup.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}
	if !validModes[c.App.Mode] {
		errs = append(errs, errors.New("app.mode must be one of: development, production, test"))
	}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, errors.New("app.log_level must be one of: debug, info, warn, error"))
	}

	errs = append(errs, c.validateRegions()...)

	if err := c.Thresholds.ToModel().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("thresholds: %w", err))
	}

	// Loop
	if c.Loop.Interval <= 0 {
		errs = append(errs, errors.New("loop.interval must be positive"))
	}
	if c.Loop.CycleTimeout <= 0 {
		errs = append(errs, errors.New("loop.cycle_timeout must be positive"))
	}
	if !validSchedules[c.Loop.Schedule] {
		errs = append(errs, fmt.Errorf("loop.schedule must be fixed_rate or after_completion, got %q", c.Loop.Schedule))
	}

	errs = append(errs, c.validateTelemetry()...)
	errs = append(errs, c.validateCluster()...)

	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, errors.New("database.host is required"))
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, errors.New("database.port must be between 1 and 65535"))
		}
		if c.Database.Name == "" {
			errs = append(errs, errors.New("database.name is required"))
		}
		if c.Database.MaxConnections <= 0 {
			errs = append(errs, errors.New("database.max_connections must be positive"))
		}
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}
	if c.API.RateLimit <= 0 {
		errs = append(errs, errors.New("api.rate_limit must be positive"))
	}
	if c.App.Mode == "production" && c.API.JWTSecret == "change-me-in-production" {
		errs = append(errs, errors.New("api.jwt_secret must be changed in production"))
	}
	if c.Prometheus.Enabled && (c.Prometheus.Port <= 0 || c.Prometheus.Port > 65535) {
		errs = append(errs, errors.New("prometheus.port must be between 1 and 65535"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}

	return nil
}

func (c *Config) validateRegions() []error {
	var errs []error

	if c.Cluster.Provider == "gke" {
		if err := validation.ValidateProjectID(c.Regions.ProjectID); err != nil {
			errs = append(errs, fmt.Errorf("regions.project_id: %w", err))
		}
	} else if c.Regions.ProjectID == "" {
		errs = append(errs, errors.New("regions.project_id is required"))
	}

	if err := validation.ValidateRegionList("regions.hot", c.Regions.Hot); err != nil {
		errs = append(errs, err)
	}
	if err := validation.ValidateRegionList("regions.cold", c.Regions.Cold); err != nil {
		errs = append(errs, err)
	}

	hot := make(map[string]bool, len(c.Regions.Hot))
	for _, r := range c.Regions.Hot {
		hot[r] = true
	}
	for _, r := range c.Regions.Cold {
		if hot[r] {
			errs = append(errs, fmt.Errorf("region %q cannot be both hot and cold", r))
		}
	}

	return errs
}

func (c *Config) validateTelemetry() []error {
	var errs []error
	t := c.Telemetry

	if !validTelemetry[t.Provider] {
		errs = append(errs, fmt.Errorf("telemetry.provider must be one of: mock, http, prometheus, got %q", t.Provider))
	}
	if t.LatencyProvider != "" && !validTelemetry[t.LatencyProvider] {
		errs = append(errs, fmt.Errorf("telemetry.latency_provider must be one of: mock, http, prometheus, got %q", t.LatencyProvider))
	}
	if (t.Provider == "http" || t.LatencyProvider == "http") && t.Endpoint == "" {
		errs = append(errs, errors.New("telemetry.endpoint is required for the http provider"))
	}
	if (t.Provider == "prometheus" || t.LatencyProvider == "prometheus") && t.Prometheus.Address == "" {
		errs = append(errs, errors.New("telemetry.prometheus.address is required for the prometheus provider"))
	}
	if t.Timeout <= 0 {
		errs = append(errs, errors.New("telemetry.timeout must be positive"))
	}
	if t.RetryAttempts < 0 {
		errs = append(errs, errors.New("telemetry.retry_attempts must not be negative"))
	}
	if t.Cache.Enabled {
		if !validCacheBackend[t.Cache.Backend] {
			errs = append(errs, fmt.Errorf("telemetry.cache.backend must be memory or redis, got %q", t.Cache.Backend))
		}
		if t.Cache.MaxAge <= 0 {
			errs = append(errs, errors.New("telemetry.cache.max_age must be positive"))
		}
		if t.Cache.Backend == "redis" && c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required for the redis cache backend"))
		}
	}

	return errs
}

func (c *Config) validateCluster() []error {
	var errs []error
	cl := c.Cluster

	if !validClusters[cl.Provider] {
		errs = append(errs, fmt.Errorf("cluster.provider must be simulator or gke, got %q", cl.Provider))
	}
	if cl.DescribeTimeout <= 0 {
		errs = append(errs, errors.New("cluster.describe_timeout must be positive"))
	}
	if cl.UpdateTimeout <= 0 {
		errs = append(errs, errors.New("cluster.update_timeout must be positive"))
	}
	if cl.ResizeTimeout <= 0 {
		errs = append(errs, errors.New("cluster.resize_timeout must be positive"))
	}
	if cl.MaxConcurrency < 0 {
		errs = append(errs, errors.New("cluster.max_concurrency must not be negative"))
	}

	return errs
}
