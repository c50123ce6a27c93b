package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// legacyEnv binds the unprefixed variable names used by existing
// deployments. Prefixed AUTOSCALER_* names still win when both are set.
var legacyEnv = map[string]string{
	"regions.project_id":                  "PROJECT_ID",
	"regions.hot":                         "HOT_REGIONS",
	"regions.cold":                        "COLD_REGIONS",
	"thresholds.upper.asia_requests":      "ASIA_REQUESTS_THRESHOLD_UPPER",
	"thresholds.upper.asia_percentage":    "ASIA_REQUESTS_PERCENTAGE_THRESHOLD_UPPER",
	"thresholds.upper.min_total_requests": "MIN_TOTAL_REQUESTS_UPPER",
	"thresholds.upper.latency_ms":         "LATENCY_THRESHOLD_UPPER_MS",
	"thresholds.lower.asia_requests":      "ASIA_REQUESTS_THRESHOLD_LOWER",
	"thresholds.lower.asia_percentage":    "ASIA_REQUESTS_PERCENTAGE_THRESHOLD_LOWER",
	"thresholds.lower.latency_ms":         "LATENCY_THRESHOLD_LOWER_MS",
}

const envPrefix = "AUTOSCALER"

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/cold-autoscaler")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", legacy, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Regions.Hot = splitList(cfg.Regions.Hot)
	cfg.Regions.Cold = splitList(cfg.Regions.Cold)
	cfg.Regions.ProjectID = strings.TrimSpace(cfg.Regions.ProjectID)

	return &cfg, nil
}

// splitList trims entries and drops empty ones. A single comma separated
// entry, as produced by some env loaders, is split as well.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "cold-autoscaler")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "30s")

	v.SetDefault("regions.project_id", "uporto-cd")
	v.SetDefault("regions.hot", []string{"europe-west2", "us-south1"})
	v.SetDefault("regions.cold", []string{"asia-southeast1"})

	v.SetDefault("thresholds.upper.asia_requests", 50)
	v.SetDefault("thresholds.upper.asia_percentage", 10.0)
	v.SetDefault("thresholds.upper.min_total_requests", 300)
	v.SetDefault("thresholds.upper.latency_ms", 500.0)
	v.SetDefault("thresholds.lower.asia_requests", 50)
	v.SetDefault("thresholds.lower.asia_percentage", 2.0)
	v.SetDefault("thresholds.lower.latency_ms", 200.0)
	v.SetDefault("thresholds.scale_up_nodes", 1)

	v.SetDefault("loop.interval", "300s")
	v.SetDefault("loop.schedule", "fixed_rate")
	v.SetDefault("loop.cycle_timeout", "290s")
	v.SetDefault("loop.auto_start", true)

	v.SetDefault("telemetry.provider", "mock")
	v.SetDefault("telemetry.endpoint", "http://localhost:9000")
	v.SetDefault("telemetry.timeout", "10s")
	v.SetDefault("telemetry.retry_attempts", 3)
	v.SetDefault("telemetry.retry_delay", "2s")
	v.SetDefault("telemetry.circuit_breaker.max_failures", 5)
	v.SetDefault("telemetry.circuit_breaker.timeout", "60s")
	v.SetDefault("telemetry.prometheus.address", "http://localhost:9090")
	v.SetDefault("telemetry.cache.enabled", false)
	v.SetDefault("telemetry.cache.backend", "memory")
	v.SetDefault("telemetry.cache.max_age", "10m")

	v.SetDefault("cluster.provider", "simulator")
	v.SetDefault("cluster.name_pattern", "{project}-gke-{region}")
	v.SetDefault("cluster.pool_marker", "cold")
	v.SetDefault("cluster.poll_interval", "5s")
	v.SetDefault("cluster.describe_timeout", "30s")
	v.SetDefault("cluster.update_timeout", "180s")
	v.SetDefault("cluster.resize_timeout", "300s")
	v.SetDefault("cluster.max_concurrency", 4)
	v.SetDefault("cluster.provision_delay", "5s")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "cold-autoscaler:telemetry")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "autoscaler")
	v.SetDefault("database.user", "admin")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.migration_timeout", "60s")

	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "15m")
	v.SetDefault("api.idle_timeout", "60s")
	v.SetDefault("api.rate_limit", 100)
	v.SetDefault("api.jwt_secret", "change-me-in-production")
	v.SetDefault("api.jwt_duration", "24h")
	v.SetDefault("api.jwt_issuer", "cold-autoscaler")
	v.SetDefault("api.admin_user", "admin")
	v.SetDefault("api.run_timeout", "10m")
	v.SetDefault("api.default_limit", 20)
	v.SetDefault("api.max_limit", 100)
	v.SetDefault("api.cors.allowed_origins", []string{"*"})
	v.SetDefault("api.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("api.cors.allowed_headers", []string{"Authorization", "Content-Type", "X-Trace-ID"})

	v.SetDefault("websocket.max_connections", 100)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.pong_timeout", "60s")
	v.SetDefault("websocket.max_message_size", 512)
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.broadcast_buffer", 256)
	v.SetDefault("websocket.client_buffer", 256)

	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.port", 9091)

	v.SetDefault("events.buffer_size", 100)
}
