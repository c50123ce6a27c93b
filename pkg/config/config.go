package config

import (
	"fmt"
	"time"

	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Regions    RegionsConfig    `mapstructure:"regions"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Loop       LoopConfig       `mapstructure:"loop"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Cluster    ClusterConfig    `mapstructure:"cluster"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Database   DatabaseConfig   `mapstructure:"database"`
	API        APIConfig        `mapstructure:"api"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Events     EventsConfig     `mapstructure:"events"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type RegionsConfig struct {
	ProjectID string   `mapstructure:"project_id"`
	Hot       []string `mapstructure:"hot"`
	Cold      []string `mapstructure:"cold"`
}

type ThresholdsConfig struct {
	Upper        UpperThresholdConfig `mapstructure:"upper"`
	Lower        LowerThresholdConfig `mapstructure:"lower"`
	ScaleUpNodes int                  `mapstructure:"scale_up_nodes"`
}

type UpperThresholdConfig struct {
	AsiaRequests     int64   `mapstructure:"asia_requests"`
	AsiaPercentage   float64 `mapstructure:"asia_percentage"`
	MinTotalRequests int64   `mapstructure:"min_total_requests"`
	LatencyMs        float64 `mapstructure:"latency_ms"`
}

type LowerThresholdConfig struct {
	AsiaRequests   int64   `mapstructure:"asia_requests"`
	AsiaPercentage float64 `mapstructure:"asia_percentage"`
	LatencyMs      float64 `mapstructure:"latency_ms"`
}

func (t ThresholdsConfig) ToModel() models.ScalingThresholds {
	return models.ScalingThresholds{
		Upper: models.UpperThresholds{
			AsiaRequests:     t.Upper.AsiaRequests,
			AsiaPercentage:   t.Upper.AsiaPercentage,
			MinTotalRequests: t.Upper.MinTotalRequests,
			LatencyMs:        t.Upper.LatencyMs,
		},
		Lower: models.LowerThresholds{
			AsiaRequests:   t.Lower.AsiaRequests,
			AsiaPercentage: t.Lower.AsiaPercentage,
			LatencyMs:      t.Lower.LatencyMs,
		},
		ScaleUpNodes: t.ScaleUpNodes,
	}
}

type ClassifierConfig struct {
	// Countries overrides the built-in table, keyed by region.
	Countries map[string][]string `mapstructure:"countries"`
}

type LoopConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	Schedule     string        `mapstructure:"schedule"`
	CycleTimeout time.Duration `mapstructure:"cycle_timeout"`
	AutoStart    bool          `mapstructure:"auto_start"`
}

type TelemetryConfig struct {
	Provider        string                    `mapstructure:"provider"`
	LatencyProvider string                    `mapstructure:"latency_provider"`
	Endpoint        string                    `mapstructure:"endpoint"`
	Timeout         time.Duration             `mapstructure:"timeout"`
	RetryAttempts   int                       `mapstructure:"retry_attempts"`
	RetryDelay      time.Duration             `mapstructure:"retry_delay"`
	CircuitBreaker  CircuitBreakerConfig      `mapstructure:"circuit_breaker"`
	Prometheus      PrometheusTelemetryConfig `mapstructure:"prometheus"`
	Cache           CacheConfig               `mapstructure:"cache"`
}

type CircuitBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type PrometheusTelemetryConfig struct {
	Address      string `mapstructure:"address"`
	LatencyQuery string `mapstructure:"latency_query"`
	LatencyLabel string `mapstructure:"latency_label"`
	TrafficQuery string `mapstructure:"traffic_query"`
	TrafficLabel string `mapstructure:"traffic_label"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Backend string        `mapstructure:"backend"`
	MaxAge  time.Duration `mapstructure:"max_age"`
}

type ClusterConfig struct {
	Provider        string        `mapstructure:"provider"`
	NamePattern     string        `mapstructure:"name_pattern"`
	PoolMarker      string        `mapstructure:"pool_marker"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	Endpoint        string        `mapstructure:"endpoint"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	DescribeTimeout time.Duration `mapstructure:"describe_timeout"`
	UpdateTimeout   time.Duration `mapstructure:"update_timeout"`
	ResizeTimeout   time.Duration `mapstructure:"resize_timeout"`
	MaxConcurrency  int           `mapstructure:"max_concurrency"`
	ProvisionDelay  time.Duration `mapstructure:"provision_delay"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type DatabaseConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	Name             string        `mapstructure:"name"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	MaxConnections   int           `mapstructure:"max_connections"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime  time.Duration `mapstructure:"conn_max_idle_time"`
	PingTimeout      time.Duration `mapstructure:"ping_timeout"`
	MigrationTimeout time.Duration `mapstructure:"migration_timeout"`
}

func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, sslMode,
	)
}

type APIConfig struct {
	Port          int           `mapstructure:"port"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	RateLimit     int           `mapstructure:"rate_limit"`
	JWTSecret     string        `mapstructure:"jwt_secret"`
	JWTDuration   time.Duration `mapstructure:"jwt_duration"`
	JWTIssuer     string        `mapstructure:"jwt_issuer"`
	AdminUser     string        `mapstructure:"admin_user"`
	AdminPassword string        `mapstructure:"admin_password"`
	RunTimeout    time.Duration `mapstructure:"run_timeout"`
	DefaultLimit  int           `mapstructure:"default_limit"`
	MaxLimit      int           `mapstructure:"max_limit"`
	CORS          CORSConfig    `mapstructure:"cors"`
}

type WebSocketConfig struct {
	MaxConnections  int           `mapstructure:"max_connections"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	BroadcastBuffer int           `mapstructure:"broadcast_buffer"`
	ClientBuffer    int           `mapstructure:"client_buffer"`
}

type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}
