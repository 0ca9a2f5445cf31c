package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/samirrijal/fleetroute/internal/core/domain"
	"github.com/samirrijal/fleetroute/internal/pkg/geospatial"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Log       LogConfig       `mapstructure:"log"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// RoutingConfig configures the route resolution engine.
type RoutingConfig struct {
	Bounds                domain.GeoBounds  `mapstructure:"bounds"`
	Waypoints             []domain.Waypoint `mapstructure:"waypoints"`
	SynthesisThresholdDeg float64           `mapstructure:"synthesis_threshold_deg"`
	PrimaryAxis           string            `mapstructure:"primary_axis"`
	Primary               PrimaryConfig     `mapstructure:"primary"`
	Secondary             SecondaryConfig   `mapstructure:"secondary"`
	AvgSpeedKmh           float64           `mapstructure:"avg_speed_kmh"`
	RatePerKm             float64           `mapstructure:"rate_per_km"`
	Currency              string            `mapstructure:"currency"`
}

// PrimaryConfig is the external OSRM-compatible routing service. An empty BaseURL disables it.
type PrimaryConfig struct {
	BaseURL         string  `mapstructure:"base_url"`
	Profile         string  `mapstructure:"profile"`
	TimeoutMs       int     `mapstructure:"timeout_ms"`
	RateLimitPerSec float64 `mapstructure:"rate_limit_per_sec"`
}

func (p PrimaryConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// SecondaryConfig is the internal directions service. An empty BaseURL disables it.
type SecondaryConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
}

func (s SecondaryConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// resolveMargin is added on top of the tier timeouts for the rest of a request.
const resolveMargin = 2 * time.Second

// ResolveTimeout is the request deadline for anything that runs the provider chain: every
// enabled tier's timeout plus a margin, so a request always outlives the chain.
func (r RoutingConfig) ResolveTimeout() time.Duration {
	d := resolveMargin
	if r.Primary.BaseURL != "" {
		d += r.Primary.Timeout()
	}
	if r.Secondary.BaseURL != "" {
		d += r.Secondary.Timeout()
	}
	return d
}

// Axis returns the configured primary axis.
func (r RoutingConfig) Axis() domain.Axis {
	return domain.Axis(r.PrimaryAxis)
}

// Validate returns one ConfigError per problem.
func (r RoutingConfig) Validate() []error {
	var errs []error

	if err := r.Bounds.Validate(); err != nil {
		errs = append(errs, err)
	}
	if r.SynthesisThresholdDeg < 0 {
		errs = append(errs, &domain.ConfigError{Field: "routing.synthesis_threshold_deg", Reason: "must not be negative"})
	}
	if r.SynthesisThresholdDeg > 0 && len(r.Waypoints) == 0 {
		errs = append(errs, &domain.ConfigError{Field: "routing.waypoints", Reason: "catalog is empty but synthesis is enabled"})
	}
	for i, w := range r.Waypoints {
		if !geospatial.IsInside(w.Coordinate(), r.Bounds) {
			errs = append(errs, &domain.ConfigError{Field: fmt.Sprintf("routing.waypoints[%d]", i), Reason: fmt.Sprintf("%s lies outside bounds", w.Name)})
		}
	}
	switch domain.Axis(r.PrimaryAxis) {
	case domain.AxisLatitude, domain.AxisLongitude:
	default:
		errs = append(errs, &domain.ConfigError{Field: "routing.primary_axis", Reason: fmt.Sprintf("must be lat or lng, got %q", r.PrimaryAxis)})
	}
	if r.Primary.BaseURL != "" && r.Primary.TimeoutMs <= 0 {
		errs = append(errs, &domain.ConfigError{Field: "routing.primary.timeout_ms", Reason: "must be positive"})
	}
	if r.Primary.RateLimitPerSec < 0 {
		errs = append(errs, &domain.ConfigError{Field: "routing.primary.rate_limit_per_sec", Reason: "must not be negative"})
	}
	if r.Secondary.BaseURL != "" && r.Secondary.TimeoutMs <= 0 {
		errs = append(errs, &domain.ConfigError{Field: "routing.secondary.timeout_ms", Reason: "must be positive"})
	}
	if r.AvgSpeedKmh <= 0 {
		errs = append(errs, &domain.ConfigError{Field: "routing.avg_speed_kmh", Reason: "must be positive"})
	}
	if r.RatePerKm < 0 {
		errs = append(errs, &domain.ConfigError{Field: "routing.rate_per_km", Reason: "must not be negative"})
	}
	return errs
}

// DefaultWaypoints is the national highway 1A corridor between the Red River and Mekong deltas.
func DefaultWaypoints() []map[string]interface{} {
	return []map[string]interface{}{
		{"name": "Thanh Hoa", "lat": 19.8067, "lng": 105.7852},
		{"name": "Vinh", "lat": 18.6796, "lng": 105.6813},
		{"name": "Dong Hoi", "lat": 17.4689, "lng": 106.6223},
		{"name": "Hue", "lat": 16.4637, "lng": 107.5909},
		{"name": "Da Nang", "lat": 16.0544, "lng": 108.2022},
		{"name": "Quang Ngai", "lat": 15.1214, "lng": 108.8044},
		{"name": "Quy Nhon", "lat": 13.7829, "lng": 109.2196},
		{"name": "Nha Trang", "lat": 12.2388, "lng": 109.1967},
		{"name": "Phan Thiet", "lat": 10.9280, "lng": 108.1021},
	}
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "fleetroute")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "fleetroute")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "route-refresh")
	v.SetDefault("routing.bounds.min_lat", 8.18)
	v.SetDefault("routing.bounds.max_lat", 23.39)
	v.SetDefault("routing.bounds.min_lng", 102.14)
	v.SetDefault("routing.bounds.max_lng", 109.46)
	v.SetDefault("routing.waypoints", DefaultWaypoints())
	v.SetDefault("routing.synthesis_threshold_deg", 3.0)
	v.SetDefault("routing.primary_axis", "lat")
	v.SetDefault("routing.primary.base_url", "https://router.project-osrm.org")
	v.SetDefault("routing.primary.profile", "driving")
	v.SetDefault("routing.primary.timeout_ms", 5000)
	v.SetDefault("routing.primary.rate_limit_per_sec", 1.0)
	v.SetDefault("routing.secondary.base_url", "http://localhost:8000")
	v.SetDefault("routing.secondary.timeout_ms", 8000)
	v.SetDefault("routing.avg_speed_kmh", 60.0)
	v.SetDefault("routing.rate_per_km", 15000.0)
	v.SetDefault("routing.currency", "VND")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: FLEETROUTE_DATABASE_HOST -> database.host
	v.SetEnvPrefix("FLEETROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true) // an empty provider base_url disables that tier
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}

	if f := strings.ToLower(c.Log.Format); f != "json" && f != "text" {
		errs = append(errs, fmt.Sprintf("log.format must be json or text, got %q", c.Log.Format))
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}

	for _, err := range c.Routing.Validate() {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
