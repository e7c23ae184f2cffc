// Package config loads server configuration from BLACKHOLE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"

	"blackhole/internal/visitor/models"
)

// Storage backends for visitor keys.
const (
	StorageCookie = "cookie"
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Server captures everything cmd/server needs to boot.
type Server struct {
	Addr      string `env:"ADDR" envDefault:":8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	StorageBackend string        `env:"STORAGE_BACKEND" envDefault:"cookie"`
	CookieSecure   bool          `env:"COOKIE_SECURE" envDefault:"false"`
	CookieMaxAge   time.Duration `env:"COOKIE_MAX_AGE" envDefault:"720h"`
	IdentityMaxAge time.Duration `env:"IDENTITY_MAX_AGE" envDefault:"24h"`

	Redis RedisConfig `envPrefix:"REDIS_"`
	Check CheckConfig `envPrefix:"CHECK_"`
	Nav   NavConfig   `envPrefix:"NAV_"`
	Kafka KafkaConfig `envPrefix:"KAFKA_"`

	MetricsEnabled  bool          `env:"METRICS_ENABLED" envDefault:"true"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// RedisConfig configures the bag store client.
type RedisConfig struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
	BagTTL       time.Duration `env:"BAG_TTL" envDefault:"720h"`
}

// CheckConfig configures the remote verification check. The breaker is off
// unless BreakerThreshold is positive.
type CheckConfig struct {
	BaseURL          string        `env:"BASE_URL" envDefault:"http://localhost:8888/.netlify/functions"`
	Timeout          time.Duration `env:"TIMEOUT" envDefault:"10s"`
	BreakerThreshold int           `env:"BREAKER_THRESHOLD" envDefault:"0"`
	BreakerCooldown  time.Duration `env:"BREAKER_COOLDOWN" envDefault:"30s"`
}

// NavConfig holds the static paths the landing actions point at.
type NavConfig struct {
	MainApp      string `env:"MAIN_APP" envDefault:"/index1"`
	Finalization string `env:"FINALIZATION" envDefault:"/verification-success"`
	Verification string `env:"VERIFICATION" envDefault:"/Verifypage.html"`
}

// KafkaConfig enables the visit event publisher when Brokers is set.
type KafkaConfig struct {
	Brokers []string `env:"BROKERS" envSeparator:","`
	Topic   string   `env:"TOPIC" envDefault:"blackhole.visits"`
}

// Targets converts the navigation paths for the landing handler.
func (n NavConfig) Targets() models.NavigationTargets {
	return models.NavigationTargets{
		MainApp:      n.MainApp,
		Finalization: n.Finalization,
		Verification: n.Verification,
	}
}

// BreakerEnabled reports whether repeated upstream faults short-circuit checks.
func (c CheckConfig) BreakerEnabled() bool {
	return c.BreakerThreshold > 0
}

// Enabled reports whether an event broker is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// ParseEnv loads tagged fields of target from environment variables.
func ParseEnv(target any, prefix string) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: prefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// FromEnv builds a validated Server config.
func FromEnv() (Server, error) {
	var cfg Server
	if err := ParseEnv(&cfg, "BLACKHOLE_"); err != nil {
		return Server{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Server) Validate() error {
	var errs []error
	switch c.StorageBackend {
	case StorageCookie, StorageMemory:
	case StorageRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("BLACKHOLE_REDIS_URL is required for the redis storage backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.StorageBackend))
	}
	if u, err := url.Parse(c.Check.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("check base url %q must be an absolute http(s) url", c.Check.BaseURL))
	}
	if c.Check.Timeout <= 0 {
		errs = append(errs, errors.New("check timeout must be positive"))
	}
	if c.Check.BreakerThreshold < 0 {
		errs = append(errs, errors.New("breaker threshold must not be negative"))
	}
	if c.IdentityMaxAge <= 0 {
		errs = append(errs, errors.New("identity max age must be positive"))
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka topic is required when brokers are set"))
	}
	return errors.Join(errs...)
}

