package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, StorageCookie, cfg.StorageBackend)
	assert.Equal(t, 24*time.Hour, cfg.IdentityMaxAge)
	assert.Equal(t, "http://localhost:8888/.netlify/functions", cfg.Check.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Check.Timeout)
	assert.Equal(t, "/index1", cfg.Nav.MainApp)
	assert.Equal(t, "/verification-success", cfg.Nav.Finalization)
	assert.Equal(t, "/Verifypage.html", cfg.Nav.Verification)
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.Check.BreakerEnabled(), "breaker is opt-in")
	assert.True(t, cfg.MetricsEnabled)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("BLACKHOLE_ADDR", ":9090")
	t.Setenv("BLACKHOLE_STORAGE_BACKEND", "redis")
	t.Setenv("BLACKHOLE_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("BLACKHOLE_CHECK_TIMEOUT", "2s")
	t.Setenv("BLACKHOLE_KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("BLACKHOLE_CHECK_BREAKER_THRESHOLD", "5")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, StorageRedis, cfg.StorageBackend)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 2*time.Second, cfg.Check.Timeout)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.True(t, cfg.Check.BreakerEnabled())
}

func TestFromEnvRejectsInvalid(t *testing.T) {
	t.Run("redis backend without url", func(t *testing.T) {
		t.Setenv("BLACKHOLE_STORAGE_BACKEND", "redis")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "BLACKHOLE_REDIS_URL")
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("BLACKHOLE_STORAGE_BACKEND", "sessionStorage")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "unknown storage backend")
	})

	t.Run("relative check url", func(t *testing.T) {
		t.Setenv("BLACKHOLE_CHECK_BASE_URL", "/functions")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "absolute http(s) url")
	})

	t.Run("negative breaker threshold", func(t *testing.T) {
		t.Setenv("BLACKHOLE_CHECK_BREAKER_THRESHOLD", "-1")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "breaker threshold")
	})

	t.Run("unparsable duration", func(t *testing.T) {
		t.Setenv("BLACKHOLE_CHECK_TIMEOUT", "soon")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "parse env:")
	})
}

func TestNavTargets(t *testing.T) {
	targets := NavConfig{MainApp: "/a", Finalization: "/b", Verification: "/c"}.Targets()
	assert.Equal(t, "/a", targets.MainApp)
	assert.Equal(t, "/b", targets.Finalization)
	assert.Equal(t, "/c", targets.Verification)
}
