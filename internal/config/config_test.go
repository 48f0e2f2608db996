package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_DRIVER", "NATS_URL", "SESSION_BACKEND", "SESSION_TTL",
		"WEATHER_API_KEY", "WEATHER_TIMEOUT", "JOURNEY_POLICY", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "memory", cfg.SessionBackend)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 3*time.Second, cfg.WeatherTimeout)
	assert.Equal(t, "first_kid", cfg.JourneyPolicy)
	assert.Equal(t, []string{"https://*", "http://*"}, cfg.CORSOrigins)
	assert.False(t, cfg.NATSEnabled())
	assert.False(t, cfg.WeatherEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("RATE_LIMIT_REQUESTS", "10")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("WEATHER_API_KEY", "key")
	t.Setenv("WEATHER_TIMEOUT", "500ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com,")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 10, cfg.RateLimitRequests)
	assert.True(t, cfg.TracingEnabled)
	assert.Equal(t, 500*time.Millisecond, cfg.WeatherTimeout)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSOrigins)
	assert.True(t, cfg.NATSEnabled())
	assert.True(t, cfg.WeatherEnabled())
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_REQUESTS", "many")
	t.Setenv("SESSION_TTL", "soon")
	t.Setenv("TRACING_ENABLED", "perhaps")

	cfg := Load()

	assert.Equal(t, 60, cfg.RateLimitRequests)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.TracingEnabled)
}
