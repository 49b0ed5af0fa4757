package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadRateLimitConfigNormalizes(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "bogus")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, time.Second, cfg.RefillInterval)
	assert.Equal(t, 5*time.Second, cfg.TTL)
	assert.Equal(t, "ip_user_route", cfg.KeyStrategy)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_ENABLED", "off")
	t.Setenv("CACHE_METHODS", " get, head ,")

	cfg := LoadCacheConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
	assert.Equal(t, 30*time.Second, cfg.TTL)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "BOLT")
	t.Setenv("MEETING_BASE_URL", "https://meet.example/room/")
	for _, k := range []string{"APP_PORT", "TOKEN_HEADER", "ACCESS_TOKEN_TTL_MIN", "EVENTS_ENABLED"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, StoreBolt, cfg.StoreDriver)
	assert.Equal(t, "x-auth-token", cfg.TokenHeader)
	assert.Equal(t, time.Hour, cfg.AccessTTL())
	assert.Equal(t, "https://meet.example/room", cfg.MeetingBaseURL)
	assert.False(t, cfg.EventsEnabled)
}
