package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"APP_PORT", "DB_DRIVER", "CACHE_TTL", "JWT_TTL", "AUTH_MAX_AGE", "CORS_ORIGINS", "CLASSIFIER_URL"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, time.Hour, cfg.AuthMaxAge)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "http://localhost:8001", cfg.ClassifierURL)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("AUTH_MAX_AGE", "garbage")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("CLASSIFIER_URL", "http://classifier:8000/")
	t.Setenv("IS_PROD", "true")

	cfg := LoadConfig()

	assert.Equal(t, "9000", cfg.AppPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.Equal(t, time.Hour, cfg.AuthMaxAge, "invalid duration falls back")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "http://classifier:8000", cfg.ClassifierURL)
	assert.True(t, cfg.IsProd)
}
