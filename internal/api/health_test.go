package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	env := newEnv(t)

	w := env.do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["database_connected"])
	assert.Equal(t, true, body["cache_connected"])
	assert.Equal(t, Version, body["version"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	env.mr.Close()
	body = decode[map[string]any](t, env.do(http.MethodGet, "/health", nil, ""))
	assert.Equal(t, false, body["cache_connected"])
	assert.Equal(t, "healthy", body["status"])
}

func TestHealth_DatabaseDown(t *testing.T) {
	env := newEnv(t)
	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w := env.do(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", decode[map[string]any](t, w)["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newEnv(t)
	env.do(http.MethodGet, "/health", nil, "")
	w := env.do(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "plantastic_http_requests_total")
}
