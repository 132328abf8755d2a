package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/queryloop-ai/queryloop-engine/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:     "test",
		Version: "1.0.0-test",
		Database: config.DatabaseConfig{
			Dialect: "sqlite",
		},
	}
}

func TestHealth(t *testing.T) {
	h := NewHealthHandler(testConfig(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestPing(t *testing.T) {
	h := NewHealthHandler(testConfig(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	h.Ping(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp PingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "queryloop-engine", resp.Service)
	assert.Equal(t, "1.0.0-test", resp.Version)
	assert.Equal(t, "test", resp.Environment)
	assert.Equal(t, "sqlite", resp.Dialect)
	assert.NotEmpty(t, resp.GoVersion)
}

func TestRegisterRoutes(t *testing.T) {
	mux := http.NewServeMux()
	NewHealthHandler(testConfig(), zap.NewNop()).RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
