package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/kanban-service/internal/observability"
)

func TestReadyReportsEachDependency(t *testing.T) {
	tests := []struct {
		name       string
		redisErr   error
		wantStatus int
	}{
		{name: "all up", wantStatus: fiber.StatusOK},
		{name: "redis down", redisErr: errors.New("dial tcp: connection refused"), wantStatus: fiber.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler("kanban", "test", observability.NewMetrics(),
				DependencyCheck{Name: "sqlite", Ping: func(context.Context) error { return nil }},
				DependencyCheck{Name: "redis", Ping: func(context.Context) error { return tt.redisErr }},
			)
			app := fiber.New()
			app.Get("/ready", h.Ready)

			resp, err := app.Test(httptest.NewRequest("GET", "/ready", nil), -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			var body map[string]any
			require.NoError(t, json.Unmarshal(raw, &body))

			if tt.redisErr == nil {
				deps := body["dependencies"].(map[string]any)
				assert.Equal(t, "ok", deps["sqlite"].(map[string]any)["status"])
				assert.Equal(t, "ok", deps["redis"].(map[string]any)["status"])
				return
			}
			errBody := body["error"].(map[string]any)
			assert.Equal(t, "DEPENDENCY_UNAVAILABLE", errBody["code"])
			redis := errBody["details"].(map[string]any)["redis"].(map[string]any)
			assert.Equal(t, "unavailable", redis["status"])
			assert.Contains(t, redis["error"], "connection refused")
		})
	}
}

func TestLiveReportsVersion(t *testing.T) {
	app := fiber.New()
	app.Get("/live", NewHealthHandler("kanban", "1.2.3", nil).Live)

	resp, err := app.Test(httptest.NewRequest("GET", "/live", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "alive", body["status"])
	assert.Equal(t, "1.2.3", body["version"])
}
