package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"DB_DRIVER", "SQLITE_PATH", "REDIS_ADDR", "APP_API_PREFIX", "APP_PORT", "REDIS_DB", "LOG_FORMAT", "APP_NAME"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "kanban.sqlite", cfg.SQLite.Path)
	assert.Equal(t, "/api", cfg.App.APIPrefix)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.False(t, cfg.Redis.Enabled())
	assert.True(t, cfg.Database.RunMigrations)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, "kanban-service", cfg.Logger.Service)
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DRIVER", "POSTGRES")
	t.Setenv("POSTGRES_DSN", "postgres://kanban@localhost/kanban")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "120")
	t.Setenv("DB_RUN_MIGRATIONS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.True(t, cfg.Redis.Enabled())
	assert.Zero(t, cfg.App.RequestTimeout())
	assert.Equal(t, 120, cfg.App.RateLimitPerMinute)
	assert.False(t, cfg.Database.RunMigrations)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown driver", env: map[string]string{"DB_DRIVER": "mysql"}},
		{name: "postgres without dsn", env: map[string]string{"DB_DRIVER": "postgres", "POSTGRES_DSN": ""}},
		{name: "bad redis db", env: map[string]string{"REDIS_DB": "one"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for key, val := range tt.env {
				t.Setenv(key, val)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
