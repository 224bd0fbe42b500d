package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("TASKS_DUE_SOON_DAYS", "")
	t.Setenv("AUTH_PASSWORD_ALGORITHM", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 7, cfg.Tasks.DueSoonDays)
	assert.Equal(t, PasswordAlgorithmBcrypt, cfg.Auth.PasswordAlgorithm)
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Equal(t, "task-manager.events", cfg.Redis.EventsChannel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("TASKS_DUE_SOON_DAYS", "14")
	t.Setenv("AUTH_PASSWORD_ALGORITHM", "ARGON2ID")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "5")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("AUTH_LOGIN_RATE", "5-M")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, 14, cfg.Tasks.DueSoonDays)
	assert.Equal(t, PasswordAlgorithmArgon2id, cfg.Auth.PasswordAlgorithm)
	assert.Equal(t, 5*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, "5-M", cfg.Auth.LoginRate)
	assert.False(t, cfg.Postgres.RunMigrations)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("REDIS_DB", "one")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("REDIS_DB", "0")
	t.Setenv("AUTH_PASSWORD_ALGORITHM", "md5")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_MalformedIntFallsBack(t *testing.T) {
	t.Setenv("TASKS_DUE_SOON_DAYS", "soon")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Tasks.DueSoonDays)
}
