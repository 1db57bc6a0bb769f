package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "appointment_events", cfg.Rabbit.Queue)
	assert.Equal(t, 2*time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, 100, cfg.Worker.BatchSize)
	assert.Equal(t, 5, cfg.Worker.MaxAttempts)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("DB_NAME", "hms_test")
	t.Setenv("OUTBOX_POLL_INTERVAL", "500ms")
	t.Setenv("OUTBOX_BATCH_SIZE", "25")
	t.Setenv("JOB_MAX_ATTEMPTS", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "hms_test", cfg.Database.Name)
	assert.Equal(t, 500*time.Millisecond, cfg.Worker.PollInterval)
	assert.Equal(t, 25, cfg.Worker.BatchSize)
	assert.Equal(t, 3, cfg.Worker.MaxAttempts)
}

func TestLoadConfigIgnoresInvalidValues(t *testing.T) {
	t.Setenv("OUTBOX_BATCH_SIZE", "not-a-number")
	t.Setenv("OUTBOX_POLL_INTERVAL", "soon")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Worker.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Worker.PollInterval)
}
