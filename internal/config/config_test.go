package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CHECKOUT_MAX_RETRIES", "")
	t.Setenv("IMPORT_WORKERS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Contains(t, cfg.Database.URL, "postgres://")
	assert.Equal(t, 3, cfg.Checkout.MaxRetries)
	assert.Equal(t, 4, cfg.Import.Workers)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CHECKOUT_MAX_RETRIES", "5")
	t.Setenv("SERVER_READ_TIMEOUT", "3s")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("SENDGRID_API_KEY", "SG.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5, cfg.Checkout.MaxRetries)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "SG.test", cfg.Notification.SendGridAPIKey)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "lots")
	t.Setenv("SERVER_WRITE_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout)
}

func TestLoadRejectsBadImportWorkers(t *testing.T) {
	t.Setenv("IMPORT_WORKERS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IMPORT_WORKERS")
}
