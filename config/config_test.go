package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfigDefaults(t *testing.T) {
	t.Setenv("SYNCGATE_POSTGRES_HOST", "localhost")
	t.Setenv("SYNCGATE_POSTGRES_PORT", "5432")
	t.Setenv("SYNCGATE_POSTGRES_USER", "syncgate")
	t.Setenv("SYNCGATE_POSTGRES_DB_NAME", "syncgate")
	t.Setenv("SYNCGATE_POSTGRES_PASSWORD", "secret")

	cfg, err := InitConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppConfig.APIPort)
	assert.Equal(t, "syncgate.local", cfg.AppConfig.MimeHostname)
	assert.Equal(t, "0 * * * *", cfg.CronConfig.MaintenanceSchedule)
	assert.Equal(t, 24, cfg.CronConfig.StalePendingHours)
	assert.Equal(t, "info", cfg.Logger.LogLevel)
	assert.Equal(t, "disable", cfg.DatabaseConfig.SSLMode)
}
