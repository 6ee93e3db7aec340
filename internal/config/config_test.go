package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, 2055, cfg.NetflowPort)
	assert.Equal(t, 6343, cfg.SflowPort)
	assert.Equal(t, "redis://redis:6379", cfg.RedisURL)
	assert.Equal(t, 2*time.Second, cfg.DNSTimeout)
	assert.Equal(t, 3*time.Second, cfg.RatePeriod)
}

func TestLoadReadsEnvOverrides(t *testing.T) {
	os.Setenv("NETFLOW_PORT", "9000")
	os.Setenv("INFLUXDB_TOKEN", "secret-token")
	defer os.Unsetenv("NETFLOW_PORT")
	defer os.Unsetenv("INFLUXDB_TOKEN")

	cfg := Load()
	assert.Equal(t, 9000, cfg.NetflowPort)
	assert.Equal(t, "secret-token", cfg.InfluxToken)
}

func TestValidateRequiresInfluxToken(t *testing.T) {
	cfg := &Config{}
	require.Error(t, cfg.Validate())

	cfg.InfluxToken = "x"
	require.NoError(t, cfg.Validate())
}
