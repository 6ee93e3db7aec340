// Package config loads the core's environment-variable configuration
// (§6) using viper bound to the process environment, the way
// els0r-goProbe configures itself.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds every knob the core reads at startup.
type Config struct {
	NetflowPort int
	SflowPort   int

	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	RedisURL string

	// DNSTimeout bounds reverse-DNS lookups (§4.F); spec recommends <= 2s.
	DNSTimeout time.Duration
	// RatePeriod is the rate-deriver tick interval (§4.J); spec fixes it at 3s.
	RatePeriod time.Duration
	// MetricsAddr is where the ambient Prometheus /metrics endpoint listens.
	MetricsAddr string
	// LogLevel controls zerolog verbosity.
	LogLevel string
	// MaxRecentFlows bounds the dashboard's in-memory ring buffer (§12).
	MaxRecentFlows int
}

// Load reads configuration from the environment, applying the spec's
// documented defaults. INFLUXDB_TOKEN has no default: a missing value is
// reported as an error by Validate, which the caller treats as the fatal
// startup condition §7 specifies.
func Load() *Config {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()

	v.SetDefault("NETFLOW_PORT", 2055)
	v.SetDefault("SFLOW_PORT", 6343)
	v.SetDefault("INFLUXDB_URL", "http://influxdb:8086")
	v.SetDefault("INFLUXDB_ORG", "network-monitoring")
	v.SetDefault("INFLUXDB_BUCKET", "traffic")
	v.SetDefault("REDIS_URL", "redis://redis:6379")
	v.SetDefault("DNS_TIMEOUT", "2s")
	v.SetDefault("RATE_PERIOD", "3s")
	v.SetDefault("METRICS_ADDR", ":9191")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_RECENT_FLOWS", 10000)

	return &Config{
		NetflowPort:    v.GetInt("NETFLOW_PORT"),
		SflowPort:      v.GetInt("SFLOW_PORT"),
		InfluxURL:      v.GetString("INFLUXDB_URL"),
		InfluxToken:    v.GetString("INFLUXDB_TOKEN"),
		InfluxOrg:      v.GetString("INFLUXDB_ORG"),
		InfluxBucket:   v.GetString("INFLUXDB_BUCKET"),
		RedisURL:       v.GetString("REDIS_URL"),
		DNSTimeout:     v.GetDuration("DNS_TIMEOUT"),
		RatePeriod:     v.GetDuration("RATE_PERIOD"),
		MetricsAddr:    v.GetString("METRICS_ADDR"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		MaxRecentFlows: v.GetInt("MAX_RECENT_FLOWS"),
	}
}

// Validate reports the one fatal startup condition the spec names:
// INFLUXDB_TOKEN must be set (§6, §7).
func (c *Config) Validate() error {
	if c.InfluxToken == "" {
		return fmt.Errorf("INFLUXDB_TOKEN is required and was not set")
	}
	return nil
}
