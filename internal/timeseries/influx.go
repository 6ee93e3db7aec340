// Package timeseries wraps the time-series store the core requires (§6):
// a point writer and a query surface, backed by InfluxDB via the official
// client.
package timeseries

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Store writes per-flow points to a configured bucket/org and supports flux
// queries against the same.
type Store struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
	query  api.QueryAPI
	bucket string
	org    string
}

// Config is the subset of §6's environment variables the time-series store
// needs.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// New constructs a Store. It does not verify connectivity; call Ping for a
// fail-fast startup check.
func New(cfg Config) *Store {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Store{
		client: client,
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		query:  client.QueryAPI(cfg.Org),
		bucket: cfg.Bucket,
		org:    cfg.Org,
	}
}

// Ping verifies the InfluxDB server is reachable and healthy.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.Health(ctx)
	return err
}

// Close flushes pending writes and releases client resources.
func (s *Store) Close() {
	s.client.Close()
}

// Point mirrors the measurement the Time-series Emitter builds (§4.G):
// measurement "network_traffic", a fixed tag set, and integer fields.
type Point struct {
	Tags   map[string]string
	Fields map[string]interface{}
	Time   time.Time
}

const measurement = "network_traffic"

// Write sends one point. Write failures are logged by the caller and the
// flow is dropped — there is no retry queue (§4.G, §7).
func (s *Store) Write(ctx context.Context, p Point) error {
	wp := write.NewPoint(measurement, p.Tags, p.Fields, p.Time)
	return s.writer.WritePoint(ctx, wp)
}

// Query runs a Flux query and returns the raw result table iterator.
func (s *Store) Query(ctx context.Context, flux string) (*api.QueryTableResult, error) {
	return s.query.Query(ctx, flux)
}
