package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors the error-handling taxonomy
// (spec §7) and the template-cache invariants (§8) require counting. This
// is a bare /metrics scrape endpoint, not the out-of-scope settings/
// history REST API (spec §1).
type Metrics struct {
	MalformedDatagrams prometheus.Counter
	UnknownVersion     prometheus.Counter
	TemplatesMissed    prometheus.Counter
	TemplatesActive    prometheus.Gauge
	FlowsDecoded       prometheus.Counter
	TimeSeriesFailures prometheus.Counter
	AggregatorFailures prometheus.Counter
	ResolverCacheHits  prometheus.Counter
	ResolverTimeouts   prometheus.Counter
}

// NewMetrics registers the collectors against the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MalformedDatagrams: factory.NewCounter(prometheus.CounterOpts{
			Name: "netflow_malformed_datagrams_total",
			Help: "Datagrams dropped for being malformed (shorter than the version field or header, or a v5 header version mismatch).",
		}),
		UnknownVersion: factory.NewCounter(prometheus.CounterOpts{
			Name: "netflow_unknown_version_total",
			Help: "Datagrams dropped for carrying an unsupported NetFlow version.",
		}),
		TemplatesMissed: factory.NewCounter(prometheus.CounterOpts{
			Name: "netflow_templates_missed_total",
			Help: "Data FlowSets dropped because no matching template had been observed.",
		}),
		TemplatesActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "netflow_templates_active",
			Help: "Number of v9 templates currently cached.",
		}),
		FlowsDecoded: factory.NewCounter(prometheus.CounterOpts{
			Name: "netflow_flows_decoded_total",
			Help: "Flow records successfully decoded across all exporters.",
		}),
		TimeSeriesFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "netflow_timeseries_write_failures_total",
			Help: "Flow points dropped after a time-series store write failure.",
		}),
		AggregatorFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "netflow_aggregator_write_failures_total",
			Help: "Counter updates dropped after a keyed-store write failure.",
		}),
		ResolverCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "netflow_resolver_cache_hits_total",
			Help: "Hostname resolutions served from the keyed-store cache.",
		}),
		ResolverTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "netflow_dns_timeouts_total",
			Help: "Reverse-DNS lookups that exceeded the per-lookup timeout.",
		}),
	}
}

// Handler returns the promhttp handler for mounting on an ops mux, serving
// reg — the same registry the Metrics counters were created against, not
// the global default registry promhttp.Handler() would serve.
func Handler(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
