package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"netflow-collector/internal/aggregator"
	"netflow-collector/internal/collector"
	"netflow-collector/internal/config"
	"netflow-collector/internal/decode"
	"netflow-collector/internal/display"
	"netflow-collector/internal/emitter"
	"netflow-collector/internal/keyedstore"
	"netflow-collector/internal/listener"
	"netflow-collector/internal/publisher"
	"netflow-collector/internal/rate"
	"netflow-collector/internal/resolver"
	"netflow-collector/internal/store"
	"netflow-collector/internal/telemetry"
	"netflow-collector/internal/timeseries"
)

var dashboard bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "collector",
		Short: "NetFlow v5/v9 collector: decode, classify, persist and publish flow telemetry",
		Long: `A UDP collector for NetFlow v5 and v9 (template-based) exports.

Flows are classified by source/destination (RFC 1918), written to InfluxDB,
aggregated into Redis counters, and published over Redis pub/sub for live
consumers. Configuration is read entirely from the environment.`,
		RunE: run,
	}
	rootCmd.Flags().BoolVar(&dashboard, "dashboard", false, "run the terminal operator dashboard in the foreground; log output still goes to stderr")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := telemetry.NewLogger(cfg.LogLevel)
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	kv, err := keyedstore.New(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid REDIS_URL")
	}
	defer kv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pingWithTimeout(ctx, 5*time.Second, kv.Ping); err != nil {
		log.Fatal().Err(err).Msg("could not reach redis")
	}

	tsStore := timeseries.New(timeseries.Config{
		URL:    cfg.InfluxURL,
		Token:  cfg.InfluxToken,
		Org:    cfg.InfluxOrg,
		Bucket: cfg.InfluxBucket,
	})
	defer tsStore.Close()

	if err := pingWithTimeout(ctx, 5*time.Second, tsStore.Ping); err != nil {
		log.Fatal().Err(err).Msg("could not reach influxdb")
	}

	res := resolver.New(kv, cfg.DNSTimeout).WithMetrics(metrics)
	emit := emitter.New(tsStore, res)
	agg := aggregator.New(kv)
	pub := publisher.New(kv)
	recent := store.NewRingBuffer(cfg.MaxRecentFlows)

	pipeline := collector.New(&collector.Context{
		Decoder:    decode.New(),
		Aggregator: agg,
		Emitter:    emit,
		Publisher:  pub,
		Metrics:    metrics,
		Recent:     recent,
		Log:        log,
	})

	netflowListener := listener.New("netflow", cfg.NetflowPort, log)
	if err := netflowListener.Start(); err != nil {
		log.Fatal().Err(err).Int("port", cfg.NetflowPort).Msg("could not bind netflow listener")
	}
	defer netflowListener.Stop()

	// The sFlow socket is bound and routed through the same dispatcher as
	// NetFlow (open question, resolved in favor of a shared dispatcher);
	// sFlow's own wire format is not decoded, so every datagram it carries
	// surfaces as an unknown-version drop until a dedicated sFlow decoder is
	// grounded and added.
	sflowListener := listener.New("sflow", cfg.SflowPort, log)
	if err := sflowListener.Start(); err != nil {
		log.Fatal().Err(err).Int("port", cfg.SflowPort).Msg("could not bind sflow listener")
	}
	defer sflowListener.Stop()

	go pipeline.Serve(ctx, netflowListener.Datagrams())
	go pipeline.Serve(ctx, sflowListener.Datagrams())

	deriver := rate.New(kv, pub, cfg.RatePeriod, log)
	go deriver.Run(ctx)

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: telemetry.Handler(reg)}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	log.Info().
		Int("netflow_port", cfg.NetflowPort).
		Int("sflow_port", cfg.SflowPort).
		Str("metrics_addr", cfg.MetricsAddr).
		Msg("collector started")

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runErr error
	if dashboard {
		dash := display.New(recent, kv, 500*time.Millisecond)
		runErr = dash.Run(sigCtx)
	} else {
		<-sigCtx.Done()
		log.Info().Msg("shutting down")
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("metrics server did not shut down cleanly")
	}

	return runErr
}

func pingWithTimeout(parent context.Context, d time.Duration, ping func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return ping(ctx)
}
