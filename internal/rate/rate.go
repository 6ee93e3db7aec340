// Package rate implements the Rate Deriver + Pusher (§4.J): a periodic tick
// that turns the monotonic stats:total_bytes/packets counters into
// per-second rates and broadcasts them.
package rate

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"netflow-collector/internal/keyedstore"
	"netflow-collector/internal/publisher"
)

// DefaultPeriod is the tick interval specified by §4.J.
const DefaultPeriod = 3 * time.Second

// errorBackoff is how long the loop sleeps after a read/publish error
// before resuming (§4.J).
const errorBackoff = 5 * time.Second

// sample is the single-instance rate sample held by the deriver (§3):
// overwritten, never accumulated, each tick.
type sample struct {
	totalBytes   int64
	totalPackets int64
	at           time.Time
}

// Deriver runs the periodic tick described by §4.J.
type Deriver struct {
	store     *keyedstore.Store
	publisher *publisher.Publisher
	period    time.Duration
	log       zerolog.Logger

	previous *sample
}

// New creates a Deriver. If period is zero, DefaultPeriod is used.
func New(store *keyedstore.Store, pub *publisher.Publisher, period time.Duration, log zerolog.Logger) *Deriver {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Deriver{store: store, publisher: pub, period: period, log: log}
}

// Run ticks until ctx is cancelled. Each tick samples the counters, derives
// a rate against the previous sample, publishes a traffic_update message,
// and stores the new sample. Read/publish errors are logged and the loop
// backs off for errorBackoff before the next attempt, instead of ticking
// again immediately.
func (d *Deriver) Run(ctx context.Context) {
	ticker := time.NewTicker(d.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.tick(ctx); err != nil {
				d.log.Error().Err(err).Msg("rate tick failed")
				select {
				case <-ctx.Done():
					return
				case <-time.After(errorBackoff):
				}
			}
		}
	}
}

func (d *Deriver) tick(ctx context.Context) error {
	totalBytes, err := d.readCounter(ctx, "stats:total_bytes")
	if err != nil {
		return err
	}
	totalPackets, err := d.readCounter(ctx, "stats:total_packets")
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	byteRate, packetRate := Derive(d.previous, totalBytes, totalPackets, now)

	d.previous = &sample{totalBytes: totalBytes, totalPackets: totalPackets, at: now}

	return d.publisher.PublishTrafficUpdate(ctx, now, byteRate, packetRate)
}

func (d *Deriver) readCounter(ctx context.Context, key string) (int64, error) {
	raw, err := d.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// Derive computes (byteRate, packetRate) from a previous sample (if any)
// against the current counter values and timestamp. Rates are non-negative
// by construction since the counters are monotonic (§8 law); a nil
// previous sample or a non-positive elapsed time yields zero rates.
func Derive(previous *sample, totalBytes, totalPackets int64, now time.Time) (int64, int64) {
	if previous == nil {
		return 0, 0
	}
	elapsed := now.Sub(previous.at).Seconds()
	if elapsed <= 0 {
		return 0, 0
	}
	byteRate := int64(float64(totalBytes-previous.totalBytes) / elapsed)
	packetRate := int64(float64(totalPackets-previous.totalPackets) / elapsed)
	if byteRate < 0 {
		byteRate = 0
	}
	if packetRate < 0 {
		packetRate = 0
	}
	return byteRate, packetRate
}
