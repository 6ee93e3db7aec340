// Package aggregator implements the Counter Aggregator (§4.H): atomic
// increments of the process-wide counter bundle held in the keyed store.
package aggregator

import (
	"context"
	"time"

	"netflow-collector/internal/keyedstore"
	"netflow-collector/pkg/types"
)

const devicesSetKey = "devices"

// Aggregator applies a flow's effects to the counter bundle. Individual
// operations are atomic; the group is not, by design (§4.H, §5) — readers
// of stats:* must tolerate cross-field skew.
type Aggregator struct {
	store *keyedstore.Store
}

// New creates an Aggregator over the given keyed store.
func New(store *keyedstore.Store) *Aggregator {
	return &Aggregator{store: store}
}

// Apply performs every counter update §4.H specifies for one flow. Each
// store call is independent; a failure partway through is logged by the
// caller and the remaining updates still proceed, since there is no
// transactional requirement across them.
func (a *Aggregator) Apply(ctx context.Context, f *types.Flow) error {
	bytes := int64(f.Bytes)
	packets := int64(f.Packets)
	srcAddr := f.SrcAddr.String()
	dstAddr := f.DstAddr.String()
	now := time.Now().UTC().Format(time.RFC3339)

	var firstErr error
	note := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	note(a.store.IncrBy(ctx, "stats:total_bytes", bytes))
	note(a.store.IncrBy(ctx, "stats:total_packets", packets))

	note(a.store.IncrBy(ctx, "stats:"+string(f.Direction)+"_bytes", bytes))
	note(a.store.IncrBy(ctx, "stats:"+string(f.Direction)+"_packets", packets))

	note(a.store.HIncrBy(ctx, "device:"+srcAddr, "bytes_sent", bytes))
	note(a.store.HIncrBy(ctx, "device:"+dstAddr, "bytes_received", bytes))

	note(a.store.HSet(ctx, "device:"+srcAddr, "last_seen", now))
	note(a.store.HSet(ctx, "device:"+dstAddr, "last_seen", now))

	note(a.store.SAdd(ctx, devicesSetKey, srcAddr, dstAddr))

	return firstErr
}
