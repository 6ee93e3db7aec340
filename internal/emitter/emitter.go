// Package emitter implements the Time-series Emitter (§4.G): it builds one
// point per flow and writes it to the time-series store.
package emitter

import (
	"context"
	"time"

	"netflow-collector/internal/resolver"
	"netflow-collector/internal/timeseries"
	"netflow-collector/pkg/types"
)

// Emitter builds and writes network_traffic points.
type Emitter struct {
	store    *timeseries.Store
	resolver *resolver.Resolver
}

// New creates an Emitter over the given time-series store and resolver.
func New(store *timeseries.Store, res *resolver.Resolver) *Emitter {
	return &Emitter{store: store, resolver: res}
}

// Emit builds the point described by §4.G and writes it. Write failures are
// the caller's concern to log; Emit returns the error rather than
// swallowing it so the error-handling taxonomy stays centralised upstream.
func (e *Emitter) Emit(ctx context.Context, f *types.Flow) error {
	srcHostname := e.resolver.Resolve(ctx, f.SrcAddr)
	dstHostname := e.resolver.Resolve(ctx, f.DstAddr)

	point := timeseries.Point{
		Tags: map[string]string{
			"source":       f.ExporterIP.String(),
			"src_addr":     f.SrcAddr.String(),
			"dst_addr":     f.DstAddr.String(),
			"src_hostname": srcHostname,
			"dst_hostname": dstHostname,
			"protocol":     f.ProtocolName(),
			"direction":    string(f.Direction),
		},
		Fields: map[string]interface{}{
			"bytes":    int64(f.Bytes),
			"packets":  int64(f.Packets),
			"src_port": int64(f.SrcPort),
			"dst_port": int64(f.DstPort),
		},
		Time: time.Now().UTC(),
	}

	return e.store.Write(ctx, point)
}
