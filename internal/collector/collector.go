// Package collector wires the core pipeline A → B → {C, D} → E → {G, H, I}
// described in §2 and §9's CoreContext strategy: one struct holding handles
// to every sink, threaded through the pipeline instead of relying on
// package-level globals.
package collector

import (
	"context"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"netflow-collector/internal/aggregator"
	"netflow-collector/internal/classify"
	"netflow-collector/internal/decode"
	"netflow-collector/internal/emitter"
	"netflow-collector/internal/listener"
	"netflow-collector/internal/publisher"
	"netflow-collector/internal/store"
	"netflow-collector/internal/telemetry"
	"netflow-collector/pkg/types"
)

// Context bundles the core's sink handles (§9's "Global mutable module
// state" fix): the keyed store, the time-series store, the publisher and
// the resolver are constructed once at startup and passed in here rather
// than referenced as package globals.
type Context struct {
	Decoder    *decode.Decoder
	Aggregator *aggregator.Aggregator
	Emitter    *emitter.Emitter
	Publisher  *publisher.Publisher
	Metrics    *telemetry.Metrics
	Recent     *store.RingBuffer
	Log        zerolog.Logger
}

// Pipeline runs the per-datagram decode → classify → emit → aggregate →
// publish chain against a shared Context.
type Pipeline struct {
	ctx *Context
}

// New creates a Pipeline over ctx.
func New(ctx *Context) *Pipeline {
	return &Pipeline{ctx: ctx}
}

// Serve drains dg's datagrams until the channel closes or ctx is cancelled,
// dispatching each to its own worker goroutine — decode is the only
// CPU-bound step, so per-datagram parallelism is enough to keep the single
// reader goroutine behind the socket from becoming a bottleneck (§5).
func (p *Pipeline) Serve(ctx context.Context, dg <-chan listener.Datagram) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case datagram, ok := <-dg:
			if !ok {
				return
			}
			wg.Add(1)
			go func(d listener.Datagram) {
				defer wg.Done()
				p.handle(ctx, d)
			}(datagram)
		}
	}
}

// handle runs one datagram through the full pipeline. Per spec §7, errors
// at this level never propagate further up; they are logged and counted.
func (p *Pipeline) handle(ctx context.Context, dgram listener.Datagram) {
	result, err := p.ctx.Decoder.Decode(dgram.Data, dgram.Source)
	if err != nil {
		p.handleDecodeError(dgram.Source, err)
		return
	}
	if result.TemplatesMissed > 0 {
		for i := 0; i < result.TemplatesMissed; i++ {
			p.ctx.Metrics.TemplatesMissed.Inc()
		}
		p.ctx.Log.Warn().
			Str("exporter", dgram.Source.String()).
			Int("missed", result.TemplatesMissed).
			Msg("data flowset referenced an unknown template")
	}
	p.ctx.Metrics.TemplatesActive.Set(float64(p.ctx.Decoder.Templates().Len()))

	for i := range result.Flows {
		p.processFlow(ctx, &result.Flows[i])
	}
}

func (p *Pipeline) handleDecodeError(source net.IP, err error) {
	switch err.(type) {
	case *decode.ErrMalformed:
		p.ctx.Metrics.MalformedDatagrams.Inc()
		p.ctx.Log.Debug().Err(err).Str("exporter", source.String()).Msg("dropped malformed datagram")
	case *decode.ErrUnknownVersion:
		p.ctx.Metrics.UnknownVersion.Inc()
		p.ctx.Log.Warn().Err(err).Str("exporter", source.String()).Msg("dropped datagram with unsupported version")
	default:
		p.ctx.Log.Warn().Err(err).Str("exporter", source.String()).Msg("dropped datagram")
	}
}

// processFlow runs classify → emit → aggregate → publish for one flow.
// Ordering across records in a datagram is on-wire (handle processes them
// in decode order); downstream effects are not ordered with
// each other, as the aggregator commutes and emit timestamps are assigned
// at write time (§5).
func (p *Pipeline) processFlow(ctx context.Context, f *types.Flow) {
	classify.Classify(f)
	p.ctx.Metrics.FlowsDecoded.Inc()

	if err := p.ctx.Emitter.Emit(ctx, f); err != nil {
		p.ctx.Metrics.TimeSeriesFailures.Inc()
		p.ctx.Log.Error().Err(err).Msg("time-series write failed, dropping point")
	}

	if err := p.ctx.Aggregator.Apply(ctx, f); err != nil {
		p.ctx.Metrics.AggregatorFailures.Inc()
		p.ctx.Log.Error().Err(err).Msg("counter update failed")
	}

	if err := p.ctx.Publisher.PublishFlow(ctx, f.Bytes, f.Packets, string(f.Direction), f.SrcAddr.String(), f.DstAddr.String()); err != nil {
		p.ctx.Log.Debug().Err(err).Msg("flow event publish failed")
	}

	if p.ctx.Recent != nil {
		p.ctx.Recent.Add(*f)
	}
}
