// Package publisher implements the Publisher (§4.I) and the broadcast leg
// of the Rate Deriver (§4.J step 4): a best-effort fan-out of JSON events,
// both to local in-process subscribers and to the keyed store's pub/sub
// channel so an external API process can relay them onward.
//
// The original Python collector published with `str(stats)` — a Python
// dict repr, not valid JSON, requiring an unsafe eval() on the consumer
// side. This package publishes canonical JSON bytes instead (spec §9).
package publisher

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"netflow-collector/internal/keyedstore"
)

// Channel is the broadcast channel name used for both flow events and
// traffic_update messages (§6).
const Channel = "realtime_traffic"

// Peer is a live push-channel subscriber. Send must not block
// indefinitely: a Publisher applies no timeout of its own and evicts a peer
// only when its Send returns an error.
type Peer interface {
	Send(message []byte) error
}

// FlowEvent is the per-flow message built by §4.I.
type FlowEvent struct {
	Type string `json:"type"`
	Data struct {
		Timestamp time.Time `json:"timestamp"`
		Bytes     uint64    `json:"bytes"`
		Packets   uint64    `json:"packets"`
		Direction string    `json:"direction"`
		SrcAddr   string    `json:"src_addr"`
		DstAddr   string    `json:"dst_addr"`
	} `json:"data"`
}

// TrafficUpdate is the rate-derived message built by §4.J step 4. The
// literal "traffic_update" type string is a wire-format requirement (§6).
type TrafficUpdate struct {
	Type string `json:"type"`
	Data struct {
		Timestamp time.Time `json:"timestamp"`
		Bytes     int64     `json:"bytes"`
		Packets   int64     `json:"packets"`
	} `json:"data"`
}

// Publisher owns the subscription set (§3) of live local peers and mirrors
// every broadcast onto the keyed store's pub/sub channel.
type Publisher struct {
	store *keyedstore.Store

	mu    sync.Mutex
	peers map[Peer]struct{}
}

// New creates a Publisher over the given keyed store.
func New(store *keyedstore.Store) *Publisher {
	return &Publisher{store: store, peers: make(map[Peer]struct{})}
}

// Subscribe registers a local peer to receive future broadcasts.
func (p *Publisher) Subscribe(peer Peer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.peers[peer] = struct{}{}
}

// Unsubscribe removes a peer from the subscription set.
func (p *Publisher) Unsubscribe(peer Peer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.peers, peer)
}

// PeerCount reports the current subscription set size, for metrics/tests.
func (p *Publisher) PeerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.peers)
}

// PublishFlow emits a FlowEvent for one classified, aggregated flow.
func (p *Publisher) PublishFlow(ctx context.Context, bytes, packets uint64, direction, srcAddr, dstAddr string) error {
	event := FlowEvent{Type: "flow"}
	event.Data.Timestamp = time.Now().UTC()
	event.Data.Bytes = bytes
	event.Data.Packets = packets
	event.Data.Direction = direction
	event.Data.SrcAddr = srcAddr
	event.Data.DstAddr = dstAddr

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.broadcast(ctx, payload)
}

// PublishTrafficUpdate emits a §4.J rate message.
func (p *Publisher) PublishTrafficUpdate(ctx context.Context, at time.Time, byteRate, packetRate int64) error {
	update := TrafficUpdate{Type: "traffic_update"}
	update.Data.Timestamp = at
	update.Data.Bytes = byteRate
	update.Data.Packets = packetRate

	payload, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return p.broadcast(ctx, payload)
}

// broadcast mirrors payload onto the keyed-store channel (best-effort —
// a publish with no subscribers is a no-op, not an error) and fans it out
// to local peers, evicting any whose Send fails.
func (p *Publisher) broadcast(ctx context.Context, payload []byte) error {
	err := p.store.Publish(ctx, Channel, string(payload))

	p.mu.Lock()
	dead := make([]Peer, 0)
	for peer := range p.peers {
		if sendErr := peer.Send(payload); sendErr != nil {
			dead = append(dead, peer)
		}
	}
	for _, peer := range dead {
		delete(p.peers, peer)
	}
	p.mu.Unlock()

	return err
}
