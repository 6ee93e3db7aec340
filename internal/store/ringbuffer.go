// Package store holds the bounded, in-memory buffer of recently decoded
// flows that backs the terminal dashboard (§12). It is adapted from the
// teacher's FlowStore: the filter expression language, conversation
// aggregation and interface-grouping views are dropped because they only
// ever served the out-of-scope HTTP query surface (spec §1); what remains
// is the fixed-capacity ring buffer plus the "recent"/"top" read paths the
// dashboard actually uses.
package store

import (
	"sort"
	"sync"

	"netflow-collector/pkg/types"
)

// Stats summarises the flows the ring buffer has ever seen, including
// those already evicted.
type Stats struct {
	TotalFlows   uint64
	TotalBytes   uint64
	TotalPackets uint64
	V5Flows      uint64
	V9Flows      uint64
}

// RingBuffer holds the most recent flows, up to capacity, for display
// purposes only — it is not the counter bundle (§3 owns that separately in
// the keyed store) and is never consulted by the decode fast path.
type RingBuffer struct {
	mu       sync.RWMutex
	flows    []types.Flow
	capacity int
	next     int
	filled   bool
	stats    Stats
}

// NewRingBuffer creates a buffer holding up to capacity flows.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &RingBuffer{flows: make([]types.Flow, capacity), capacity: capacity}
}

// Add inserts f, evicting the oldest entry once capacity is reached, and
// updates the running totals.
func (r *RingBuffer) Add(f types.Flow) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.flows[r.next] = f
	r.next = (r.next + 1) % r.capacity
	if r.next == 0 {
		r.filled = true
	}

	r.stats.TotalFlows++
	r.stats.TotalBytes += f.Bytes
	r.stats.TotalPackets += f.Packets
	switch f.Version {
	case types.NetFlowV5:
		r.stats.V5Flows++
	case types.NetFlowV9:
		r.stats.V9Flows++
	}
}

// snapshot returns a copy of the live flows in insertion order (oldest
// first), safe to read without holding the lock.
func (r *RingBuffer) snapshot() []types.Flow {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.filled {
		out := make([]types.Flow, r.next)
		copy(out, r.flows[:r.next])
		return out
	}

	out := make([]types.Flow, r.capacity)
	copy(out, r.flows[r.next:])
	copy(out[r.capacity-r.next:], r.flows[:r.next])
	return out
}

// Recent returns up to n of the most recently added flows, newest first.
func (r *RingBuffer) Recent(n int) []types.Flow {
	flows := r.snapshot()
	reverse(flows)
	return limit(flows, n)
}

// TopByBytes returns up to n flows sorted by descending byte count.
func (r *RingBuffer) TopByBytes(n int) []types.Flow {
	flows := r.snapshot()
	sort.Slice(flows, func(i, j int) bool { return flows[i].Bytes > flows[j].Bytes })
	return limit(flows, n)
}

// TopByPackets returns up to n flows sorted by descending packet count.
func (r *RingBuffer) TopByPackets(n int) []types.Flow {
	flows := r.snapshot()
	sort.Slice(flows, func(i, j int) bool { return flows[i].Packets > flows[j].Packets })
	return limit(flows, n)
}

// Stats returns the cumulative counters.
func (r *RingBuffer) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

// Len returns the number of flows currently held (<= capacity).
func (r *RingBuffer) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.filled {
		return r.capacity
	}
	return r.next
}

func reverse(flows []types.Flow) {
	for i, j := 0, len(flows)-1; i < j; i, j = i+1, j-1 {
		flows[i], flows[j] = flows[j], flows[i]
	}
}

func limit(flows []types.Flow, n int) []types.Flow {
	if n <= 0 || n >= len(flows) {
		return flows
	}
	return flows[:n]
}
