package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"netflow-collector/pkg/types"
)

func TestRingBufferEvictsOldestPastCapacity(t *testing.T) {
	rb := NewRingBuffer(2)
	rb.Add(types.Flow{Bytes: 1})
	rb.Add(types.Flow{Bytes: 2})
	rb.Add(types.Flow{Bytes: 3})

	assert.Equal(t, 2, rb.Len())
	recent := rb.Recent(10)
	assert.Len(t, recent, 2)
	assert.Equal(t, uint64(3), recent[0].Bytes)
	assert.Equal(t, uint64(2), recent[1].Bytes)
}

func TestRingBufferRecentOrderNewestFirst(t *testing.T) {
	rb := NewRingBuffer(5)
	for i := 1; i <= 3; i++ {
		rb.Add(types.Flow{Bytes: uint64(i)})
	}
	recent := rb.Recent(0)
	assert.Equal(t, []uint64{3, 2, 1}, bytesOf(recent))
}

func TestRingBufferTopByBytes(t *testing.T) {
	rb := NewRingBuffer(10)
	rb.Add(types.Flow{Bytes: 10})
	rb.Add(types.Flow{Bytes: 500})
	rb.Add(types.Flow{Bytes: 50})

	top := rb.TopByBytes(2)
	assert.Equal(t, []uint64{500, 50}, bytesOf(top))
}

func TestRingBufferStatsAccumulate(t *testing.T) {
	rb := NewRingBuffer(1)
	rb.Add(types.Flow{Version: types.NetFlowV5, Bytes: 100, Packets: 1})
	rb.Add(types.Flow{Version: types.NetFlowV9, Bytes: 200, Packets: 2})

	stats := rb.Stats()
	assert.Equal(t, uint64(2), stats.TotalFlows)
	assert.Equal(t, uint64(300), stats.TotalBytes)
	assert.Equal(t, uint64(1), stats.V5Flows)
	assert.Equal(t, uint64(1), stats.V9Flows)
}

func bytesOf(flows []types.Flow) []uint64 {
	out := make([]uint64, len(flows))
	for i, f := range flows {
		out[i] = f.Bytes
	}
	return out
}
