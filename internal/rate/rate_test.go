package rate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveNoPreviousSampleYieldsZero(t *testing.T) {
	byteRate, packetRate := Derive(nil, 7000, 70, time.Now())
	assert.Zero(t, byteRate)
	assert.Zero(t, packetRate)
}

func TestDeriveComputesPerSecondRate(t *testing.T) {
	start := time.Now()
	previous := &sample{totalBytes: 1000, totalPackets: 10, at: start}

	byteRate, packetRate := Derive(previous, 7000, 40, start.Add(3*time.Second))
	assert.Equal(t, int64(2000), byteRate)
	assert.Equal(t, int64(10), packetRate)
}

func TestDeriveNeverNegative(t *testing.T) {
	start := time.Now()
	previous := &sample{totalBytes: 5000, totalPackets: 50, at: start}

	// Counters appearing to go backwards (e.g. a restarted exporter) must
	// never produce a negative rate.
	byteRate, packetRate := Derive(previous, 1000, 10, start.Add(time.Second))
	assert.Zero(t, byteRate)
	assert.Zero(t, packetRate)
}

func TestDeriveNonPositiveElapsedYieldsZero(t *testing.T) {
	start := time.Now()
	previous := &sample{totalBytes: 1000, totalPackets: 10, at: start}

	byteRate, packetRate := Derive(previous, 2000, 20, start)
	assert.Zero(t, byteRate)
	assert.Zero(t, packetRate)
}
