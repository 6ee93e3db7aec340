package decode

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netflow-collector/pkg/types"
)

func buildV5Datagram(t *testing.T, records [][2]uint32) []byte {
	t.Helper()
	buf := make([]byte, v5HeaderSize+len(records)*v5RecordSize)
	binary.BigEndian.PutUint16(buf[0:2], 5)
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(records)))
	binary.BigEndian.PutUint32(buf[4:8], 0)          // sys_uptime
	binary.BigEndian.PutUint32(buf[8:12], 1700000000) // unix_secs

	offset := v5HeaderSize
	for _, rec := range records {
		record := buf[offset : offset+v5RecordSize]
		copy(record[0:4], net.IPv4(10, 0, 0, 1).To4())
		copy(record[4:8], net.IPv4(93, 184, 216, 34).To4())
		binary.BigEndian.PutUint32(record[16:20], rec[0]) // packets
		binary.BigEndian.PutUint32(record[20:24], rec[1]) // bytes
		binary.BigEndian.PutUint16(record[32:34], 54321)
		binary.BigEndian.PutUint16(record[34:36], 443)
		record[38] = 6 // TCP
		offset += v5RecordSize
	}
	return buf
}

func TestDecodeV5TwoRecords(t *testing.T) {
	data := buildV5Datagram(t, [][2]uint32{{10, 1500}, {3, 180}})

	d := New()
	result, err := d.Decode(data, net.IPv4(192, 168, 1, 1))
	require.NoError(t, err)
	require.Len(t, result.Flows, 2)

	f := result.Flows[0]
	assert.Equal(t, types.NetFlowV5, f.Version)
	assert.Equal(t, "10.0.0.1", f.SrcAddr.String())
	assert.Equal(t, "93.184.216.34", f.DstAddr.String())
	assert.Equal(t, uint64(10), f.Packets)
	assert.Equal(t, uint64(1500), f.Bytes)
	assert.Equal(t, uint8(6), f.Protocol)
	assert.Equal(t, "TCP", f.ProtocolName())
}

func TestDecodeV5TruncatedRecordStopsEarly(t *testing.T) {
	full := buildV5Datagram(t, [][2]uint32{{1, 100}, {2, 200}})
	truncated := full[:v5HeaderSize+v5RecordSize+10] // second record cut short

	d := New()
	result, err := d.Decode(truncated, net.IPv4(10, 0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, result.Flows, 1)
}

func TestDecodeShortDatagramIsMalformed(t *testing.T) {
	d := New()
	_, err := d.Decode([]byte{0x00}, net.IPv4(10, 0, 0, 1))
	require.Error(t, err)
	var malformed *ErrMalformed
	assert.ErrorAs(t, err, &malformed)
}

func TestDecodeUnknownVersion(t *testing.T) {
	data := make([]byte, 24)
	binary.BigEndian.PutUint16(data[0:2], 10)

	d := New()
	_, err := d.Decode(data, net.IPv4(10, 0, 0, 1))
	require.Error(t, err)
	var unknown *ErrUnknownVersion
	assert.ErrorAs(t, err, &unknown)
	assert.Equal(t, uint16(10), unknown.Version)
}
