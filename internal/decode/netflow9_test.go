package decode

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putFlowSetHeader(buf []byte, id, length uint16) {
	binary.BigEndian.PutUint16(buf[0:2], id)
	binary.BigEndian.PutUint16(buf[2:4], length)
}

func buildV9Header(sourceID uint32) []byte {
	buf := make([]byte, v9HeaderSize)
	binary.BigEndian.PutUint16(buf[0:2], 9)
	binary.BigEndian.PutUint32(buf[4:8], 0)          // sys_uptime
	binary.BigEndian.PutUint32(buf[8:12], 1700000000) // unix_secs
	binary.BigEndian.PutUint32(buf[16:20], sourceID)
	return buf
}

// buildV9TemplateFlowSet builds template_id=256 with fields
// [(IPv4SrcAddr,4), (IPv4DstAddr,4), (InBytes,4), (InPkts,4), (Protocol,1)].
func buildV9TemplateFlowSet() []byte {
	fields := [][2]uint16{
		{fieldIPv4SrcAddr, 4},
		{fieldIPv4DstAddr, 4},
		{fieldInBytes, 4},
		{fieldInPkts, 4},
		{fieldProtocol, 1},
	}
	body := make([]byte, 4+len(fields)*4)
	binary.BigEndian.PutUint16(body[0:2], 256)
	binary.BigEndian.PutUint16(body[2:4], uint16(len(fields)))
	off := 4
	for _, f := range fields {
		binary.BigEndian.PutUint16(body[off:off+2], f[0])
		binary.BigEndian.PutUint16(body[off+2:off+4], f[1])
		off += 4
	}

	flowSet := make([]byte, v9FlowSetHdrSize+len(body))
	putFlowSetHeader(flowSet, flowSetIDTemplate, uint16(len(flowSet)))
	copy(flowSet[v9FlowSetHdrSize:], body)
	return flowSet
}

func buildV9DataFlowSet(templateID uint16, srcIP, dstIP net.IP, bytes, packets uint32, protocol uint8) []byte {
	record := make([]byte, 17) // 4+4+4+4+1
	copy(record[0:4], srcIP.To4())
	copy(record[4:8], dstIP.To4())
	binary.BigEndian.PutUint32(record[8:12], bytes)
	binary.BigEndian.PutUint32(record[12:16], packets)
	record[16] = protocol

	flowSet := make([]byte, v9FlowSetHdrSize+len(record))
	putFlowSetHeader(flowSet, templateID, uint16(len(flowSet)))
	copy(flowSet[v9FlowSetHdrSize:], record)
	return flowSet
}

func TestDecodeV9TemplateThenData(t *testing.T) {
	d := New()

	templateDatagram := append(buildV9Header(1), buildV9TemplateFlowSet()...)
	result, err := d.Decode(templateDatagram, net.IPv4(172, 16, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, result.Flows)
	assert.Equal(t, 1, d.Templates().Len())

	dataFlowSet := buildV9DataFlowSet(256, net.IPv4(10, 1, 1, 1), net.IPv4(8, 8, 8, 8), 9000, 7, 17)
	dataDatagram := append(buildV9Header(1), dataFlowSet...)
	result, err = d.Decode(dataDatagram, net.IPv4(172, 16, 0, 1))
	require.NoError(t, err)
	require.Len(t, result.Flows, 1)

	f := result.Flows[0]
	assert.Equal(t, "10.1.1.1", f.SrcAddr.String())
	assert.Equal(t, "8.8.8.8", f.DstAddr.String())
	assert.Equal(t, uint64(9000), f.Bytes)
	assert.Equal(t, uint64(7), f.Packets)
	assert.Equal(t, uint8(17), f.Protocol)
}

func TestDecodeV9TemplateAndDataInSameDatagram(t *testing.T) {
	d := New()

	datagram := buildV9Header(1)
	datagram = append(datagram, buildV9TemplateFlowSet()...)
	datagram = append(datagram, buildV9DataFlowSet(256, net.IPv4(192, 168, 0, 5), net.IPv4(1, 1, 1, 1), 500, 2, 6)...)

	result, err := d.Decode(datagram, net.IPv4(172, 16, 0, 1))
	require.NoError(t, err)
	require.Len(t, result.Flows, 1)
	assert.Equal(t, uint64(500), result.Flows[0].Bytes)
}

func TestDecodeV9DataBeforeTemplateMissesAndDropsQuietly(t *testing.T) {
	d := New()

	unknownDataFlowSet := buildV9DataFlowSet(300, net.IPv4(10, 2, 2, 2), net.IPv4(4, 4, 4, 4), 1, 1, 6)
	datagram := append(buildV9Header(1), unknownDataFlowSet...)

	result, err := d.Decode(datagram, net.IPv4(172, 16, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, result.Flows)
	assert.Equal(t, 1, result.TemplatesMissed)
}

func TestDecodeV9ZeroLengthFlowSetStopsDatagram(t *testing.T) {
	d := New()

	datagram := buildV9Header(1)
	zeroLen := make([]byte, v9FlowSetHdrSize)
	putFlowSetHeader(zeroLen, 257, 0)
	datagram = append(datagram, zeroLen...)
	datagram = append(datagram, buildV9DataFlowSet(300, net.IPv4(1, 1, 1, 1), net.IPv4(2, 2, 2, 2), 1, 1, 6)...)

	result, err := d.Decode(datagram, net.IPv4(172, 16, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, result.Flows)
	assert.Zero(t, result.TemplatesMissed)
}
