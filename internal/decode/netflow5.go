package decode

import (
	"encoding/binary"
	"net"
	"time"

	"netflow-collector/pkg/types"
)

// NetFlow v5 header (24 bytes):
//   version(H) count(H) sys_uptime(I) unix_secs(I) unix_nsecs(I)
//   flow_sequence(I) engine_type(B) engine_id(B) sampling_interval(H)
//
// NetFlow v5 record (48 bytes), fixed RFC layout:
//   src_addr(I) dst_addr(I) next_hop(I) input_if(H) output_if(H)
//   packets(I) bytes(I) first(I) last(I) src_port(H) dst_port(H)
//   pad1(B) tcp_flags(B) protocol(B) tos(B) src_as(H) dst_as(H)
//   src_mask(B) dst_mask(B) pad2(H)

const (
	v5HeaderSize = 24
	v5RecordSize = 48
)

func decodeV5(data []byte, sourceIP net.IP) ([]types.Flow, error) {
	if len(data) < v5HeaderSize {
		return nil, &ErrMalformed{Reason: "shorter than v5 header"}
	}

	version := binary.BigEndian.Uint16(data[0:2])
	if version != 5 {
		return nil, &ErrMalformed{Reason: "v5 header version mismatch"}
	}

	count := binary.BigEndian.Uint16(data[2:4])
	sysUptime := binary.BigEndian.Uint32(data[4:8])
	unixSecs := binary.BigEndian.Uint32(data[8:12])
	unixNsecs := binary.BigEndian.Uint32(data[12:16])

	deviceNow := time.Unix(int64(unixSecs), int64(unixNsecs)).UTC()
	bootTime := deviceNow.Add(-time.Duration(sysUptime) * time.Millisecond)

	now := time.Now().UTC()
	flows := make([]types.Flow, 0, count)

	offset := v5HeaderSize
	for i := 0; i < int(count); i++ {
		if len(data)-offset < v5RecordSize {
			break
		}
		record := data[offset : offset+v5RecordSize]
		offset += v5RecordSize

		firstUptime := binary.BigEndian.Uint32(record[24:28])
		lastUptime := binary.BigEndian.Uint32(record[28:32])

		flows = append(flows, types.Flow{
			Version:       types.NetFlowV5,
			SrcAddr:       net.IPv4(record[0], record[1], record[2], record[3]),
			DstAddr:       net.IPv4(record[4], record[5], record[6], record[7]),
			NextHop:       net.IPv4(record[8], record[9], record[10], record[11]),
			InputIf:       binary.BigEndian.Uint16(record[12:14]),
			OutputIf:      binary.BigEndian.Uint16(record[14:16]),
			Packets:       uint64(binary.BigEndian.Uint32(record[16:20])),
			Bytes:         uint64(binary.BigEndian.Uint32(record[20:24])),
			FirstSwitched: bootTime.Add(time.Duration(firstUptime) * time.Millisecond),
			LastSwitched:  bootTime.Add(time.Duration(lastUptime) * time.Millisecond),
			SrcPort:       binary.BigEndian.Uint16(record[32:34]),
			DstPort:       binary.BigEndian.Uint16(record[34:36]),
			TCPFlags:      record[37],
			Protocol:      record[38],
			TOS:           record[39],
			ExporterIP:    sourceIP,
			ReceivedAt:    now,
		})
	}

	return flows, nil
}
