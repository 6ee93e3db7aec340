package decode

import (
	"encoding/binary"
	"net"
	"time"

	"netflow-collector/pkg/types"
)

// NetFlow v9 field type IDs this collector understands (§4.D's required
// minimum set). Anything else is skipped by its declared field_length.
const (
	fieldInBytes     = 1
	fieldInPkts      = 2
	fieldProtocol    = 4
	fieldTOS         = 5
	fieldTCPFlags    = 6
	fieldL4SrcPort   = 7
	fieldIPv4SrcAddr = 8
	fieldL4DstPort   = 11
	fieldIPv4DstAddr = 12
	fieldIPv4NextHop = 15
	fieldLastSwitch  = 21
	fieldFirstSwitch = 22
)

const (
	v9HeaderSize      = 20
	v9FlowSetHdrSize  = 4
	flowSetIDTemplate = 0
	flowSetIDOptions  = 1
)

// decodeV9 walks a NetFlow v9 datagram's FlowSets in wire order. Template
// FlowSets are installed into the cache before any later Data FlowSet in
// the same datagram is decoded, because a datagram may carry both — see
// the concurrency model's wire-order requirement (§5).
func (d *Decoder) decodeV9(data []byte, sourceIP net.IP) (Result, error) {
	if len(data) < v9HeaderSize {
		return Result{}, &ErrMalformed{Reason: "shorter than v9 header"}
	}

	sysUptime := binary.BigEndian.Uint32(data[4:8])
	unixSecs := binary.BigEndian.Uint32(data[8:12])
	sourceID := binary.BigEndian.Uint32(data[16:20])

	deviceNow := time.Unix(int64(unixSecs), 0).UTC()
	bootTime := deviceNow.Add(-time.Duration(sysUptime) * time.Millisecond)

	exporterKey := sourceIP.String()
	now := time.Now().UTC()

	var result Result
	offset := v9HeaderSize

	for offset+v9FlowSetHdrSize <= len(data) {
		flowSetID := binary.BigEndian.Uint16(data[offset:])
		flowSetLen := binary.BigEndian.Uint16(data[offset+2:])

		if flowSetLen == 0 {
			// Zero-length flowset is malformed; stop processing this datagram.
			break
		}
		if offset+int(flowSetLen) > len(data) {
			break
		}

		body := data[offset+v9FlowSetHdrSize : offset+int(flowSetLen)]

		switch {
		case flowSetID == flowSetIDTemplate:
			installV9Templates(d.templates, exporterKey, sourceID, body)
		case flowSetID == flowSetIDOptions:
			// Options FlowSet: parsed for length only, contents discarded (§4.D, §9).
		case flowSetID > 255:
			tmpl := d.templates.Lookup(exporterKey, sourceID, flowSetID)
			if tmpl == nil {
				result.TemplatesMissed++
				break
			}
			flows := decodeV9DataFlowSet(body, tmpl, sourceIP, bootTime, now)
			result.Flows = append(result.Flows, flows...)
		}

		offset += int(flowSetLen)
	}

	return result, nil
}

// installV9Templates parses a Template FlowSet body: a sequence of
// (template_id, field_count) pairs each followed by field_count
// (field_type, field_length) pairs. Field-count overruns truncate silently.
func installV9Templates(cache *TemplateCache, exporterKey string, sourceID uint32, data []byte) {
	offset := 0
	for offset+4 <= len(data) {
		templateID := binary.BigEndian.Uint16(data[offset:])
		fieldCount := binary.BigEndian.Uint16(data[offset+2:])
		offset += 4

		tmpl := &Template{ID: templateID, Fields: make([]FieldSpec, 0, fieldCount)}
		for i := 0; i < int(fieldCount); i++ {
			if offset+4 > len(data) {
				// Overrun: truncate silently, keep whatever fields parsed so far.
				break
			}
			fieldType := binary.BigEndian.Uint16(data[offset:])
			fieldLen := binary.BigEndian.Uint16(data[offset+2:])
			tmpl.Fields = append(tmpl.Fields, FieldSpec{Type: fieldType, Length: fieldLen})
			tmpl.RecordSize += int(fieldLen)
			offset += 4
		}

		cache.Install(exporterKey, sourceID, tmpl)
	}
}

// decodeV9DataFlowSet iterates fixed-size records out of a Data FlowSet
// body using the resolved template's record size.
func decodeV9DataFlowSet(data []byte, tmpl *Template, sourceIP net.IP, bootTime, now time.Time) []types.Flow {
	if tmpl.RecordSize == 0 {
		return nil
	}

	var flows []types.Flow
	for offset := 0; offset+tmpl.RecordSize <= len(data); offset += tmpl.RecordSize {
		record := data[offset : offset+tmpl.RecordSize]
		flows = append(flows, decodeV9Record(record, tmpl, sourceIP, bootTime, now))
	}
	return flows
}

// decodeV9Record applies a template's field list to one fixed-width record.
// Missing optional fields default to zero / 0.0.0.0 because the flow starts
// with zero numeric fields and 0.0.0.0 addresses before any field is applied.
func decodeV9Record(record []byte, tmpl *Template, sourceIP net.IP, bootTime, now time.Time) types.Flow {
	flow := types.Flow{
		Version:    types.NetFlowV9,
		SrcAddr:    types.ZeroIP,
		DstAddr:    types.ZeroIP,
		NextHop:    types.ZeroIP,
		ExporterIP: sourceIP,
		ReceivedAt: now,
	}

	fieldOffset := 0
	for _, field := range tmpl.Fields {
		if fieldOffset+int(field.Length) > len(record) {
			break
		}
		raw := record[fieldOffset : fieldOffset+int(field.Length)]
		fieldOffset += int(field.Length)

		switch field.Type {
		case fieldIPv4SrcAddr:
			if len(raw) == 4 {
				flow.SrcAddr = net.IPv4(raw[0], raw[1], raw[2], raw[3])
			}
		case fieldIPv4DstAddr:
			if len(raw) == 4 {
				flow.DstAddr = net.IPv4(raw[0], raw[1], raw[2], raw[3])
			}
		case fieldIPv4NextHop:
			if len(raw) == 4 {
				flow.NextHop = net.IPv4(raw[0], raw[1], raw[2], raw[3])
			}
		case fieldL4SrcPort:
			if len(raw) == 2 {
				flow.SrcPort = binary.BigEndian.Uint16(raw)
			}
		case fieldL4DstPort:
			if len(raw) == 2 {
				flow.DstPort = binary.BigEndian.Uint16(raw)
			}
		case fieldProtocol:
			if len(raw) >= 1 {
				flow.Protocol = raw[0]
			}
		case fieldTOS:
			if len(raw) >= 1 {
				flow.TOS = raw[0]
			}
		case fieldTCPFlags:
			if len(raw) >= 1 {
				flow.TCPFlags = raw[0]
			}
		case fieldInBytes:
			flow.Bytes = readVarUint(raw)
		case fieldInPkts:
			flow.Packets = readVarUint(raw)
		case fieldFirstSwitch:
			if len(raw) == 4 {
				uptime := binary.BigEndian.Uint32(raw)
				flow.FirstSwitched = bootTime.Add(time.Duration(uptime) * time.Millisecond)
			}
		case fieldLastSwitch:
			if len(raw) == 4 {
				uptime := binary.BigEndian.Uint32(raw)
				flow.LastSwitched = bootTime.Add(time.Duration(uptime) * time.Millisecond)
			}
		}
	}

	return flow
}

// readVarUint interprets a 4-byte field as big-endian uint32 or an 8-byte
// field as big-endian uint64; any other length yields 0 per §4.D.
func readVarUint(raw []byte) uint64 {
	switch len(raw) {
	case 4:
		return uint64(binary.BigEndian.Uint32(raw))
	case 8:
		return binary.BigEndian.Uint64(raw)
	default:
		return 0
	}
}
