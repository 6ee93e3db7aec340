package types

import (
	"fmt"
	"net"
	"time"
)

// Version identifies the wire format a flow record was decoded from.
type Version int

const (
	NetFlowV5 Version = 5
	NetFlowV9 Version = 9
)

func (v Version) String() string {
	switch v {
	case NetFlowV5:
		return "NetFlow v5"
	case NetFlowV9:
		return "NetFlow v9"
	default:
		return fmt.Sprintf("Unknown(%d)", v)
	}
}

// Direction is the outcome of RFC 1918 classification of a flow's endpoints.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
	DirectionInternal Direction = "internal"
	DirectionExternal Direction = "external"
)

// Flow is the normalised, post-decode flow record described by the data
// model: built per datagram record and consumed synchronously by the
// classifier and emitter; the dashboard's ring buffer (internal/store)
// keeps copies of the most recent ones.
type Flow struct {
	Version Version

	SrcAddr  net.IP
	DstAddr  net.IP
	NextHop  net.IP
	InputIf  uint16
	OutputIf uint16

	Packets  uint64
	Bytes    uint64
	SrcPort  uint16
	DstPort  uint16
	Protocol uint8
	TCPFlags uint8
	TOS      uint8

	// FirstSwitched/LastSwitched are device-uptime-relative; resolved to
	// wall-clock using the exporting device's boot time where available.
	FirstSwitched time.Time
	LastSwitched  time.Time

	ExporterIP net.IP
	ReceivedAt time.Time

	// Direction is populated by the classifier (§4.E); zero value until then.
	Direction Direction
}

// ZeroIP is the default address for missing optional v9 fields.
var ZeroIP = net.IPv4(0, 0, 0, 0)

// protocolNames maps well-known protocol numbers to their mnemonic.
var protocolNames = map[uint8]string{
	1:  "ICMP",
	6:  "TCP",
	17: "UDP",
	47: "GRE",
	50: "ESP",
	51: "AH",
	58: "ICMPv6",
}

// ProtocolName returns the mnemonic for the flow's protocol number, or
// "Protocol-<n>" for anything not in the well-known set.
func (f *Flow) ProtocolName() string {
	return ProtocolName(f.Protocol)
}

// ProtocolName maps a protocol number to its mnemonic.
func ProtocolName(p uint8) string {
	if name, ok := protocolNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Protocol-%d", p)
}

// TCPFlagsString renders TCP flags as a compact letter string; "-" for
// non-TCP flows.
func (f *Flow) TCPFlagsString() string {
	if f.Protocol != 6 {
		return "-"
	}
	flags := ""
	if f.TCPFlags&0x01 != 0 {
		flags += "F"
	}
	if f.TCPFlags&0x02 != 0 {
		flags += "S"
	}
	if f.TCPFlags&0x04 != 0 {
		flags += "R"
	}
	if f.TCPFlags&0x08 != 0 {
		flags += "P"
	}
	if f.TCPFlags&0x10 != 0 {
		flags += "A"
	}
	if f.TCPFlags&0x20 != 0 {
		flags += "U"
	}
	if flags == "" {
		flags = "."
	}
	return flags
}

// FlowKey is an identifier for a flow built from its endpoints, protocol
// and receive time.
func (f *Flow) FlowKey() string {
	return fmt.Sprintf("%s:%d-%s:%d-%d-%d",
		f.SrcAddr, f.SrcPort, f.DstAddr, f.DstPort, f.Protocol, f.ReceivedAt.UnixNano())
}
