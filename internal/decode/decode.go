// Package decode implements the Version Dispatcher (§4.B) and the NetFlow
// v5/v9 decoders (§4.C, §4.D).
package decode

import (
	"encoding/binary"
	"fmt"
	"net"

	"netflow-collector/pkg/types"
)

// ErrMalformed marks a datagram that was dropped because it was shorter
// than the version field or its v5/v9 header, or because its v5 header
// version did not match. A zero-length or overrunning v9 flowset does not
// produce it: decoding stops at that flowset and the flows decoded so far
// are returned without an error, so such flowsets are not counted. The fast
// path never propagates this upward; callers count it and move on.
type ErrMalformed struct {
	Reason string
}

func (e *ErrMalformed) Error() string { return "malformed datagram: " + e.Reason }

// ErrUnknownVersion marks a datagram whose version field is neither 5 nor 9.
type ErrUnknownVersion struct {
	Version uint16
}

func (e *ErrUnknownVersion) Error() string {
	return fmt.Sprintf("unknown NetFlow version: %d", e.Version)
}

// Decoder dispatches datagrams to the v5 or v9 decoder and owns the v9
// template cache, since templates must outlive any single datagram.
type Decoder struct {
	templates *TemplateCache
}

// New creates a Decoder with a fresh template cache.
func New() *Decoder {
	return &Decoder{templates: NewTemplateCache()}
}

// Templates exposes the template cache, mainly for metrics and tests.
func (d *Decoder) Templates() *TemplateCache {
	return d.templates
}

// Result carries the flows decoded from one datagram plus the counters
// the error-handling taxonomy (spec §7) requires the caller to track.
type Result struct {
	Flows           []types.Flow
	TemplatesMissed int
}

// Decode reads the version field and routes to the v5 or v9 decoder.
// Datagrams shorter than 2 bytes are dropped silently, as specified.
func (d *Decoder) Decode(data []byte, sourceIP net.IP) (Result, error) {
	if len(data) < 2 {
		return Result{}, &ErrMalformed{Reason: "shorter than version field"}
	}

	version := binary.BigEndian.Uint16(data[0:2])
	switch version {
	case 5:
		flows, err := decodeV5(data, sourceIP)
		return Result{Flows: flows}, err
	case 9:
		return d.decodeV9(data, sourceIP)
	default:
		return Result{}, &ErrUnknownVersion{Version: version}
	}
}
