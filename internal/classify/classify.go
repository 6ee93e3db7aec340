// Package classify implements the Flow Classifier (§4.E): direction
// assignment from RFC 1918/IPv6-private membership, and protocol
// number-to-mnemonic mapping (delegated to pkg/types, which owns the
// canonical table).
package classify

import (
	"net"

	"netflow-collector/pkg/types"
)

var privateBlocks = func() []*net.IPNet {
	cidrs := []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}
	blocks := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, block, err := net.ParseCIDR(c)
		if err != nil {
			panic(err) // unreachable: cidrs are constant and valid
		}
		blocks = append(blocks, block)
	}
	return blocks
}()

// IsPrivate reports whether ip falls within the RFC 1918 private ranges, or,
// for IPv6, the link-local (fe80::/10) and unique-local (fc00::/7) ranges.
func IsPrivate(ip net.IP) bool {
	if v4 := ip.To4(); v4 != nil {
		for _, block := range privateBlocks {
			if block.Contains(v4) {
				return true
			}
		}
		return false
	}

	ip16 := ip.To16()
	if ip16 == nil {
		return false
	}
	if ip16[0] == 0xfe && (ip16[1]&0xc0) == 0x80 {
		return true
	}
	return ip16[0] == 0xfc || ip16[0] == 0xfd
}

// Direction computes the flow direction for a (src, dst) pair. Malformed
// addresses classify as external and are not retried, per §4.E.
func Direction(src, dst net.IP) types.Direction {
	if src.To16() == nil || dst.To16() == nil {
		return types.DirectionExternal
	}
	srcPrivate := IsPrivate(src)
	dstPrivate := IsPrivate(dst)

	switch {
	case srcPrivate && !dstPrivate:
		return types.DirectionOutbound
	case !srcPrivate && dstPrivate:
		return types.DirectionInbound
	case srcPrivate && dstPrivate:
		return types.DirectionInternal
	default:
		return types.DirectionExternal
	}
}

// Classify assigns f.Direction in place and returns it for convenience.
func Classify(f *types.Flow) types.Direction {
	f.Direction = Direction(f.SrcAddr, f.DstAddr)
	return f.Direction
}
