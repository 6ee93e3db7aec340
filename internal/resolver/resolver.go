// Package resolver implements the Hostname Resolver (§4.F): a reverse-DNS
// lookup with a TTL-bounded cache held in the keyed store, an mDNS fallback,
// and IPv6 EUI-64 MAC-address correlation across sibling addresses (§12).
package resolver

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"netflow-collector/internal/keyedstore"
	"netflow-collector/internal/telemetry"
)

const (
	// CacheTTL is the hostname cache lifetime (§3, §4.F).
	CacheTTL = 3600 * time.Second

	hostnameKeyPrefix = "hostname:"
	macKeyPrefix      = "mac:"
)

// Resolver looks up reverse DNS for flow endpoints, consulting and
// populating the keyed store's TTL cache. It never blocks the decode fast
// path for longer than Timeout; on timeout the IP string is used and the
// result is not cached (§4.F).
type Resolver struct {
	store   *keyedstore.Store
	timeout time.Duration
	metrics *telemetry.Metrics

	// lookupAddr is swappable in tests; defaults to net.DefaultResolver.
	lookupAddr func(ctx context.Context, ip string) ([]string, error)
}

// New creates a Resolver backed by store with the given per-lookup timeout.
// The spec recommends a timeout of 2s or less.
func New(store *keyedstore.Store, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Resolver{
		store:      store,
		timeout:    timeout,
		lookupAddr: net.DefaultResolver.LookupAddr,
	}
}

// WithMetrics attaches the Prometheus counters this resolver increments on
// cache hits and timeouts. Metrics stay optional so tests can construct a
// Resolver without standing up a registry.
func (r *Resolver) WithMetrics(m *telemetry.Metrics) *Resolver {
	r.metrics = m
	return r
}

// Resolve returns the hostname for ip. On cache hit, returns the cached
// string directly. On miss, it resolves (falling back to mDNS if plain
// reverse DNS is unhelpful), caches the outcome — including fallback to the
// IP string itself, to suppress repeated failing queries — and returns it.
// A lookup that exceeds the configured timeout falls back to the IP string
// without being cached, so a transiently slow resolver gets retried later.
func (r *Resolver) Resolve(ctx context.Context, ip net.IP) string {
	if ip == nil {
		return ""
	}
	ipStr := ip.String()
	key := hostnameKeyPrefix + ipStr

	if cached, err := r.store.Get(ctx, key); err == nil && cached != "" {
		if r.metrics != nil {
			r.metrics.ResolverCacheHits.Inc()
		}
		return cached
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type outcome struct {
		hostname string
		resolved bool
	}
	result := make(chan outcome, 1)
	go func() {
		hostname, resolved := r.lookup(lookupCtx, ipStr, ip)
		result <- outcome{hostname, resolved}
	}()

	select {
	case out := <-result:
		value := ipStr
		if out.resolved {
			value = out.hostname
		}
		// Cache both successful resolutions and failures (as the IP string
		// itself) — the cache has no separate negative-lookup marker.
		_ = r.store.SetWithTTL(ctx, key, value, CacheTTL)
		return value
	case <-lookupCtx.Done():
		if r.metrics != nil {
			r.metrics.ResolverTimeouts.Inc()
		}
		return ipStr
	}
}

// lookup performs the actual reverse-DNS work: a standard PTR lookup, with
// an mDNS fallback for responses that are unhelpful or absent (teacher
// enrichment, not required by the spec but harmless to the cache contract
// above since only the final (hostname, resolved) pair is visible). As a
// last resort for EUI-64 IPv6 addresses, it consults the MAC correlation
// cache populated by earlier successful lookups of sibling addresses.
func (r *Resolver) lookup(ctx context.Context, ipStr string, ip net.IP) (string, bool) {
	names, err := r.lookupAddr(ctx, ipStr)
	if err == nil && len(names) > 0 {
		hostname := strings.TrimSuffix(names[0], ".")
		if !isUnhelpful(hostname, ipStr) {
			r.correlateMAC(ctx, ip, hostname)
			return hostname, true
		}
	}

	if hostname := lookupMDNS(ctx, ip); hostname != "" {
		r.correlateMAC(ctx, ip, hostname)
		return hostname, true
	}

	if mac := extractMACFromIPv6(ip); mac != "" {
		if hostname, err := r.store.Get(ctx, macKeyPrefix+mac); err == nil && hostname != "" {
			return hostname, true
		}
	}

	return "", false
}

// correlateMAC records the MAC-to-hostname association carried by an
// EUI-64 IPv6 address (§4.F supplement): the low 64 bits of such an address
// embed the interface's MAC, so a device seen first under one EUI-64
// address can have its hostname reused for another EUI-64 address that
// embeds the same MAC. A non-EUI-64 address (including a SLAAC privacy
// address, which carries no MAC) is a no-op.
func (r *Resolver) correlateMAC(ctx context.Context, ip net.IP, hostname string) {
	mac := extractMACFromIPv6(ip)
	if mac == "" {
		return
	}
	_ = r.store.SetWithTTL(ctx, macKeyPrefix+mac, hostname, CacheTTL)
}

// extractMACFromIPv6 recovers the embedded MAC address from an IPv6 address
// using the Modified EUI-64 scheme, identified by the FF:FE marker at bytes
// 11-12. It returns "" for IPv4 addresses and IPv6 addresses that are not
// EUI-64 encoded (SLAAC privacy addresses, manually assigned addresses).
func extractMACFromIPv6(ip net.IP) string {
	if ip == nil || ip.To4() != nil {
		return ""
	}
	ip16 := ip.To16()
	if ip16 == nil {
		return ""
	}
	if ip16[11] != 0xff || ip16[12] != 0xfe {
		return ""
	}

	mac := [6]byte{
		ip16[8] ^ 0x02, // flip the Universal/Local bit back
		ip16[9],
		ip16[10],
		ip16[13],
		ip16[14],
		ip16[15],
	}
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
}

// isUnhelpful filters out reverse-DNS answers that are just the address
// re-encoded (common for IPv6 PTR records from consumer routers).
func isUnhelpful(hostname, ipStr string) bool {
	if hostname == "" || hostname == ipStr {
		return true
	}
	if strings.Contains(hostname, ipStr) {
		return true
	}
	dashed := strings.NewReplacer(".", "-", ":", "-").Replace(ipStr)
	return strings.Contains(hostname, dashed)
}

// lookupMDNS tries a one-shot multicast DNS PTR query, used as a fallback
// for private-network addresses unit DNS never heard of.
func lookupMDNS(ctx context.Context, ip net.IP) string {
	if ip == nil {
		return ""
	}

	var reverseName, mdnsAddr string
	if v4 := ip.To4(); v4 != nil {
		reverseName = fmt.Sprintf("%d.%d.%d.%d.in-addr.arpa.", v4[3], v4[2], v4[1], v4[0])
		mdnsAddr = "224.0.0.251:5353"
	} else {
		reverseName = reverseIPv6(ip)
		mdnsAddr = "[ff02::fb]:5353"
	}
	if reverseName == "" {
		return ""
	}

	msg := new(dns.Msg)
	msg.SetQuestion(reverseName, dns.TypePTR)
	msg.RecursionDesired = false

	deadline := 300 * time.Millisecond
	if d, ok := ctx.Deadline(); ok {
		if remaining := time.Until(d); remaining < deadline {
			deadline = remaining
		}
	}
	if deadline <= 0 {
		return ""
	}

	client := &dns.Client{Net: "udp", Timeout: deadline}
	resp, _, err := client.Exchange(msg, mdnsAddr)
	if err != nil || resp == nil {
		return ""
	}
	for _, answer := range resp.Answer {
		if ptr, ok := answer.(*dns.PTR); ok {
			return strings.TrimSuffix(ptr.Ptr, ".")
		}
	}
	return ""
}

// reverseIPv6 builds the reverse DNS name for an IPv6 address.
func reverseIPv6(ip net.IP) string {
	ip16 := ip.To16()
	if ip16 == nil {
		return ""
	}
	var b strings.Builder
	for i := len(ip16) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "%x.%x.", ip16[i]&0x0f, ip16[i]>>4)
	}
	b.WriteString("ip6.arpa.")
	return b.String()
}
