package resolver

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netflow-collector/internal/keyedstore"
)

func newTestResolver(t *testing.T, lookup func(ctx context.Context, ip string) ([]string, error)) *Resolver {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := keyedstore.NewFromClient(client)
	r := New(store, time.Second)
	r.lookupAddr = lookup
	return r
}

func TestResolveCachesAcrossRepeatedFlows(t *testing.T) {
	var calls int32
	r := newTestResolver(t, func(ctx context.Context, ip string) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		return []string{"host.example.com."}, nil
	})

	ctx := context.Background()
	ip := net.ParseIP("203.0.113.5")

	first := r.Resolve(ctx, ip)
	second := r.Resolve(ctx, ip)

	assert.Equal(t, "host.example.com", first)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestResolveTimeoutFallsBackWithoutCaching(t *testing.T) {
	r := newTestResolver(t, func(ctx context.Context, ip string) ([]string, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	r.timeout = 10 * time.Millisecond

	ctx := context.Background()
	ip := net.ParseIP("203.0.113.9")

	got := r.Resolve(ctx, ip)
	assert.Equal(t, ip.String(), got)

	cached, err := r.store.Get(ctx, hostnameKeyPrefix+ip.String())
	require.NoError(t, err)
	assert.Empty(t, cached)
}

func TestResolveUnhelpfulAnswerFallsBackToIP(t *testing.T) {
	r := newTestResolver(t, func(ctx context.Context, ip string) ([]string, error) {
		return []string{ip + "."}, nil
	})

	ip := net.ParseIP("198.51.100.7")
	got := r.Resolve(context.Background(), ip)
	assert.Equal(t, ip.String(), got)
}

func TestExtractMACFromIPv6(t *testing.T) {
	assert.Equal(t, "00:11:22:33:44:55", extractMACFromIPv6(net.ParseIP("fe80::211:22ff:fe33:4455")))
	assert.Empty(t, extractMACFromIPv6(net.ParseIP("2001:db8::1")), "not EUI-64 encoded")
	assert.Empty(t, extractMACFromIPv6(net.ParseIP("203.0.113.5")), "IPv4 address")
	assert.Empty(t, extractMACFromIPv6(nil))
}

func TestResolveCorrelatesMACAcrossSiblingAddresses(t *testing.T) {
	const linkLocal = "fe80::211:22ff:fe33:4455"
	r := newTestResolver(t, func(ctx context.Context, ip string) ([]string, error) {
		if ip == linkLocal {
			return []string{"iot-sensor.lan."}, nil
		}
		return nil, errors.New("no record")
	})
	r.timeout = 50 * time.Millisecond

	ctx := context.Background()
	first := r.Resolve(ctx, net.ParseIP(linkLocal))
	assert.Equal(t, "iot-sensor.lan", first)

	// Global address sharing the same embedded MAC: DNS/mDNS fail, so the
	// resolver should fall back to the MAC correlation cache rather than
	// the bare IP string.
	global := net.ParseIP("2001:db8::211:22ff:fe33:4455")
	second := r.Resolve(ctx, global)
	assert.Equal(t, "iot-sensor.lan", second)
}

func TestIsUnhelpful(t *testing.T) {
	assert.True(t, isUnhelpful("", "1.2.3.4"))
	assert.True(t, isUnhelpful("1.2.3.4", "1.2.3.4"))
	assert.True(t, isUnhelpful("customer-1-2-3-4.isp.net", "1.2.3.4"))
	assert.False(t, isUnhelpful("host.example.com", "1.2.3.4"))
}
