package listener

import (
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestListenerReceivesDatagram(t *testing.T) {
	l := New("test", 0, zerolog.Nop())
	require.NoError(t, l.Start())
	defer l.Stop()

	addr := l.conn.LocalAddr().(*net.UDPAddr)
	conn, err := net.DialUDP("udp", nil, addr)
	require.NoError(t, err)
	defer conn.Close()

	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	_, err = conn.Write(payload)
	require.NoError(t, err)

	select {
	case dg := <-l.Datagrams():
		require.Equal(t, payload, dg.Data)
		require.True(t, dg.Source.IsLoopback())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for datagram")
	}
}

func TestListenerStopClosesChannel(t *testing.T) {
	l := New("test", 0, zerolog.Nop())
	require.NoError(t, l.Start())

	l.Stop()

	select {
	case _, ok := <-l.Datagrams():
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close after Stop")
	}
}
