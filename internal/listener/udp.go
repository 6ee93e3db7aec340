// Package listener implements the Datagram Receiver (§4.A): UDP sockets
// bound to 0.0.0.0, one reader goroutine per socket, dispatching
// (payload, source) pairs for parallel decoding downstream.
package listener

import (
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog"
)

const (
	// MaxDatagramSize accepts a full 65,535-byte MTU (§4.A, §5).
	MaxDatagramSize = 65535
	// socketBufferSize is the OS-level receive buffer requested via
	// SetReadBuffer; best-effort, failures are non-fatal (§4.A).
	socketBufferSize = 2 * 1024 * 1024
	// packetQueueSize bounds how many datagrams can be buffered between the
	// socket reader and its worker dispatch before new datagrams are
	// dropped — decode is offloaded so this should rarely fill.
	packetQueueSize = 4096
)

// Datagram is a received UDP payload with its source address.
type Datagram struct {
	Data   []byte
	Source net.IP
}

// Listener binds a single UDP socket and reads datagrams into a channel.
type Listener struct {
	name string
	port int
	conn *net.UDPConn
	out  chan Datagram
	log  zerolog.Logger
}

// New creates a Listener for the given logical name (used in logs) and
// port. It does not bind until Start is called.
func New(name string, port int, log zerolog.Logger) *Listener {
	return &Listener{
		name: name,
		port: port,
		out:  make(chan Datagram, packetQueueSize),
		log:  log.With().Str("listener", name).Int("port", port).Logger(),
	}
}

// Start binds the UDP socket with net.ListenUDP and begins the read loop.
// SO_REUSEADDR is not set: net.ListenUDP leaves it off for a unicast
// address such as 0.0.0.0. A bind failure is fatal per §7.
func (l *Listener) Start() error {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: l.port})
	if err != nil {
		return fmt.Errorf("%s: bind udp :%d: %w", l.name, l.port, err)
	}
	if err := conn.SetReadBuffer(socketBufferSize); err != nil {
		l.log.Warn().Err(err).Msg("could not set UDP receive buffer size")
	}
	l.conn = conn

	go l.readLoop()
	return nil
}

// Datagrams returns the channel of received datagrams.
func (l *Listener) Datagrams() <-chan Datagram {
	return l.out
}

// Stop closes the socket, unblocking the read loop.
func (l *Listener) Stop() {
	if l.conn != nil {
		l.conn.Close()
	}
}

func (l *Listener) readLoop() {
	defer close(l.out)
	buf := make([]byte, MaxDatagramSize)

	for {
		n, addr, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.log.Warn().Err(err).Msg("socket read error, continuing")
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		select {
		case l.out <- Datagram{Data: data, Source: addr.IP}:
		default:
			l.log.Debug().Msg("dispatch queue full, dropping datagram")
		}
	}
}
