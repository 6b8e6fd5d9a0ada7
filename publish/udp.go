// Package publish fans emitted NMEA lines out to the configured sinks:
// a UDP datagram destination, TCP clients with isolated queues, and an
// optional serial port.
package publish

import (
	"fmt"
	"net"

	"github.com/rs/zerolog"
)

// NormalizeUDPHost maps an unset or wildcard destination to loopback. A
// datagram sender has no use for 0.0.0.0 as a target.
func NormalizeUDPHost(host string) string {
	if host == "" || host == "0.0.0.0" {
		return "127.0.0.1"
	}
	return host
}

// UDP sends each line as one connected datagram.
type UDP struct {
	conn net.Conn
	log  zerolog.Logger
}

// NewUDP connects a datagram socket to host:port.
func NewUDP(host string, port int, log zerolog.Logger) (*UDP, error) {
	addr := net.JoinHostPort(NormalizeUDPHost(host), fmt.Sprintf("%d", port))
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("udp dial %s: %w", addr, err)
	}
	log.Info().Str("addr", addr).Msg("udp sink connected")
	return &UDP{conn: conn, log: log}, nil
}

// Publish writes one sentence as a datagram. Errors are logged and the
// line is dropped; a missing receiver must not stop the tick loop.
func (u *UDP) Publish(line string) {
	if _, err := u.conn.Write([]byte(line)); err != nil {
		u.log.Warn().Err(err).Msg("udp send failed")
	}
}

// Addr returns the destination address.
func (u *UDP) Addr() string {
	return u.conn.RemoteAddr().String()
}

// Close releases the socket.
func (u *UDP) Close() error {
	return u.conn.Close()
}
