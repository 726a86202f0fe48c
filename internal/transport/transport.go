package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/GeoffClements/slimproto/internal/slimproto"
)

// Stream is the duplex byte stream between the device and the server.
// Read returns whatever bytes are available; Close unblocks any pending
// read or write and releases the underlying connection.
type Stream interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Dial connects to a Slim server over TCP. An empty port selects the
// protocol default.
func Dial(ctx context.Context, host string, port int) (Stream, error) {
	if port == 0 {
		port = slimproto.DefaultPort
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		// Control frames are small and latency sensitive.
		tc.SetNoDelay(true)
	}

	return conn, nil
}
