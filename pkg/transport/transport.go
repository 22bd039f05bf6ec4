// Package transport moves bytes between the board and the status server.
//
// On the board the net package is backed by the WiFi co-processor through
// netdev; on a host it is the operating system's stack. Either way the
// Transport contract is the same: connect, send a request, then receive into
// a caller supplied buffer with a bounded wait.
package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

// Transport is a single request/response connection.
type Transport interface {
	Connect(host string, port uint16) error
	Send(p []byte) error
	// Receive reads until the peer closes, buf is full, or timeout passes.
	Receive(buf []byte, timeout time.Duration) (int, error)
	Close() error
}

var (
	ErrNotConnected = errors.New("not connected")
	ErrTimeout      = errors.New("receive timed out with no data")
)

// NetTransport is a Transport over a TCP connection from the net package.
type NetTransport struct {
	DialTimeout time.Duration

	conn net.Conn
}

// NewNet returns a TCP transport that gives up dialing after dialTimeout.
func NewNet(dialTimeout time.Duration) *NetTransport {
	return &NetTransport{DialTimeout: dialTimeout}
}

// Connect opens a TCP connection, closing any previous one first.
func (t *NetTransport) Connect(host string, port uint16) error {
	if t.conn != nil {
		t.Close()
	}

	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))
	conn, err := net.DialTimeout("tcp", addr, t.DialTimeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	t.conn = conn
	return nil
}

// Send writes all of p.
func (t *NetTransport) Send(p []byte) error {
	if t.conn == nil {
		return ErrNotConnected
	}
	_, err := t.conn.Write(p)
	return err
}

// Receive fills buf from the connection. A timeout after some data has
// arrived is not an error: servers that ignore Connection: close still get
// their response parsed.
func (t *NetTransport) Receive(buf []byte, timeout time.Duration) (int, error) {
	if t.conn == nil {
		return 0, ErrNotConnected
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}

	n := 0
	for n < len(buf) {
		m, err := t.conn.Read(buf[n:])
		n += m
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			if n == 0 {
				return 0, ErrTimeout
			}
			return n, nil
		}
		return n, err
	}
	return n, nil
}

// Close releases the connection. Closing twice is a no-op.
func (t *NetTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}
