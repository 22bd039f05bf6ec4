package transport

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// DefaultBufferSize holds a short HTTP response with its headers.
const DefaultBufferSize = 1024

var ErrStatus = errors.New("unexpected HTTP status")

// Target is where the status line is served.
type Target struct {
	Host string
	Port uint16
	Path string
}

func (t Target) String() string {
	return t.Host + ":" + strconv.Itoa(int(t.Port)) + t.Path
}

// Fetcher performs the fixed GET against a Target. It owns one receive
// buffer, reused on every call.
type Fetcher struct {
	transport Transport
	target    Target
	timeout   time.Duration
	request   []byte
	buf       []byte
	logger    *slog.Logger
}

// NewFetcher builds the request for target once. bufSize <= 0 selects
// DefaultBufferSize.
func NewFetcher(t Transport, target Target, timeout time.Duration, bufSize int, logger *slog.Logger) *Fetcher {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		transport: t,
		target:    target,
		timeout:   timeout,
		request:   Request(target.Host, target.Path),
		buf:       make([]byte, bufSize),
		logger:    logger,
	}
}

// Request returns the literal GET sent to the server.
func Request(host, path string) []byte {
	var b bytes.Buffer
	b.WriteString("GET ")
	b.WriteString(path)
	b.WriteString(" HTTP/1.1\r\nHost: ")
	b.WriteString(host)
	b.WriteString("\r\nConnection: close\r\n\r\n")
	return b.Bytes()
}

// Fetch runs one request. The returned slice aliases the Fetcher's buffer
// and is only valid until the next call.
func (f *Fetcher) Fetch() ([]byte, error) {
	start := time.Now()

	if err := f.transport.Connect(f.target.Host, f.target.Port); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer f.transport.Close()

	if err := f.transport.Send(f.request); err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}

	n, err := f.transport.Receive(f.buf, f.timeout)
	if err != nil {
		return nil, fmt.Errorf("receive: %w", err)
	}
	body := f.buf[:n]

	if err := checkStatus(body); err != nil {
		return nil, err
	}

	f.logger.Debug("fetched status",
		"target", f.target.String(),
		"bytes", n,
		"elapsed", time.Since(start))
	return body, nil
}

// checkStatus accepts "HTTP/1.x 200" status lines only.
func checkStatus(resp []byte) error {
	line := resp
	if i := bytes.IndexByte(resp, '\n'); i >= 0 {
		line = resp[:i]
	}
	line = bytes.TrimRight(line, "\r")

	if len(line) < 12 || !bytes.HasPrefix(line, []byte("HTTP/1.")) || line[8] != ' ' {
		return fmt.Errorf("%w: %q", ErrStatus, line)
	}
	if string(line[9:12]) != "200" {
		return fmt.Errorf("%w: %q", ErrStatus, line)
	}
	return nil
}
