package serial

import (
	"bytes"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"testing"

	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/protocol"
)

// tricklePort writes one byte at a time and yields in between, the way a
// full USB CDC buffer hands control back to the scheduler.
type tricklePort struct {
	mu  sync.Mutex
	out bytes.Buffer
}

func (p *tricklePort) Write(b []byte) (int, error) {
	for _, c := range b {
		p.mu.Lock()
		p.out.WriteByte(c)
		p.mu.Unlock()
		runtime.Gosched()
	}
	return len(b), nil
}

func (p *tricklePort) Buffered() int { return 0 }

func (p *tricklePort) ReadByte() (byte, error) { return 0, io.EOF }

func TestConsoleKeepsFramesWhole(t *testing.T) {
	const n = 50
	port := &tricklePort{}
	console := NewConsole(port)
	logger := slog.New(slog.NewTextHandler(console, nil))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			logger.Info("refresh done", "fetches", i)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			protocol.WriteResponse(console, &protocol.Response{Status: protocol.StatusOK, Payload: []byte("pong")})
		}
	}()
	wg.Wait()

	if got := bytes.Count(port.out.Bytes(), []byte(`msg="refresh done"`)); got != n {
		t.Errorf("found %d intact log records, want %d", got, n)
	}
	for i := 0; i < n; i++ {
		resp, err := protocol.ReadResponse(&port.out, 1<<16)
		if err != nil {
			t.Fatalf("response %d: %v", i, err)
		}
		if resp.Status != protocol.StatusOK || string(resp.Payload) != "pong" {
			t.Fatalf("response %d: status %d payload %q", i, resp.Status, resp.Payload)
		}
	}
}

func TestConsolePassesReads(t *testing.T) {
	port := &fakePort{}
	port.in.WriteString("ab")
	console := NewConsole(port)

	if console.Buffered() != 2 {
		t.Fatalf("Buffered = %d, want 2", console.Buffered())
	}
	b, err := console.ReadByte()
	if err != nil || b != 'a' {
		t.Errorf("ReadByte = %q, %v", b, err)
	}
}
