// Package serial serves the provisioning protocol on the board's USB serial
// line.
package serial

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/protocol"
)

// pollInterval is how long the reader sleeps when no byte is waiting. The
// scheduler is cooperative on the board, so an idle reader must yield.
const pollInterval = 10 * time.Millisecond

// Port is the subset of machine.Serialer the handler needs.
type Port interface {
	io.Writer
	Buffered() int
	ReadByte() (byte, error)
}

// Handler answers one protocol frame.
type Handler interface {
	Handle(frame *protocol.Frame) *protocol.Response
}

type Serial struct {
	port    Port
	handler Handler
	restart func()
	logger  *slog.Logger
	reader  portReader
}

// NewSerial wires a port to a protocol handler. restart runs after a
// response that asks for one has been written.
func NewSerial(port Port, handler Handler, restart func(), logger *slog.Logger) Serial {
	if logger == nil {
		logger = slog.Default()
	}
	return Serial{
		port:    port,
		handler: handler,
		restart: restart,
		logger:  logger,
		reader:  portReader{port: port},
	}
}

// Handle serves frames until the port reports EOF.
func (s *Serial) Handle() {
	for {
		if err := s.HandleOne(); errors.Is(err, io.EOF) {
			return
		}
	}
}

// HandleOne reads one frame and writes its response. Bytes that do not
// start a frame are dropped; a frame with a bad CRC gets StatusCRCError.
func (s *Serial) HandleOne() error {
	frame, err := protocol.ReadFrame(&s.reader)
	if err != nil {
		switch {
		case errors.Is(err, protocol.ErrCRCMismatch):
			s.logger.Warn("frame CRC mismatch")
			return s.write(&protocol.Response{Status: protocol.StatusCRCError})
		case errors.Is(err, protocol.ErrInvalidFrame):
			return nil
		default:
			return err
		}
	}

	s.logger.Debug("frame received",
		"cmd", protocol.CommandName(frame.Cmd),
		"payload", protocol.HexPrefix(frame.Payload, 8))

	resp := s.handler.Handle(frame)
	if err := s.write(resp); err != nil {
		return err
	}

	s.logger.Info("frame handled",
		"cmd", protocol.CommandName(frame.Cmd),
		"status", protocol.StatusName(resp.Status),
		"len", len(resp.Payload))

	if resp.Restart && s.restart != nil {
		s.restart()
	}
	return nil
}

func (s *Serial) write(resp *protocol.Response) error {
	if err := protocol.WriteResponse(s.port, resp); err != nil {
		s.logger.Error("write response", "error", err)
		return err
	}
	return nil
}

// portReader turns a non-blocking Port into a blocking io.Reader.
type portReader struct {
	port Port
}

func (r *portReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for r.port.Buffered() == 0 {
		time.Sleep(pollInterval)
	}

	n := 0
	for n < len(p) && r.port.Buffered() > 0 {
		b, err := r.port.ReadByte()
		if err != nil {
			return n, err
		}
		p[n] = b
		n++
	}
	return n, nil
}
