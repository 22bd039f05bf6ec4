package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/goburrow/serial"

	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/config"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/protocol"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/state"
)

// maxSkip bounds how much log output may precede a response frame.
const maxSkip = 4096

var errStatus = errors.New("device returned error")

// client speaks the provisioning protocol over one link.
type client struct {
	rw io.ReadWriter
}

// openPort opens a serial device in 8N1 mode.
func openPort(address string, baud int, timeout time.Duration) (io.ReadWriteCloser, error) {
	port, err := serial.Open(&serial.Config{
		Address:  address,
		BaudRate: baud,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", address, err)
	}
	return port, nil
}

// candidatePorts lists serial devices that may be a board.
func candidatePorts() []string {
	var ports []string
	for _, pattern := range []string{"/dev/ttyACM*", "/dev/tty.usbmodem*", "/dev/cu.usbmodem*"} {
		matches, _ := filepath.Glob(pattern)
		ports = append(ports, matches...)
	}
	return ports
}

// call sends one command and returns the OK response payload.
func (c *client) call(cmd uint8, payload []byte) ([]byte, error) {
	if err := protocol.WriteFrame(c.rw, &protocol.Frame{Cmd: cmd, Payload: payload}); err != nil {
		return nil, fmt.Errorf("%s: write: %w", protocol.CommandName(cmd), err)
	}

	resp, err := protocol.ReadResponse(c.rw, maxSkip)
	if err != nil {
		return nil, fmt.Errorf("%s: read: %w", protocol.CommandName(cmd), err)
	}
	if resp.Status != protocol.StatusOK {
		if len(resp.Payload) > 0 {
			return nil, fmt.Errorf("%s: %w: %s: %s", protocol.CommandName(cmd), errStatus, protocol.StatusName(resp.Status), resp.Payload)
		}
		return nil, fmt.Errorf("%s: %w: %s", protocol.CommandName(cmd), errStatus, protocol.StatusName(resp.Status))
	}
	return resp.Payload, nil
}

func (c *client) ping(payload []byte) error {
	echo, err := c.call(protocol.CmdPing, payload)
	if err != nil {
		return err
	}
	if string(echo) != string(payload) {
		return fmt.Errorf("ping: echo mismatch: %q", echo)
	}
	return nil
}

func (c *client) discover() (bool, error) {
	reply, err := c.call(protocol.CmdDiscover, nil)
	if err != nil {
		return false, err
	}
	return string(reply) == protocol.DiscoverReply, nil
}

// version returns the firmware major and minor and the config version.
func (c *client) version() (uint8, uint8, uint16, error) {
	p, err := c.call(protocol.CmdGetVersion, nil)
	if err != nil {
		return 0, 0, 0, err
	}
	if len(p) != 4 {
		return 0, 0, 0, fmt.Errorf("version: short reply (%d bytes)", len(p))
	}
	return p[0], p[1], uint16(p[2]) | uint16(p[3])<<8, nil
}

func (c *client) getConfig() (config.Config, error) {
	var cfg config.Config
	p, err := c.call(protocol.CmdGetConfig, nil)
	if err != nil {
		return cfg, err
	}
	err = cfg.UnmarshalBinary(p)
	return cfg, err
}

func (c *client) setConfig(cfg *config.Config) error {
	data, err := cfg.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = c.call(protocol.CmdSetConfig, data)
	return err
}

func (c *client) status() (state.Status, error) {
	var st state.Status
	p, err := c.call(protocol.CmdGetStatus, nil)
	if err != nil {
		return st, err
	}
	err = st.UnmarshalBinary(p)
	return st, err
}

func (c *client) reset() error {
	_, err := c.call(protocol.CmdFactoryReset, nil)
	return err
}

func (c *client) restart() error {
	_, err := c.call(protocol.CmdRestart, nil)
	return err
}

// scan probes every candidate port and returns the ones that answer
// discover.
func scan(baud int, timeout time.Duration, logf func(string, ...any)) []string {
	var found []string
	for _, address := range candidatePorts() {
		port, err := openPort(address, baud, timeout)
		if err != nil {
			logf("skip %s: %v", address, err)
			continue
		}
		ok, err := (&client{rw: port}).discover()
		port.Close()
		if err != nil {
			logf("skip %s: %v", address, err)
			continue
		}
		if ok {
			found = append(found, address)
		}
	}
	return found
}
