// Package ledchain drives a daisy chain of MAX7219 LED drivers over SPI.
//
// Every device in the chain is either an 8x8 dot matrix or an eight digit
// seven-segment display; the MAX7219 treats both as eight 8-bit digit
// registers. Device 0 is the one wired nearest the microcontroller.
//
// A write to one device shifts a frame of two bytes per device through the
// whole chain with no-op commands for the others, then latches it with a
// rising edge on chip select.
package ledchain

import (
	"errors"

	"tinygo.org/x/drivers"

	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/glyph"
)

// MAX7219 register addresses
const (
	regNoop        = 0x00
	regDigit0      = 0x01 // digit registers are 0x01-0x08
	regDecodeMode  = 0x09
	regIntensity   = 0x0A
	regScanLimit   = 0x0B
	regShutdown    = 0x0C
	regDisplayTest = 0x0F
)

const (
	// MaxIntensity is the brightest duty cycle setting.
	MaxIntensity = 15

	digits = 8
)

var (
	ErrNoDevice   = errors.New("device index out of range")
	ErrNoPosition = errors.New("row or column out of range")
)

// Pin is the chip select line. machine.Pin satisfies it.
type Pin interface {
	High()
	Low()
}

// Chain is a string of MAX7219 devices sharing one chip select.
type Chain struct {
	bus   drivers.SPI
	cs    Pin
	frame []byte
	rows  [][digits]byte
}

// New returns a chain of n devices. Call Configure before drawing.
func New(bus drivers.SPI, cs Pin, n int) *Chain {
	cs.High()
	return &Chain{
		bus:   bus,
		cs:    cs,
		frame: make([]byte, 2*n),
		rows:  make([][digits]byte, n),
	}
}

// Len returns the number of devices.
func (c *Chain) Len() int {
	return len(c.rows)
}

// Configure wakes every device in raw (no decode) mode, scanning all eight
// digits at the given intensity, and clears it.
func (c *Chain) Configure(intensity uint8) error {
	if intensity > MaxIntensity {
		intensity = MaxIntensity
	}
	for dev := range c.rows {
		for _, cmd := range [...][2]byte{
			{regDisplayTest, 0},
			{regScanLimit, digits - 1},
			{regDecodeMode, 0},
			{regIntensity, intensity},
		} {
			if err := c.write(dev, cmd[0], cmd[1]); err != nil {
				return err
			}
		}
		if err := c.ClearPanel(dev); err != nil {
			return err
		}
		if err := c.Shutdown(dev, false); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown blanks dev without losing its registers when off is true.
func (c *Chain) Shutdown(dev int, off bool) error {
	var v byte = 1
	if off {
		v = 0
	}
	return c.write(dev, regShutdown, v)
}

// SetIntensity sets the brightness of dev, 0-15.
func (c *Chain) SetIntensity(dev int, level uint8) error {
	if level > MaxIntensity {
		level = MaxIntensity
	}
	return c.write(dev, regIntensity, level)
}

// SetRow writes one digit register. On a matrix a row byte has column 0 in
// the most significant bit.
func (c *Chain) SetRow(dev, row int, v byte) error {
	if row < 0 || row >= digits {
		return ErrNoPosition
	}
	if err := c.write(dev, regDigit0+byte(row), v); err != nil {
		return err
	}
	c.rows[dev][row] = v
	return nil
}

// Row returns the last value written to a digit register.
func (c *Chain) Row(dev, row int) byte {
	if dev < 0 || dev >= len(c.rows) || row < 0 || row >= digits {
		return 0
	}
	return c.rows[dev][row]
}

// SetLed switches a single matrix LED.
func (c *Chain) SetLed(dev, row, col int, on bool) error {
	if dev < 0 || dev >= len(c.rows) {
		return ErrNoDevice
	}
	if col < 0 || col >= 8 {
		return ErrNoPosition
	}
	if row < 0 || row >= digits {
		return ErrNoPosition
	}
	v := c.rows[dev][row]
	mask := byte(0x80) >> col
	if on {
		v |= mask
	} else {
		v &^= mask
	}
	return c.SetRow(dev, row, v)
}

// SetImage draws an 8x8 image on a matrix device.
func (c *Chain) SetImage(dev int, img glyph.Image) error {
	rows := img.Rows()
	for row, v := range rows {
		if err := c.SetRow(dev, row, v); err != nil {
			return err
		}
	}
	return nil
}

// ClearPanel switches off every LED of dev.
func (c *Chain) ClearPanel(dev int) error {
	for row := 0; row < digits; row++ {
		if err := c.SetRow(dev, row, 0); err != nil {
			return err
		}
	}
	return nil
}

// SetChar shows ch on one digit of a seven-segment device. Position 0 is the
// rightmost digit. Characters outside the font are drawn blank.
func (c *Chain) SetChar(dev, digit int, ch byte) error {
	pattern, _ := glyph.Segment(ch, false)
	return c.SetRow(dev, digit, pattern)
}

func (c *Chain) write(dev int, reg, data byte) error {
	if dev < 0 || dev >= len(c.rows) {
		return ErrNoDevice
	}

	for i := range c.frame {
		c.frame[i] = regNoop
	}
	// The first bytes shifted out end up in the device furthest away.
	offset := (len(c.rows) - 1 - dev) * 2
	c.frame[offset] = reg
	c.frame[offset+1] = data

	c.cs.Low()
	err := c.bus.Tx(c.frame, nil)
	c.cs.High()
	return err
}
