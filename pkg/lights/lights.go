// Package lights drives the tri-colour indicator LEDs. Each indicator is three
// GPIO lines, one per channel, switched fully on or off.
package lights

import (
	"errors"
	"strings"
)

// Color is a set of lit channels.
type Color uint8

const (
	Red Color = 1 << iota
	Green
	Blue
)

const (
	Off    Color = 0
	Yellow       = Red | Green
	White        = Red | Green | Blue
)

func (c Color) String() string {
	switch c {
	case Off:
		return "off"
	case Yellow:
		return "yellow"
	case White:
		return "white"
	}

	var parts []string
	if c&Red != 0 {
		parts = append(parts, "red")
	}
	if c&Green != 0 {
		parts = append(parts, "green")
	}
	if c&Blue != 0 {
		parts = append(parts, "blue")
	}
	if c&^White != 0 {
		return "invalid"
	}
	return strings.Join(parts, "+")
}

// Pin is one output line. machine.Pin satisfies it.
type Pin interface {
	Set(high bool)
}

// Indicator is one RGB LED.
type Indicator struct {
	R, G, B Pin
}

var ErrNoIndicator = errors.New("no such indicator")

// Bank is a fixed set of indicators.
type Bank struct {
	indicators []Indicator
	colors     []Color
}

// NewBank returns a bank over the given indicators. Every indicator is
// switched off.
func NewBank(indicators ...Indicator) *Bank {
	b := &Bank{
		indicators: indicators,
		colors:     make([]Color, len(indicators)),
	}
	for i := range indicators {
		b.apply(i, Off)
	}
	return b
}

// Len returns the number of indicators.
func (b *Bank) Len() int {
	return len(b.indicators)
}

// Set switches indicator i to c.
func (b *Bank) Set(i int, c Color) error {
	if i < 0 || i >= len(b.indicators) {
		return ErrNoIndicator
	}
	b.apply(i, c)
	return nil
}

// All switches every indicator to c.
func (b *Bank) All(c Color) {
	for i := range b.indicators {
		b.apply(i, c)
	}
}

// Color returns the colour last written to indicator i.
func (b *Bank) Color(i int) Color {
	if i < 0 || i >= len(b.colors) {
		return Off
	}
	return b.colors[i]
}

func (b *Bank) apply(i int, c Color) {
	ind := b.indicators[i]
	ind.R.Set(c&Red != 0)
	ind.G.Set(c&Green != 0)
	ind.B.Set(c&Blue != 0)
	b.colors[i] = c
}
