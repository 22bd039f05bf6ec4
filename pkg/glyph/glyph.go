// Package glyph holds the static 8x8 image catalog used by the dot-matrix
// panels and the character font used by the seven-segment panels.
//
// Images use the led-matrix editor encoding: byte i of the uint64 is row i,
// bit j of that byte is column j.
package glyph

import "math/bits"

// Image is one 8x8 monochrome bitmap.
type Image uint64

// ID names an entry of the catalog.
type ID uint8

const (
	Digit0 ID = iota
	Digit1
	Digit2
	Digit3
	Digit4
	Digit5
	Digit6
	Digit7
	Digit8
	Digit9

	// Error is shown on every matrix panel when the WiFi adapter fails to
	// come up.
	Error

	// Brand letters, drawn across the matrix while booting.
	Brand1
	Brand2
	Brand3
	Brand4

	// View icons replace a blank thousands digit on the headline panel.
	IconCurrentUsers
	IconDailyUsers
	IconCurrentSystems
	IconDailySystems

	// Night icons, drawn on the two middle panels in night mode.
	IconNightLeft
	IconNightRight

	count
)

// Blank is not part of the catalog: a panel showing Blank is cleared.
const Blank ID = 0xFF

var catalog = [count]Image{
	Digit0: 0x3c66666e76663c00,
	Digit1: 0x7e1818181c181800,
	Digit2: 0x7e060c3060663c00,
	Digit3: 0x3c66603860663c00,
	Digit4: 0x30307e3234383000,
	Digit5: 0x3c6660603e067e00,
	Digit6: 0x3c66663e06663c00,
	Digit7: 0x1818183030667e00,
	Digit8: 0x3c66663c66663c00,
	Digit9: 0x3c66607c66663c00,

	Error:  0xdf51515d4151515f,
	Brand1: 0x20aeaea2beaeaea0,
	Brand2: 0xdd484848484848dc,
	Brand3: 0x22b7b7b7b7b7b723,
	Brand4: 0x390a0a0a3a0a0a39,

	IconCurrentUsers:   0x49db490077515157,
	IconDailyUsers:     0x49db490073555553,
	IconCurrentSystems: 0x49db49e08fe121ef,
	IconDailySystems:   0x49db49e08fe929e7,

	IconNightLeft:  0x0000b8a8a8a8b800,
	IconNightRight: 0x0000140211121400,
}

// Lookup returns the image for id. ok is false for Blank and unknown IDs.
func Lookup(id ID) (img Image, ok bool) {
	if id >= count {
		return 0, false
	}
	return catalog[id], true
}

// Digit returns the ID of the digit glyph for d (0-9).
func Digit(d int) (ID, bool) {
	if d < 0 || d > 9 {
		return Blank, false
	}
	return Digit0 + ID(d), true
}

// Rows returns the eight row bytes of img as MAX7219 digit register values,
// where column 0 maps to the most significant bit.
func (img Image) Rows() [8]byte {
	var rows [8]byte
	for i := range rows {
		rows[i] = bits.Reverse8(byte(img >> (8 * i)))
	}
	return rows
}

// Pixel reports whether the LED at row, col is lit.
func (img Image) Pixel(row, col int) bool {
	if row < 0 || row > 7 || col < 0 || col > 7 {
		return false
	}
	return (img>>(8*row+col))&1 == 1
}
