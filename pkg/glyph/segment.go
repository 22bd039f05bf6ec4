package glyph

// Seven-segment bit layout: DP A B C D E F G, most significant bit first.
var segments = map[byte]byte{
	'0': 0b01111110,
	'1': 0b00110000,
	'2': 0b01101101,
	'3': 0b01111001,
	'4': 0b00110011,
	'5': 0b01011011,
	'6': 0b01011111,
	'7': 0b01110000,
	'8': 0b01111111,
	'9': 0b01111011,
	'-': 0b00000001,
	'_': 0b00001000,
	' ': 0b00000000,
	'E': 0b01001111,
	'H': 0b00110111,
	'L': 0b00001110,
	'P': 0b01100111,
	'o': 0b00011101,
	'r': 0b00000101,
}

// Segment returns the segment pattern for ch. Characters the font does not
// cover render blank and report ok=false.
func Segment(ch byte, dot bool) (pattern byte, ok bool) {
	pattern, ok = segments[ch]
	if dot {
		pattern |= 0b10000000
	}
	return pattern, ok
}
