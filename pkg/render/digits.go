package render

// MaxCounter is the largest value four digits can show. Larger counters
// saturate.
const MaxCounter = 9999

// Blank marks a digit position that is not drawn.
const Blank int8 = -1

// Digits holds a counter split into thousands, hundreds, tens and units.
type Digits [4]int8

// Split decomposes n into four digits with leading zeros blanked. The units
// digit is always drawn for 0 <= n. Negative values (Unset) are all blank.
func Split(n int) Digits {
	if n < 0 {
		return Digits{Blank, Blank, Blank, Blank}
	}
	if n > MaxCounter {
		n = MaxCounter
	}

	d := Digits{
		int8(n / 1000),
		int8(n / 100 % 10),
		int8(n / 10 % 10),
		int8(n % 10),
	}
	if n < 1000 {
		d[0] = Blank
	}
	if n < 100 {
		d[1] = Blank
	}
	if n < 10 {
		d[2] = Blank
	}
	return d
}

// Chars returns d as seven-segment characters, most significant first.
// An all-blank value (Unset) shows a dash in the units position.
func (d Digits) Chars() [4]byte {
	var out [4]byte
	for i, v := range d {
		if v == Blank {
			out[i] = ' '
		} else {
			out[i] = '0' + byte(v)
		}
	}
	if d[3] == Blank {
		out[3] = '-'
	}
	return out
}
