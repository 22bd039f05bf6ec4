package lights

import (
	"errors"
	"testing"
)

type fakePin struct {
	high   bool
	writes int
}

func (p *fakePin) Set(high bool) {
	p.high = high
	p.writes++
}

func newTestIndicator() (Indicator, *fakePin, *fakePin, *fakePin) {
	r, g, b := &fakePin{}, &fakePin{}, &fakePin{}
	return Indicator{R: r, G: g, B: b}, r, g, b
}

func TestNewBankSwitchesOff(t *testing.T) {
	ind, r, g, b := newTestIndicator()
	r.high, g.high, b.high = true, true, true

	bank := NewBank(ind)
	if bank.Len() != 1 {
		t.Fatalf("Len = %d, want 1", bank.Len())
	}
	if r.high || g.high || b.high {
		t.Error("expected all channels low after NewBank")
	}
}

func TestSetDrivesChannels(t *testing.T) {
	tests := []struct {
		color   Color
		r, g, b bool
	}{
		{Off, false, false, false},
		{Red, true, false, false},
		{Green, false, true, false},
		{Blue, false, false, true},
		{Yellow, true, true, false},
		{White, true, true, true},
	}

	ind, r, g, b := newTestIndicator()
	bank := NewBank(ind)

	for _, tt := range tests {
		if err := bank.Set(0, tt.color); err != nil {
			t.Fatalf("Set(%s) failed: %v", tt.color, err)
		}
		if r.high != tt.r || g.high != tt.g || b.high != tt.b {
			t.Errorf("Set(%s): got r=%v g=%v b=%v", tt.color, r.high, g.high, b.high)
		}
		if bank.Color(0) != tt.color {
			t.Errorf("Color(0) = %s, want %s", bank.Color(0), tt.color)
		}
	}
}

func TestSetOutOfRange(t *testing.T) {
	ind, _, _, _ := newTestIndicator()
	bank := NewBank(ind)

	if err := bank.Set(1, Red); !errors.Is(err, ErrNoIndicator) {
		t.Errorf("Set(1) error = %v, want ErrNoIndicator", err)
	}
	if err := bank.Set(-1, Red); !errors.Is(err, ErrNoIndicator) {
		t.Errorf("Set(-1) error = %v, want ErrNoIndicator", err)
	}
}

func TestAll(t *testing.T) {
	a, ar, ag, _ := newTestIndicator()
	b, br, bg, _ := newTestIndicator()
	bank := NewBank(a, b)

	bank.All(Yellow)
	if !ar.high || !ag.high || !br.high || !bg.high {
		t.Error("expected red and green lit on every indicator")
	}
	for i := 0; i < bank.Len(); i++ {
		if bank.Color(i) != Yellow {
			t.Errorf("Color(%d) = %s, want yellow", i, bank.Color(i))
		}
	}
}

func TestColorString(t *testing.T) {
	tests := map[Color]string{
		Off:        "off",
		Red:        "red",
		Green:      "green",
		Blue:       "blue",
		Yellow:     "yellow",
		White:      "white",
		Red | Blue: "red+blue",
		Color(8):   "invalid",
	}
	for c, want := range tests {
		if got := c.String(); got != want {
			t.Errorf("Color(%d).String() = %q, want %q", uint8(c), got, want)
		}
	}
}
