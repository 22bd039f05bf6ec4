package render

import (
	"errors"
	"testing"

	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/glyph"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/lights"
)

type fakeDisplay struct {
	images  map[int]glyph.Image
	cleared map[int]int
	chars   map[[2]int]byte
	writes  int
	fail    error
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{
		images:  map[int]glyph.Image{},
		cleared: map[int]int{},
		chars:   map[[2]int]byte{},
	}
}

func (d *fakeDisplay) SetImage(panel int, img glyph.Image) error {
	if d.fail != nil {
		return d.fail
	}
	d.writes++
	d.images[panel] = img
	return nil
}

func (d *fakeDisplay) ClearPanel(panel int) error {
	if d.fail != nil {
		return d.fail
	}
	d.writes++
	delete(d.images, panel)
	d.cleared[panel]++
	return nil
}

func (d *fakeDisplay) SetChar(panel, digit int, ch byte) error {
	if d.fail != nil {
		return d.fail
	}
	d.writes++
	d.chars[[2]int{panel, digit}] = ch
	return nil
}

type fakeIndicators struct {
	colors [LightCount]lights.Color
	writes int
}

func (f *fakeIndicators) Set(i int, c lights.Color) error {
	f.colors[i] = c
	f.writes++
	return nil
}

func newTestRenderer() (*Renderer, *fakeDisplay, *fakeIndicators) {
	d := newFakeDisplay()
	ind := &fakeIndicators{}
	return New(d, ind, nil), d, ind
}

func TestDrawWritesEverythingOnce(t *testing.T) {
	r, d, ind := newTestRenderer()
	s := newTestState()
	sc := Compose(&s, ViewDailyUsers)

	if err := r.Draw(sc); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}

	wantWrites := MatrixPanels + SegmentPanels*8
	if d.writes != wantWrites {
		t.Errorf("display writes = %d, want %d", d.writes, wantWrites)
	}
	if ind.writes != int(LightCount) {
		t.Errorf("indicator writes = %d, want %d", ind.writes, LightCount)
	}

	one, _ := glyph.Lookup(glyph.Digit1)
	if d.images[PanelUnits] != one {
		t.Errorf("units panel = %x, want digit 1", d.images[PanelUnits])
	}
	if d.cleared[PanelHundreds] != 1 {
		t.Errorf("hundreds panel cleared %d times, want 1", d.cleared[PanelHundreds])
	}
	if d.chars[[2]int{PanelDaily, 0}] != '1' || d.chars[[2]int{PanelDaily, 1}] != '5' {
		t.Error("daily users not on the daily panel")
	}
	if ind.colors[LightService1] != lights.Green || ind.colors[LightJobs] != lights.Green {
		t.Errorf("indicators = %v", ind.colors)
	}
	if r.Shown() != sc {
		t.Error("Shown does not match the drawn scene")
	}

	// Same scene again writes nothing.
	d.writes, ind.writes = 0, 0
	if err := r.Draw(sc); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if d.writes != 0 || ind.writes != 0 {
		t.Errorf("redraw wrote display=%d indicators=%d, want 0", d.writes, ind.writes)
	}
}

func TestDrawMatrixOnlyChangedPanels(t *testing.T) {
	r, d, _ := newTestRenderer()
	s := newTestState()
	s.CurrentUsers = 1234
	s.DailyUsers = 1299

	if err := r.DrawMatrix(MatrixFor(&s, ViewCurrentUsers)); err != nil {
		t.Fatalf("DrawMatrix failed: %v", err)
	}
	d.writes = 0

	if err := r.DrawMatrix(MatrixFor(&s, ViewDailyUsers)); err != nil {
		t.Fatalf("DrawMatrix failed: %v", err)
	}
	// Thousands and hundreds are unchanged.
	if d.writes != 2 {
		t.Errorf("writes = %d, want 2", d.writes)
	}
}

func TestInvalidateForcesRedraw(t *testing.T) {
	r, d, ind := newTestRenderer()
	sc := NightScene()

	if err := r.Draw(sc); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	r.Invalidate()
	d.writes, ind.writes = 0, 0

	if err := r.Draw(sc); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if d.writes != MatrixPanels+SegmentPanels*8 {
		t.Errorf("display writes = %d after Invalidate", d.writes)
	}
	if ind.writes != int(LightCount) {
		t.Errorf("indicator writes = %d after Invalidate", ind.writes)
	}
}

func TestDrawErrorRetriesPanel(t *testing.T) {
	r, d, _ := newTestRenderer()
	d.fail = errors.New("spi timeout")

	err := r.DrawMatrix(Matrix{glyph.Digit1, glyph.Digit2, glyph.Digit3, glyph.Digit4})
	if !errors.Is(err, d.fail) {
		t.Fatalf("DrawMatrix error = %v, want wrapped spi error", err)
	}

	d.fail = nil
	if err := r.DrawMatrix(Matrix{glyph.Digit1, glyph.Digit2, glyph.Digit3, glyph.Digit4}); err != nil {
		t.Fatalf("DrawMatrix failed: %v", err)
	}
	if d.writes != MatrixPanels {
		t.Errorf("writes = %d, want %d", d.writes, MatrixPanels)
	}
}
