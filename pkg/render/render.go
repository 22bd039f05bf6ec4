// Package render turns the display state into panel and indicator writes.
//
// Each panel is computed on its own from the state and the active view. The
// Renderer remembers what every panel and indicator currently shows and only
// writes the ones that change.
package render

import (
	"fmt"
	"log/slog"

	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/glyph"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/lights"
)

// Display is the LED chain.
type Display interface {
	SetImage(panel int, img glyph.Image) error
	ClearPanel(panel int) error
	SetChar(panel, digit int, ch byte) error
}

// Indicators is the indicator light bank.
type Indicators interface {
	Set(i int, c lights.Color) error
}

// Renderer draws scenes onto the hardware.
type Renderer struct {
	display    Display
	indicators Indicators
	logger     *slog.Logger

	shown     Scene
	matrixOK  [MatrixPanels]bool
	segmentOK [SegmentPanels][8]bool
	lightOK   [LightCount]bool
}

// New creates a Renderer. Nothing is assumed about what the hardware shows
// until the first draw.
func New(display Display, indicators Indicators, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		display:    display,
		indicators: indicators,
		logger:     logger,
	}
}

// Invalidate forgets what is shown so the next draw writes everything.
func (r *Renderer) Invalidate() {
	r.matrixOK = [MatrixPanels]bool{}
	r.segmentOK = [SegmentPanels][8]bool{}
	r.lightOK = [LightCount]bool{}
}

// Shown returns the scene as last written.
func (r *Renderer) Shown() Scene {
	return r.shown
}

// Draw writes a full scene: lights, seven-segment panels, then the matrix.
func (r *Renderer) Draw(sc Scene) error {
	if err := r.DrawLights(sc.Lights); err != nil {
		return err
	}
	if err := r.DrawSegments(sc.Segments); err != nil {
		return err
	}
	return r.DrawMatrix(sc.Matrix)
}

// DrawMatrix writes the matrix panels that differ from m.
func (r *Renderer) DrawMatrix(m Matrix) error {
	for p, id := range m {
		if r.matrixOK[p] && r.shown.Matrix[p] == id {
			continue
		}

		var err error
		if img, ok := glyph.Lookup(id); ok {
			err = r.display.SetImage(p, img)
		} else {
			err = r.display.ClearPanel(p)
		}
		if err != nil {
			r.matrixOK[p] = false
			return fmt.Errorf("matrix panel %d: %w", p, err)
		}

		r.shown.Matrix[p] = id
		r.matrixOK[p] = true
		r.logger.Debug("matrix panel drawn", "panel", p, "glyph", int(id))
	}
	return nil
}

// DrawSegments writes the seven-segment digits that differ from seg.
func (r *Renderer) DrawSegments(seg Segments) error {
	for i := range seg {
		panel := MatrixPanels + i
		for pos, ch := range seg[i] {
			if r.segmentOK[i][pos] && r.shown.Segments[i][pos] == ch {
				continue
			}
			if err := r.display.SetChar(panel, pos, ch); err != nil {
				r.segmentOK[i][pos] = false
				return fmt.Errorf("segment panel %d digit %d: %w", panel, pos, err)
			}
			r.shown.Segments[i][pos] = ch
			r.segmentOK[i][pos] = true
		}
	}
	return nil
}

// DrawLights switches the indicators that differ from l.
func (r *Renderer) DrawLights(l Lights) error {
	for i, c := range l {
		if r.lightOK[i] && r.shown.Lights[i] == c {
			continue
		}
		if err := r.indicators.Set(i, c); err != nil {
			r.lightOK[i] = false
			return fmt.Errorf("indicator %d: %w", i, err)
		}
		r.shown.Lights[i] = c
		r.lightOK[i] = true
		r.logger.Debug("indicator set", "light", i, "color", c.String())
	}
	return nil
}
