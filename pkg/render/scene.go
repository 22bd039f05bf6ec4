package render

import (
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/glyph"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/lights"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/state"
)

// Panel indices along the MAX7219 chain. Matrix panels are numbered right
// to left; the headline panel is the leftmost.
const (
	PanelUnits = iota
	PanelTens
	PanelHundreds
	PanelHeadline
	PanelDaily   // seven-segment: daily systems, daily users
	PanelCurrent // seven-segment: current users, current systems

	MatrixPanels  = 4
	SegmentPanels = 2
	PanelCount    = MatrixPanels + SegmentPanels
)

// Indicator indices.
const (
	LightService1 = iota
	LightService2
	LightJobs

	LightCount
)

// Matrix is the glyph for each matrix panel, indexed by panel.
type Matrix [MatrixPanels]glyph.ID

// Segments is the character for each seven-segment digit, indexed by
// panel-MatrixPanels then digit position. Position 0 is the rightmost digit.
type Segments [SegmentPanels][8]byte

// Lights is the colour of each indicator.
type Lights [LightCount]lights.Color

// Scene is everything the board shows at one moment.
type Scene struct {
	Matrix   Matrix
	Segments Segments
	Lights   Lights
}

// HealthColor maps a service flag to its indicator colour.
func HealthColor(v int) lights.Color {
	switch v {
	case 1:
		return lights.Green
	case 0:
		return lights.Red
	default:
		return lights.Blue
	}
}

// JobsColor maps the job counter to its indicator colour. Any queued job is
// bad news.
func JobsColor(v int) lights.Color {
	switch {
	case v == 0:
		return lights.Green
	case v > 0:
		return lights.Red
	default:
		return lights.Blue
	}
}

// MatrixFor lays out the counter selected by v across the matrix panels.
func MatrixFor(s *state.State, v View) Matrix {
	d := Split(s.Get(v.Field()))

	var m Matrix
	m[PanelHeadline] = digitOr(d[0], v.Icon())
	m[PanelHundreds] = digitOr(d[1], glyph.Blank)
	m[PanelTens] = digitOr(d[2], glyph.Blank)
	m[PanelUnits] = digitOr(d[3], glyph.Blank)
	return m
}

func digitOr(d int8, fallback glyph.ID) glyph.ID {
	if id, ok := glyph.Digit(int(d)); ok {
		return id
	}
	return fallback
}

// SegmentsFor lays out the four counters on the seven-segment panels.
func SegmentsFor(s *state.State) Segments {
	var seg Segments
	daily := &seg[PanelDaily-MatrixPanels]
	current := &seg[PanelCurrent-MatrixPanels]
	placeCounter(daily, 4, s.DailySystems)
	placeCounter(daily, 0, s.DailyUsers)
	placeCounter(current, 4, s.CurrentUsers)
	placeCounter(current, 0, s.CurrentSystems)
	return seg
}

// placeCounter writes n into the four digits starting at position low.
func placeCounter(panel *[8]byte, low, n int) {
	chars := Split(n).Chars()
	for i, ch := range chars {
		panel[low+3-i] = ch
	}
}

// LightsFor derives the indicator colours from s.
func LightsFor(s *state.State) Lights {
	return Lights{
		LightService1: HealthColor(s.Service1),
		LightService2: HealthColor(s.Service2),
		LightJobs:     JobsColor(s.Jobs),
	}
}

// Compose builds the full scene for s with v active.
func Compose(s *state.State, v View) Scene {
	if s.NightActive() {
		return NightScene()
	}
	return Scene{
		Matrix:   MatrixFor(s, v),
		Segments: SegmentsFor(s),
		Lights:   LightsFor(s),
	}
}

// NightScene is the reduced display shown overnight while all is well.
func NightScene() Scene {
	return Scene{
		Matrix: Matrix{
			PanelUnits:    glyph.Blank,
			PanelTens:     glyph.IconNightRight,
			PanelHundreds: glyph.IconNightLeft,
			PanelHeadline: glyph.Blank,
		},
		Segments: blankSegments(),
	}
}

// BootScene is drawn while WiFi comes up: the brand across the matrix, a
// digit test pattern on the seven-segment panels and white lights.
func BootScene() Scene {
	sc := Scene{
		Matrix: Matrix{
			PanelUnits:    glyph.Brand4,
			PanelTens:     glyph.Brand3,
			PanelHundreds: glyph.Brand2,
			PanelHeadline: glyph.Brand1,
		},
		Lights: Lights{lights.White, lights.White, lights.White},
	}
	for p := range sc.Segments {
		for pos := range sc.Segments[p] {
			sc.Segments[p][pos] = '0' + byte(pos)
		}
	}
	return sc
}

// ErrorScene is drawn before a restart when the WiFi adapter fails.
func ErrorScene() Scene {
	sc := Scene{
		Matrix:   Matrix{glyph.Error, glyph.Error, glyph.Error, glyph.Error},
		Segments: blankSegments(),
		Lights:   Lights{lights.Yellow, lights.Yellow, lights.Yellow},
	}
	for p := range sc.Segments {
		sc.Segments[p][2] = 'E'
		sc.Segments[p][1] = 'r'
		sc.Segments[p][0] = 'r'
	}
	return sc
}

func blankSegments() Segments {
	var seg Segments
	for p := range seg {
		for pos := range seg[p] {
			seg[p][pos] = ' '
		}
	}
	return seg
}
