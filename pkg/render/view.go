package render

import (
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/glyph"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/state"
)

// View selects which counter the matrix panels show.
type View uint8

const (
	ViewCurrentUsers View = iota
	ViewDailyUsers
	ViewCurrentSystems
	ViewDailySystems

	ViewCount
)

var viewIcons = [ViewCount]glyph.ID{
	ViewCurrentUsers:   glyph.IconCurrentUsers,
	ViewDailyUsers:     glyph.IconDailyUsers,
	ViewCurrentSystems: glyph.IconCurrentSystems,
	ViewDailySystems:   glyph.IconDailySystems,
}

var viewFields = [ViewCount]state.Field{
	ViewCurrentUsers:   state.CurrentUsers,
	ViewDailyUsers:     state.DailyUsers,
	ViewCurrentSystems: state.CurrentSystems,
	ViewDailySystems:   state.DailySystems,
}

// Next returns the view after v, wrapping to the first.
func (v View) Next() View {
	return (v + 1) % ViewCount
}

// Field returns the state field v displays.
func (v View) Field() state.Field {
	if v >= ViewCount {
		return state.FieldCount
	}
	return viewFields[v]
}

// Icon returns the glyph drawn on the headline panel when the thousands digit
// is blank.
func (v View) Icon() glyph.ID {
	if v >= ViewCount {
		return glyph.Blank
	}
	return viewIcons[v]
}

func (v View) String() string {
	switch v {
	case ViewCurrentUsers:
		return "current-users"
	case ViewDailyUsers:
		return "daily-users"
	case ViewCurrentSystems:
		return "current-systems"
	case ViewDailySystems:
		return "daily-systems"
	default:
		return "unknown"
	}
}
