// Package state holds the in-memory snapshot of the last status fetched from
// the server. Nothing here is persisted: the board rebuilds it from the
// network after every reset.
package state

import "time"

// Unset marks a field that has never been fetched.
const Unset = -1

// Field is a position in the status line.
type Field uint8

const (
	Service1 Field = iota
	Service2
	Jobs
	DailyUsers
	DailySystems
	CurrentUsers
	CurrentSystems
	NightMode

	FieldCount
)

var fieldNames = [FieldCount]string{
	"service1",
	"service2",
	"jobs",
	"daily_users",
	"daily_systems",
	"current_users",
	"current_systems",
	"night_mode",
}

func (f Field) String() string {
	if f >= FieldCount {
		return "unknown"
	}
	return fieldNames[f]
}

// State is the display state. The zero value is not useful; use New.
type State struct {
	Service1       int
	Service2       int
	Jobs           int
	DailyUsers     int
	DailySystems   int
	CurrentUsers   int
	CurrentSystems int
	NightMode      int

	// FetchedAt is the time the last reading was applied. Zero until then.
	FetchedAt time.Time
}

// New returns a State with every field Unset.
func New() State {
	return State{
		Service1:       Unset,
		Service2:       Unset,
		Jobs:           Unset,
		DailyUsers:     Unset,
		DailySystems:   Unset,
		CurrentUsers:   Unset,
		CurrentSystems: Unset,
		NightMode:      Unset,
	}
}

// Get returns the value of f, or Unset for an unknown field.
func (s *State) Get(f Field) int {
	switch f {
	case Service1:
		return s.Service1
	case Service2:
		return s.Service2
	case Jobs:
		return s.Jobs
	case DailyUsers:
		return s.DailyUsers
	case DailySystems:
		return s.DailySystems
	case CurrentUsers:
		return s.CurrentUsers
	case CurrentSystems:
		return s.CurrentSystems
	case NightMode:
		return s.NightMode
	default:
		return Unset
	}
}

// Set stores v in f. Unknown fields are ignored.
func (s *State) Set(f Field, v int) {
	switch f {
	case Service1:
		s.Service1 = v
	case Service2:
		s.Service2 = v
	case Jobs:
		s.Jobs = v
	case DailyUsers:
		s.DailyUsers = v
	case DailySystems:
		s.DailySystems = v
	case CurrentUsers:
		s.CurrentUsers = v
	case CurrentSystems:
		s.CurrentSystems = v
	case NightMode:
		s.NightMode = v
	}
}

// Fetched reports whether any reading has been applied.
func (s *State) Fetched() bool {
	return !s.FetchedAt.IsZero()
}

// NightActive reports whether the reduced night display applies: the server
// asked for night mode and both services are healthy.
func (s *State) NightActive() bool {
	return s.NightMode == 1 && s.Service1 == 1 && s.Service2 == 1
}
