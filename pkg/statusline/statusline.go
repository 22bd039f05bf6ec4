// Package statusline decodes the pipe-delimited status line served by the
// dashboard endpoint.
//
// Wire format, found anywhere in the response body:
//
//	|$|<s1>|<s2>|<jobs>|<daily users>|<daily systems>|<current users>|<current systems>|<night>|
//
// Every field is an ASCII decimal integer. A token only counts once its
// closing delimiter has been received.
package statusline

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/state"
)

// Sentinel marks the start of the payload.
const Sentinel = "|$|"

const delimiter = '|'

// maxDigits keeps every accepted value inside int32.
const maxDigits = 9

var (
	ErrNoSentinel = errors.New("status sentinel not found")
	ErrTruncated  = errors.New("status line truncated")
	ErrMalformed  = errors.New("malformed status token")
)

// Reading is one decoded status line. Values past Count are state.Unset.
type Reading struct {
	Values [state.FieldCount]int
	Count  int
}

// Complete reports whether every field was decoded.
func (r Reading) Complete() bool {
	return r.Count == int(state.FieldCount)
}

// Parse locates the sentinel in buf and decodes the fields that follow it.
//
// The returned Reading is always usable: on error it holds the fields that
// decoded cleanly before the problem, so a caller may choose to apply that
// prefix or to discard it.
func Parse(buf []byte) (Reading, error) {
	var r Reading
	for i := range r.Values {
		r.Values[i] = state.Unset
	}

	start := bytes.Index(buf, []byte(Sentinel))
	if start < 0 {
		return r, ErrNoSentinel
	}
	rest := buf[start+len(Sentinel):]

	for r.Count < int(state.FieldCount) {
		end := bytes.IndexByte(rest, delimiter)
		if end < 0 {
			return r, fmt.Errorf("%w: got %d of %d fields", ErrTruncated, r.Count, state.FieldCount)
		}

		token := rest[:end]
		v, ok := parseInt(token)
		if !ok {
			return r, fmt.Errorf("%w: %s=%q", ErrMalformed, state.Field(r.Count), token)
		}

		r.Values[r.Count] = v
		r.Count++
		rest = rest[end+1:]
	}

	return r, nil
}

// parseInt accepts an optional minus sign followed by 1-9 decimal digits.
func parseInt(token []byte) (int, bool) {
	neg := false
	if len(token) > 0 && token[0] == '-' {
		neg = true
		token = token[1:]
	}
	if len(token) == 0 || len(token) > maxDigits {
		return 0, false
	}

	n := 0
	for _, c := range token {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n, true
}

// ApplyTo copies the decoded fields into s and stamps the fetch time.
// Fields past Count keep their previous values.
func (r Reading) ApplyTo(s *state.State, at time.Time) {
	for i := 0; i < r.Count && i < int(state.FieldCount); i++ {
		s.Set(state.Field(i), r.Values[i])
	}
	s.FetchedAt = at
}

// FromState builds a complete Reading from s.
func FromState(s state.State) Reading {
	r := Reading{Count: int(state.FieldCount)}
	for f := state.Field(0); f < state.FieldCount; f++ {
		r.Values[f] = s.Get(f)
	}
	return r
}

// Append appends the wire form of the first Count fields of r to dst.
func Append(dst []byte, r Reading) []byte {
	dst = append(dst, Sentinel...)
	for i := 0; i < r.Count && i < int(state.FieldCount); i++ {
		dst = strconv.AppendInt(dst, int64(r.Values[i]), 10)
		dst = append(dst, delimiter)
	}
	return dst
}

// Format returns the wire form of r.
func Format(r Reading) string {
	return string(Append(nil, r))
}

// Outcome classifies the error returned by Parse, or by a fetch that
// failed before parsing.
func Outcome(err error) state.Outcome {
	switch {
	case err == nil:
		return state.OutcomeOK
	case errors.Is(err, ErrNoSentinel):
		return state.OutcomeNoSentinel
	case errors.Is(err, ErrTruncated):
		return state.OutcomeTruncated
	case errors.Is(err, ErrMalformed):
		return state.OutcomeMalformed
	default:
		return state.OutcomeFetchFailed
	}
}
