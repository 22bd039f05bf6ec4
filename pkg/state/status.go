package state

import (
	"encoding/binary"
	"errors"
	"sync"
	"time"
)

// Outcome is the result of the most recent fetch cycle.
type Outcome uint8

const (
	OutcomeNone Outcome = iota // no fetch attempted yet
	OutcomeOK
	OutcomeFetchFailed
	OutcomeNoSentinel
	OutcomeTruncated
	OutcomeMalformed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeOK:
		return "ok"
	case OutcomeFetchFailed:
		return "fetch-failed"
	case OutcomeNoSentinel:
		return "no-sentinel"
	case OutcomeTruncated:
		return "truncated"
	case OutcomeMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Status is what the control loop publishes for readers on other goroutines.
//
// Binary layout (52 bytes, little-endian):
//
//	[0-31]:  field values, int32 each, in Field order
//	[32-39]: FetchedAt as Unix milliseconds (0 = never)
//	[40]:    View
//	[41]:    Night (0/1)
//	[42]:    Last outcome
//	[43]:    Reserved
//	[44-47]: Fetches
//	[48-51]: Failures
type Status struct {
	State    State
	View     uint8
	Night    bool
	Last     Outcome
	Fetches  uint32
	Failures uint32
}

// StatusSize is the encoded size of a Status.
const StatusSize = 52

var ErrInvalidSize = errors.New("invalid status size")

// MarshalBinary implements encoding.BinaryMarshaler.
func (st *Status) MarshalBinary() ([]byte, error) {
	buf := make([]byte, StatusSize)
	for f := Field(0); f < FieldCount; f++ {
		binary.LittleEndian.PutUint32(buf[int(f)*4:], uint32(int32(st.State.Get(f))))
	}

	var fetched int64
	if !st.State.FetchedAt.IsZero() {
		fetched = st.State.FetchedAt.UnixMilli()
	}
	binary.LittleEndian.PutUint64(buf[32:], uint64(fetched))

	buf[40] = st.View
	if st.Night {
		buf[41] = 1
	}
	buf[42] = uint8(st.Last)
	binary.LittleEndian.PutUint32(buf[44:], st.Fetches)
	binary.LittleEndian.PutUint32(buf[48:], st.Failures)
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (st *Status) UnmarshalBinary(data []byte) error {
	if len(data) < StatusSize {
		return ErrInvalidSize
	}

	for f := Field(0); f < FieldCount; f++ {
		st.State.Set(f, int(int32(binary.LittleEndian.Uint32(data[int(f)*4:]))))
	}

	st.State.FetchedAt = time.Time{}
	if ms := int64(binary.LittleEndian.Uint64(data[32:])); ms != 0 {
		st.State.FetchedAt = time.UnixMilli(ms)
	}

	st.View = data[40]
	st.Night = data[41] == 1
	st.Last = Outcome(data[42])
	st.Fetches = binary.LittleEndian.Uint32(data[44:])
	st.Failures = binary.LittleEndian.Uint32(data[48:])
	return nil
}

// Published holds the latest Status. The loop stores a whole value after
// every change, so readers never see a half-applied update.
type Published struct {
	mu     sync.Mutex
	status Status
}

// NewPublished returns a holder whose initial status has every field Unset.
func NewPublished() *Published {
	return &Published{status: Status{State: New()}}
}

func (p *Published) Store(st Status) {
	p.mu.Lock()
	p.status = st
	p.mu.Unlock()
}

func (p *Published) Load() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}
