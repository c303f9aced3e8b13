package osc

import (
	"encoding/binary"
	"math"
	"time"
)

const secondsFrom1900To1970 = 2208988800

// Timetag represents an OSC Time Tag.
// An OSC Time Tag is defined as follows:
// Time tags are represented by a 64 bit fixed point number. The first 32 bits
// specify the number of seconds since midnight on January 1, 1900, and the
// last 32 bits specify fractional parts of a second to a precision of about
// 200 picoseconds. This is the representation used by Internet NTP timestamps.
type Timetag uint64

// TimetagImmediate is the special value of 63 zero bits followed by one,
// meaning "execute immediately".
const TimetagImmediate = Timetag(1)

// NewTimetag returns a time tag for the current time.
func NewTimetag() Timetag {
	return NewTimetagFromTime(time.Now())
}

// NewImmediateTimetag returns the special "immediately" time tag.
func NewImmediateTimetag() Timetag {
	return TimetagImmediate
}

// NewTimetagFromTime returns a new OSC time tag object from a time.Time.
func NewTimetagFromTime(t time.Time) Timetag {
	seconds := uint64(secondsFrom1900To1970 + t.Unix())
	frac := uint64(float64(t.Nanosecond()) / 1e9 * (1 << 32))
	return Timetag(seconds<<32 | frac)
}

// NewTimetagFromEpoch returns a time tag for an absolute time given as
// floating-point seconds since the Unix epoch.
func NewTimetagFromEpoch(seconds float64) Timetag {
	base, frac := math.Modf(seconds + secondsFrom1900To1970)
	return Timetag(uint64(base)<<32 | uint64(frac*(1<<32)))
}

// Time returns the time.
func (t Timetag) Time() time.Time {
	secs := int64(t>>32) - secondsFrom1900To1970
	nanos := int64(float64(t&0xffffffff) / (1 << 32) * 1e9)
	return time.Unix(secs, nanos)
}

// Epoch returns the time tag as floating-point seconds since the Unix epoch.
func (t Timetag) Epoch() float64 {
	return float64(t>>32) - secondsFrom1900To1970 + float64(t&0xffffffff)/(1<<32)
}

// FractionalSecond returns the last 32 bits of the OSC time tag. Specifies the
// fractional part of a second.
func (t Timetag) FractionalSecond() uint32 {
	return uint32(t)
}

// SecondsSinceEpoch returns the first 32 bits (the number of seconds since
// midnight 1900) from the OSC time tag.
func (t Timetag) SecondsSinceEpoch() uint32 {
	return uint32(t >> 32)
}

// MarshalBinary converts the OSC time tag to a byte array.
func (t Timetag) MarshalBinary() (b []byte, err error) {
	b = make([]byte, bit64Size)
	binary.BigEndian.PutUint64(b, uint64(t))
	return
}

// SetTime sets the value of the OSC time tag.
func (t *Timetag) SetTime(time time.Time) {
	*t = NewTimetagFromTime(time)
}

// ExpiresIn calculates the duration until the current time matches the value
// of the time tag. It returns zero if the time tag is in the past or is the
// special "immediately" value.
func (t Timetag) ExpiresIn() time.Duration {
	if t <= 1 {
		return 0
	}

	d := time.Until(t.Time())
	if d <= 0 {
		return 0
	}

	return d
}
