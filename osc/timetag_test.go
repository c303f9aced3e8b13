package osc

import (
	"math"
	"testing"
	"time"
)

func TestNewImmediateTimetag(t *testing.T) {
	tt := NewImmediateTimetag()
	if i := tt.ExpiresIn(); i != 0 {
		t.Errorf("NewImmediateTimetag().ExpiresIn() = %d, want 0", i)
	}
}

func TestNewTimetag(t *testing.T) {
	tt := NewTimetag()
	if i := tt.ExpiresIn(); i != 0 {
		t.Errorf("NewTimetag().ExpiresIn() = %d, want 0", i)
	}
}

func TestNewTimetagFromTime(t *testing.T) {
	tt := NewTimetagFromTime(time.Now().Add(time.Second))
	if i := tt.ExpiresIn(); i.Round(time.Millisecond) != time.Second {
		t.Errorf("ExpiresIn() = %v, want %v", i.Round(time.Millisecond), time.Second)
	}
}

func TestTimetag_ExpiresIn(t *testing.T) {
	tests := []struct {
		name string
		t    Timetag
		want time.Duration
	}{
		{"one_second", NewTimetagFromTime(time.Now().Add(time.Second)), time.Second},
		{"immediate", NewImmediateTimetag(), 0},
		{"late", NewTimetagFromTime(time.Now().Add(-time.Second)), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.t.ExpiresIn(); got.Round(time.Millisecond) != tt.want {
				t.Errorf("ExpiresIn() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimetag_EpochRoundTrip(t *testing.T) {
	for _, epoch := range []float64{0, 1, 1234567890.25, 1700000000.5} {
		tt := NewTimetagFromEpoch(epoch)
		if got := tt.Epoch(); math.Abs(got-epoch) > 1e-6 {
			t.Errorf("NewTimetagFromEpoch(%v).Epoch() = %v", epoch, got)
		}
	}
}

func TestTimetag_TimeRoundTrip(t *testing.T) {
	now := time.Unix(1700000000, 250e6)
	tt := NewTimetagFromTime(now)
	if got := tt.Time(); got.Sub(now).Abs() > time.Microsecond {
		t.Errorf("Time() = %v, want %v", got, now)
	}
}

func TestTimetag_Fields(t *testing.T) {
	tt := Timetag(0x0000000200000001)
	if got := tt.SecondsSinceEpoch(); got != 2 {
		t.Errorf("SecondsSinceEpoch() = %d, want 2", got)
	}
	if got := tt.FractionalSecond(); got != 1 {
		t.Errorf("FractionalSecond() = %d, want 1", got)
	}
}
