package race

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{name: "zero", d: 0, want: "0:00:00"},
		{name: "whole seconds", d: 61 * time.Second, want: "0:01:01"},
		{name: "milliseconds", d: 1*time.Second + 234*time.Millisecond, want: "0:00:01.234000"},
		{name: "microseconds", d: 2*time.Hour + 3*time.Minute + 4*time.Second + 5*time.Microsecond, want: "2:03:04.000005"},
		{name: "hours not padded", d: 11*time.Hour + 59*time.Minute + 59*time.Second, want: "11:59:59"},
		{name: "over a day keeps counting hours", d: 25 * time.Hour, want: "25:00:00"},
		{name: "sub-microsecond rounds up", d: 600 * time.Nanosecond, want: "0:00:00.000001"},
		{name: "sub-microsecond rounds down", d: 400 * time.Nanosecond, want: "0:00:00"},
		{name: "fraction carry into seconds", d: time.Second - time.Nanosecond, want: "0:00:01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.d))
		})
	}
}

func TestRoundToMicroHalfToEven(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want time.Duration
	}{
		{name: "half rounds to even above", d: 1500 * time.Nanosecond, want: 2 * time.Microsecond},
		{name: "half rounds to even below", d: 2500 * time.Nanosecond, want: 2 * time.Microsecond},
		{name: "above half rounds up", d: 2501 * time.Nanosecond, want: 3 * time.Microsecond},
		{name: "below half rounds down", d: 2499 * time.Nanosecond, want: 2 * time.Microsecond},
		{name: "negative clamps to zero", d: -time.Second, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, roundToMicro(tt.d))
		})
	}
}
