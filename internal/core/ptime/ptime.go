// Package ptime implements a fixed-precision time value counted in
// hundredths of a second.
package ptime

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	HundredthsPerSecond = 100
	HundredthsPerMinute = 60 * HundredthsPerSecond

	// Hundredth is the wall-clock duration of a single unit.
	Hundredth = 10 * time.Millisecond
)

// ErrNegative is returned when a component passed to FromComponents is negative.
var ErrNegative = errors.New("time components must be non-negative")

// ErrOverflow is returned when components exceed the range of the total.
var ErrOverflow = errors.New("time components out of range")

// Time is an immutable elapsed or target time. The canonical value is the
// total number of hundredths; minutes, seconds and hundredths are derived.
// The zero value is 00:00.00.
type Time struct {
	total int64
}

// Zero is 00:00.00.
var Zero = Time{}

// FromComponents builds a Time from its parts. Seconds above 59 and
// hundredths above 99 roll over into the next unit.
func FromComponents(minutes, seconds, hundredths int64) (Time, error) {
	if minutes < 0 || seconds < 0 || hundredths < 0 {
		return Zero, fmt.Errorf("%w: %d:%d.%d", ErrNegative, minutes, seconds, hundredths)
	}
	if seconds > (math.MaxInt64-hundredths)/HundredthsPerSecond {
		return Zero, fmt.Errorf("%w: seconds %d", ErrOverflow, seconds)
	}
	rest := seconds*HundredthsPerSecond + hundredths
	if minutes > (math.MaxInt64-rest)/HundredthsPerMinute {
		return Zero, fmt.Errorf("%w: minutes %d", ErrOverflow, minutes)
	}
	return Time{total: minutes*HundredthsPerMinute + rest}, nil
}

// MustComponents is FromComponents for constant input. It panics on error.
func MustComponents(minutes, seconds, hundredths int64) Time {
	t, err := FromComponents(minutes, seconds, hundredths)
	if err != nil {
		panic(err)
	}
	return t
}

// FromTotal wraps a canonical total. It does not clamp; callers subtracting
// times should use Sub, which saturates.
func FromTotal(total int64) Time {
	return Time{total: total}
}

// FromDuration truncates d to whole hundredths. Negative durations yield Zero.
func FromDuration(d time.Duration) Time {
	if d <= 0 {
		return Zero
	}
	return Time{total: int64(d / Hundredth)}
}

func (t Time) Total() int64 { return t.total }

func (t Time) Minutes() int64 { return t.total / HundredthsPerMinute }

func (t Time) Seconds() int64 { return (t.total % HundredthsPerMinute) / HundredthsPerSecond }

func (t Time) Hundredths() int64 { return t.total % HundredthsPerSecond }

// Duration converts the value to a time.Duration.
func (t Time) Duration() time.Duration {
	return time.Duration(t.total) * Hundredth
}

func (t Time) IsZero() bool { return t.total == 0 }

// Add returns t+o.
func (t Time) Add(o Time) Time {
	if o.total > 0 && t.total > math.MaxInt64-o.total {
		return Time{total: math.MaxInt64}
	}
	return Time{total: t.total + o.total}
}

// Sub returns t-o, saturating at Zero.
func (t Time) Sub(o Time) Time {
	if o.total >= t.total {
		return Zero
	}
	return Time{total: t.total - o.total}
}

// Compare returns -1, 0 or +1 ordering t against o.
func (t Time) Compare(o Time) int {
	switch {
	case t.total < o.total:
		return -1
	case t.total > o.total:
		return 1
	default:
		return 0
	}
}

func (t Time) Equal(o Time) bool  { return t.total == o.total }
func (t Time) Before(o Time) bool { return t.total < o.total }
func (t Time) After(o Time) bool  { return t.total > o.total }

// Min returns the smaller of a and b.
func Min(a, b Time) Time {
	if b.total < a.total {
		return b
	}
	return a
}

// Max returns the larger of a and b.
func Max(a, b Time) Time {
	if b.total > a.total {
		return b
	}
	return a
}
