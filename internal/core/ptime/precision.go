package ptime

import (
	"fmt"
	"time"
)

// Precision is the display and tick granularity of a timer.
type Precision string

const (
	PrecisionSeconds      Precision = "seconds"
	PrecisionHundredths   Precision = "hundredths"
	PrecisionMilliseconds Precision = "milliseconds"
)

// Precisions lists every supported value.
var Precisions = []Precision{PrecisionSeconds, PrecisionHundredths, PrecisionMilliseconds}

func (p Precision) IsValid() bool {
	switch p {
	case PrecisionSeconds, PrecisionHundredths, PrecisionMilliseconds:
		return true
	}
	return false
}

// TickInterval is the scheduling period for a running timer. Coarser
// precision ticks less often.
func (p Precision) TickInterval() time.Duration {
	switch p {
	case PrecisionSeconds:
		return 100 * time.Millisecond
	case PrecisionMilliseconds:
		return time.Millisecond
	default:
		return Hundredth
	}
}

// ParsePrecision validates s as a Precision.
func ParsePrecision(s string) (Precision, error) {
	p := Precision(s)
	if !p.IsValid() {
		return "", fmt.Errorf("unknown precision %q (want one of %v)", s, Precisions)
	}
	return p, nil
}
