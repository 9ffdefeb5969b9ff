package ptime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// String formats t as MM:SS.CC. Minutes grow past two digits as needed.
func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d.%02d", t.Minutes(), t.Seconds(), t.Hundredths())
}

// Format is an alias of String.
func (t Time) Format() string { return t.String() }

// Compact drops leading zero units: "7.25" below a minute, "1:07.25" above.
func (t Time) Compact() string {
	if t.Minutes() == 0 {
		return fmt.Sprintf("%d.%02d", t.Seconds(), t.Hundredths())
	}
	return fmt.Sprintf("%d:%02d.%02d", t.Minutes(), t.Seconds(), t.Hundredths())
}

// HumanParts returns the non-zero units as phrases, largest first.
func (t Time) HumanParts() []string {
	var parts []string
	add := func(n int64, unit string) {
		if n == 0 {
			return
		}
		if n == 1 {
			parts = append(parts, fmt.Sprintf("1 %s", unit))
			return
		}
		parts = append(parts, fmt.Sprintf("%d %ss", n, unit))
	}

	add(t.Minutes(), "minute")
	add(t.Seconds(), "second")
	if h := t.Hundredths(); h == 1 {
		parts = append(parts, "1 hundredth")
	} else if h > 1 {
		parts = append(parts, fmt.Sprintf("%d hundredths", h))
	}
	return parts
}

// Humanize joins HumanParts, e.g. "1 minute, 5 seconds".
func (t Time) Humanize() string {
	parts := t.HumanParts()
	if len(parts) == 0 {
		return "0 seconds"
	}
	return strings.Join(parts, ", ")
}

// ParseError reports input that could not be parsed as a Time.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse time %q: %s", e.Input, e.Reason)
}

var (
	reMinSecFrac = regexp.MustCompile(`^(\d+):(\d{1,2})\.(\d{1,2})$`)
	reMinSec     = regexp.MustCompile(`^(\d+):(\d{1,2})$`)
	reSecFrac    = regexp.MustCompile(`^(\d+)\.(\d{1,2})$`)
	reSec        = regexp.MustCompile(`^(\d+)$`)
)

// Parse reads MM:SS.CC, MM:SS, SS.CC or SS. A single fraction digit is
// read as tenths, so "5.5" is 5.50. Seconds must be below 60 in every form.
func Parse(s string) (Time, error) {
	in := strings.TrimSpace(s)
	if in == "" {
		return Zero, &ParseError{Input: s, Reason: "empty input"}
	}

	var minStr, secStr, fracStr string
	switch {
	case reMinSecFrac.MatchString(in):
		m := reMinSecFrac.FindStringSubmatch(in)
		minStr, secStr, fracStr = m[1], m[2], m[3]
	case reMinSec.MatchString(in):
		m := reMinSec.FindStringSubmatch(in)
		minStr, secStr = m[1], m[2]
	case reSecFrac.MatchString(in):
		m := reSecFrac.FindStringSubmatch(in)
		secStr, fracStr = m[1], m[2]
	case reSec.MatchString(in):
		secStr = in
	default:
		return Zero, &ParseError{Input: s, Reason: "expected MM:SS.CC, MM:SS, SS.CC or SS"}
	}

	minutes, err := parseUnit(minStr)
	if err != nil {
		return Zero, &ParseError{Input: s, Reason: "minutes out of range"}
	}
	seconds, err := parseUnit(secStr)
	if err != nil {
		return Zero, &ParseError{Input: s, Reason: "seconds out of range"}
	}
	hundredths, err := parseUnit(fracStr)
	if err != nil {
		return Zero, &ParseError{Input: s, Reason: "hundredths out of range"}
	}
	if len(fracStr) == 1 {
		hundredths *= 10
	}

	if seconds >= 60 {
		return Zero, &ParseError{Input: s, Reason: fmt.Sprintf("seconds %d out of range 0-59", seconds)}
	}
	if hundredths >= HundredthsPerSecond {
		return Zero, &ParseError{Input: s, Reason: fmt.Sprintf("hundredths %d out of range 0-99", hundredths)}
	}

	t, err := FromComponents(minutes, seconds, hundredths)
	if err != nil {
		return Zero, &ParseError{Input: s, Reason: "minutes out of range"}
	}
	return t, nil
}

// MustParse is Parse for constant input. It panics on error.
func MustParse(s string) Time {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

func parseUnit(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
