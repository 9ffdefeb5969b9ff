// Package validate provides shared validation functions.
package validate

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hay-kot/criterio"
)

const (
	MaxNameLength = 120

	MinBlinkCount    = 1
	MaxBlinkCount    = 100
	MinBlinkInterval = 50 * time.Millisecond
	MaxBlinkInterval = 10 * time.Second
)

var (
	hexColorRe   = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	identifierRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)
)

// Name validates a display name is non-empty after trimming whitespace
// and not longer than MaxNameLength characters.
func Name(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("name must be at most %d characters", MaxNameLength)
	}
	return nil
}

// NameField returns a criterio validator for names.
func NameField(field, name string) error {
	return criterio.Run(field, name, Name)
}

// HexColor accepts an empty string or a #RRGGBB colour.
func HexColor(s string) error {
	if s == "" || hexColorRe.MatchString(s) {
		return nil
	}
	return fmt.Errorf("%q is not a #RRGGBB colour", s)
}

func BlinkCount(n int) error {
	if n < MinBlinkCount || n > MaxBlinkCount {
		return fmt.Errorf("blink count %d out of range %d-%d", n, MinBlinkCount, MaxBlinkCount)
	}
	return nil
}

func BlinkInterval(d time.Duration) error {
	if d < MinBlinkInterval || d > MaxBlinkInterval {
		return fmt.Errorf("blink interval %s out of range %s-%s", d, MinBlinkInterval, MaxBlinkInterval)
	}
	return nil
}

// Identifier validates timer and mark ids: lowercase alphanumerics and
// dashes, at most 64 characters.
func Identifier(id string) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}
	if !identifierRe.MatchString(id) {
		return fmt.Errorf("id %q must be lowercase alphanumeric with dashes", id)
	}
	return nil
}

// OneOf returns a validator accepting only the listed values.
func OneOf[T comparable](allowed ...T) func(T) error {
	return func(v T) error {
		if slices.Contains(allowed, v) {
			return nil
		}
		return fmt.Errorf("%v is not one of %v", v, allowed)
	}
}
