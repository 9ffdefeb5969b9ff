package ptime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// MarshalJSON encodes the canonical total as a JSON integer.
func (t Time) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, t.total, 10), nil
}

// UnmarshalJSON accepts an integer total or a string in any Parse form.
func (t *Time) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return t.UnmarshalText([]byte(s))
	}

	var total int64
	if err := json.Unmarshal(data, &total); err != nil {
		return fmt.Errorf("time total: %w", err)
	}
	if total < 0 {
		return fmt.Errorf("time total: %w: %d", ErrNegative, total)
	}
	t.total = total
	return nil
}

func (t Time) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Time) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalYAML writes the human form, which UnmarshalYAML reads back.
func (t Time) MarshalYAML() (any, error) {
	return t.String(), nil
}

// UnmarshalYAML accepts an integer total or a string in any Parse form.
func (t *Time) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!int" {
		var total int64
		if err := node.Decode(&total); err != nil {
			return err
		}
		if total < 0 {
			return fmt.Errorf("line %d: %w", node.Line, ErrNegative)
		}
		t.total = total
		return nil
	}

	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return t.UnmarshalText([]byte(s))
}

func (t Time) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(t.total)
}

func (t *Time) UnmarshalCBOR(data []byte) error {
	var total int64
	if err := cbor.Unmarshal(data, &total); err != nil {
		return fmt.Errorf("time total: %w", err)
	}
	if total < 0 {
		return fmt.Errorf("time total: %w: %d", ErrNegative, total)
	}
	t.total = total
	return nil
}
