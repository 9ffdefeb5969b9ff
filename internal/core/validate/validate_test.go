package validate

import (
	"strings"
	"testing"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid name", "tea", false},
		{"valid with spaces", "soft boiled egg", false},
		{"empty string", "", true},
		{"only spaces", "   ", true},
		{"only tabs", "\t\t", true},
		{"too long", strings.Repeat("x", MaxNameLength+1), true},
		{"at limit", strings.Repeat("x", MaxNameLength), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Name(tt.input)
			assert.Equal(t, tt.wantErr, err != nil, "Name(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		})
	}
}

func TestNameField(t *testing.T) {
	err := NameField("marks[0].name", "")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Len(t, fieldErrs, 1)
	assert.Equal(t, "marks[0].name", fieldErrs[0].Field)
}

func TestHexColor(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"", false},
		{"#ff00aa", false},
		{"#FF00AA", false},
		{"ff00aa", true},
		{"#fff", true},
		{"#gg0000", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, HexColor(tt.input) != nil)
		})
	}
}

func TestRanges(t *testing.T) {
	require.NoError(t, BlinkCount(1))
	require.NoError(t, BlinkCount(100))
	require.Error(t, BlinkCount(0))
	require.Error(t, BlinkCount(101))

	require.NoError(t, BlinkInterval(500*time.Millisecond))
	require.Error(t, BlinkInterval(time.Millisecond))
	require.Error(t, BlinkInterval(time.Minute))
}

func TestIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"alphanumeric", "abc123", false},
		{"uuid", "3f0c6a9e-7d0b-4c55-9b1a-0c7f2a4a1e11", false},
		{"empty", "", true},
		{"leading dash", "-abc", true},
		{"uppercase", "ABC", true},
		{"spaces", "a b", true},
		{"too long", strings.Repeat("a", 65), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, Identifier(tt.input) != nil)
		})
	}
}

func TestOneOf(t *testing.T) {
	check := OneOf("json", "cbor")
	require.NoError(t, check("json"))
	require.Error(t, check("xml"))
}
