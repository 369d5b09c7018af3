package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{
			name:     "trims and removes duplicates preserving order",
			input:    []string{" field:country ", "document:passport", "field:country"},
			expected: []string{"field:country", "document:passport"},
		},
		{
			name:     "removes blank entries",
			input:    []string{"field:tax_id", "", "   "},
			expected: []string{"field:tax_id"},
		},
		{
			name:     "preserves case",
			input:    []string{"Foo", "foo"},
			expected: []string{"Foo", "foo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestNormalizeIndicators(t *testing.T) {
	got := NormalizeIndicators([]string{"Name Mismatch", "name_mismatch", " SPOOF_DETECTED ", "spoof  detected", ""})
	assert.Equal(t, []string{"name_mismatch", "spoof_detected"}, got)
}
