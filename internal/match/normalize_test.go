package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"lowercase and punctuation", "Acme, Inc.", "acme"},
		{"suffix without punctuation", "ACME INC", "acme"},
		{"accent folding", "Café Ltd.", "cafe"},
		{"leading article", "The Gap", "gap"},
		{"whitespace collapse", "  Foo   Bar  ", "foo bar"},
		{"suffix mid-word untouched", "Coca Cola Co", "coca cola"},
		{"incorporated is not inc", "Incorporated Solutions", "incorporated solutions"},
		{"empty", "", ""},
		{"only punctuation", ".,;", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Acme, Inc.",
		"Café Ltd.",
		"The Johnson & Johnson Co",
		"  SMITH   TRUCKING  LLC ",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestStripNonAlnum(t *testing.T) {
	assert.Equal(t, "proendinc", StripNonAlnum("Pro-End, Inc."))
	assert.Equal(t, "abc123", StripNonAlnum("A B C 1-2-3"))
	assert.Equal(t, "", StripNonAlnum("  .,& "))
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"smith", "trucking"}, Tokens("smith trucking"))
	assert.Equal(t, []string{"big", "co"}, Tokens("big co x"))
	assert.Empty(t, Tokens(""))
}
