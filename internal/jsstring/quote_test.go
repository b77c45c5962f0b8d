package jsstring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", `'plain'`},
		{"it's", `'it\'s'`},
		{`a\b`, `'a\\b'`},
		{"line\nbreak", `'line\nbreak'`},
		{"cr\rlf", `'cr\rlf'`},
		{" ", `' '`},
		{"sep\u2028arator", `'sep\u2028arator'`},
		{"héllo", `'héllo'`},
		{"bad\xffbyte", `'bad\xffbyte'`},
		{"\xc3", `'\xc3'`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Quote(tt.in), "%q", tt.in)
	}
}
