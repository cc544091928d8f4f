package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		input string
		want  *float64
	}{
		{"102.084,44", ptr(102084.44)},
		{"0,85", ptr(0.85)},
		{"-1,25", ptr(-1.25)},
		{"1.234.567,8", ptr(1234567.8)},
		{"", nil},
		{"abc", nil},
		{"1,2,3", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseDecimal(tt.input)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assertFloat(t, *tt.want, got)
		})
	}
}

func TestFormatDecimal_RoundTrip(t *testing.T) {
	for _, s := range []string{"102.084,44", "0,85", "-1.000,00", "3.190.888,05"} {
		t.Run(s, func(t *testing.T) {
			v := ParseDecimal(s)
			assert.NotNil(t, v)
			assert.Equal(t, s, FormatDecimal(*v, 2))
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  *string
	}{
		{"01/02/2023", ptr("2023-02-01")},
		{"15/03/27", ptr("2027-03-15")},
		{"29/02/2024", ptr("2024-02-29")},
		{"29/02/2023", nil},
		{"31/02/24", nil},
		{"00/01/2024", nil},
		{"01/13/2024", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDate(tt.input))
		})
	}
}
