package shared

import (
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestParseFloat(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{
			name:  "valid number",
			input: "42.5",
			want:  42.5,
		},
		{
			name:  "negative number",
			input: "-3.25",
			want:  -3.25,
		},
		{
			name:  "empty string",
			input: "",
			want:  0,
		},
		{
			name:  "garbage input",
			input: "abc",
			want:  0,
		},
		{
			name:  "not a number",
			input: "NaN",
			want:  0,
		},
		{
			name:  "infinity",
			input: "+Inf",
			want:  0,
		},
	}

	for _, test := range tests {
		got := ParseFloat(test.input)
		if got != test.want {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, got)
		}
	}
}

func TestParseFiniteFloat(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   float64
		wantOk bool
	}{
		{
			name:   "finite number",
			input:  "0",
			want:   0,
			wantOk: true,
		},
		{
			name:   "negative number",
			input:  "-3.25",
			want:   -3.25,
			wantOk: true,
		},
		{
			name:   "garbage input",
			input:  "abc",
			want:   0,
			wantOk: false,
		},
		{
			name:   "not a number",
			input:  "NaN",
			want:   0,
			wantOk: false,
		},
		{
			name:   "infinity",
			input:  "-Inf",
			want:   0,
			wantOk: false,
		},
	}

	for _, test := range tests {
		got, ok := ParseFiniteFloat(test.input)
		if got != test.want || ok != test.wantOk {
			t.Errorf("%s: expected (%v, %v), got (%v, %v)", test.name, test.want, test.wantOk, got, ok)
		}
	}
}

func TestFormatDecimal(t *testing.T) {
	tests := []struct {
		name   string
		value  float64
		places int
		want   string
	}{
		{
			name:   "five fractional digits",
			value:  12.3,
			places: 5,
			want:   "12.30000",
		},
		{
			name:   "two fractional digits",
			value:  100.456,
			places: 2,
			want:   "100.46",
		},
		{
			name:   "zero value",
			value:  0,
			places: 5,
			want:   "0.00000",
		},
	}

	for _, test := range tests {
		got := FormatDecimal(test.value, test.places)
		assert.Equal(t, got, test.want)
	}
}
