package shared

import (
	"math"
	"strconv"
)

// ParseFiniteFloat parses the provided numeric string, reporting whether it
// holds a finite number.
func ParseFiniteFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}

	return v, true
}

// ParseFloat parses the provided numeric string, returning zero for anything
// unparsable or non-finite.
func ParseFloat(s string) float64 {
	v, _ := ParseFiniteFloat(s)
	return v
}

// FormatDecimal formats the provided value with a fixed number of fractional
// digits.
func FormatDecimal(v float64, places int) string {
	return strconv.FormatFloat(v, 'f', places, 64)
}
