package indicator

import (
	"math"

	"github.com/mefai-dev/mefai-dev/shared"
)

const (
	// DefaultSwingWindow is the default number of recent candles scanned for
	// swing points.
	DefaultSwingWindow = 20

	// NoSwingLow is the sentinel swing low returned for an empty window.
	NoSwingLow = math.MaxFloat64
)

// SwingPoints scans the provided candle window and returns the maximum high
// and minimum low observed. An empty window yields a swing high of 0 and the
// NoSwingLow sentinel — callers must check HasSwingLow before trusting the
// returned low.
func SwingPoints(candles []shared.Candlestick) (float64, float64) {
	swingHigh := float64(0)
	swingLow := float64(NoSwingLow)

	for idx := range candles {
		if candles[idx].High > swingHigh {
			swingHigh = candles[idx].High
		}
		if candles[idx].Low < swingLow {
			swingLow = candles[idx].Low
		}
	}

	return swingHigh, swingLow
}

// HasSwingLow indicates whether the provided swing low is real data rather
// than the empty-window sentinel.
func HasSwingLow(swingLow float64) bool {
	return swingLow != NoSwingLow
}
