package indicator

import (
	"math"

	"github.com/mefai-dev/mefai-dev/shared"
)

const (
	// DefaultATRPeriod is the default average true range period.
	DefaultATRPeriod = 14
)

// AverageTrueRange estimates volatility from the provided chronologically
// ordered candles. The true range of every adjacent candle pair is summed over
// the full input and divided by the fixed period, not averaged over a sliding
// window — downstream consumers depend on this exact scale. Inputs shorter
// than two candles yield 0.
func AverageTrueRange(candles []shared.Candlestick, period int) float64 {
	if len(candles) < 2 || period <= 0 {
		return 0
	}

	var sum float64
	for idx := 1; idx < len(candles); idx++ {
		current := &candles[idx]
		prevClose := candles[idx-1].Close

		trueRange := math.Max(current.High-current.Low,
			math.Max(math.Abs(current.High-prevClose), math.Abs(current.Low-prevClose)))
		sum += trueRange
	}

	return sum / float64(period)
}
