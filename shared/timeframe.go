package shared

import "fmt"

// Timeframe represents the market data time period.
type Timeframe int

const (
	FiveMinute Timeframe = iota
	FifteenMinute
	ThirtyMinute
	OneHour
	FourHour
	OneDay
)

// Timeframes is the fixed set of tracked timeframes.
var Timeframes = []Timeframe{FiveMinute, FifteenMinute, ThirtyMinute, OneHour, FourHour, OneDay}

// String stringifies the provided timeframe as the exchange interval label.
func (t *Timeframe) String() string {
	switch *t {
	case FiveMinute:
		return "5m"
	case FifteenMinute:
		return "15m"
	case ThirtyMinute:
		return "30m"
	case OneHour:
		return "1h"
	case FourHour:
		return "4h"
	case OneDay:
		return "1d"
	default:
		return "unknown"
	}
}

// ParseTimeframe parses a timeframe from the provided interval label.
func ParseTimeframe(label string) (Timeframe, error) {
	switch label {
	case "5m":
		return FiveMinute, nil
	case "15m":
		return FifteenMinute, nil
	case "30m":
		return ThirtyMinute, nil
	case "1h":
		return OneHour, nil
	case "4h":
		return FourHour, nil
	case "1d":
		return OneDay, nil
	default:
		return 0, fmt.Errorf("unknown timeframe label: %s", label)
	}
}
