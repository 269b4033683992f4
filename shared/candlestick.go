package shared

import (
	"time"

	"github.com/tidwall/gjson"
)

// Candlestick represents a unit candlestick for a market.
type Candlestick struct {
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
	OpenTime time.Time

	// Metadata fields.
	Market    string
	Timeframe Timeframe
}

// ParseKlines parses candlesticks from the provided kline tuples. Each tuple is
// indexed as [openTime, open, high, low, close, volume, ...], with all prices
// as numeric text. Malformed numeric fields decode to 0.
func ParseKlines(data []gjson.Result, market string, timeframe Timeframe) []Candlestick {
	candles := make([]Candlestick, 0, len(data))

	for idx := range data {
		tuple := data[idx].Array()
		if len(tuple) < 5 {
			continue
		}

		candle := Candlestick{
			OpenTime:  time.UnixMilli(tuple[0].Int()).UTC(),
			Open:      ParseFloat(tuple[1].String()),
			High:      ParseFloat(tuple[2].String()),
			Low:       ParseFloat(tuple[3].String()),
			Close:     ParseFloat(tuple[4].String()),
			Market:    market,
			Timeframe: timeframe,
		}

		if len(tuple) > 5 {
			candle.Volume = ParseFloat(tuple[5].String())
		}

		candles = append(candles, candle)
	}

	return candles
}
