package position

import (
	"math"

	"github.com/mefai-dev/mefai-dev/shared"
	"github.com/tidwall/gjson"
)

const (
	// Long is the long position side.
	Long = "LONG"
	// Short is the short position side.
	Short = "SHORT"
	// Both is the side reported for positions and orders in one-way mode.
	Both = "BOTH"

	// TakeProfitMarket is the protective take profit order type.
	TakeProfitMarket = "TAKE_PROFIT_MARKET"
	// StopMarket is the protective stop loss order type.
	StopMarket = "STOP_MARKET"
)

// Position represents one open derivative position on an account.
type Position struct {
	Symbol           string  `json:"symbol"`
	Side             string  `json:"side"`
	Leverage         float64 `json:"leverage"`
	PositionAmount   float64 `json:"positionAmt"`
	EntryPrice       float64 `json:"entryPrice"`
	MarkPrice        float64 `json:"markPrice"`
	LiquidationPrice float64 `json:"liquidationPrice"`
	UnrealizedProfit float64 `json:"unrealizedProfit"`

	// ReportedMargin is the exchange-reported initial margin. It only carries
	// meaning when HasReportedMargin is set.
	ReportedMargin float64 `json:"-"`
	// HasReportedMargin indicates the exchange reported a finite initial
	// margin, including zero.
	HasReportedMargin bool `json:"-"`
}

// Order represents one resting order on an account.
type Order struct {
	Symbol       string
	Side         string
	Type         string
	TriggerPrice float64
}

// EnrichedPosition is a position with derived margin, return on equity and
// linked protective order prices.
type EnrichedPosition struct {
	Position
	InitialMargin         float64  `json:"initialMargin"`
	ReturnOnEquityPercent float64  `json:"returnOnEquityPercent"`
	TakeProfitPrice       *float64 `json:"takeProfitPrice"`
	StopLossPrice         *float64 `json:"stopLossPrice"`
}

// parseSide derives the position side from the provided payload. One-way mode
// reports the side as BOTH, in which case the sign of the position amount
// decides.
func parseSide(positionSide string, amount float64) string {
	switch positionSide {
	case Long, Short:
		return positionSide
	default:
		if amount < 0 {
			return Short
		}
		return Long
	}
}

// ParsePositions parses account positions from the provided position risk
// payload. All numeric fields decode defensively, with unparsable input
// treated as 0.
func ParsePositions(data []gjson.Result) []Position {
	positions := make([]Position, 0, len(data))

	for idx := range data {
		amount := shared.ParseFloat(data[idx].Get("positionAmt").String())

		pos := Position{
			Symbol:           data[idx].Get("symbol").String(),
			Side:             parseSide(data[idx].Get("positionSide").String(), amount),
			Leverage:         shared.ParseFloat(data[idx].Get("leverage").String()),
			PositionAmount:   amount,
			EntryPrice:       shared.ParseFloat(data[idx].Get("entryPrice").String()),
			MarkPrice:        shared.ParseFloat(data[idx].Get("markPrice").String()),
			LiquidationPrice: shared.ParseFloat(data[idx].Get("liquidationPrice").String()),
			UnrealizedProfit: shared.ParseFloat(data[idx].Get("unRealizedProfit").String()),
		}

		if reported := data[idx].Get("initialMargin"); reported.Exists() {
			pos.ReportedMargin, pos.HasReportedMargin = shared.ParseFiniteFloat(reported.String())
		}

		positions = append(positions, pos)
	}

	return positions
}

// ParseOrders parses resting orders from the provided open orders payload.
func ParseOrders(data []gjson.Result) []Order {
	orders := make([]Order, 0, len(data))

	for idx := range data {
		ord := Order{
			Symbol:       data[idx].Get("symbol").String(),
			Side:         data[idx].Get("positionSide").String(),
			Type:         data[idx].Get("type").String(),
			TriggerPrice: shared.ParseFloat(data[idx].Get("stopPrice").String()),
		}

		orders = append(orders, ord)
	}

	return orders
}

// initialMargin computes the margin backing the provided position. The
// exchange-reported value wins when present and finite, zero included;
// otherwise the margin is derived from the position size and leverage.
// Non-positive divisors yield 0 rather than an error.
func initialMargin(pos *Position) float64 {
	if pos.HasReportedMargin {
		return pos.ReportedMargin
	}

	if pos.Leverage <= 0 {
		return 0
	}

	return math.Abs(pos.PositionAmount) * pos.EntryPrice / pos.Leverage
}

// returnOnEquity computes unrealized profit as a percentage of the provided
// margin. A zero margin yields 0, never a division by zero.
func returnOnEquity(unrealizedProfit float64, margin float64) float64 {
	if margin == 0 {
		return 0
	}

	return unrealizedProfit / margin * 100
}

// Enrich produces the enriched view of the provided account snapshot. Zero
// amount positions are excluded, and each retained position is linked to its
// first matching protective orders by side and type. Either protective price
// may be absent.
func Enrich(positions []Position, orders []Order) []EnrichedPosition {
	// Index orders by symbol once to avoid repeated scans per position.
	ordersBySymbol := make(map[string][]Order, len(orders))
	for idx := range orders {
		ordersBySymbol[orders[idx].Symbol] = append(ordersBySymbol[orders[idx].Symbol], orders[idx])
	}

	enriched := make([]EnrichedPosition, 0, len(positions))
	for idx := range positions {
		pos := positions[idx]
		if pos.PositionAmount == 0 {
			continue
		}

		margin := initialMargin(&pos)
		ep := EnrichedPosition{
			Position:              pos,
			InitialMargin:         margin,
			ReturnOnEquityPercent: returnOnEquity(pos.UnrealizedProfit, margin),
		}

		for _, ord := range ordersBySymbol[pos.Symbol] {
			// One-way mode orders carry the BOTH side and protect whichever
			// side the position holds.
			if ord.Side != pos.Side && ord.Side != Both {
				continue
			}

			switch ord.Type {
			case TakeProfitMarket:
				if ep.TakeProfitPrice == nil {
					price := ord.TriggerPrice
					ep.TakeProfitPrice = &price
				}
			case StopMarket:
				if ep.StopLossPrice == nil {
					price := ord.TriggerPrice
					ep.StopLossPrice = &price
				}
			}
		}

		enriched = append(enriched, ep)
	}

	return enriched
}
