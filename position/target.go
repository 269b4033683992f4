package position

import (
	"fmt"

	"github.com/mefai-dev/mefai-dev/analysis"
	"github.com/mefai-dev/mefai-dev/indicator"
	"github.com/shopspring/decimal"
)

var (
	// atrStopLossMultiplier scales the average true range when deriving a
	// stop loss from swing points.
	atrStopLossMultiplier = decimal.NewFromFloat(1.5)
	// atrTakeProfitMultiplier scales the average true range when deriving a
	// take profit from the entry price.
	atrTakeProfitMultiplier = decimal.NewFromInt(2)

	oneHundred = decimal.NewFromInt(100)
)

// PercentTargets holds protective prices derived from percentage targets.
type PercentTargets struct {
	TakeProfit1 decimal.Decimal
	StopLoss    decimal.Decimal
	TakeProfit2 decimal.Decimal
}

// CalculatePercentTargets computes first and second take profit prices and a
// stop loss price from the provided percentage targets and leverage. The
// percentages describe returns on margin, so the underlying price moves are
// divided by the leverage. A zero second take profit percentage defaults to
// double the first. Final prices floor at zero.
func CalculatePercentTargets(entryPrice decimal.Decimal, side string, leverage int, tp1Percent, slPercent, tp2Percent float64) (*PercentTargets, error) {
	if leverage <= 0 {
		return nil, fmt.Errorf("leverage must be a positive number, got %d", leverage)
	}

	tp1Factor := decimal.NewFromFloat(tp1Percent).Div(oneHundred)
	slFactor := decimal.NewFromFloat(slPercent).Div(oneHundred)

	tp2Factor := tp1Factor.Mul(decimal.NewFromInt(2))
	if tp2Percent > 0 {
		tp2Factor = decimal.NewFromFloat(tp2Percent).Div(oneHundred)
	}

	lev := decimal.NewFromInt(int64(leverage))
	tp1Change := entryPrice.Mul(tp1Factor.Div(lev))
	slChange := entryPrice.Mul(slFactor.Div(lev))
	tp2Change := entryPrice.Mul(tp2Factor.Div(lev))

	targets := &PercentTargets{}
	switch side {
	case Long:
		targets.TakeProfit1 = entryPrice.Add(tp1Change)
		targets.StopLoss = entryPrice.Sub(slChange)
		targets.TakeProfit2 = entryPrice.Add(tp2Change)
	case Short:
		targets.TakeProfit1 = entryPrice.Sub(tp1Change)
		targets.StopLoss = entryPrice.Add(slChange)
		targets.TakeProfit2 = entryPrice.Sub(tp2Change)
	default:
		return nil, fmt.Errorf("invalid position side provided: %s", side)
	}

	zero := decimal.Zero
	targets.TakeProfit1 = decimal.Max(targets.TakeProfit1, zero)
	targets.StopLoss = decimal.Max(targets.StopLoss, zero)
	targets.TakeProfit2 = decimal.Max(targets.TakeProfit2, zero)

	return targets, nil
}

// ATRTargets holds protective prices derived from volatility and swing points.
type ATRTargets struct {
	TakeProfit decimal.Decimal
	StopLoss   decimal.Decimal
}

// CalculateATRTargets derives protective prices from the provided analysis
// snapshot. Longs stop below the swing low and shorts above the swing high,
// padded by a multiple of the average true range; the take profit sits a
// multiple of the average true range from the entry. Final prices floor at
// zero.
func CalculateATRTargets(entryPrice decimal.Decimal, side string, snapshot *analysis.Snapshot) (*ATRTargets, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("analysis snapshot cannot be nil")
	}
	if !indicator.HasSwingLow(snapshot.SwingLow) {
		return nil, fmt.Errorf("analysis snapshot has no swing data")
	}

	atr := decimal.NewFromFloat(snapshot.ATR)
	swingHigh := decimal.NewFromFloat(snapshot.SwingHigh)
	swingLow := decimal.NewFromFloat(snapshot.SwingLow)

	targets := &ATRTargets{}
	switch side {
	case Long:
		targets.StopLoss = swingLow.Sub(atr.Mul(atrStopLossMultiplier))
		targets.TakeProfit = entryPrice.Add(atr.Mul(atrTakeProfitMultiplier))
	case Short:
		targets.StopLoss = swingHigh.Add(atr.Mul(atrStopLossMultiplier))
		targets.TakeProfit = entryPrice.Sub(atr.Mul(atrTakeProfitMultiplier))
	default:
		return nil, fmt.Errorf("invalid position side provided: %s", side)
	}

	zero := decimal.Zero
	targets.TakeProfit = decimal.Max(targets.TakeProfit, zero)
	targets.StopLoss = decimal.Max(targets.StopLoss, zero)

	return targets, nil
}

// PositionSizeUSDT computes the total position value controlled by the
// provided margin at the provided leverage.
func PositionSizeUSDT(riskAmount decimal.Decimal, leverage int) (decimal.Decimal, error) {
	if leverage <= 0 {
		return decimal.Zero, fmt.Errorf("leverage must be a positive number, got %d", leverage)
	}
	if riskAmount.IsNegative() {
		return decimal.Zero, fmt.Errorf("risk amount cannot be negative")
	}

	return riskAmount.Mul(decimal.NewFromInt(int64(leverage))), nil
}

// QuantityFromUSDT computes the asset quantity a position value buys at the
// provided price.
func QuantityFromUSDT(positionSize decimal.Decimal, price decimal.Decimal) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("price must be greater than zero for quantity calculation")
	}

	return positionSize.Div(price), nil
}
