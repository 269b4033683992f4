package shared

import (
	"context"

	"github.com/tidwall/gjson"
)

// MarketFetcher defines the requirements for fetching market data.
type MarketFetcher interface {
	// FetchKlines fetches the most recent klines for the provided market and
	// timeframe, ordered oldest first.
	FetchKlines(ctx context.Context, market string, timeframe Timeframe, limit int) ([]gjson.Result, error)
}

// AccountFetcher defines the requirements for fetching account data.
type AccountFetcher interface {
	// FetchPositionRisk fetches the open position snapshot for the account
	// identified by the provided credentials.
	FetchPositionRisk(ctx context.Context, creds Credentials) ([]gjson.Result, error)
	// FetchOpenOrders fetches all resting orders for the account identified by
	// the provided credentials.
	FetchOpenOrders(ctx context.Context, creds Credentials) ([]gjson.Result, error)
	// FetchBalances fetches the account balance summary for the account
	// identified by the provided credentials.
	FetchBalances(ctx context.Context, creds Credentials) (gjson.Result, error)
}
