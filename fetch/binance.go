package fetch

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mefai-dev/mefai-dev/shared"
	"github.com/tidwall/gjson"
)

const (
	// BaseURL is the USD-M futures api base url.
	BaseURL = "https://fapi.binance.com"

	klinesPath       = "/fapi/v1/klines"
	positionRiskPath = "/fapi/v2/positionRisk"
	openOrdersPath   = "/fapi/v1/openOrders"
	accountPath      = "/fapi/v2/account"

	// apiKeyHeader carries the api key on signed requests.
	apiKeyHeader = "X-MBX-APIKEY"
)

// ErrAuth indicates the exchange rejected the provided credentials.
var ErrAuth = errors.New("exchange rejected credentials")

// BinanceConfig represents the configuration for the exchange client.
type BinanceConfig struct {
	// BaseURL is the exchange api base url.
	BaseURL string
}

// BinanceClient represents the USD-M futures exchange client.
type BinanceClient struct {
	cfg   *BinanceConfig
	httpc http.Client
}

// Ensure the exchange client implements the fetcher interfaces.
var _ shared.MarketFetcher = (*BinanceClient)(nil)
var _ shared.AccountFetcher = (*BinanceClient)(nil)

// NewBinanceClient instantiates a new exchange client.
func NewBinanceClient(cfg *BinanceConfig) (*BinanceClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("exchange base url cannot be an empty string")
	}

	return &BinanceClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 5},
	}, nil
}

// formURL creates full urls including parameters for the api.
func (c *BinanceClient) formURL(path string, params string) string {
	var buf strings.Builder
	buf.WriteString(c.cfg.BaseURL)
	buf.WriteString(path)
	buf.WriteString("?")
	buf.WriteString(params)

	return buf.String()
}

// isAuthErrorCode reports whether the provided exchange error code is an
// authentication or signature rejection.
func isAuthErrorCode(code int64) bool {
	switch code {
	case -1022, -2014, -2015:
		// Invalid signature, bad api key format, rejected key/ip/permissions.
		return true
	default:
		return false
	}
}

// do executes the provided request and reads the full response, classifying
// authentication rejections.
func (c *BinanceClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing exchange request: %w", err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		code := gjson.GetBytes(body, "code").Int()
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden ||
			isAuthErrorCode(code) {
			return nil, fmt.Errorf("%s returned status %d (code %d): %w",
				req.URL.Path, resp.StatusCode, code, ErrAuth)
		}

		return nil, fmt.Errorf("%s returned status %d (code %d)",
			req.URL.Path, resp.StatusCode, code)
	}

	return body, nil
}

// FetchKlines fetches the most recent klines for the provided market and
// timeframe, ordered oldest first.
func (c *BinanceClient) FetchKlines(ctx context.Context, market string, timeframe shared.Timeframe, limit int) ([]gjson.Result, error) {
	params := url.Values{}
	params.Add("symbol", market)
	params.Add("interval", timeframe.String())
	params.Add("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.formURL(klinesPath, params.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("creating klines request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching klines (%s) for %s: %w", timeframe.String(), market, err)
	}

	return gjson.ParseBytes(body).Array(), nil
}

// sign appends a timestamp and an HMAC-SHA256 signature to the provided
// request parameters.
func sign(params url.Values, creds shared.Credentials) string {
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))

	encoded := params.Encode()
	mac := hmac.New(sha256.New, []byte(creds.APISecret))
	mac.Write([]byte(encoded))

	return encoded + "&signature=" + hex.EncodeToString(mac.Sum(nil))
}

// fetchSigned executes a signed request against the provided api path.
func (c *BinanceClient) fetchSigned(ctx context.Context, path string, params url.Values, creds shared.Credentials) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.formURL(path, sign(params, creds)), nil)
	if err != nil {
		return nil, fmt.Errorf("creating signed request: %w", err)
	}

	req.Header.Set(apiKeyHeader, creds.APIKey)

	return c.do(req)
}

// FetchPositionRisk fetches the open position snapshot for the account
// identified by the provided credentials.
func (c *BinanceClient) FetchPositionRisk(ctx context.Context, creds shared.Credentials) ([]gjson.Result, error) {
	body, err := c.fetchSigned(ctx, positionRiskPath, url.Values{}, creds)
	if err != nil {
		return nil, fmt.Errorf("fetching position risk: %w", err)
	}

	return gjson.ParseBytes(body).Array(), nil
}

// FetchOpenOrders fetches all resting orders for the account identified by
// the provided credentials.
func (c *BinanceClient) FetchOpenOrders(ctx context.Context, creds shared.Credentials) ([]gjson.Result, error) {
	body, err := c.fetchSigned(ctx, openOrdersPath, url.Values{}, creds)
	if err != nil {
		return nil, fmt.Errorf("fetching open orders: %w", err)
	}

	return gjson.ParseBytes(body).Array(), nil
}

// FetchBalances fetches the account balance summary for the account
// identified by the provided credentials.
func (c *BinanceClient) FetchBalances(ctx context.Context, creds shared.Credentials) (gjson.Result, error) {
	body, err := c.fetchSigned(ctx, accountPath, url.Values{}, creds)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("fetching account balances: %w", err)
	}

	return gjson.ParseBytes(body), nil
}
