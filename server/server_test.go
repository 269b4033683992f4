package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mefai-dev/mefai-dev/analysis"
	"github.com/mefai-dev/mefai-dev/fetch"
	"github.com/mefai-dev/mefai-dev/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// fakeCredentials serves canned credentials per user.
type fakeCredentials struct {
	creds map[string]shared.Credentials
}

func (f *fakeCredentials) FetchCredentials(_ context.Context, user string) (shared.Credentials, bool, error) {
	creds, ok := f.creds[user]
	return creds, ok, nil
}

func (f *fakeCredentials) UpsertCredentials(_ context.Context, user string, creds shared.Credentials) error {
	if f.creds == nil {
		f.creds = make(map[string]shared.Credentials)
	}
	f.creds[user] = creds
	return nil
}

// fakeExchange serves canned account payloads or a configured error.
type fakeExchange struct {
	positions string
	orders    string
	account   string
	err       error
}

func (f *fakeExchange) FetchPositionRisk(context.Context, shared.Credentials) ([]gjson.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return gjson.Parse(f.positions).Array(), nil
}

func (f *fakeExchange) FetchOpenOrders(context.Context, shared.Credentials) ([]gjson.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return gjson.Parse(f.orders).Array(), nil
}

func (f *fakeExchange) FetchBalances(context.Context, shared.Credentials) (gjson.Result, error) {
	if f.err != nil {
		return gjson.Result{}, f.err
	}
	return gjson.Parse(f.account), nil
}

func newTestServer(t *testing.T, exchange *fakeExchange, creds *fakeCredentials) (*Server, *analysis.Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	logger := zerolog.Nop()
	cache, err := analysis.NewCache(context.Background(), &analysis.CacheConfig{
		Endpoint: mr.Addr(),
		TTL:      time.Hour,
		Logger:   &logger,
	})
	assert.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	srv := NewServer(&ServerConfig{
		ListenAddr:     "127.0.0.1:0",
		DefaultUser:    "default",
		ExchangeClient: exchange,
		Credentials:    creds,
		Cache:          cache,
		Logger:         &logger,
	})

	return srv, cache, mr
}

func TestHandleAccount(t *testing.T) {
	exchange := &fakeExchange{
		positions: `[{"symbol":"BTCUSDT","positionSide":"LONG","leverage":"10",
			"positionAmt":"1","entryPrice":"100","markPrice":"105",
			"liquidationPrice":"90","unRealizedProfit":"50"}]`,
		orders: `[{"symbol":"BTCUSDT","positionSide":"LONG","type":"TAKE_PROFIT_MARKET","stopPrice":"110"},
			{"symbol":"BTCUSDT","positionSide":"LONG","type":"STOP_MARKET","stopPrice":"90"}]`,
		account: `{"totalWalletBalance":"1250.554","availableBalance":"940.1"}`,
	}
	creds := &fakeCredentials{creds: map[string]shared.Credentials{
		"default": {APIKey: "key", APISecret: "secret"},
	}}

	srv, _, _ := newTestServer(t, exchange, creds)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/account", nil)
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, rec.Code, http.StatusOK)

	body := gjson.Parse(rec.Body.String())
	assert.Equal(t, body.Get("totalBalance").String(), "1250.55")
	assert.Equal(t, body.Get("availableBalance").String(), "940.10")
	assert.Equal(t, len(body.Get("positions").Array()), 1)

	pos := body.Get("positions").Array()[0]
	assert.Equal(t, pos.Get("symbol").String(), "BTCUSDT")
	assert.Equal(t, pos.Get("initialMargin").Float(), float64(10))
	assert.Equal(t, pos.Get("returnOnEquityPercent").Float(), float64(500))
	assert.Equal(t, pos.Get("takeProfitPrice").Float(), float64(110))
	assert.Equal(t, pos.Get("stopLossPrice").Float(), float64(90))
}

func TestHandleAccountErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		user       string
		exchange   *fakeExchange
		wantStatus int
	}{
		{
			name:       "missing credentials",
			user:       "nobody",
			exchange:   &fakeExchange{},
			wantStatus: http.StatusForbidden,
		},
		{
			name: "exchange rejects credentials",
			user: "default",
			exchange: &fakeExchange{
				err: fmt.Errorf("position risk returned status 401: %w", fetch.ErrAuth),
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "unclassified exchange failure",
			user: "default",
			exchange: &fakeExchange{
				err: fmt.Errorf("connection reset"),
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	creds := &fakeCredentials{creds: map[string]shared.Credentials{
		"default": {APIKey: "key", APISecret: "secret"},
	}}

	for _, test := range tests {
		srv, _, _ := newTestServer(t, test.exchange, creds)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/account?user="+test.user, nil)
		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != test.wantStatus {
			t.Errorf("%s: expected status %d, got %d", test.name, test.wantStatus, rec.Code)
		}

		// Ensure internal detail is never leaked.
		if rec.Code == http.StatusInternalServerError {
			body := gjson.Parse(rec.Body.String())
			assert.Equal(t, body.Get("error").String(), "internal server error")
		}
	}
}

func TestRunExitsOnFatalServeError(t *testing.T) {
	logger := zerolog.Nop()
	srv := NewServer(&ServerConfig{
		ListenAddr: "not a listen address",
		Logger:     &logger,
	})

	done := make(chan struct{})
	go func() {
		srv.Run(context.Background())
		close(done)
	}()

	// Ensure a failed listen terminates the run instead of hanging on the
	// context.
	select {
	case <-done:
	case <-time.After(time.Second * 5):
		t.Fatal("expected the run to exit on a fatal serve error")
	}
}

func TestHandleSaveCredentials(t *testing.T) {
	creds := &fakeCredentials{}
	srv, _, _ := newTestServer(t, &fakeExchange{}, creds)

	// Ensure credentials are stored under the named user.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/credentials",
		strings.NewReader(`{"user":"alice","apiKey":"key","apiSecret":"secret"}`))
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, rec.Code, http.StatusNoContent)
	assert.Equal(t, creds.creds["alice"], shared.Credentials{APIKey: "key", APISecret: "secret"})

	// Ensure an unnamed user falls back to the default account.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/credentials",
		strings.NewReader(`{"apiKey":"k2","apiSecret":"s2"}`))
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, rec.Code, http.StatusNoContent)
	assert.Equal(t, creds.creds["default"].APIKey, "k2")

	// Ensure incomplete credentials are rejected.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/credentials",
		strings.NewReader(`{"user":"alice","apiKey":"key"}`))
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, rec.Code, http.StatusBadRequest)

	// Ensure a malformed body is rejected.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/credentials", strings.NewReader(`{`))
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, rec.Code, http.StatusBadRequest)
}

func TestHandleAnalysis(t *testing.T) {
	srv, cache, mr := newTestServer(t, &fakeExchange{}, &fakeCredentials{})

	snapshot := &analysis.Snapshot{
		ATR:       1.5,
		SwingHigh: 110,
		SwingLow:  95,
		UpdatedAt: time.Date(2025, 2, 4, 15, 5, 0, 0, time.UTC),
	}
	assert.NoError(t, cache.SetSnapshot(context.Background(), "BTCUSDT", shared.OneHour, snapshot))

	// Ensure a cached snapshot is served.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/analysis/BTCUSDT/1h", nil)
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, rec.Code, http.StatusOK)
	body := gjson.Parse(rec.Body.String())
	assert.Equal(t, body.Get("atr").String(), "1.50000")
	assert.Equal(t, body.Get("swingHigh").String(), "110.00000")
	assert.Equal(t, body.Get("updatedAt").String(), "2025-02-04T15:05:00Z")

	// Ensure an unknown timeframe is a bad request.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/analysis/BTCUSDT/2w", nil)
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, rec.Code, http.StatusBadRequest)

	// Ensure a missing pair is not found.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/analysis/ETHUSDT/1h", nil)
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, rec.Code, http.StatusNotFound)

	// Ensure an expired snapshot is not found rather than stale-served.
	mr.FastForward(time.Hour + time.Second)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/analysis/BTCUSDT/1h", nil)
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, rec.Code, http.StatusNotFound)
}
