package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mefai-dev/mefai-dev/analysis"
	"github.com/mefai-dev/mefai-dev/database"
	"github.com/mefai-dev/mefai-dev/fetch"
	"github.com/mefai-dev/mefai-dev/position"
	"github.com/mefai-dev/mefai-dev/shared"
	"github.com/rs/zerolog"
)

const (
	// balanceDecimalPlaces is the number of fractional digits on reported
	// balances.
	balanceDecimalPlaces = 2

	// shutdownTimeout bounds the graceful shutdown of the http server.
	shutdownTimeout = time.Second * 5
)

// ServerConfig represents the configuration for the http server.
type ServerConfig struct {
	// ListenAddr is the address the http server listens on.
	ListenAddr string
	// DefaultUser is the account used when a request does not name one.
	DefaultUser string
	// ExchangeClient fetches account data from the exchange.
	ExchangeClient shared.AccountFetcher
	// Credentials is the stored credential store.
	Credentials database.CredentialStore
	// Cache is the analysis snapshot cache.
	Cache *analysis.Cache
	// Logger represents the server logger.
	Logger *zerolog.Logger
}

// Server represents the http api surface.
type Server struct {
	cfg   *ServerConfig
	https *http.Server
}

// accountResponse is the account info payload.
type accountResponse struct {
	TotalBalance     string                      `json:"totalBalance"`
	AvailableBalance string                      `json:"availableBalance"`
	Positions        []position.EnrichedPosition `json:"positions"`
}

// NewServer initializes the http server.
func NewServer(cfg *ServerConfig) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{cfg: cfg}

	router := gin.New()
	router.Use(requestLogger(cfg.Logger), gin.Recovery())
	router.GET("/api/account", s.handleAccount)
	router.POST("/api/credentials", s.handleSaveCredentials)
	router.GET("/api/analysis/:symbol/:timeframe", s.handleAnalysis)

	s.https = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	return s
}

// requestLogger tags each request with an id and logs its outcome.
func requestLogger(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.New().String()
		c.Header("X-Request-ID", id)

		start := time.Now()
		c.Next()

		logger.Info().Str("id", id).Int("status", c.Writer.Status()).
			Str("method", c.Request.Method).Str("path", c.Request.URL.Path).
			Dur("elapsed", time.Since(start)).Msg("request")
	}
}

// handleAccount serves the enriched account info for a user. Missing
// credentials and exchange authentication rejections are surfaced as distinct,
// user-actionable conditions; anything else is a generic service error.
func (s *Server) handleAccount(c *gin.Context) {
	ctx := c.Request.Context()
	user := c.DefaultQuery("user", s.cfg.DefaultUser)

	creds, ok, err := s.cfg.Credentials.FetchCredentials(ctx, user)
	if err != nil {
		s.cfg.Logger.Error().Msgf("fetching credentials for %s: %v", user, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	if !ok || !creds.Configured() {
		c.JSON(http.StatusForbidden, gin.H{"error": "no exchange credentials configured"})
		return
	}

	positionsData, err := s.cfg.ExchangeClient.FetchPositionRisk(ctx, creds)
	if err != nil {
		s.abortExchangeError(c, user, err)
		return
	}

	ordersData, err := s.cfg.ExchangeClient.FetchOpenOrders(ctx, creds)
	if err != nil {
		s.abortExchangeError(c, user, err)
		return
	}

	account, err := s.cfg.ExchangeClient.FetchBalances(ctx, creds)
	if err != nil {
		s.abortExchangeError(c, user, err)
		return
	}

	enriched := position.Enrich(position.ParsePositions(positionsData),
		position.ParseOrders(ordersData))

	c.JSON(http.StatusOK, accountResponse{
		TotalBalance: shared.FormatDecimal(
			shared.ParseFloat(account.Get("totalWalletBalance").String()), balanceDecimalPlaces),
		AvailableBalance: shared.FormatDecimal(
			shared.ParseFloat(account.Get("availableBalance").String()), balanceDecimalPlaces),
		Positions: enriched,
	})
}

// credentialsRequest is the credential save payload.
type credentialsRequest struct {
	User      string `json:"user"`
	APIKey    string `json:"apiKey"`
	APISecret string `json:"apiSecret"`
}

// handleSaveCredentials stores exchange credentials for a user, replacing any
// previous ones.
func (s *Server) handleSaveCredentials(c *gin.Context) {
	var req credentialsRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	if req.User == "" {
		req.User = s.cfg.DefaultUser
	}

	creds := shared.Credentials{APIKey: req.APIKey, APISecret: req.APISecret}
	if !creds.Configured() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "api key and secret are required"})
		return
	}

	err = s.cfg.Credentials.UpsertCredentials(c.Request.Context(), req.User, creds)
	if err != nil {
		s.cfg.Logger.Error().Msgf("storing credentials for %s: %v", req.User, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// abortExchangeError maps an exchange failure to its response status.
func (s *Server) abortExchangeError(c *gin.Context, user string, err error) {
	if errors.Is(err, fetch.ErrAuth) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid exchange credentials"})
		return
	}

	s.cfg.Logger.Error().Msgf("fetching account data for %s: %v", user, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// handleAnalysis serves the cached analysis snapshot for a market and
// timeframe pair. Expired snapshots are absent, never stale-served.
func (s *Server) handleAnalysis(c *gin.Context) {
	symbol := c.Param("symbol")
	timeframe, err := shared.ParseTimeframe(c.Param("timeframe"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snapshot, err := s.cfg.Cache.Snapshot(c.Request.Context(), symbol, timeframe)
	switch {
	case errors.Is(err, analysis.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no analysis available"})
		return
	case err != nil:
		s.cfg.Logger.Error().Msgf("fetching snapshot for %s %s: %v", symbol, timeframe.String(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	data, err := analysis.EncodeSnapshot(snapshot)
	if err != nil {
		s.cfg.Logger.Error().Msgf("encoding snapshot for %s %s: %v", symbol, timeframe.String(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.Data(http.StatusOK, "application/json", data)
}

// Handler exposes the underlying http handler.
func (s *Server) Handler() http.Handler {
	return s.https.Handler
}

// Run manages the lifecycle processes of the http server. A fatal serve
// failure terminates the run.
func (s *Server) Run(ctx context.Context) {
	fatal := make(chan error, 1)
	go func() {
		err := s.https.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal <- err
		}
	}()

	select {
	case err := <-fatal:
		s.cfg.Logger.Error().Msgf("serving http: %v", err)
		return

	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.https.Shutdown(shutdownCtx)
	if err != nil {
		s.cfg.Logger.Error().Msgf("shutting down http server: %v", err)
	}
}
