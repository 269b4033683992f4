package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/mefai-dev/mefai-dev/analysis"
	"github.com/mefai-dev/mefai-dev/database"
	"github.com/mefai-dev/mefai-dev/fetch"
	"github.com/mefai-dev/mefai-dev/server"
	"github.com/mefai-dev/mefai-dev/shared"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// AnalysisConfig represents the configuration struct for the analysis service.
type AnalysisConfig struct {
	// Markets represents the tracked markets.
	Markets []string
	// ExchangeBaseURL is the exchange api base url.
	ExchangeBaseURL string
	// RedisEndpoint is the snapshot cache endpoint.
	RedisEndpoint string
	// DatabaseEndpoint is the credential database endpoint.
	DatabaseEndpoint string
	// DatabaseUser is the credential database user.
	DatabaseUser string
	// DatabasePass is the credential database user pass.
	DatabasePass string
	// ListenAddr is the http listen address.
	ListenAddr string
	// DefaultUser is the account served when a request does not name one.
	DefaultUser string
	// CandleLimit is the number of klines fetched per refresh.
	CandleLimit int
	// ATRPeriod is the average true range period.
	ATRPeriod int
	// SwingWindow is the number of recent candles scanned for swing points.
	SwingWindow int
	// CacheTTL is the snapshot time-to-live.
	CacheTTL time.Duration
	// RefreshInterval is the interval between refresh ticks.
	RefreshInterval time.Duration
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config sane inputs.
func (cfg *AnalysisConfig) Validate() error {
	var errs error

	if len(cfg.Markets) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no markets provided for analysis service"))
	}
	if cfg.ExchangeBaseURL == "" {
		errs = errors.Join(errs, fmt.Errorf("exchange base url cannot be an empty string"))
	}
	if cfg.RedisEndpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("redis endpoint cannot be an empty string"))
	}
	if cfg.DatabaseEndpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("database endpoint cannot be an empty string"))
	}
	if cfg.ListenAddr == "" {
		errs = errors.Join(errs, fmt.Errorf("listen address cannot be an empty string"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}

	return errs
}

// Analysis represents the market analysis service.
type Analysis struct {
	cfg             *AnalysisConfig
	cache           *analysis.Cache
	database        *database.Database
	analysisManager *analysis.Manager
	server          *server.Server
	logger          *zerolog.Logger
	wg              sync.WaitGroup
}

// NewAnalysis initializes a new analysis service.
func NewAnalysis(ctx context.Context, cfg *AnalysisConfig) (*Analysis, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "analysis").Logger()

	exchange, err := fetch.NewBinanceClient(&fetch.BinanceConfig{BaseURL: cfg.ExchangeBaseURL})
	if err != nil {
		return nil, fmt.Errorf("creating exchange client: %v", err)
	}

	cacheLogger := logger.With().Str("component", "cache").Logger()
	cache, err := analysis.NewCache(ctx, &analysis.CacheConfig{
		Endpoint: cfg.RedisEndpoint,
		TTL:      cfg.CacheTTL,
		Logger:   &cacheLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating snapshot cache: %v", err)
	}

	databaseLogger := logger.With().Str("component", "database").Logger()
	db, err := database.NewDatabase(ctx, &database.DatabaseConfig{
		Endpoint: cfg.DatabaseEndpoint,
		User:     cfg.DatabaseUser,
		Pass:     cfg.DatabasePass,
		Logger:   &databaseLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating database: %v", err)
	}

	jobScheduler := gocron.NewScheduler(time.UTC)

	managerLogger := logger.With().Str("component", "analysismanager").Logger()
	analysisMgr, err := analysis.NewManager(&analysis.ManagerConfig{
		Markets:         cfg.Markets,
		Timeframes:      shared.Timeframes,
		ExchangeClient:  exchange,
		Cache:           cache,
		CandleLimit:     cfg.CandleLimit,
		ATRPeriod:       cfg.ATRPeriod,
		SwingWindow:     cfg.SwingWindow,
		RefreshInterval: cfg.RefreshInterval,
		JobScheduler:    jobScheduler,
		Logger:          &managerLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating analysis manager: %v", err)
	}

	serverLogger := logger.With().Str("component", "server").Logger()
	srv := server.NewServer(&server.ServerConfig{
		ListenAddr:     cfg.ListenAddr,
		DefaultUser:    cfg.DefaultUser,
		ExchangeClient: exchange,
		Credentials:    db,
		Cache:          cache,
		Logger:         &serverLogger,
	})

	service := &Analysis{
		cfg:             cfg,
		cache:           cache,
		database:        db,
		analysisManager: analysisMgr,
		server:          srv,
		logger:          &logger,
	}

	return service, nil
}

// Run handles the lifecycle processes of the analysis service. A long-lived
// component exiting cancels the shared context so its peers wind down too.
func (a *Analysis) Run(ctx context.Context) {
	a.wg.Add(2)

	go func() {
		a.analysisManager.Run(ctx)
		a.cfg.Cancel()
		a.wg.Done()
	}()

	go func() {
		a.server.Run(ctx)
		a.cfg.Cancel()
		a.wg.Done()
	}()

	a.wg.Wait()

	err := a.cache.Close()
	if err != nil {
		a.logger.Error().Msgf("closing snapshot cache: %v", err)
	}
}
