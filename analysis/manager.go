package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/mefai-dev/mefai-dev/indicator"
	"github.com/mefai-dev/mefai-dev/shared"
	"github.com/rs/zerolog"
)

const (
	// DefaultCandleLimit is the default number of klines fetched per refresh.
	DefaultCandleLimit = 100
	// DefaultRefreshInterval is the default interval between refresh ticks.
	DefaultRefreshInterval = time.Minute * 10
)

// ManagerConfig represents the analysis manager configuration.
type ManagerConfig struct {
	// Markets represents the tracked markets.
	Markets []string
	// Timeframes represents the tracked timeframes.
	Timeframes []shared.Timeframe
	// ExchangeClient represents the market exchange client.
	ExchangeClient shared.MarketFetcher
	// Cache stores computed snapshots.
	Cache *Cache
	// CandleLimit is the number of klines fetched per market and timeframe pair.
	CandleLimit int
	// ATRPeriod is the average true range period.
	ATRPeriod int
	// SwingWindow is the number of recent candles scanned for swing points.
	SwingWindow int
	// RefreshInterval is the interval between refresh ticks.
	RefreshInterval time.Duration
	// JobScheduler represents the job scheduler.
	JobScheduler *gocron.Scheduler
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Manager maintains freshness of the snapshot cache for the full cross-product
// of tracked markets and timeframes.
type Manager struct {
	cfg *ManagerConfig
}

// NewManager initializes the analysis manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	if cfg.ExchangeClient == nil {
		return nil, fmt.Errorf("exchange client cannot be nil")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("snapshot cache cannot be nil")
	}
	if len(cfg.Markets) == 0 {
		return nil, fmt.Errorf("no markets provided for analysis manager")
	}

	if len(cfg.Timeframes) == 0 {
		cfg.Timeframes = shared.Timeframes
	}
	if cfg.CandleLimit <= 0 {
		cfg.CandleLimit = DefaultCandleLimit
	}
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = indicator.DefaultATRPeriod
	}
	if cfg.SwingWindow <= 0 {
		cfg.SwingWindow = indicator.DefaultSwingWindow
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}

	return &Manager{cfg: cfg}, nil
}

// refreshPair fetches, computes and stores the snapshot for one market and
// timeframe pair.
func (m *Manager) refreshPair(ctx context.Context, market string, timeframe shared.Timeframe) error {
	data, err := m.cfg.ExchangeClient.FetchKlines(ctx, market, timeframe, m.cfg.CandleLimit)
	if err != nil {
		return fmt.Errorf("fetching klines: %w", err)
	}

	candles := shared.ParseKlines(data, market, timeframe)
	if len(candles) == 0 {
		return fmt.Errorf("no klines returned")
	}

	atr := indicator.AverageTrueRange(candles, m.cfg.ATRPeriod)

	window := candles
	if len(window) > m.cfg.SwingWindow {
		window = window[len(window)-m.cfg.SwingWindow:]
	}
	swingHigh, swingLow := indicator.SwingPoints(window)

	snapshot := &Snapshot{
		ATR:       atr,
		SwingHigh: swingHigh,
		SwingLow:  swingLow,
		UpdatedAt: time.Now().UTC(),
	}

	return m.cfg.Cache.SetSnapshot(ctx, market, timeframe, snapshot)
}

// RefreshAll runs one refresh tick across every tracked market and timeframe
// pair. A pair failure is logged and does not affect any other pair; the
// failing pair keeps its previous cached snapshot until a later tick succeeds.
func (m *Manager) RefreshAll(ctx context.Context) {
	for _, market := range m.cfg.Markets {
		for _, timeframe := range m.cfg.Timeframes {
			select {
			case <-ctx.Done():
				return
			default:
			}

			err := m.refreshPair(ctx, market, timeframe)
			if err != nil {
				m.cfg.Logger.Error().Msgf("refreshing %s %s: %v", market, timeframe.String(), err)
			}
		}
	}
}

// Run manages the lifecycle processes of the analysis manager. The refresh
// runs once immediately, then on the configured interval. Ticks are
// serialized: a fire while the previous tick is still running is skipped.
func (m *Manager) Run(ctx context.Context) {
	_, err := m.cfg.JobScheduler.Every(m.cfg.RefreshInterval).
		SingletonMode().
		StartImmediately().
		Do(func() { m.RefreshAll(ctx) })
	if err != nil {
		m.cfg.Logger.Error().Msgf("scheduling refresh job: %v", err)
		return
	}

	m.cfg.JobScheduler.StartAsync()

	<-ctx.Done()
	m.cfg.JobScheduler.Stop()
}
