package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mefai-dev/mefai-dev/shared"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	// keyPrefix prefixes every cached snapshot key.
	keyPrefix = "analysis"

	// DefaultCacheTTL is the default snapshot time-to-live.
	DefaultCacheTTL = time.Hour
)

// ErrNotFound is returned for absent or expired snapshots.
var ErrNotFound = errors.New("analysis snapshot not found")

// CacheConfig represents the configuration for the snapshot cache.
type CacheConfig struct {
	// Endpoint represents the cache connection endpoint.
	Endpoint string
	// TTL is the time-to-live applied to every snapshot write.
	TTL time.Duration
	// Logger represents the cache logger.
	Logger *zerolog.Logger
}

// Cache is a time-bounded store holding the latest computed snapshot per
// market and timeframe pair. Expired snapshots are treated as absent, never
// stale-served.
type Cache struct {
	cfg    *CacheConfig
	client *redis.Client
}

// NewCache initializes a new snapshot cache connection.
func NewCache(ctx context.Context, cfg *CacheConfig) (*Cache, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Endpoint})
	err := client.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("pinging snapshot cache: %w", err)
	}

	return &Cache{
		cfg:    cfg,
		client: client,
	}, nil
}

// Key generates the cache key for the provided market and timeframe pair.
func Key(market string, timeframe shared.Timeframe) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, market, timeframe.String())
}

// SetSnapshot stores the provided snapshot under its pair key with the
// configured time-to-live.
func (c *Cache) SetSnapshot(ctx context.Context, market string, timeframe shared.Timeframe, snapshot *Snapshot) error {
	data, err := EncodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	err = c.client.Set(ctx, Key(market, timeframe), data, c.cfg.TTL).Err()
	if err != nil {
		return fmt.Errorf("storing snapshot for %s %s: %w", market, timeframe.String(), err)
	}

	return nil
}

// Snapshot fetches the cached snapshot for the provided market and timeframe
// pair. Absent or expired snapshots return ErrNotFound.
func (c *Cache) Snapshot(ctx context.Context, market string, timeframe shared.Timeframe) (*Snapshot, error) {
	data, err := c.client.Get(ctx, Key(market, timeframe)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("fetching snapshot for %s %s: %w", market, timeframe.String(), err)
	}

	return DecodeSnapshot(data)
}

// Close terminates the cache connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
