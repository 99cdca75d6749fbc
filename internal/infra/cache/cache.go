package cache

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	cacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "price_cache_hits_total",
		Help: "Price cache hits",
	})
	cacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "price_cache_misses_total",
		Help: "Price cache misses",
	})
)

func init() {
	prometheus.MustRegister(cacheHitsTotal)
	prometheus.MustRegister(cacheMissesTotal)
}

// PriceCache is a short-TTL Redis cache in front of the public prices
// endpoint. A nil *PriceCache is valid and disables caching, so callers
// never branch on configuration themselves.
type PriceCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New connects to Redis at addr. An empty addr returns a nil cache, which
// every method treats as a miss/no-op.
func New(ctx context.Context, addr string, ttl time.Duration, logger *zap.Logger) (*PriceCache, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &PriceCache{client: client, ttl: ttl, logger: logger}, nil
}

func (c *PriceCache) Get(ctx context.Context, key string) (string, bool) {
	if c == nil {
		return "", false
	}
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		cacheMissesTotal.Inc()
		return "", false
	}
	if err != nil {
		c.logger.Warn("price cache get failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	cacheHitsTotal.Inc()
	return val, true
}

func (c *PriceCache) Set(ctx context.Context, key, value string) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.Warn("price cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *PriceCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
