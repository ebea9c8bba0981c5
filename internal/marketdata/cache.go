package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/coladapo/wealthincome/internal/model"
)

// CachedProvider wraps a Provider with a redis-backed TTL cache. A key past
// its TTL is simply absent: an expired read is a miss, never stale data.
// Redis errors degrade to the inner provider rather than failing the fetch.
type CachedProvider struct {
	inner    Provider
	rdb      *redis.Client
	barTTL   time.Duration
	quoteTTL time.Duration
	logger   *zap.Logger
}

func NewCachedProvider(inner Provider, rdb *redis.Client, barTTL, quoteTTL time.Duration, logger *zap.Logger) *CachedProvider {
	return &CachedProvider{
		inner:    inner,
		rdb:      rdb,
		barTTL:   barTTL,
		quoteTTL: quoteTTL,
		logger:   logger,
	}
}

func (c *CachedProvider) FetchBars(ctx context.Context, symbol string, interval time.Duration, lookback int) ([]model.PriceBar, error) {
	key := fmt.Sprintf("bars:%s:%s:%d", symbol, interval, lookback)

	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var bars []model.PriceBar
		if err := json.Unmarshal(data, &bars); err == nil {
			return bars, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("bar cache read failed", zap.String("symbol", symbol), zap.Error(err))
	}

	bars, err := c.inner.FetchBars(ctx, symbol, interval, lookback)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(bars); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.barTTL).Err(); err != nil {
			c.logger.Warn("bar cache write failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}
	return bars, nil
}

func (c *CachedProvider) FetchQuote(ctx context.Context, symbol string) (model.Quote, error) {
	key := "quote:" + symbol

	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var q model.Quote
		if err := json.Unmarshal(data, &q); err == nil {
			return q, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("quote cache read failed", zap.String("symbol", symbol), zap.Error(err))
	}

	q, err := c.inner.FetchQuote(ctx, symbol)
	if err != nil {
		return model.Quote{}, err
	}

	if data, err := json.Marshal(q); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.quoteTTL).Err(); err != nil {
			c.logger.Warn("quote cache write failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}
	return q, nil
}
