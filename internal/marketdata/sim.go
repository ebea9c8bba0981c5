package marketdata

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coladapo/wealthincome/internal/model"
)

// SimProvider generates a deterministic synthetic price series per symbol
// for local runs and development. The price at a given bar index is a pure
// function of (symbol, index), so repeated fetches over the same window
// return identical bars.
type SimProvider struct {
	basePrice  float64
	volatility float64
}

func NewSimProvider() *SimProvider {
	return &SimProvider{basePrice: 100, volatility: 0.004}
}

func (s *SimProvider) FetchBars(ctx context.Context, symbol string, interval time.Duration, lookback int) ([]model.PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrDataUnavailable
	}

	end := time.Now().Truncate(interval)
	endIdx := end.UnixNano() / int64(interval)
	seed := symbolSeed(symbol)

	bars := make([]model.PriceBar, 0, lookback)
	for i := int64(lookback); i > 0; i-- {
		idx := endIdx - i
		open := s.priceAt(seed, idx)
		closeP := s.priceAt(seed, idx+1)
		high := math.Max(open, closeP) * 1.002
		low := math.Min(open, closeP) * 0.998
		volume := 1000 + float64(rand.New(rand.NewSource(seed^idx)).Intn(9000))

		ts := time.Unix(0, idx*int64(interval))
		bars = append(bars, model.PriceBar{
			Symbol:    symbol,
			Open:      decimal.NewFromFloat(open),
			High:      decimal.NewFromFloat(high),
			Low:       decimal.NewFromFloat(low),
			Close:     decimal.NewFromFloat(closeP),
			Volume:    decimal.NewFromFloat(volume),
			Timestamp: ts,
		})
	}
	return bars, nil
}

func (s *SimProvider) FetchQuote(ctx context.Context, symbol string) (model.Quote, error) {
	if err := ctx.Err(); err != nil {
		return model.Quote{}, ErrDataUnavailable
	}
	now := time.Now()
	idx := now.UnixNano() / int64(time.Minute)
	return model.Quote{
		Symbol:    symbol,
		Price:     decimal.NewFromFloat(s.priceAt(symbolSeed(symbol), idx)),
		Timestamp: now,
	}, nil
}

// priceAt combines a slow cyclical trend with seeded per-bar noise. Pure in
// (seed, idx).
func (s *SimProvider) priceAt(seed, idx int64) float64 {
	trend := 1 + 0.08*math.Sin(float64(idx)/90+float64(seed%7))
	noise := (rand.New(rand.NewSource(seed ^ (idx * 2654435761))).Float64() - 0.5) * 2 * s.volatility
	return s.basePrice * trend * (1 + noise)
}

func symbolSeed(symbol string) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return int64(h.Sum64() & math.MaxInt64)
}
