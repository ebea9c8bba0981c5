package marketdata

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/coladapo/wealthincome/internal/model"
)

func TestBarAggregatorFoldsQuotes(t *testing.T) {
	agg := NewBarAggregator(time.Minute)
	window := time.Now().Truncate(time.Minute)

	quote := func(price float64, offset time.Duration) model.Quote {
		return model.Quote{
			Symbol:    "AAPL",
			Price:     decimal.NewFromFloat(price),
			Timestamp: window.Add(offset),
		}
	}

	// 1. First quote opens the bar
	agg.Add(quote(100, 5*time.Second))

	// 2. Later quotes stretch high/low and move the close
	agg.Add(quote(102, 20*time.Second))
	agg.Add(quote(99, 40*time.Second))
	agg.Add(quote(101, 55*time.Second))

	// Period still open: nothing completed at its own cutoff.
	assert.Len(t, agg.Completed(window), 0)

	done := agg.Completed(window.Add(time.Minute))
	if len(done) != 1 {
		t.Fatalf("expected 1 completed bar, got %d", len(done))
	}

	bar := done[0]
	assert.Equal(t, "AAPL", bar.Symbol)
	assert.True(t, bar.Open.Equal(decimal.NewFromInt(100)))
	assert.True(t, bar.High.Equal(decimal.NewFromInt(102)))
	assert.True(t, bar.Low.Equal(decimal.NewFromInt(99)))
	assert.True(t, bar.Close.Equal(decimal.NewFromInt(101)))
	assert.Equal(t, window, bar.Timestamp)

	// Drained bars are gone.
	assert.Len(t, agg.Completed(window.Add(time.Minute)), 0)
}

func TestBarAggregatorSeparatesPeriodsAndSymbols(t *testing.T) {
	agg := NewBarAggregator(time.Minute)
	window := time.Now().Truncate(time.Minute)

	agg.Add(model.Quote{Symbol: "AAPL", Price: decimal.NewFromInt(100), Timestamp: window.Add(time.Second)})
	agg.Add(model.Quote{Symbol: "MSFT", Price: decimal.NewFromInt(400), Timestamp: window.Add(time.Second)})
	agg.Add(model.Quote{Symbol: "AAPL", Price: decimal.NewFromInt(105), Timestamp: window.Add(61 * time.Second)})

	done := agg.Completed(window.Add(time.Minute))
	assert.Len(t, done, 2)
	for _, bar := range done {
		assert.Equal(t, window, bar.Timestamp)
	}

	// The second-period AAPL bar completes on the next cutoff.
	done = agg.Completed(window.Add(2 * time.Minute))
	if assert.Len(t, done, 1) {
		assert.Equal(t, "AAPL", done[0].Symbol)
		assert.True(t, done[0].Open.Equal(decimal.NewFromInt(105)))
	}
}
