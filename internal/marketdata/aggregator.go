package marketdata

import (
	"fmt"
	"sync"
	"time"

	"github.com/coladapo/wealthincome/internal/model"
)

// BarAggregator folds a stream of quotes into fixed-interval price bars.
// Live feed adapters push every tick through Add and drain completed bars
// periodically with Completed.
type BarAggregator struct {
	mu       sync.Mutex
	interval time.Duration
	open     map[string]*model.PriceBar
}

func NewBarAggregator(interval time.Duration) *BarAggregator {
	return &BarAggregator{
		interval: interval,
		open:     make(map[string]*model.PriceBar),
	}
}

// Add folds one quote into the bar for its period, creating it on first
// observation.
func (a *BarAggregator) Add(q model.Quote) {
	a.mu.Lock()
	defer a.mu.Unlock()

	window := q.Timestamp.Truncate(a.interval)
	key := fmt.Sprintf("%s:%s", q.Symbol, window.Format(time.RFC3339))

	bar, ok := a.open[key]
	if !ok {
		a.open[key] = &model.PriceBar{
			Symbol:    q.Symbol,
			Open:      q.Price,
			High:      q.Price,
			Low:       q.Price,
			Close:     q.Price,
			Timestamp: window,
		}
		return
	}

	if q.Price.GreaterThan(bar.High) {
		bar.High = q.Price
	}
	if q.Price.LessThan(bar.Low) {
		bar.Low = q.Price
	}
	bar.Close = q.Price
}

// Completed removes and returns all bars whose period ended before the
// given cutoff.
func (a *BarAggregator) Completed(cutoff time.Time) []model.PriceBar {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff = cutoff.Truncate(a.interval)
	var done []model.PriceBar
	for key, bar := range a.open {
		if bar.Timestamp.Before(cutoff) {
			done = append(done, *bar)
			delete(a.open, key)
		}
	}
	return done
}
