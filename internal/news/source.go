package news

import (
	"context"
	"sync"
	"time"

	"github.com/coladapo/wealthincome/internal/model"
)

// Source is the news collaborator port.
type Source interface {
	// FetchItems returns items for the symbol published inside the lookback
	// window, newest last.
	FetchItems(ctx context.Context, symbol string, lookback time.Duration) ([]model.NewsItem, error)
}

// StaticSource serves items from memory. Used for local runs and as the
// buffer a feed adapter writes into.
type StaticSource struct {
	mu    sync.RWMutex
	items map[string][]model.NewsItem
}

func NewStaticSource() *StaticSource {
	return &StaticSource{items: make(map[string][]model.NewsItem)}
}

// Add appends items to the buffer.
func (s *StaticSource) Add(items ...model.NewsItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.items[item.Symbol] = append(s.items[item.Symbol], item)
	}
}

func (s *StaticSource) FetchItems(ctx context.Context, symbol string, lookback time.Duration) ([]model.NewsItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().Add(-lookback)
	var out []model.NewsItem
	for _, item := range s.items[symbol] {
		if item.PublishedAt.After(cutoff) {
			out = append(out, item)
		}
	}
	return out, nil
}
