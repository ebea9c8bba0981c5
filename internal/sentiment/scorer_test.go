package sentiment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/coladapo/wealthincome/internal/model"
)

func TestScoreEmptyWindow(t *testing.T) {
	s := NewScorer(6*time.Hour, 24*time.Hour)
	now := time.Now()

	score := s.Score("AAPL", nil, now)
	assert.Equal(t, 0, score.Samples)
	assert.Equal(t, 0.0, score.Value)

	// Items outside the lookback window count for nothing.
	stale := []model.NewsItem{
		{Symbol: "AAPL", Headline: "shares crash on fraud probe", Source: "news", PublishedAt: now.Add(-48 * time.Hour)},
	}
	score = s.Score("AAPL", stale, now)
	assert.Equal(t, 0, score.Samples)
	assert.Equal(t, 0.0, score.Value)
}

func TestScorePolarity(t *testing.T) {
	s := NewScorer(6*time.Hour, 24*time.Hour)
	now := time.Now()

	bullish := []model.NewsItem{
		{Symbol: "NVDA", Headline: "NVDA shares surge after record quarter", Source: "news", PublishedAt: now.Add(-time.Hour)},
		{Symbol: "NVDA", Headline: "Analysts upgrade NVDA, see strong growth", Source: "twitter", PublishedAt: now.Add(-2 * time.Hour)},
	}
	score := s.Score("NVDA", bullish, now)
	assert.Equal(t, 2, score.Samples)
	if score.Value <= 0 {
		t.Errorf("bullish headlines scored %v; want > 0", score.Value)
	}
	assert.Equal(t, 1, score.Sources["news"])
	assert.Equal(t, 1, score.Sources["twitter"])

	bearish := []model.NewsItem{
		{Symbol: "TSLA", Headline: "TSLA shares plunge on recall warning", Source: "news", PublishedAt: now.Add(-time.Hour)},
	}
	score = s.Score("TSLA", bearish, now)
	if score.Value >= 0 {
		t.Errorf("bearish headlines scored %v; want < 0", score.Value)
	}

	if score.Value < -1 || score.Value > 1 {
		t.Errorf("score %v out of [-1, 1]", score.Value)
	}
}

func TestScoreRecencyWeighting(t *testing.T) {
	s := NewScorer(6*time.Hour, 24*time.Hour)
	now := time.Now()

	// A fresh positive item outweighs an old negative one of equal strength.
	items := []model.NewsItem{
		{Symbol: "MSFT", Headline: "MSFT stock to soar", Source: "news", PublishedAt: now.Add(-5 * time.Minute)},
		{Symbol: "MSFT", Headline: "MSFT headed for a crash", Source: "news", PublishedAt: now.Add(-23 * time.Hour)},
	}
	score := s.Score("MSFT", items, now)
	assert.Equal(t, 2, score.Samples)
	if score.Value <= 0 {
		t.Errorf("recency weighting failed: got %v; want > 0", score.Value)
	}

	// Same items with ages swapped flips the sign.
	items[0].PublishedAt, items[1].PublishedAt = items[1].PublishedAt, items[0].PublishedAt
	score = s.Score("MSFT", items, now)
	if score.Value >= 0 {
		t.Errorf("recency weighting failed: got %v; want < 0", score.Value)
	}
}

func TestPolarityClamped(t *testing.T) {
	got := polarity("crash crash crash fraud bankruptcy selloff")
	assert.Equal(t, -1.0, got)

	got = polarity("nothing notable happened today")
	assert.Equal(t, 0.0, got)
}
