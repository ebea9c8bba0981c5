package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction of a trading signal.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
	DirectionFlat  Direction = "flat"
)

// IndicatorSet holds the technical indicator values computed for the
// latest bar of a symbol. Derived data; recomputed on each new bar.
type IndicatorSet struct {
	Symbol    string             `json:"symbol"`
	Timestamp time.Time          `json:"timestamp"`
	Values    map[string]float64 `json:"values"`
}

// Get returns the named indicator value and whether it was computed.
func (s IndicatorSet) Get(name string) (float64, bool) {
	v, ok := s.Values[name]
	return v, ok
}

// SentimentScore aggregates the polarity of a batch of news items into
// a single bounded value in [-1, 1]. Samples == 0 means "no information",
// not bearish.
type SentimentScore struct {
	Symbol      string         `json:"symbol"`
	WindowStart time.Time      `json:"window_start"`
	WindowEnd   time.Time      `json:"window_end"`
	Value       float64        `json:"value"`
	Samples     int            `json:"samples"`
	Sources     map[string]int `json:"sources,omitempty"`
}

// Signal is a scored directional recommendation for a symbol.
// Read-only after creation; superseded by later signals for the same symbol.
type Signal struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	Direction   Direction       `json:"direction"`
	Confidence  float64         `json:"confidence"` // in [0, 1]
	Indicators  IndicatorSet    `json:"indicators"`
	Sentiment   SentimentScore  `json:"sentiment"`
	StopLoss    decimal.Decimal `json:"stop_loss,omitempty"`
	TakeProfit  decimal.Decimal `json:"take_profit,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Reasoning   string          `json:"reasoning,omitempty"` // filled asynchronously, may stay empty
}

// Expired reports whether the signal must no longer be actioned.
func (s *Signal) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
