package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceBar is one OHLCV bar for a symbol. Immutable once recorded,
// uniquely keyed by (Symbol, Timestamp).
type PriceBar struct {
	Symbol    string          `json:"symbol" db:"symbol"`
	Open      decimal.Decimal `json:"o" db:"open"`
	High      decimal.Decimal `json:"h" db:"high"`
	Low       decimal.Decimal `json:"l" db:"low"`
	Close     decimal.Decimal `json:"c" db:"close"`
	Volume    decimal.Decimal `json:"v" db:"volume"`
	Timestamp time.Time       `json:"t" db:"time"`
}

// Quote is the latest reference price for a symbol.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"ts"`
}

// NewsItem is a single headline or post fetched from the news collaborator.
type NewsItem struct {
	Symbol      string    `json:"symbol"`
	Headline    string    `json:"headline"`
	Source      string    `json:"source"` // "news", "twitter", "reddit"
	PublishedAt time.Time `json:"published_at"`
}
