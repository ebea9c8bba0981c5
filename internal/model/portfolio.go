package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderFilled   OrderStatus = "filled"
	OrderRejected OrderStatus = "rejected"
)

// OrderIntent is a risk-approved request to trade, produced by the risk
// manager and consumed by the execution simulator.
type OrderIntent struct {
	SignalID   string
	Symbol     string
	Side       Side
	Quantity   decimal.Decimal
	Closing    bool // true when the intent closes an existing position
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
	Reason     string // "signal", "stop_loss", "take_profit", "manual"
}

// Order is a simulated order. Immutable once filled or rejected.
type Order struct {
	ID             string          `json:"id"`
	SignalID       string          `json:"signal_id,omitempty"`
	Symbol         string          `json:"symbol"`
	Side           Side            `json:"side"`
	Quantity       decimal.Decimal `json:"quantity"`
	RequestedPrice decimal.Decimal `json:"requested_price"`
	FillPrice      decimal.Decimal `json:"fill_price"`
	Fee            decimal.Decimal `json:"fee"`
	Status         OrderStatus     `json:"status"`
	Reason         string          `json:"reason,omitempty"` // what produced the order: "signal", "stop_loss", "take_profit", "manual"
	RejectReason   string          `json:"reject_reason,omitempty"`
	StopLoss       decimal.Decimal `json:"stop_loss,omitempty"`
	TakeProfit     decimal.Decimal `json:"take_profit,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	FilledAt       time.Time       `json:"filled_at,omitempty"`
}

// Position is an open holding. Owned exclusively by the ledger and
// mutated only through filled orders.
type Position struct {
	Symbol     string          `json:"symbol"`
	Quantity   decimal.Decimal `json:"quantity"`
	AvgEntry   decimal.Decimal `json:"avg_entry"`
	StopLoss   decimal.Decimal `json:"stop_loss,omitempty"`
	TakeProfit decimal.Decimal `json:"take_profit,omitempty"`
	OpenedAt   time.Time       `json:"opened_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// MarketValue at the given mark price.
func (p Position) MarketValue(mark decimal.Decimal) decimal.Decimal {
	return p.Quantity.Mul(mark)
}

// UnrealizedPnL at the given mark price.
func (p Position) UnrealizedPnL(mark decimal.Decimal) decimal.Decimal {
	return mark.Sub(p.AvgEntry).Mul(p.Quantity)
}

// TradeRecord is a journal entry for a closed trade.
type TradeRecord struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	EntryPrice  decimal.Decimal `json:"entry_price"`
	ExitPrice   decimal.Decimal `json:"exit_price"`
	Fee         decimal.Decimal `json:"fee"`
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
	OpenedAt    time.Time       `json:"opened_at"`
	ClosedAt    time.Time       `json:"closed_at"`
	Reason      string          `json:"reason"`
}

// EquityPoint is one sample of the portfolio equity curve.
type EquityPoint struct {
	Timestamp time.Time       `json:"t"`
	Equity    decimal.Decimal `json:"equity"`
}

// PriceAlert is a user-defined threshold watch. Fires once.
type PriceAlert struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Above     bool            `json:"above"` // trigger when price rises above the threshold
	Threshold decimal.Decimal `json:"threshold"`
	CreatedAt time.Time       `json:"created_at"`
	Triggered bool            `json:"triggered"`
}

// RiskProfile bounds signal-to-order conversion. Configuration, changed
// only by explicit user action.
type RiskProfile struct {
	MaxPositionFrac     decimal.Decimal `json:"max_position_frac"` // fraction of equity per position
	MaxPositions        int             `json:"max_positions"`
	StopLossFrac        decimal.Decimal `json:"stop_loss_frac"`
	TakeProfitFrac      decimal.Decimal `json:"take_profit_frac"`
	ConfidenceThreshold float64         `json:"confidence_threshold"`
}
