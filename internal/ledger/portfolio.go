package ledger

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/coladapo/wealthincome/internal/model"
)

// OrderApplicationError is a ledger invariant violation. Fatal for the
// order; the portfolio is left in its last consistent state since the
// mutation is all-or-nothing.
type OrderApplicationError struct {
	OrderID string
	Reason  string
}

func (e *OrderApplicationError) Error() string {
	return fmt.Sprintf("order %s not applied: %s", e.OrderID, e.Reason)
}

// View is a consistent read snapshot of the portfolio.
type View struct {
	Cash        decimal.Decimal
	Equity      decimal.Decimal
	Realized    decimal.Decimal
	Contributed decimal.Decimal
	Positions   map[string]model.Position
	EquityCurve []model.EquityPoint
}

// Position returns the snapshot position for a symbol, if open.
func (v View) Position(symbol string) (model.Position, bool) {
	p, ok := v.Positions[symbol]
	return p, ok
}

// Unrealized is the total unrealized P&L across open positions at the
// marks the view was taken with.
func (v View) Unrealized(marks map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for sym, p := range v.Positions {
		mark, ok := marks[sym]
		if !ok {
			mark = p.AvgEntry
		}
		total = total.Add(p.UnrealizedPnL(mark))
	}
	return total
}

// Portfolio is the single source of truth for cash, open positions,
// realized P&L and trade history. All mutations are serialized through
// Apply under a single mutex; each filled order is applied at most once.
type Portfolio struct {
	mu          sync.Mutex
	cash        decimal.Decimal
	contributed decimal.Decimal
	realized    decimal.Decimal
	positions   map[string]*model.Position
	marks       map[string]decimal.Decimal
	applied     map[string]struct{}
	equityCurve []model.EquityPoint
	trades      []model.TradeRecord
	logger      *zap.Logger
}

func NewPortfolio(initialCash decimal.Decimal, logger *zap.Logger) *Portfolio {
	return &Portfolio{
		cash:        initialCash,
		contributed: initialCash,
		positions:   make(map[string]*model.Position),
		marks:       make(map[string]decimal.Decimal),
		applied:     make(map[string]struct{}),
		logger:      logger,
	}
}

// Apply validates and applies a filled order atomically. On a full close it
// returns the journaled trade record. A rejected application leaves the
// portfolio untouched.
func (p *Portfolio) Apply(o *model.Order) (*model.TradeRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if o.Status != model.OrderFilled {
		return nil, &OrderApplicationError{OrderID: o.ID, Reason: "order is not filled"}
	}
	if _, dup := p.applied[o.ID]; dup {
		return nil, &OrderApplicationError{OrderID: o.ID, Reason: "order already applied"}
	}

	var record *model.TradeRecord
	switch o.Side {
	case model.SideBuy:
		cost := o.Quantity.Mul(o.FillPrice).Add(o.Fee)
		if cost.GreaterThan(p.cash) {
			return nil, &OrderApplicationError{OrderID: o.ID, Reason: "fill would overdraw cash"}
		}
		p.cash = p.cash.Sub(cost)
		p.applyBuy(o)

	case model.SideSell:
		pos, ok := p.positions[o.Symbol]
		if !ok {
			return nil, &OrderApplicationError{OrderID: o.ID, Reason: "no open position for " + o.Symbol}
		}
		if o.Quantity.GreaterThan(pos.Quantity) {
			return nil, &OrderApplicationError{OrderID: o.ID, Reason: "sell exceeds held quantity"}
		}
		record = p.applySell(o, pos)

	default:
		return nil, &OrderApplicationError{OrderID: o.ID, Reason: "unknown side " + string(o.Side)}
	}

	p.applied[o.ID] = struct{}{}
	p.marks[o.Symbol] = o.FillPrice
	p.equityCurve = append(p.equityCurve, model.EquityPoint{
		Timestamp: o.FilledAt,
		Equity:    p.equityLocked(),
	})

	p.logger.Info("order applied",
		zap.String("order_id", o.ID),
		zap.String("symbol", o.Symbol),
		zap.String("side", string(o.Side)),
		zap.String("qty", o.Quantity.String()),
		zap.String("fill", o.FillPrice.String()),
	)
	return record, nil
}

func (p *Portfolio) applyBuy(o *model.Order) {
	pos, ok := p.positions[o.Symbol]
	if !ok {
		// The entry fee is part of the cost basis, so closing at the entry
		// price realizes the fee as a loss rather than leaving it untracked.
		p.positions[o.Symbol] = &model.Position{
			Symbol:     o.Symbol,
			Quantity:   o.Quantity,
			AvgEntry:   o.Quantity.Mul(o.FillPrice).Add(o.Fee).Div(o.Quantity),
			StopLoss:   o.StopLoss,
			TakeProfit: o.TakeProfit,
			OpenedAt:   o.FilledAt,
			UpdatedAt:  o.FilledAt,
		}
		return
	}

	// Volume-weighted average entry when adding to an existing position,
	// fee included in the added cost.
	totalQty := pos.Quantity.Add(o.Quantity)
	totalCost := pos.Quantity.Mul(pos.AvgEntry).Add(o.Quantity.Mul(o.FillPrice)).Add(o.Fee)
	pos.AvgEntry = totalCost.Div(totalQty)
	pos.Quantity = totalQty
	if !o.StopLoss.IsZero() {
		pos.StopLoss = o.StopLoss
	}
	if !o.TakeProfit.IsZero() {
		pos.TakeProfit = o.TakeProfit
	}
	pos.UpdatedAt = o.FilledAt
}

func (p *Portfolio) applySell(o *model.Order, pos *model.Position) *model.TradeRecord {
	proceeds := o.Quantity.Mul(o.FillPrice).Sub(o.Fee)
	pnl := o.FillPrice.Sub(pos.AvgEntry).Mul(o.Quantity).Sub(o.Fee)

	p.cash = p.cash.Add(proceeds)
	p.realized = p.realized.Add(pnl)
	pos.Quantity = pos.Quantity.Sub(o.Quantity)
	pos.UpdatedAt = o.FilledAt

	if pos.Quantity.IsZero() {
		delete(p.positions, o.Symbol)
		record := model.TradeRecord{
			ID:          uuid.NewString(),
			Symbol:      o.Symbol,
			Quantity:    o.Quantity,
			EntryPrice:  pos.AvgEntry,
			ExitPrice:   o.FillPrice,
			Fee:         o.Fee,
			RealizedPnL: pnl,
			OpenedAt:    pos.OpenedAt,
			ClosedAt:    o.FilledAt,
			Reason:      o.Reason,
		}
		p.trades = append(p.trades, record)
		return &record
	}
	return nil
}

// UpdateMark records the latest reference price for a symbol. Marks feed
// equity computation only; they never mutate positions.
func (p *Portfolio) UpdateMark(symbol string, price decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.marks[symbol] = price
}

// View takes a consistent snapshot at the latest known marks.
func (p *Portfolio) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	positions := make(map[string]model.Position, len(p.positions))
	for sym, pos := range p.positions {
		positions[sym] = *pos
	}
	curve := make([]model.EquityPoint, len(p.equityCurve))
	copy(curve, p.equityCurve)

	return View{
		Cash:        p.cash,
		Equity:      p.equityLocked(),
		Realized:    p.realized,
		Contributed: p.contributed,
		Positions:   positions,
		EquityCurve: curve,
	}
}

// Trades returns a copy of the closed-trade journal.
func (p *Portfolio) Trades() []model.TradeRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.TradeRecord, len(p.trades))
	copy(out, p.trades)
	return out
}

// Marks returns a copy of the latest known marks.
func (p *Portfolio) Marks() map[string]decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]decimal.Decimal, len(p.marks))
	for k, v := range p.marks {
		out[k] = v
	}
	return out
}

// equityLocked computes cash plus position market value at the latest
// marks. Caller must hold p.mu.
func (p *Portfolio) equityLocked() decimal.Decimal {
	equity := p.cash
	for sym, pos := range p.positions {
		mark, ok := p.marks[sym]
		if !ok {
			mark = pos.AvgEntry
		}
		equity = equity.Add(pos.MarketValue(mark))
	}
	return equity
}
