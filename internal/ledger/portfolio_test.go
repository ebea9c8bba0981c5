package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/coladapo/wealthincome/internal/model"
)

func filledOrder(id, symbol string, side model.Side, qty, price float64) *model.Order {
	now := time.Now()
	return &model.Order{
		ID:        id,
		Symbol:    symbol,
		Side:      side,
		Quantity:  decimal.NewFromFloat(qty),
		FillPrice: decimal.NewFromFloat(price),
		Status:    model.OrderFilled,
		Reason:    "signal",
		CreatedAt: now,
		FilledAt:  now,
	}
}

func TestApplyBuyAndDuplicate(t *testing.T) {
	p := NewPortfolio(decimal.NewFromInt(10000), zap.NewNop())

	_, err := p.Apply(filledOrder("o1", "AAPL", model.SideBuy, 10, 100))
	assert.NoError(t, err)

	view := p.View()
	assert.True(t, view.Cash.Equal(decimal.NewFromInt(9000)), "cash = %s", view.Cash)
	pos, ok := view.Position("AAPL")
	assert.True(t, ok)
	assert.True(t, pos.Quantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, pos.AvgEntry.Equal(decimal.NewFromInt(100)))

	// Replaying the same order id must change nothing.
	_, err = p.Apply(filledOrder("o1", "AAPL", model.SideBuy, 10, 100))
	var appErr *OrderApplicationError
	assert.ErrorAs(t, err, &appErr)

	view = p.View()
	assert.True(t, view.Cash.Equal(decimal.NewFromInt(9000)))
	pos, _ = view.Position("AAPL")
	assert.True(t, pos.Quantity.Equal(decimal.NewFromInt(10)))
}

func TestApplyRejectsLeaveStateUntouched(t *testing.T) {
	p := NewPortfolio(decimal.NewFromInt(1000), zap.NewNop())

	// Overdraw.
	_, err := p.Apply(filledOrder("o1", "AAPL", model.SideBuy, 100, 100))
	var appErr *OrderApplicationError
	assert.ErrorAs(t, err, &appErr)

	// Sell with nothing held.
	_, err = p.Apply(filledOrder("o2", "AAPL", model.SideSell, 1, 100))
	assert.ErrorAs(t, err, &appErr)

	// Unfilled order.
	o := filledOrder("o3", "AAPL", model.SideBuy, 1, 100)
	o.Status = model.OrderPending
	_, err = p.Apply(o)
	assert.ErrorAs(t, err, &appErr)

	view := p.View()
	assert.True(t, view.Cash.Equal(decimal.NewFromInt(1000)))
	assert.Len(t, view.Positions, 0)
	assert.Len(t, view.EquityCurve, 0)

	// A rejected id was never applied, so a corrected retry under the same
	// id is accepted.
	_, err = p.Apply(filledOrder("o1", "AAPL", model.SideBuy, 5, 100))
	assert.NoError(t, err)
}

func TestApplyBuyAveragesEntry(t *testing.T) {
	p := NewPortfolio(decimal.NewFromInt(10000), zap.NewNop())

	_, err := p.Apply(filledOrder("o1", "MSFT", model.SideBuy, 100, 10))
	assert.NoError(t, err)
	_, err = p.Apply(filledOrder("o2", "MSFT", model.SideBuy, 100, 20))
	assert.NoError(t, err)

	pos, ok := p.View().Position("MSFT")
	assert.True(t, ok)
	assert.True(t, pos.Quantity.Equal(decimal.NewFromInt(200)))
	assert.True(t, pos.AvgEntry.Equal(decimal.NewFromInt(15)), "avg entry = %s", pos.AvgEntry)
}

func TestApplySellPartialAndClose(t *testing.T) {
	p := NewPortfolio(decimal.NewFromInt(10000), zap.NewNop())

	_, err := p.Apply(filledOrder("o1", "NVDA", model.SideBuy, 100, 50))
	assert.NoError(t, err)

	// Partial close realizes proportional profit, no journal entry yet.
	rec, err := p.Apply(filledOrder("o2", "NVDA", model.SideSell, 40, 60))
	assert.NoError(t, err)
	assert.Nil(t, rec)

	view := p.View()
	assert.True(t, view.Realized.Equal(decimal.NewFromInt(400)), "realized = %s", view.Realized)
	pos, _ := view.Position("NVDA")
	assert.True(t, pos.Quantity.Equal(decimal.NewFromInt(60)))

	// Selling more than held is rejected.
	_, err = p.Apply(filledOrder("o3", "NVDA", model.SideSell, 61, 60))
	var appErr *OrderApplicationError
	assert.ErrorAs(t, err, &appErr)

	// Full close journals a trade record.
	closeOrder := filledOrder("o4", "NVDA", model.SideSell, 60, 60)
	closeOrder.Reason = "take_profit"
	rec, err = p.Apply(closeOrder)
	assert.NoError(t, err)
	if rec == nil {
		t.Fatal("full close must produce a trade record")
	}
	assert.Equal(t, "NVDA", rec.Symbol)
	assert.Equal(t, "take_profit", rec.Reason)
	assert.True(t, rec.EntryPrice.Equal(decimal.NewFromInt(50)))
	assert.True(t, rec.ExitPrice.Equal(decimal.NewFromInt(60)))
	assert.True(t, rec.RealizedPnL.Equal(decimal.NewFromInt(600)))

	view = p.View()
	_, held := view.Position("NVDA")
	assert.False(t, held)
	assert.True(t, view.Realized.Equal(decimal.NewFromInt(1000)))
	assert.True(t, view.Cash.Equal(decimal.NewFromInt(11000)), "cash = %s", view.Cash)
	assert.Len(t, p.Trades(), 1)
}

func TestEquityIdentity(t *testing.T) {
	p := NewPortfolio(decimal.NewFromInt(10000), zap.NewNop())

	_, err := p.Apply(filledOrder("o1", "AAPL", model.SideBuy, 50, 100))
	assert.NoError(t, err)
	p.UpdateMark("AAPL", decimal.NewFromInt(110))

	// equity = contributed + realized + unrealized, at any mark.
	view := p.View()
	unrealized := view.Unrealized(p.Marks())
	want := view.Contributed.Add(view.Realized).Add(unrealized)
	assert.True(t, view.Equity.Equal(want), "equity %s != %s", view.Equity, want)
	assert.True(t, unrealized.Equal(decimal.NewFromInt(500)))

	// The identity holds after the position is closed at the mark.
	_, err = p.Apply(filledOrder("o2", "AAPL", model.SideSell, 50, 110))
	assert.NoError(t, err)

	view = p.View()
	assert.True(t, view.Realized.Equal(decimal.NewFromInt(500)))
	assert.True(t, view.Equity.Equal(view.Contributed.Add(view.Realized)))
	assert.True(t, view.Equity.Equal(decimal.NewFromInt(10500)))
}

func TestEquityIdentityWithFees(t *testing.T) {
	p := NewPortfolio(decimal.NewFromInt(10000), zap.NewNop())

	// Buy 10 @ 100 with a 0.1% fee: cost basis absorbs the fee.
	buy := filledOrder("o1", "AAPL", model.SideBuy, 10, 100)
	buy.Fee = decimal.NewFromInt(1)
	_, err := p.Apply(buy)
	assert.NoError(t, err)

	view := p.View()
	assert.True(t, view.Cash.Equal(decimal.NewFromInt(8999)), "cash = %s", view.Cash)
	pos, _ := view.Position("AAPL")
	assert.True(t, pos.AvgEntry.Equal(decimal.NewFromFloat(100.1)), "avg entry = %s", pos.AvgEntry)

	// Identity holds on the entry leg: the fee shows up as unrealized loss.
	unrealized := view.Unrealized(p.Marks())
	assert.True(t, unrealized.Equal(decimal.NewFromInt(-1)), "unrealized = %s", unrealized)
	assert.True(t, view.Equity.Equal(view.Contributed.Add(view.Realized).Add(unrealized)),
		"equity %s != contributed + realized + unrealized", view.Equity)

	// Full close at the entry price with a second fee realizes both fees.
	sell := filledOrder("o2", "AAPL", model.SideSell, 10, 100)
	sell.Fee = decimal.NewFromInt(1)
	rec, err := p.Apply(sell)
	assert.NoError(t, err)
	if rec == nil {
		t.Fatal("full close must produce a trade record")
	}
	assert.True(t, rec.RealizedPnL.Equal(decimal.NewFromInt(-2)), "pnl = %s", rec.RealizedPnL)

	view = p.View()
	assert.True(t, view.Cash.Equal(decimal.NewFromInt(9998)), "cash = %s", view.Cash)
	assert.True(t, view.Realized.Equal(decimal.NewFromInt(-2)))
	assert.True(t, view.Equity.Equal(view.Contributed.Add(view.Realized)))
}

func TestEquityCurveAppends(t *testing.T) {
	p := NewPortfolio(decimal.NewFromInt(10000), zap.NewNop())

	_, _ = p.Apply(filledOrder("o1", "AAPL", model.SideBuy, 10, 100))
	_, _ = p.Apply(filledOrder("o2", "AAPL", model.SideSell, 10, 105))

	curve := p.View().EquityCurve
	assert.Len(t, curve, 2)
	assert.True(t, curve[1].Equity.Equal(decimal.NewFromInt(10050)))
}
