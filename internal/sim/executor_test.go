package sim

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/coladapo/wealthincome/internal/ledger"
	"github.com/coladapo/wealthincome/internal/model"
)

// recordingNotifier captures emitted events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	fills  []*model.Order
	trades []*model.TradeRecord
	alerts []string
}

func (n *recordingNotifier) Fill(o *model.Order, rec *model.TradeRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fills = append(n.fills, o)
	n.trades = append(n.trades, rec)
}

func (n *recordingNotifier) Alert(kind, symbol string, price decimal.Decimal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, kind+":"+symbol)
}

func buyIntent(symbol string, qty int64) model.OrderIntent {
	return model.OrderIntent{
		Symbol:   symbol,
		Side:     model.SideBuy,
		Quantity: decimal.NewFromInt(qty),
		Reason:   "signal",
	}
}

func TestExecuteBuyWithSlippage(t *testing.T) {
	book := ledger.NewPortfolio(decimal.NewFromInt(10000), zap.NewNop())
	notifier := &recordingNotifier{}
	exec := NewExecutor(book, 100, 0, notifier, zap.NewNop()) // 100 bps = 1%

	order, rec, err := exec.Execute(buyIntent("AAPL", 100), decimal.NewFromInt(50), time.Now())
	assert.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, model.OrderFilled, order.Status)

	// Buy fills 1% above the reference price.
	assert.True(t, order.FillPrice.Equal(decimal.NewFromFloat(50.5)), "fill = %s", order.FillPrice)

	view := book.View()
	assert.True(t, view.Cash.Equal(decimal.NewFromInt(4950)), "cash = %s", view.Cash)
	pos, ok := view.Position("AAPL")
	assert.True(t, ok)
	assert.True(t, pos.AvgEntry.Equal(decimal.NewFromFloat(50.5)))
	assert.Len(t, notifier.fills, 1)
}

func TestExecuteSellWithSlippageAndFee(t *testing.T) {
	book := ledger.NewPortfolio(decimal.NewFromInt(10000), zap.NewNop())
	exec := NewExecutor(book, 0, 0.001, NopNotifier{}, zap.NewNop())

	_, _, err := exec.Execute(buyIntent("NVDA", 10), decimal.NewFromInt(100), time.Now())
	assert.NoError(t, err)

	// fee = 10 * 100 * 0.001 = 1
	view := book.View()
	assert.True(t, view.Cash.Equal(decimal.NewFromInt(8999)), "cash = %s", view.Cash)

	sell := model.OrderIntent{
		Symbol:   "NVDA",
		Side:     model.SideSell,
		Quantity: decimal.NewFromInt(10),
		Closing:  true,
		Reason:   "take_profit",
	}
	exec = NewExecutor(book, 100, 0, NopNotifier{}, zap.NewNop())
	order, rec, err := exec.Execute(sell, decimal.NewFromInt(120), time.Now())
	assert.NoError(t, err)

	// Sell fills 1% below the reference price.
	assert.True(t, order.FillPrice.Equal(decimal.NewFromFloat(118.8)), "fill = %s", order.FillPrice)
	if rec == nil {
		t.Fatal("full close must produce a trade record")
	}
	assert.Equal(t, "take_profit", rec.Reason)
}

func TestExecuteLedgerRejection(t *testing.T) {
	book := ledger.NewPortfolio(decimal.NewFromInt(100), zap.NewNop())
	notifier := &recordingNotifier{}
	exec := NewExecutor(book, 0, 0, notifier, zap.NewNop())

	order, rec, err := exec.Execute(buyIntent("AAPL", 100), decimal.NewFromInt(50), time.Now())
	var appErr *ledger.OrderApplicationError
	assert.ErrorAs(t, err, &appErr)
	assert.Nil(t, rec)
	assert.Equal(t, model.OrderRejected, order.Status)
	assert.NotEmpty(t, order.RejectReason)

	// Nothing moved, nothing notified.
	assert.True(t, book.View().Cash.Equal(decimal.NewFromInt(100)))
	assert.Len(t, notifier.fills, 0)
}
