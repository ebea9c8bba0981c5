package sim

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/coladapo/wealthincome/internal/infrastructure"
	"github.com/coladapo/wealthincome/internal/ledger"
	"github.com/coladapo/wealthincome/internal/model"
)

// Notifier receives fill and alert events for downstream push/persistence.
// Implementations must not block.
type Notifier interface {
	Fill(o *model.Order, rec *model.TradeRecord)
	Alert(kind, symbol string, price decimal.Decimal)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) Fill(*model.Order, *model.TradeRecord) {}
func (NopNotifier) Alert(string, string, decimal.Decimal) {}

// Executor turns approved order intents into simulated fills against the
// portfolio ledger. Fill model: deterministic fill at the reference price
// adjusted by a fixed basis-point slippage, optional proportional fee, no
// partial fills.
type Executor struct {
	book     *ledger.Portfolio
	slippage decimal.Decimal // fraction, e.g. 0.001 for 10 bps
	feeRate  decimal.Decimal
	notifier Notifier
	logger   *zap.Logger
}

func NewExecutor(book *ledger.Portfolio, slippageBps int, feeRate float64, notifier Notifier, logger *zap.Logger) *Executor {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Executor{
		book:     book,
		slippage: decimal.New(int64(slippageBps), -4),
		feeRate:  decimal.NewFromFloat(feeRate),
		notifier: notifier,
		logger:   logger,
	}
}

// Execute fills the intent at the slippage-adjusted reference price and
// applies it to the ledger. A failed application returns the rejected order
// together with the ledger error; the portfolio is left untouched.
func (e *Executor) Execute(intent model.OrderIntent, refPrice decimal.Decimal, now time.Time) (*model.Order, *model.TradeRecord, error) {
	one := decimal.NewFromInt(1)
	var fill decimal.Decimal
	if intent.Side == model.SideBuy {
		fill = refPrice.Mul(one.Add(e.slippage))
	} else {
		fill = refPrice.Mul(one.Sub(e.slippage))
	}
	fee := intent.Quantity.Mul(fill).Mul(e.feeRate)

	order := &model.Order{
		ID:             uuid.NewString(),
		SignalID:       intent.SignalID,
		Symbol:         intent.Symbol,
		Side:           intent.Side,
		Quantity:       intent.Quantity,
		RequestedPrice: refPrice,
		FillPrice:      fill,
		Fee:            fee,
		Status:         model.OrderFilled,
		Reason:         intent.Reason,
		StopLoss:       intent.StopLoss,
		TakeProfit:     intent.TakeProfit,
		CreatedAt:      now,
		FilledAt:       now,
	}

	rec, err := e.book.Apply(order)
	if err != nil {
		order.Status = model.OrderRejected
		order.RejectReason = err.Error()
		infrastructure.OrdersRejected.WithLabelValues("ledger").Inc()
		e.logger.Warn("order rejected by ledger",
			zap.String("order_id", order.ID),
			zap.String("symbol", order.Symbol),
			zap.Error(err),
		)
		return order, nil, err
	}

	infrastructure.OrdersFilled.WithLabelValues(order.Symbol, string(order.Side)).Inc()
	equity, _ := e.book.View().Equity.Float64()
	infrastructure.PortfolioEquity.Set(equity)
	e.notifier.Fill(order, rec)
	return order, rec, nil
}
