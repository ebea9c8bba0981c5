package sim

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/coladapo/wealthincome/internal/infrastructure"
	"github.com/coladapo/wealthincome/internal/ledger"
	"github.com/coladapo/wealthincome/internal/model"
)

// AlertEvaluator watches price ticks against position stop-loss/take-profit
// thresholds and user-defined price alerts. Threshold breaches auto-invoke
// the executor with a closing order; a position entering its close is
// excluded from further evaluation immediately so a tick can never trigger
// it twice.
type AlertEvaluator struct {
	mu       sync.Mutex
	book     *ledger.Portfolio
	exec     *Executor
	notifier Notifier
	alerts   []*model.PriceAlert
	closing  map[string]bool
	logger   *zap.Logger
}

func NewAlertEvaluator(book *ledger.Portfolio, exec *Executor, notifier Notifier, logger *zap.Logger) *AlertEvaluator {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &AlertEvaluator{
		book:     book,
		exec:     exec,
		notifier: notifier,
		closing:  make(map[string]bool),
		logger:   logger,
	}
}

// AddAlert registers a one-shot user price alert.
func (a *AlertEvaluator) AddAlert(symbol string, above bool, threshold decimal.Decimal) *model.PriceAlert {
	alert := &model.PriceAlert{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Above:     above,
		Threshold: threshold,
		CreatedAt: time.Now(),
	}
	a.mu.Lock()
	a.alerts = append(a.alerts, alert)
	a.mu.Unlock()
	return alert
}

// Alerts returns a snapshot of registered alerts.
func (a *AlertEvaluator) Alerts() []model.PriceAlert {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.PriceAlert, 0, len(a.alerts))
	for _, al := range a.alerts {
		out = append(out, *al)
	}
	return out
}

// OnTick evaluates one price observation for a symbol. Stop and take
// thresholds use strict inequality against the stored position prices.
func (a *AlertEvaluator) OnTick(symbol string, price decimal.Decimal, now time.Time) {
	a.book.UpdateMark(symbol, price)

	a.mu.Lock()
	view := a.book.View()
	pos, held := view.Position(symbol)
	if !held {
		delete(a.closing, symbol)
	}

	var closeReason string
	if held && !a.closing[symbol] {
		switch {
		case !pos.StopLoss.IsZero() && price.LessThan(pos.StopLoss):
			closeReason = "stop_loss"
		case !pos.TakeProfit.IsZero() && price.GreaterThan(pos.TakeProfit):
			closeReason = "take_profit"
		}
		if closeReason != "" {
			a.closing[symbol] = true
		}
	}

	fired := a.matchAlertsLocked(symbol, price)
	a.mu.Unlock()

	for _, al := range fired {
		infrastructure.AlertsTriggered.WithLabelValues("price_alert").Inc()
		a.notifier.Alert("price_alert", al.Symbol, price)
		a.logger.Info("price alert triggered",
			zap.String("symbol", al.Symbol),
			zap.String("threshold", al.Threshold.String()),
			zap.String("price", price.String()),
		)
	}

	if closeReason == "" {
		return
	}

	intent := model.OrderIntent{
		Symbol:   symbol,
		Side:     model.SideSell,
		Quantity: pos.Quantity,
		Closing:  true,
		Reason:   closeReason,
	}
	_, _, err := a.exec.Execute(intent, price, now)

	a.mu.Lock()
	delete(a.closing, symbol)
	a.mu.Unlock()

	if err != nil {
		a.logger.Error("failed to close position on threshold breach",
			zap.String("symbol", symbol),
			zap.String("reason", closeReason),
			zap.Error(err),
		)
		return
	}

	infrastructure.AlertsTriggered.WithLabelValues(closeReason).Inc()
	a.notifier.Alert(closeReason, symbol, price)
}

// matchAlertsLocked flips matching one-shot alerts to triggered and returns
// them. Caller must hold a.mu.
func (a *AlertEvaluator) matchAlertsLocked(symbol string, price decimal.Decimal) []model.PriceAlert {
	var fired []model.PriceAlert
	for _, al := range a.alerts {
		if al.Triggered || al.Symbol != symbol {
			continue
		}
		if (al.Above && price.GreaterThan(al.Threshold)) || (!al.Above && price.LessThan(al.Threshold)) {
			al.Triggered = true
			fired = append(fired, *al)
		}
	}
	return fired
}
