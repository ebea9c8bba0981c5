package risk

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/coladapo/wealthincome/internal/ledger"
	"github.com/coladapo/wealthincome/internal/model"
)

// Rejection reasons. Surfaced to the caller as-is; a rejected signal is
// never silently downgraded to a smaller trade.
var (
	ErrSignalExpired         = errors.New("signal expired")
	ErrConfidenceTooLow      = errors.New("confidence below threshold")
	ErrExposureLimitExceeded = errors.New("exposure limit exceeded")
	ErrMaxPositionsReached   = errors.New("max concurrent positions reached")
	ErrInsufficientCash      = errors.New("insufficient cash")
	ErrShortingDisabled      = errors.New("short entries disabled")
)

// Reason maps a rejection error to a stable label for metrics and API
// responses.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrSignalExpired):
		return "signal_expired"
	case errors.Is(err, ErrConfidenceTooLow):
		return "confidence_too_low"
	case errors.Is(err, ErrExposureLimitExceeded):
		return "exposure_limit_exceeded"
	case errors.Is(err, ErrMaxPositionsReached):
		return "max_positions_reached"
	case errors.Is(err, ErrInsufficientCash):
		return "insufficient_cash"
	case errors.Is(err, ErrShortingDisabled):
		return "shorting_disabled"
	default:
		return "unknown"
	}
}

// Manager validates candidate signals against the risk profile and sizes
// approved orders. The profile is mutable only through SetProfile.
type Manager struct {
	mu      sync.RWMutex
	profile model.RiskProfile
	logger  *zap.Logger
}

func NewManager(profile model.RiskProfile, logger *zap.Logger) *Manager {
	return &Manager{profile: profile, logger: logger}
}

func (m *Manager) Profile() model.RiskProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profile
}

// SetProfile replaces the risk profile. Explicit user action only.
func (m *Manager) SetProfile(p model.RiskProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = p
	m.logger.Info("risk profile updated",
		zap.String("max_position_frac", p.MaxPositionFrac.String()),
		zap.Int("max_positions", p.MaxPositions),
		zap.Float64("confidence_threshold", p.ConfidenceThreshold),
	)
}

// Approve converts a candidate signal into a bounded order intent, or
// rejects it with a specific reason. Checks run in order and short-circuit
// on the first failure.
func (m *Manager) Approve(sig *model.Signal, view ledger.View, price decimal.Decimal, now time.Time) (model.OrderIntent, error) {
	m.mu.RLock()
	profile := m.profile
	m.mu.RUnlock()

	if sig.Expired(now) {
		return model.OrderIntent{}, ErrSignalExpired
	}
	if sig.Confidence < profile.ConfidenceThreshold {
		return model.OrderIntent{}, ErrConfidenceTooLow
	}

	pos, held := view.Position(sig.Symbol)

	// A short signal against an open long is an exit; the exposure, count
	// and cash checks do not apply to closes.
	if sig.Direction == model.DirectionShort {
		if !held {
			return model.OrderIntent{}, ErrShortingDisabled
		}
		return model.OrderIntent{
			SignalID: sig.ID,
			Symbol:   sig.Symbol,
			Side:     model.SideSell,
			Quantity: pos.Quantity,
			Closing:  true,
			Reason:   "signal",
		}, nil
	}

	// Entry sizing: confidence scales size so low-conviction signals risk
	// less capital even when approved.
	budget := view.Equity.Mul(profile.MaxPositionFrac)
	qty := budget.Mul(decimal.NewFromFloat(sig.Confidence)).Div(price).Floor()
	proposed := qty.Mul(price)

	existing := decimal.Zero
	if held {
		existing = pos.MarketValue(price)
	}
	if existing.Add(proposed).GreaterThan(budget) {
		return model.OrderIntent{}, ErrExposureLimitExceeded
	}

	if !held && len(view.Positions) >= profile.MaxPositions {
		return model.OrderIntent{}, ErrMaxPositionsReached
	}

	if qty.LessThanOrEqual(decimal.Zero) || proposed.GreaterThan(view.Cash) {
		return model.OrderIntent{}, ErrInsufficientCash
	}

	stop := sig.StopLoss
	take := sig.TakeProfit
	if stop.IsZero() {
		stop = price.Mul(decimal.NewFromInt(1).Sub(profile.StopLossFrac))
	}
	if take.IsZero() {
		take = price.Mul(decimal.NewFromInt(1).Add(profile.TakeProfitFrac))
	}

	return model.OrderIntent{
		SignalID:   sig.ID,
		Symbol:     sig.Symbol,
		Side:       model.SideBuy,
		Quantity:   qty,
		StopLoss:   stop,
		TakeProfit: take,
		Reason:     "signal",
	}, nil
}
