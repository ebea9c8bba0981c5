package fusion

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coladapo/wealthincome/internal/model"
)

// Rule contribution weights for the technical sub-score. The four rules sum
// to 1.0 at full agreement.
const (
	rsiWeight       = 0.30
	trendWeight     = 0.25
	macdWeight      = 0.25
	extensionWeight = 0.20

	rsiOversold   = 30.0
	rsiOverbought = 70.0
	extensionPct  = 2.0 // price vs SMA20, percent
)

// Fuser combines the technical and sentiment sub-scores into a directional
// signal with a confidence value and expiry.
type Fuser struct {
	techWeight float64
	sentWeight float64
	horizon    time.Duration
}

func NewFuser(techWeight, sentWeight float64, horizon time.Duration) *Fuser {
	return &Fuser{techWeight: techWeight, sentWeight: sentWeight, horizon: horizon}
}

// Fuse returns a materialized signal, or nil when no directional edge clears
// the confidence threshold. A nil result is the expected "no signal" outcome,
// not a failure.
func (f *Fuser) Fuse(ind model.IndicatorSet, sent model.SentimentScore, threshold float64, now time.Time) *model.Signal {
	tech := TechnicalScore(ind)

	// A zero-sample sentiment carries no information: its weight collapses
	// to zero and the technical score stands alone.
	combined := tech
	if sent.Samples > 0 {
		combined = f.techWeight*tech + f.sentWeight*sent.Value
	}

	confidence := math.Min(math.Abs(combined), 1)
	if confidence < threshold || combined == 0 {
		return nil
	}

	direction := model.DirectionLong
	if combined < 0 {
		direction = model.DirectionShort
	}

	sig := &model.Signal{
		ID:          uuid.NewString(),
		Symbol:      ind.Symbol,
		Direction:   direction,
		Confidence:  confidence,
		Indicators:  ind,
		Sentiment:   sent,
		GeneratedAt: now,
		ExpiresAt:   now.Add(f.horizon),
	}

	if lastClose, ok := ind.Get("close"); ok && lastClose > 0 {
		price := decimal.NewFromFloat(lastClose)
		if direction == model.DirectionLong {
			sig.StopLoss = price.Mul(decimal.NewFromFloat(0.95))
			sig.TakeProfit = price.Mul(decimal.NewFromFloat(1.07))
		} else {
			sig.StopLoss = price.Mul(decimal.NewFromFloat(1.05))
			sig.TakeProfit = price.Mul(decimal.NewFromFloat(0.93))
		}
	}

	return sig
}

// TechnicalScore derives a sub-score in [-1, 1] from a weighted rule set:
// RSI oversold/overbought, moving average trend, MACD histogram sign, and
// price extension from the 20-bar mean.
func TechnicalScore(ind model.IndicatorSet) float64 {
	var score float64

	if rsi, ok := ind.Get("rsi_14"); ok {
		if rsi < rsiOversold {
			score += rsiWeight
		} else if rsi > rsiOverbought {
			score -= rsiWeight
		}
	}

	fast, fastOK := ind.Get("sma_20")
	slow, slowOK := ind.Get("sma_50")
	if !slowOK {
		// Short history: fall back to the EMA pair.
		fast, fastOK = ind.Get("ema_12")
		slow, slowOK = ind.Get("ema_26")
	}
	if fastOK && slowOK {
		if fast > slow {
			score += trendWeight
		} else if fast < slow {
			score -= trendWeight
		}
	}

	if hist, ok := ind.Get("macd_hist"); ok {
		if hist > 0 {
			score += macdWeight
		} else if hist < 0 {
			score -= macdWeight
		}
	}

	if ext, ok := ind.Get("price_vs_sma20"); ok {
		if ext > extensionPct {
			score += extensionWeight
		} else if ext < -extensionPct {
			score -= extensionWeight
		}
	}

	return math.Max(-1, math.Min(1, score))
}
