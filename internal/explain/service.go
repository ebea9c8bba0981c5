package explain

import (
	"context"
	"fmt"
	"strings"

	"github.com/coladapo/wealthincome/internal/model"
)

// Service produces a human-readable explanation for a signal. It is an
// optional enrichment collaborator: a failure here never blocks signal
// creation, and the reasoning slot may simply stay empty.
type Service interface {
	Explain(ctx context.Context, sig *model.Signal) (string, error)
}

// RuleBased derives an explanation from the signal's indicator and
// sentiment snapshots. Stands in for an LLM-backed service.
type RuleBased struct{}

func NewRuleBased() *RuleBased {
	return &RuleBased{}
}

func (RuleBased) Explain(ctx context.Context, sig *model.Signal) (string, error) {
	var reasons []string

	if rsi, ok := sig.Indicators.Get("rsi_14"); ok {
		if rsi < 30 {
			reasons = append(reasons, "RSI indicates oversold conditions")
		} else if rsi > 70 {
			reasons = append(reasons, "RSI indicates overbought conditions")
		}
	}

	if ext, ok := sig.Indicators.Get("price_vs_sma20"); ok {
		if ext > 5 {
			reasons = append(reasons, "price trading significantly above the 20-bar moving average")
		} else if ext < -5 {
			reasons = append(reasons, "price trading below the 20-bar moving average")
		}
	}

	if hist, ok := sig.Indicators.Get("macd_hist"); ok && hist != 0 {
		if hist > 0 {
			reasons = append(reasons, "MACD momentum is positive")
		} else {
			reasons = append(reasons, "MACD momentum is negative")
		}
	}

	if sig.Sentiment.Samples > 0 {
		switch {
		case sig.Sentiment.Value > 0.3:
			reasons = append(reasons, fmt.Sprintf("positive news sentiment across %d items", sig.Sentiment.Samples))
		case sig.Sentiment.Value < -0.3:
			reasons = append(reasons, fmt.Sprintf("negative news sentiment across %d items", sig.Sentiment.Samples))
		}
	}

	switch sig.Direction {
	case model.DirectionLong:
		reasons = append(reasons, "bullish factors outweigh bearish ones")
	case model.DirectionShort:
		reasons = append(reasons, "bearish factors outweigh bullish ones")
	}

	if len(reasons) > 4 {
		reasons = reasons[:4]
	}
	return strings.Join(reasons, "; "), nil
}
