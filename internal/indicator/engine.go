package indicator

import (
	"fmt"

	talib "github.com/markcheno/go-talib"

	"github.com/coladapo/wealthincome/internal/model"
)

// Standard parameter set. Changing these changes MinBars.
const (
	RSIPeriod  = 14
	FastSMA    = 20
	SlowSMA    = 50
	FastEMA    = 12
	SlowEMA    = 26
	MACDSignal = 9
	BBPeriod   = 20
	BBDev      = 2.0
)

// MinBars is the shortest window for which every required indicator has a
// value on the latest bar. MACD needs the longest warmup; the 50-bar SMA is
// optional and filled only when enough history exists.
const MinBars = SlowEMA + MACDSignal - 1

// InsufficientDataError reports that a symbol has too little history for
// indicator computation. The caller must skip signal generation for the
// symbol rather than act on a degenerate value.
type InsufficientDataError struct {
	Symbol string
	Need   int
	Have   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: need %d bars, have %d", e.Symbol, e.Need, e.Have)
}

// Engine computes technical indicators from an ordered bar series.
// Pure function of its input window; no side effects.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Compute returns the IndicatorSet for the latest bar of the series.
// Bars must be ordered oldest first and belong to a single symbol.
func (e *Engine) Compute(bars []model.PriceBar) (model.IndicatorSet, error) {
	symbol := ""
	if len(bars) > 0 {
		symbol = bars[0].Symbol
	}
	if len(bars) < MinBars {
		return model.IndicatorSet{}, &InsufficientDataError{Symbol: symbol, Need: MinBars, Have: len(bars)}
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i], _ = b.Close.Float64()
	}
	last := len(closes) - 1

	sma20 := talib.Sma(closes, FastSMA)
	ema12 := talib.Ema(closes, FastEMA)
	ema26 := talib.Ema(closes, SlowEMA)
	rsi := talib.Rsi(closes, RSIPeriod)
	macd, macdSig, macdHist := talib.Macd(closes, FastEMA, SlowEMA, MACDSignal)
	bbUpper, bbMiddle, bbLower := talib.BBands(closes, BBPeriod, BBDev, BBDev, talib.SMA)

	values := map[string]float64{
		"close":       closes[last],
		"sma_20":      sma20[last],
		"ema_12":      ema12[last],
		"ema_26":      ema26[last],
		"rsi_14":      rsi[last],
		"macd":        macd[last],
		"macd_signal": macdSig[last],
		"macd_hist":   macdHist[last],
		"bb_upper":    bbUpper[last],
		"bb_middle":   bbMiddle[last],
		"bb_lower":    bbLower[last],
	}

	if sma20[last] != 0 {
		values["price_vs_sma20"] = (closes[last]/sma20[last] - 1) * 100
	}
	if len(closes) >= SlowSMA {
		sma50 := talib.Sma(closes, SlowSMA)
		values["sma_50"] = sma50[last]
	}

	return model.IndicatorSet{
		Symbol:    symbol,
		Timestamp: bars[len(bars)-1].Timestamp,
		Values:    values,
	}, nil
}
