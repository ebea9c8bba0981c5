package sentiment

import (
	"math"
	"strings"
	"time"

	"github.com/coladapo/wealthincome/internal/model"
)

// lexicon maps market-moving words to a polarity contribution in [-1, 1].
var lexicon = map[string]float64{
	"surge": 0.6, "soar": 0.8, "rally": 0.6, "jump": 0.5, "gain": 0.4,
	"beat": 0.5, "beats": 0.5, "record": 0.4, "upgrade": 0.6, "upgraded": 0.6,
	"bullish": 0.7, "strong": 0.3, "growth": 0.4, "profit": 0.4, "raise": 0.4,
	"outperform": 0.6, "upbeat": 0.5, "breakout": 0.5, "rebound": 0.4,

	"plunge": -0.8, "crash": -0.9, "tumble": -0.6, "slump": -0.6, "drop": -0.4,
	"miss": -0.5, "misses": -0.5, "downgrade": -0.6, "downgraded": -0.6,
	"bearish": -0.7, "weak": -0.3, "loss": -0.4, "losses": -0.4, "cut": -0.3,
	"lawsuit": -0.5, "fraud": -0.9, "bankruptcy": -0.9, "recall": -0.5,
	"underperform": -0.6, "selloff": -0.7, "warning": -0.4,
}

// Scorer converts a batch of headlines into one bounded sentiment value,
// weighting recent items more heavily via exponential decay.
type Scorer struct {
	halfLife time.Duration
	lookback time.Duration
}

func NewScorer(halfLife, lookback time.Duration) *Scorer {
	return &Scorer{halfLife: halfLife, lookback: lookback}
}

// Score aggregates items published inside the lookback window ending at asOf.
// No items in the window yields a neutral zero-sample score; downstream
// fusion must treat that as weight-zero, not bearish.
func (s *Scorer) Score(symbol string, items []model.NewsItem, asOf time.Time) model.SentimentScore {
	start := asOf.Add(-s.lookback)
	score := model.SentimentScore{
		Symbol:      symbol,
		WindowStart: start,
		WindowEnd:   asOf,
		Sources:     make(map[string]int),
	}

	var weightedSum, weightTotal float64
	for _, item := range items {
		if item.PublishedAt.Before(start) || item.PublishedAt.After(asOf) {
			continue
		}
		age := asOf.Sub(item.PublishedAt)
		weight := math.Exp(-math.Ln2 * age.Seconds() / s.halfLife.Seconds())

		weightedSum += weight * polarity(item.Headline)
		weightTotal += weight
		score.Samples++
		score.Sources[item.Source]++
	}

	if score.Samples == 0 || weightTotal == 0 {
		return score
	}

	score.Value = clamp(weightedSum/weightTotal, -1, 1)
	return score
}

// polarity scores a single headline from lexicon hits, clamped to [-1, 1].
func polarity(text string) float64 {
	var sum float64
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?:;()'\"")
		if v, ok := lexicon[word]; ok {
			sum += v
		}
	}
	return clamp(sum, -1, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
