package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/coladapo/wealthincome/internal/config"
	"github.com/coladapo/wealthincome/internal/explain"
	"github.com/coladapo/wealthincome/internal/fusion"
	"github.com/coladapo/wealthincome/internal/indicator"
	"github.com/coladapo/wealthincome/internal/infrastructure"
	"github.com/coladapo/wealthincome/internal/ledger"
	"github.com/coladapo/wealthincome/internal/marketdata"
	"github.com/coladapo/wealthincome/internal/model"
	"github.com/coladapo/wealthincome/internal/news"
	"github.com/coladapo/wealthincome/internal/risk"
	"github.com/coladapo/wealthincome/internal/sentiment"
	"github.com/coladapo/wealthincome/internal/sim"
)

// barInterval and barLookback define the history window fed to the
// indicator engine each cycle.
const (
	barInterval = time.Minute
	barLookback = 120
)

// SignalStore decouples the pipeline from the persistence layer.
type SignalStore interface {
	SaveSignal(ctx context.Context, sig *model.Signal) error
	SetReasoning(ctx context.Context, id, text string) error
}

// SignalPublisher pushes freshly generated signals to subscribers.
type SignalPublisher interface {
	Signal(sig *model.Signal)
}

// CycleResult reports the outcome for one symbol in one cycle. A result
// with no signal, no reject reason and no error is the ordinary "no edge
// found" outcome; a risk rejection is distinguishable by its reason.
type CycleResult struct {
	Symbol string
	Signal *model.Signal
	Order  *model.Order
	Reject string
	Err    error
}

// Deps wires the pipeline's collaborators. Store, Publisher and Explainer
// are optional.
type Deps struct {
	Market     marketdata.Provider
	News       news.Source
	Indicators *indicator.Engine
	Scorer     *sentiment.Scorer
	Fuser      *fusion.Fuser
	Risk       *risk.Manager
	Executor   *sim.Executor
	Alerts     *sim.AlertEvaluator
	Book       *ledger.Portfolio
	Explainer  explain.Service
	Store      SignalStore
	Publisher  SignalPublisher
	Logger     *zap.Logger
}

// Pipeline runs the per-symbol signal generation fan-out and the serialized
// order application queue. Signal generation for distinct symbols is
// independent; only the ledger-write path is shared.
type Pipeline struct {
	symbols      []string
	workers      int
	tick         time.Duration
	fetchTimeout time.Duration
	newsLookback time.Duration

	market     marketdata.Provider
	newsSource news.Source
	indicators *indicator.Engine
	scorer     *sentiment.Scorer
	fuser      *fusion.Fuser
	riskMgr    *risk.Manager
	exec       *sim.Executor
	alerts     *sim.AlertEvaluator
	book       *ledger.Portfolio
	explainer  explain.Service
	store      SignalStore
	publisher  SignalPublisher
	logger     *zap.Logger

	mu     sync.RWMutex
	latest map[string]model.Signal
}

func NewPipeline(cfg config.Config, deps Deps) *Pipeline {
	workers := cfg.Workers
	if n := len(cfg.Symbols()); workers > n && n > 0 {
		workers = n // bounded by the watchlist size
	}
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		symbols:      cfg.Symbols(),
		workers:      workers,
		tick:         cfg.TickInterval(),
		fetchTimeout: cfg.FetchTimeout(),
		newsLookback: cfg.NewsLookback(),
		market:       deps.Market,
		newsSource:   deps.News,
		indicators:   deps.Indicators,
		scorer:       deps.Scorer,
		fuser:        deps.Fuser,
		riskMgr:      deps.Risk,
		exec:         deps.Executor,
		alerts:       deps.Alerts,
		book:         deps.Book,
		explainer:    deps.Explainer,
		store:        deps.Store,
		publisher:    deps.Publisher,
		logger:       deps.Logger,
	}
}

// Run drives cycles on a fixed timer until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	p.RunCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.RunCycle(ctx)
		}
	}
}

type approvedIntent struct {
	result CycleResult
	intent model.OrderIntent
	ref    decimal.Decimal
}

// RunCycle generates signals for every watchlist symbol on a fixed worker
// pool and applies approved orders one at a time, in arrival order, to keep
// cash and position accounting deterministic. One symbol's data failure
// never aborts the cycle for the others.
func (p *Pipeline) RunCycle(ctx context.Context) []CycleResult {
	start := time.Now()

	jobs := make(chan string)
	approvals := make(chan approvedIntent, len(p.symbols))
	resultCh := make(chan CycleResult, 2*len(p.symbols))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range jobs {
				res, appr := p.evaluateSymbol(ctx, sym)
				if appr != nil {
					approvals <- *appr
				} else {
					resultCh <- res
				}
			}
		}()
	}

feed:
	for _, sym := range p.symbols {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- sym:
		}
	}
	close(jobs)
	wg.Wait()
	close(approvals)

	// Single-consumer execution queue: the shared ledger-write path.
	for a := range approvals {
		order, _, err := p.exec.Execute(a.intent, a.ref, time.Now())
		res := a.result
		res.Order = order
		if err != nil {
			res.Err = err
		}
		resultCh <- res
	}
	close(resultCh)

	results := make([]CycleResult, 0, len(p.symbols))
	for r := range resultCh {
		results = append(results, r)
	}

	infrastructure.CycleDuration.Observe(time.Since(start).Seconds())
	return results
}

func (p *Pipeline) evaluateSymbol(ctx context.Context, symbol string) (CycleResult, *approvedIntent) {
	res := CycleResult{Symbol: symbol}
	now := time.Now()

	fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	bars, err := p.market.FetchBars(fetchCtx, symbol, barInterval, barLookback)
	if err != nil {
		infrastructure.FetchErrors.WithLabelValues("bars").Inc()
		res.Err = fmt.Errorf("%s: %w", symbol, marketdata.ErrDataUnavailable)
		return res, nil
	}

	ind, err := p.indicators.Compute(bars)
	if err != nil {
		// Not enough history: skip the symbol, no signal.
		res.Err = err
		return res, nil
	}

	items, err := p.newsSource.FetchItems(fetchCtx, symbol, p.newsLookback)
	if err != nil {
		// News failure is soft: score as "no information".
		infrastructure.FetchErrors.WithLabelValues("news").Inc()
		items = nil
	}
	score := p.scorer.Score(symbol, items, now)

	price, priceErr := p.referencePrice(fetchCtx, symbol, bars)
	if priceErr == nil {
		// Stop/take and user alerts are evaluated at the fresh price before
		// any new entry for the symbol.
		p.alerts.OnTick(symbol, price, now)
	}

	sig := p.fuser.Fuse(ind, score, p.riskMgr.Profile().ConfidenceThreshold, now)
	if sig == nil {
		return res, nil // no edge on this cycle
	}
	res.Signal = sig

	infrastructure.SignalsGenerated.WithLabelValues(symbol, string(sig.Direction)).Inc()
	p.rememberSignal(sig)
	if p.publisher != nil {
		p.publisher.Signal(sig)
	}
	if p.store != nil {
		if err := p.store.SaveSignal(ctx, sig); err != nil {
			p.logger.Error("failed to persist signal", zap.String("symbol", symbol), zap.Error(err))
		}
	}
	if p.explainer != nil {
		go p.enrich(sig)
	}

	if priceErr != nil {
		infrastructure.FetchErrors.WithLabelValues("quote").Inc()
		res.Err = fmt.Errorf("%s: %w", symbol, marketdata.ErrDataUnavailable)
		return res, nil
	}

	intent, err := p.riskMgr.Approve(sig, p.book.View(), price, now)
	if err != nil {
		res.Reject = risk.Reason(err)
		infrastructure.OrdersRejected.WithLabelValues(res.Reject).Inc()
		p.logger.Info("signal rejected",
			zap.String("symbol", symbol),
			zap.String("reason", res.Reject),
			zap.Float64("confidence", sig.Confidence),
		)
		return res, nil
	}

	return res, &approvedIntent{result: res, intent: intent, ref: price}
}

// referencePrice prefers a live quote and falls back to the latest bar
// close when the quote fetch fails but bars are fresh.
func (p *Pipeline) referencePrice(ctx context.Context, symbol string, bars []model.PriceBar) (decimal.Decimal, error) {
	quote, err := p.market.FetchQuote(ctx, symbol)
	if err == nil {
		return quote.Price, nil
	}
	if len(bars) > 0 {
		return bars[len(bars)-1].Close, nil
	}
	return decimal.Zero, err
}

// enrich asks the explanation collaborator for reasoning text off the
// critical path. Failure leaves the slot empty.
func (p *Pipeline) enrich(sig *model.Signal) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	text, err := p.explainer.Explain(ctx, sig)
	if err != nil || text == "" {
		return
	}

	p.mu.Lock()
	if cached, ok := p.latest[sig.Symbol]; ok && cached.ID == sig.ID {
		cached.Reasoning = text
		p.latest[sig.Symbol] = cached
	}
	p.mu.Unlock()

	if p.store != nil {
		if err := p.store.SetReasoning(ctx, sig.ID, text); err != nil {
			p.logger.Warn("failed to store signal reasoning", zap.String("signal_id", sig.ID), zap.Error(err))
		}
	}
}

func (p *Pipeline) rememberSignal(sig *model.Signal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.latest == nil {
		p.latest = make(map[string]model.Signal)
	}
	p.latest[sig.Symbol] = *sig
}

// Latest returns the most recent signal generated for a symbol this
// session, if any.
func (p *Pipeline) Latest(symbol string) (model.Signal, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sig, ok := p.latest[symbol]
	return sig, ok
}
