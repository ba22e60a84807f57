package monitor

// monitor.go — the periodic fetch → detect → execute loop.
//
// One ticker drives everything. Each tick fetches the market list, diffs it
// against the previous cycle (added/removed events), then fans per-market work
// out to a small worker pool: fetch prices, update the snapshot store, run
// detection, and push admitted opportunities through the risk ledger into the
// executor. A slow tick never blocks the ticker's rescheduling — cycles run in
// their own goroutine, and shared maps are individually locked, so an
// overlapping cycle is safe (the detector's dedup suppresses the rerun).
//
// A single market's failure is logged and counted, never propagated: the loop
// keeps going on partial data.

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/application/detector"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/application/executor"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/application/risk"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/application/state"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/domain"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/ports"
)

// Config controls the monitor loop.
type Config struct {
	Interval          time.Duration // tick interval, default 5s
	MarketLimit       int           // markets fetched per cycle
	SpikeThresholdPct float64       // |%Δ| between last two snapshots that emits a spike event
	Workers           int           // per-market goroutines per tick (0 = NumCPU*2)
}

// DefaultConfig returns the production scheduling contract.
func DefaultConfig() Config {
	return Config{
		Interval:          5 * time.Second,
		MarketLimit:       50,
		SpikeThresholdPct: 5.0,
	}
}

// Stats are the monitor's cumulative counters.
type Stats struct {
	Cycles             int64
	FetchErrors        int64
	OpportunitiesFound int64
	TradesExecuted     int64
}

// Monitor orchestrates the pipeline. Construct with New, drive with Run.
type Monitor struct {
	cfg      Config
	exchange ports.Exchange
	store    *state.Store
	detector *detector.Detector
	ledger   *risk.Ledger
	executor *executor.Executor
	notifier ports.Notifier
	storage  ports.Storage
	bus      *Bus

	mu     sync.Mutex
	known  map[string]bool // market ids seen in the previous cycle
	active atomic.Bool

	cycles     atomic.Int64
	fetchErrs  atomic.Int64
	oppsFound  atomic.Int64
	tradesDone atomic.Int64
}

// New wires the monitor. notifier and storage may be nil.
func New(
	cfg Config,
	exchange ports.Exchange,
	store *state.Store,
	det *detector.Detector,
	ledger *risk.Ledger,
	exec *executor.Executor,
	notifier ports.Notifier,
	storage ports.Storage,
	bus *Bus,
) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.MarketLimit <= 0 {
		cfg.MarketLimit = 50
	}
	if cfg.SpikeThresholdPct <= 0 {
		cfg.SpikeThresholdPct = 5.0
	}
	return &Monitor{
		cfg:      cfg,
		exchange: exchange,
		store:    store,
		detector: det,
		ledger:   ledger,
		executor: exec,
		notifier: notifier,
		storage:  storage,
		bus:      bus,
		known:    make(map[string]bool),
	}
}

// Run executes the loop until ctx is cancelled. The first cycle runs
// immediately; later cycles fire on the ticker without waiting for the
// previous one to finish. In-flight per-market work is not forcibly aborted
// on stop — best-effort cleanup only.
func (m *Monitor) Run(ctx context.Context) error {
	slog.Info("monitor starting",
		"interval", m.cfg.Interval,
		"market_limit", m.cfg.MarketLimit,
		"spike_threshold_pct", m.cfg.SpikeThresholdPct,
	)
	m.active.Store(true)

	m.runCycle(ctx)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.active.Store(false)
			m.bus.Publish(domain.Event{Kind: domain.EventMonitorStopped, At: time.Now().UTC()})
			slog.Info("monitor stopped")
			return nil
		case <-ticker.C:
			go m.runCycle(ctx)
		}
	}
}

// RunOnce executes exactly one cycle. Used by tests and the -once flag.
func (m *Monitor) RunOnce(ctx context.Context) {
	m.runCycle(ctx)
}

// Active reports whether the loop is running.
func (m *Monitor) Active() bool {
	return m.active.Load()
}

// Snapshot returns the cumulative counters.
func (m *Monitor) Snapshot() Stats {
	return Stats{
		Cycles:             m.cycles.Load(),
		FetchErrors:        m.fetchErrs.Load(),
		OpportunitiesFound: m.oppsFound.Load(),
		TradesExecuted:     m.tradesDone.Load(),
	}
}

// runCycle does one full fetch → detect → execute pass.
func (m *Monitor) runCycle(ctx context.Context) {
	start := time.Now()
	m.cycles.Add(1)

	markets, err := m.exchange.GetMarkets(ctx, m.cfg.MarketLimit, 0)
	if err != nil {
		m.fetchErrs.Add(1)
		m.publishError("fetch markets", err)
		slog.Warn("market list fetch failed, skipping cycle", "err", err)
		return
	}

	m.diffMarkets(markets)

	opps := m.processMarkets(ctx, markets)

	if m.notifier != nil {
		if err := m.notifier.Notify(ctx, opps); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}
	if m.storage != nil && len(opps) > 0 {
		if err := m.storage.SaveOpportunities(ctx, opps); err != nil {
			slog.Warn("storage error", "err", err)
		}
	}

	slog.Info("cycle complete",
		"markets", len(markets),
		"opportunities", len(opps),
		"exposure", fmt.Sprintf("$%.2f", m.ledger.Exposure()),
		"duration", time.Since(start).Round(time.Millisecond),
	)
}

// diffMarkets emits added/removed events and evicts state for gone markets.
func (m *Monitor) diffMarkets(markets []domain.Market) {
	now := time.Now().UTC()
	current := make(map[string]bool, len(markets))
	for _, mk := range markets {
		current[mk.ID] = true
	}

	m.mu.Lock()
	previous := m.known
	m.known = current
	m.mu.Unlock()

	for _, mk := range markets {
		if !previous[mk.ID] {
			m.bus.Publish(domain.Event{Kind: domain.EventMarketAdded, At: now, MarketID: mk.ID})
		}
	}
	for id := range previous {
		if !current[id] {
			m.store.RemoveMarket(id)
			m.bus.Publish(domain.Event{Kind: domain.EventMarketRemoved, At: now, MarketID: id})
			slog.Debug("market removed from feed", "market", id)
		}
	}
}

// processMarkets fans per-market work out to a worker pool and collects the
// opportunities of the whole cycle, ordered by market then profit.
func (m *Monitor) processMarkets(ctx context.Context, markets []domain.Market) []domain.Opportunity {
	workers := m.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}

	workCh := make(chan domain.Market, len(markets))
	resultCh := make(chan []domain.Opportunity, len(markets))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for mk := range workCh {
				resultCh <- m.processMarket(ctx, mk)
			}
		}()
	}

	for _, mk := range markets {
		workCh <- mk
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var all []domain.Opportunity
	for opps := range resultCh {
		all = append(all, opps...)
	}
	return all
}

// processMarket runs the pipeline for one market. Failures here are local:
// counted, published, never returned.
func (m *Monitor) processMarket(ctx context.Context, market domain.Market) []domain.Opportunity {
	quotes, err := m.exchange.GetMarketPrices(ctx, market.ID)
	if err != nil {
		m.fetchErrs.Add(1)
		m.publishError("fetch prices "+market.ID, err)
		slog.Debug("price fetch failed, skipping market", "market", market.ID, "err", err)
		return nil
	}
	if len(quotes) == 0 {
		return nil
	}

	m.store.Update(market, quotes)
	m.emitSpikes(market.ID, quotes)

	opps := m.detector.Detect(quotes)
	if len(opps) == 0 {
		return nil
	}
	for i := range opps {
		opps[i].Question = market.Question
	}
	m.oppsFound.Add(int64(len(opps)))

	now := time.Now().UTC()
	for i := range opps {
		opp := opps[i]
		m.bus.Publish(domain.Event{Kind: domain.EventOpportunityFound, At: now, MarketID: opp.MarketID, Opportunity: &opp})

		amount := m.ledger.SizePosition(opp)
		if !m.ledger.CanExecute(opp, amount) {
			continue
		}

		trades, err := m.executor.Execute(ctx, opp, market, amount)
		if err != nil {
			slog.Warn("execution rejected", "market", opp.MarketID, "err", err)
			continue
		}
		for j := range trades {
			t := trades[j]
			if t.Status == domain.TradeExecuted {
				m.tradesDone.Add(1)
			}
			m.bus.Publish(domain.Event{Kind: domain.EventTradeExecuted, At: time.Now().UTC(), MarketID: t.MarketID, Trade: &t})
			if m.storage != nil && t.Status.Final() {
				if err := m.storage.SaveTrade(ctx, t); err != nil {
					slog.Warn("trade persistence failed", "trade", t.ID, "err", err)
				}
			}
		}
	}
	return opps
}

// emitSpikes publishes a price-spike event per outcome whose change between
// the two most recent snapshots exceeds the threshold.
func (m *Monitor) emitSpikes(marketID string, quotes []domain.PriceQuote) {
	now := time.Now().UTC()
	for _, q := range quotes {
		pct, ok := m.store.PriceChangePercent(marketID, q.Outcome)
		if !ok || pct < m.cfg.SpikeThresholdPct && pct > -m.cfg.SpikeThresholdPct {
			continue
		}
		change, _ := m.store.PriceChange(marketID, q.Outcome)
		m.bus.Publish(domain.Event{
			Kind:          domain.EventPriceSpike,
			At:            now,
			MarketID:      marketID,
			Outcome:       q.Outcome,
			PreviousPrice: q.LastPrice - change,
			CurrentPrice:  q.LastPrice,
			ChangePercent: pct,
		})
		slog.Info("price spike",
			"market", marketID,
			"outcome", q.Outcome,
			"change_pct", fmt.Sprintf("%.2f%%", pct),
		)
	}
}

func (m *Monitor) publishError(op string, err error) {
	m.bus.Publish(domain.Event{
		Kind: domain.EventMonitorError,
		At:   time.Now().UTC(),
		Err:  op + ": " + err.Error(),
	})
}
