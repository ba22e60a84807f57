package executor

// executor.go — converts approved opportunities into trade legs and submits
// them with bounded retries.
//
// Per-trade state machine: Pending → Executed | Failed | Cancelled. A failed
// submission is retried up to cfg.MaxRetries times (counter keyed by trade id,
// kept outside the Trade itself); exhausting the budget finalizes the trade as
// Failed. Final states are immutable: a leg cancelled while its submission is
// in flight stays Cancelled and the submit result is discarded. With trading
// disabled the executor emits a single synthetic Executed trade per
// opportunity — the default safe mode: full logging of what would have
// happened, no capital moves.

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/domain"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/ports"
	"github.com/google/uuid"
)

const (
	// DefaultMaxRetries is the retry budget per failed trade leg.
	DefaultMaxRetries = 3
	// DefaultMaxPending caps concurrently pending trades.
	DefaultMaxPending = 10

	retryBackoff = 200 * time.Millisecond
)

// Config controls execution behavior.
type Config struct {
	TradingEnabled bool
	MaxRetries     int
	MaxPending     int
}

// FillRecorder receives executed fills. Implemented by the risk ledger.
type FillRecorder interface {
	RecordFill(marketID, outcome string, quantity, price float64)
}

// Executor submits trade legs and tracks pending/completed sets.
type Executor struct {
	cfg       Config
	submitter ports.Submitter
	fills     FillRecorder

	mu         sync.Mutex
	pending    map[string]*domain.Trade
	completed  map[string]*domain.Trade
	retryCount map[string]int // trade id → failed attempts so far
}

// New creates an Executor. fills may be nil (no ledger updates, e.g. tests).
func New(cfg Config, submitter ports.Submitter, fills FillRecorder) *Executor {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = DefaultMaxPending
	}
	return &Executor{
		cfg:        cfg,
		submitter:  submitter,
		fills:      fills,
		pending:    make(map[string]*domain.Trade),
		completed:  make(map[string]*domain.Trade),
		retryCount: make(map[string]int),
	}
}

// Execute turns an approved opportunity into trade legs and submits each one.
// amount is the total capital approved by the risk ledger; basket strategies
// split it evenly across legs. market supplies the outcome labels.
func (e *Executor) Execute(ctx context.Context, opp domain.Opportunity, market domain.Market, amount float64) ([]domain.Trade, error) {
	now := time.Now().UTC()

	if !e.cfg.TradingEnabled {
		return []domain.Trade{e.dryRunTrade(opp, amount, now)}, nil
	}

	if opp.Expired(now) {
		return nil, fmt.Errorf("executor.Execute: opportunity %s expired at %s", opp.ID, opp.ExpiresAt.Format(time.RFC3339))
	}

	legs, err := e.buildLegs(opp, market, amount, now)
	if err != nil {
		return nil, fmt.Errorf("executor.Execute: %w", err)
	}

	e.mu.Lock()
	if len(e.pending)+len(legs) > e.cfg.MaxPending {
		pending := len(e.pending)
		e.mu.Unlock()
		return nil, fmt.Errorf("executor.Execute: pending ceiling reached (%d pending, %d legs, max %d)",
			pending, len(legs), e.cfg.MaxPending)
	}
	for i := range legs {
		e.pending[legs[i].ID] = &legs[i]
	}
	e.mu.Unlock()

	out := make([]domain.Trade, 0, len(legs))
	for i := range legs {
		out = append(out, e.submitWithRetry(ctx, &legs[i], opp))
	}
	return out, nil
}

// Cancel moves a Pending trade directly to Cancelled and removes it from the
// pending set. Cancelling an unknown or already-completed trade is a no-op:
// returns false, not an error.
func (e *Executor) Cancel(tradeID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	trade, ok := e.pending[tradeID]
	if !ok {
		return false
	}
	trade.Status = domain.TradeCancelled
	delete(e.pending, tradeID)
	delete(e.retryCount, tradeID)
	e.completed[tradeID] = trade
	slog.Info("trade cancelled", "trade", tradeID, "market", trade.MarketID)
	return true
}

// TotalProfit sums the realized profit over Executed trades that recorded one.
func (e *Executor) TotalProfit() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	var total float64
	for _, t := range e.completed {
		if t.Status == domain.TradeExecuted && t.Profit != nil {
			total += *t.Profit
		}
	}
	return total
}

// SuccessRate returns Executed / total completed. Zero with no completed trades.
func (e *Executor) SuccessRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.completed) == 0 {
		return 0
	}
	executed := 0
	for _, t := range e.completed {
		if t.Status == domain.TradeExecuted {
			executed++
		}
	}
	return float64(executed) / float64(len(e.completed))
}

// TradesForMarket returns pending and completed trades for a market,
// newest first.
func (e *Executor) TradesForMarket(marketID string) []domain.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []domain.Trade
	for _, t := range e.pending {
		if t.MarketID == marketID {
			out = append(out, *t)
		}
	}
	for _, t := range e.completed {
		if t.MarketID == marketID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// PendingCount returns the number of trades currently pending.
func (e *Executor) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// PendingTrades returns a snapshot of the pending set.
func (e *Executor) PendingTrades() []domain.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Trade, 0, len(e.pending))
	for _, t := range e.pending {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// dryRunTrade builds the synthetic Executed trade used when trading is off.
func (e *Executor) dryRunTrade(opp domain.Opportunity, amount float64, now time.Time) domain.Trade {
	profit := amount * opp.ProfitPercentage
	executedAt := now
	trade := domain.Trade{
		ID:         uuid.New().String(),
		MarketID:   opp.MarketID,
		Outcome:    opp.Outcome,
		Side:       domain.SideBuy,
		Amount:     amount,
		Price:      opp.BuyPrice,
		Status:     domain.TradeExecuted,
		CreatedAt:  now,
		ExecutedAt: &executedAt,
		Profit:     &profit,
		TxRef:      "dry-run",
		DryRun:     true,
	}

	e.mu.Lock()
	e.completed[trade.ID] = &trade
	e.mu.Unlock()

	slog.Info("dry-run execution",
		"market", opp.MarketID,
		"strategy", opp.Strategy.String(),
		"amount", fmt.Sprintf("$%.2f", amount),
		"would_profit", fmt.Sprintf("$%.4f", profit),
	)
	return trade
}

// buildLegs synthesizes trade legs for the opportunity's strategy.
func (e *Executor) buildLegs(opp domain.Opportunity, market domain.Market, amount float64, now time.Time) ([]domain.Trade, error) {
	switch opp.Strategy {
	case domain.StrategyComplementary:
		if len(market.Outcomes) < 2 {
			return nil, fmt.Errorf("complementary needs ≥2 outcomes, market %s has %d", market.ID, len(market.Outcomes))
		}
		per := amount / float64(len(market.Outcomes))
		legs := make([]domain.Trade, 0, len(market.Outcomes))
		for _, outcome := range market.Outcomes {
			legs = append(legs, newLeg(opp, outcome, domain.SideBuy, per, opp.BuyPrice/float64(len(market.Outcomes)), now))
		}
		return legs, nil

	case domain.StrategyMispricing:
		// Buy at ask first, then sell the same outcome at bid.
		return []domain.Trade{
			newLeg(opp, opp.Outcome, domain.SideBuy, amount, opp.BuyPrice, now),
			newLeg(opp, opp.Outcome, domain.SideSell, amount, opp.SellPrice, now),
		}, nil

	case domain.StrategyTemporal:
		if len(market.Outcomes) != 2 {
			return nil, fmt.Errorf("temporal needs a binary market, %s has %d outcomes", market.ID, len(market.Outcomes))
		}
		per := amount / 2
		return []domain.Trade{
			newLeg(opp, market.Outcomes[0], domain.SideSell, per, opp.SellPrice/2, now),
			newLeg(opp, market.Outcomes[1], domain.SideSell, per, opp.SellPrice/2, now),
		}, nil

	default:
		return nil, fmt.Errorf("no leg synthesis for strategy %s", opp.Strategy)
	}
}

// submitWithRetry drives one leg through the state machine. The retry counter
// survives across calls for the same id, so a leg never exceeds its budget.
// Only a still-Pending leg gets finalized here: a leg that Cancel removed from
// the pending set keeps its state and the submit result is discarded.
func (e *Executor) submitWithRetry(ctx context.Context, trade *domain.Trade, opp domain.Opportunity) domain.Trade {
	for {
		e.mu.Lock()
		if _, still := e.pending[trade.ID]; !still {
			final := *trade
			e.mu.Unlock()
			return final
		}
		attempt := *trade
		e.mu.Unlock()

		txRef, err := e.submitter.Submit(ctx, attempt)

		e.mu.Lock()
		if _, still := e.pending[trade.ID]; !still {
			// Cancel ganó la carrera con la orden en vuelo
			final := *trade
			e.mu.Unlock()
			slog.Info("submit result discarded, trade already finalized",
				"trade", trade.ID, "status", string(final.Status))
			return final
		}

		if err == nil {
			now := time.Now().UTC()
			profit := trade.Amount * opp.ProfitPercentage
			trade.Status = domain.TradeExecuted
			trade.ExecutedAt = &now
			trade.Profit = &profit
			trade.TxRef = txRef
			trade.Error = ""
			delete(e.pending, trade.ID)
			e.completed[trade.ID] = trade
			delete(e.retryCount, trade.ID)
			e.mu.Unlock()

			if e.fills != nil {
				e.fills.RecordFill(trade.MarketID, trade.Outcome, trade.Amount, trade.Price)
			}
			slog.Info("trade executed",
				"trade", trade.ID,
				"market", trade.MarketID,
				"side", string(trade.Side),
				"amount", fmt.Sprintf("$%.2f", trade.Amount),
			)
			return *trade
		}

		trade.Error = err.Error()
		e.retryCount[trade.ID]++
		attempts := e.retryCount[trade.ID]

		if attempts > e.cfg.MaxRetries {
			trade.Status = domain.TradeFailed
			delete(e.pending, trade.ID)
			e.completed[trade.ID] = trade
			delete(e.retryCount, trade.ID)
			e.mu.Unlock()

			slog.Warn("trade failed after retries",
				"trade", trade.ID,
				"market", trade.MarketID,
				"attempts", attempts,
				"err", err,
			)
			return *trade
		}
		e.mu.Unlock()

		slog.Debug("trade submission failed, retrying",
			"trade", trade.ID, "attempt", attempts, "err", err)

		select {
		case <-time.After(retryBackoff):
		case <-ctx.Done():
			e.mu.Lock()
			if _, still := e.pending[trade.ID]; still {
				trade.Status = domain.TradeFailed
				trade.Error = ctx.Err().Error()
				delete(e.pending, trade.ID)
				e.completed[trade.ID] = trade
				delete(e.retryCount, trade.ID)
			}
			final := *trade
			e.mu.Unlock()
			return final
		}
	}
}

func newLeg(opp domain.Opportunity, outcome string, side domain.TradeSide, amount, price float64, now time.Time) domain.Trade {
	return domain.Trade{
		ID:        uuid.New().String(),
		MarketID:  opp.MarketID,
		Outcome:   outcome,
		Side:      side,
		Amount:    amount,
		Price:     price,
		Status:    domain.TradePending,
		CreatedAt: now,
	}
}
