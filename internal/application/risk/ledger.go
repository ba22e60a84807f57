package risk

// ledger.go — open positions and aggregate capital exposure.
//
// The ledger is the admission gate between detection and execution: a trade
// size is approved only while it fits the single-position and total-exposure
// limits. Exposure is recomputed from scratch after every fill — O(positions),
// acceptable because fills are not high-frequency, and it keeps the exposure
// query trivially consistent with the position map.

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/domain"
)

// defaultPositionSize is the conservative placeholder size in USDC used when
// no limit binds first. Deliberately not risk-optimal.
const defaultPositionSize = 10.0

// Config are the capital limits enforced by the ledger.
type Config struct {
	MaxPositionSize  float64 // max USDC in a single proposed trade
	MaxTotalExposure float64 // max aggregate exposure across all positions
	MinProfitPct     float64 // defense in depth against stale opportunities
}

// Ledger tracks positions keyed by (marketID, outcome) and total exposure.
type Ledger struct {
	cfg       Config
	mu        sync.Mutex
	positions map[string]*domain.Position
	exposure  float64
}

// New creates an empty ledger with the given limits.
func New(cfg Config) *Ledger {
	return &Ledger{
		cfg:       cfg,
		positions: make(map[string]*domain.Position),
	}
}

// CanExecute approves or rejects a proposed trade size for an opportunity.
func (l *Ledger) CanExecute(opp domain.Opportunity, proposedAmount float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if proposedAmount > l.cfg.MaxPositionSize {
		slog.Debug("risk: reject position size",
			"market", opp.MarketID,
			"proposed", fmt.Sprintf("$%.2f", proposedAmount),
			"max", fmt.Sprintf("$%.2f", l.cfg.MaxPositionSize),
		)
		return false
	}
	if l.exposure+proposedAmount > l.cfg.MaxTotalExposure {
		slog.Debug("risk: reject total exposure",
			"market", opp.MarketID,
			"exposure", fmt.Sprintf("$%.2f", l.exposure),
			"proposed", fmt.Sprintf("$%.2f", proposedAmount),
			"max", fmt.Sprintf("$%.2f", l.cfg.MaxTotalExposure),
		)
		return false
	}
	if opp.ProfitPercentage < l.cfg.MinProfitPct {
		slog.Debug("risk: reject stale profit",
			"market", opp.MarketID,
			"profit_pct", fmt.Sprintf("%.4f", opp.ProfitPercentage),
			"min", fmt.Sprintf("%.4f", l.cfg.MinProfitPct),
		)
		return false
	}
	return true
}

// SizePosition returns the amount to commit to an opportunity: the lesser of
// the configured max position size and the fixed conservative default.
func (l *Ledger) SizePosition(_ domain.Opportunity) float64 {
	if l.cfg.MaxPositionSize < defaultPositionSize {
		return l.cfg.MaxPositionSize
	}
	return defaultPositionSize
}

// RecordFill updates (or creates) the position for (marketID, outcome) with a
// volume-weighted average price, then recomputes total exposure.
func (l *Ledger) RecordFill(marketID, outcome string, quantity, price float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := positionKey(marketID, outcome)
	pos, ok := l.positions[key]
	if !ok {
		pos = &domain.Position{MarketID: marketID, Outcome: outcome}
		l.positions[key] = pos
	}

	newQty := pos.Quantity + quantity
	if newQty != 0 {
		pos.AvgPrice = (pos.Quantity*pos.AvgPrice + quantity*price) / newQty
	}
	pos.Quantity = newQty
	pos.UpdatedAt = time.Now().UTC()

	l.recomputeExposureLocked()
}

// Exposure returns the current aggregate exposure Σ(quantity × avgPrice).
func (l *Ledger) Exposure() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exposure
}

// Positions returns a snapshot of all open positions.
func (l *Ledger) Positions() []domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MarketID != out[j].MarketID {
			return out[i].MarketID < out[j].MarketID
		}
		return out[i].Outcome < out[j].Outcome
	})
	return out
}

func (l *Ledger) recomputeExposureLocked() {
	var total float64
	for _, p := range l.positions {
		total += p.Exposure()
	}
	l.exposure = total
}

func positionKey(marketID, outcome string) string {
	return marketID + "|" + outcome
}
