package detector

// detector.go — multi-strategy arbitrage detection for one market's quote set.
//
// Three independent strategies run per call, in no particular order:
//
//   - Complementary: sum of asks across all outcomes < 1.0 → buying every
//     outcome locks in the $1.00 payout.
//   - Mispricing: inverted book (bid > ask) on a single outcome → instant
//     buy-at-ask / sell-at-bid profit.
//   - Temporal: binary markets where bid YES + bid NO > 1.0 → sell both sides
//     and profit when prices converge. Discounted confidence: depends on
//     future convergence, not instantaneous settlement.
//
// Candidates then pass a uniform filter pipeline (profit, confidence,
// slippage, dedup) regardless of which strategy produced them.

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/domain"
	"github.com/google/uuid"
)

const (
	complementaryExpiry = 30 * time.Second
	mispricingExpiry    = 10 * time.Second
	temporalExpiry      = 60 * time.Second

	// Mispricing is unambiguous by construction: the inverted book itself is
	// the proof, so confidence/risk/slippage are fixed constants.
	mispricingConfidence = 0.9
	mispricingSlippage   = 0.001
	mispricingRisk       = 0.1

	temporalRisk           = 0.7
	temporalConfidenceFlr  = 0.3
	temporalConfidenceMult = 0.6

	confidenceFloor     = 0.5
	outcomePenaltyStep  = 0.05 // confidence multiplier shrinks per outcome beyond 2
	outcomePenaltyFloor = 0.8
	spreadNormScale     = 0.1 // spread at which normalized spread saturates to 1

	// DefaultDedupTTL is how long a registered opportunity suppresses
	// near-identical candidates for the same (market, strategy).
	DefaultDedupTTL = 60 * time.Second

	// dedupProfitTolerance: candidates within 0.1% absolute profitPercentage
	// of a still-fresh entry are duplicates.
	dedupProfitTolerance = 0.001
)

// Config controls candidate filtering.
type Config struct {
	MinProfitThreshold float64 // reject below this profitPercentage
	MinConfidence      float64 // reject below this confidence
	MaxSlippage        float64 // reject above this estimated slippage
	MaxPositionSize    float64 // normalizes required capital in risk scoring
	DedupTTL           time.Duration
}

// DefaultConfig returns the filter thresholds used in production.
func DefaultConfig() Config {
	return Config{
		MinProfitThreshold: 0.005,
		MinConfidence:      0.6,
		MaxSlippage:        0.05,
		MaxPositionSize:    100,
		DedupTTL:           DefaultDedupTTL,
	}
}

// recentEntry is one registered opportunity kept for dedup.
type recentEntry struct {
	profitPct float64
	seenAt    time.Time
}

// Detector runs the strategies and deduplicates against recently seen
// opportunities. Safe for concurrent use across per-market goroutines.
type Detector struct {
	cfg    Config
	mu     sync.Mutex
	recent map[string][]recentEntry // "marketID|strategy" → fresh entries
}

// New creates a Detector with the given filter config.
func New(cfg Config) *Detector {
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = DefaultDedupTTL
	}
	if cfg.MaxPositionSize <= 0 {
		cfg.MaxPositionSize = 100
	}
	return &Detector{cfg: cfg, recent: make(map[string][]recentEntry)}
}

// Detect runs every strategy on one market's quotes and returns the surviving
// opportunities sorted by profitPercentage descending. Empty input yields
// empty output. Survivors are registered for future dedup; expired dedup
// entries are pruned lazily on every call.
func (d *Detector) Detect(quotes []domain.PriceQuote) []domain.Opportunity {
	if len(quotes) == 0 {
		return nil
	}
	now := time.Now().UTC()

	var candidates []domain.Opportunity
	candidates = append(candidates, d.detectComplementary(quotes, now)...)
	candidates = append(candidates, d.detectMispricing(quotes, now)...)
	candidates = append(candidates, d.detectTemporal(quotes, now)...)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.pruneLocked(now)

	var out []domain.Opportunity
	for _, opp := range candidates {
		if opp.ProfitPercentage < d.cfg.MinProfitThreshold {
			continue
		}
		if opp.Confidence < d.cfg.MinConfidence {
			continue
		}
		if opp.EstimatedSlippage > d.cfg.MaxSlippage {
			continue
		}
		if d.isDuplicateLocked(opp) {
			slog.Debug("duplicate opportunity suppressed",
				"market", opp.MarketID,
				"strategy", opp.Strategy.String(),
				"profit_pct", fmt.Sprintf("%.4f", opp.ProfitPercentage),
			)
			continue
		}
		out = append(out, opp)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ProfitPercentage > out[j].ProfitPercentage
	})

	for _, opp := range out {
		key := dedupKey(opp.MarketID, opp.Strategy)
		d.recent[key] = append(d.recent[key], recentEntry{
			profitPct: opp.ProfitPercentage,
			seenAt:    now,
		})
	}
	return out
}

// detectComplementary checks whether buying every outcome costs less than the
// guaranteed $1.00 payout.
func (d *Detector) detectComplementary(quotes []domain.PriceQuote, now time.Time) []domain.Opportunity {
	if len(quotes) < 2 {
		return nil
	}

	var totalCost float64
	for _, q := range quotes {
		if q.AskPrice <= 0 {
			return nil // a missing ask makes the basket unpriceable
		}
		totalCost += q.AskPrice
	}
	if totalCost >= 1.0 {
		return nil
	}

	profit := 1.0 - totalCost
	avgSpread := averageSpread(quotes)

	opp := domain.Opportunity{
		ID:                uuid.New().String(),
		MarketID:          quotes[0].MarketID,
		Strategy:          domain.StrategyComplementary,
		BuySide:           fmt.Sprintf("all %d outcomes at ask", len(quotes)),
		SellSide:          "none",
		BuyPrice:          totalCost,
		ExpectedProfit:    profit,
		ProfitPercentage:  profit / totalCost,
		Confidence:        complementaryConfidence(avgSpread, len(quotes)),
		RequiredCapital:   totalCost,
		EstimatedSlippage: avgSpread,
		DetectedAt:        now,
		ExpiresAt:         now.Add(complementaryExpiry),
	}
	opp.RiskScore = d.riskScore(opp.RequiredCapital, avgSpread)
	return []domain.Opportunity{opp}
}

// detectMispricing emits one opportunity per outcome with an inverted book.
func (d *Detector) detectMispricing(quotes []domain.PriceQuote, now time.Time) []domain.Opportunity {
	var out []domain.Opportunity
	for _, q := range quotes {
		if !q.Inverted() || q.AskPrice <= 0 {
			continue
		}
		profit := q.BidPrice - q.AskPrice
		out = append(out, domain.Opportunity{
			ID:                uuid.New().String(),
			MarketID:          q.MarketID,
			Strategy:          domain.StrategyMispricing,
			Outcome:           q.Outcome,
			BuySide:           fmt.Sprintf("%s at ask %.4f", q.Outcome, q.AskPrice),
			SellSide:          fmt.Sprintf("%s at bid %.4f", q.Outcome, q.BidPrice),
			BuyPrice:          q.AskPrice,
			SellPrice:         q.BidPrice,
			ExpectedProfit:    profit,
			ProfitPercentage:  profit / q.AskPrice,
			Confidence:        mispricingConfidence,
			RiskScore:         mispricingRisk,
			RequiredCapital:   q.AskPrice,
			EstimatedSlippage: mispricingSlippage,
			DetectedAt:        now,
			ExpiresAt:         now.Add(mispricingExpiry),
		})
	}
	return out
}

// detectTemporal checks binary markets where selling both sides yields more
// than the $1.00 the pair settles for.
func (d *Detector) detectTemporal(quotes []domain.PriceQuote, now time.Time) []domain.Opportunity {
	if len(quotes) != 2 {
		return nil
	}

	totalBid := quotes[0].BidPrice + quotes[1].BidPrice
	if totalBid <= 1.0 {
		return nil
	}

	profit := totalBid - 1.0
	avgSpread := averageSpread(quotes)
	confidence := complementaryConfidence(avgSpread, 2) * temporalConfidenceMult
	if confidence < temporalConfidenceFlr {
		confidence = temporalConfidenceFlr
	}

	opp := domain.Opportunity{
		ID:                uuid.New().String(),
		MarketID:          quotes[0].MarketID,
		Strategy:          domain.StrategyTemporal,
		BuySide:           "none",
		SellSide:          "both outcomes at bid",
		SellPrice:         totalBid,
		ExpectedProfit:    profit,
		ProfitPercentage:  profit / totalBid,
		Confidence:        confidence,
		RiskScore:         temporalRisk,
		RequiredCapital:   totalBid,
		EstimatedSlippage: 1.5 * avgSpread,
		DetectedAt:        now,
		ExpiresAt:         now.Add(temporalExpiry),
	}
	return []domain.Opportunity{opp}
}

// complementaryConfidence derives confidence from spread tightness, floored at
// 0.5, then shaved slightly as the outcome count grows beyond 2 (multiplier
// floored at 0.8): more legs means more ways for a basket fill to slip.
func complementaryConfidence(avgSpread float64, outcomes int) float64 {
	conf := 1.0 - avgSpread/spreadNormScale*0.5
	if conf < confidenceFloor {
		conf = confidenceFloor
	}
	if conf > 1 {
		conf = 1 // inverted books can produce a negative average spread
	}
	mult := 1.0 - float64(outcomes-2)*outcomePenaltyStep
	if mult < outcomePenaltyFloor {
		mult = outcomePenaltyFloor
	}
	return conf * mult
}

// riskScore blends the capital-to-max-position ratio with the normalized
// spread, averaged and clamped to [0, 1].
func (d *Detector) riskScore(requiredCapital, avgSpread float64) float64 {
	capRatio := requiredCapital / d.cfg.MaxPositionSize
	if capRatio > 1 {
		capRatio = 1
	}
	spreadNorm := avgSpread / spreadNormScale
	if spreadNorm > 1 {
		spreadNorm = 1
	}
	score := (capRatio + spreadNorm) / 2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// isDuplicateLocked reports whether a still-fresh entry exists for the same
// (market, strategy) with profitPercentage within the tolerance.
func (d *Detector) isDuplicateLocked(opp domain.Opportunity) bool {
	for _, e := range d.recent[dedupKey(opp.MarketID, opp.Strategy)] {
		if abs(e.profitPct-opp.ProfitPercentage) <= dedupProfitTolerance {
			return true
		}
	}
	return false
}

// pruneLocked drops dedup entries older than the TTL. Lazy — runs on every
// Detect call, no timer involved.
func (d *Detector) pruneLocked(now time.Time) {
	cutoff := now.Add(-d.cfg.DedupTTL)
	for key, entries := range d.recent {
		kept := entries[:0]
		for _, e := range entries {
			if e.seenAt.After(cutoff) {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(d.recent, key)
			continue
		}
		d.recent[key] = kept
	}
}

func dedupKey(marketID string, s domain.Strategy) string {
	return marketID + "|" + s.String()
}

func averageSpread(quotes []domain.PriceQuote) float64 {
	if len(quotes) == 0 {
		return 0
	}
	var sum float64
	for _, q := range quotes {
		sum += q.Spread()
	}
	return sum / float64(len(quotes))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
