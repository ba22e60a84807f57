package state

// store.go — in-memory snapshot store for market prices.
//
// One MarketState per market: latest quote set plus a bounded FIFO history of
// prior quote sets. Spread and volatility stats are recomputed on every update
// so readers never pay the aggregation cost.

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/domain"
)

// DefaultHistoryCapacity is the number of quote-set snapshots retained per market.
const DefaultHistoryCapacity = 100

// Snapshot is one observed quote set for a market.
type Snapshot struct {
	Quotes     []domain.PriceQuote
	ObservedAt time.Time
}

// MarketState owns the latest quotes and rolling history for one market.
// Values returned by the store are copies — mutating them does not affect
// the store.
type MarketState struct {
	Market       domain.Market
	LatestQuotes []domain.PriceQuote
	History      []Snapshot // oldest first, evicted FIFO at capacity
	UpdateCount  int
	LastUpdate   time.Time

	// Derived on every update.
	AvgSpread  float64 // mean of (ask - bid) across outcomes of the latest set
	Volatility float64 // sample stddev of all lastPrice values across history
}

// Store holds MarketStates keyed by market id. Safe for concurrent use:
// per-market fetches inside a monitor tick update it from multiple goroutines.
type Store struct {
	mu       sync.RWMutex
	states   map[string]*MarketState
	capacity int
}

// NewStore creates a Store with the given history capacity per market.
// capacity <= 0 falls back to DefaultHistoryCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &Store{
		states:   make(map[string]*MarketState),
		capacity: capacity,
	}
}

// Update ingests a new quote set for a market and returns the recomputed state.
// First observation creates the state with a single-snapshot history and zero
// volatility; later calls append to history, evicting the oldest snapshot once
// capacity is exceeded.
func (s *Store) Update(market domain.Market, quotes []domain.PriceQuote) MarketState {
	now := time.Now().UTC()
	snap := Snapshot{Quotes: cloneQuotes(quotes), ObservedAt: now}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[market.ID]
	if !ok {
		st = &MarketState{Market: market}
		s.states[market.ID] = st
	}

	st.Market = market
	st.LatestQuotes = cloneQuotes(quotes)
	st.History = append(st.History, snap)
	if len(st.History) > s.capacity {
		st.History = st.History[1:]
	}
	st.UpdateCount++
	st.LastUpdate = now

	st.AvgSpread = averageSpread(quotes)
	st.Volatility = flattenedVolatility(st.History)

	return copyState(st)
}

// Get returns the state for a market id, if present.
func (s *Store) Get(marketID string) (MarketState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[marketID]
	if !ok {
		return MarketState{}, false
	}
	return copyState(st), true
}

// Markets returns the ids of all tracked markets.
func (s *Store) Markets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PriceChange returns the absolute lastPrice change for (marketID, outcome)
// between the two most recent snapshots. ok is false with fewer than two
// snapshots or when the outcome is missing from either.
func (s *Store) PriceChange(marketID, outcome string) (change float64, ok bool) {
	prev, curr, ok := s.lastTwo(marketID, outcome)
	if !ok {
		return 0, false
	}
	return curr - prev, true
}

// PriceChangePercent returns the relative lastPrice change for
// (marketID, outcome) between the two most recent snapshots.
// Undefined (ok=false) when the prior price is exactly 0.
func (s *Store) PriceChangePercent(marketID, outcome string) (pct float64, ok bool) {
	prev, curr, ok := s.lastTwo(marketID, outcome)
	if !ok || prev == 0 {
		return 0, false
	}
	return (curr - prev) / prev * 100, true
}

// TopByVolatility returns up to n market states ordered by volatility desc.
func (s *Store) TopByVolatility(n int) []MarketState {
	s.mu.RLock()
	all := make([]MarketState, 0, len(s.states))
	for _, st := range s.states {
		all = append(all, copyState(st))
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].Volatility != all[j].Volatility {
			return all[i].Volatility > all[j].Volatility
		}
		return all[i].Market.ID < all[j].Market.ID
	})
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// FilterByLiquidity returns the states whose market liquidity is >= min.
func (s *Store) FilterByLiquidity(min float64) []MarketState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []MarketState
	for _, st := range s.states {
		if st.Market.Liquidity >= min {
			out = append(out, copyState(st))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Market.ID < out[j].Market.ID })
	return out
}

// RemoveMarket deletes all state for a market id. Idempotent.
func (s *Store) RemoveMarket(marketID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, marketID)
}

// lastTwo returns the lastPrice of an outcome in the previous and current snapshot.
func (s *Store) lastTwo(marketID, outcome string) (prev, curr float64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, found := s.states[marketID]
	if !found || len(st.History) < 2 {
		return 0, 0, false
	}
	prevSnap := st.History[len(st.History)-2]
	currSnap := st.History[len(st.History)-1]

	prev, okPrev := lastPriceFor(prevSnap.Quotes, outcome)
	curr, okCurr := lastPriceFor(currSnap.Quotes, outcome)
	if !okPrev || !okCurr {
		return 0, 0, false
	}
	return prev, curr, true
}

func lastPriceFor(quotes []domain.PriceQuote, outcome string) (float64, bool) {
	for _, q := range quotes {
		if q.Outcome == outcome {
			return q.LastPrice, true
		}
	}
	return 0, false
}

// averageSpread returns the mean of (ask - bid) across the quote set.
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

// flattenedVolatility computes the sample stddev of every lastPrice across all
// retained snapshots and outcomes, treated as one flattened sample. Outcomes
// are deliberately conflated — a cheap liquidity/volatility proxy, not a
// per-outcome metric. Zero with a single snapshot.
func flattenedVolatility(history []Snapshot) float64 {
	if len(history) < 2 {
		return 0
	}
	var values []float64
	for _, snap := range history {
		for _, q := range snap.Quotes {
			values = append(values, q.LastPrice)
		}
	}
	if len(values) < 2 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)-1))
}

func cloneQuotes(quotes []domain.PriceQuote) []domain.PriceQuote {
	out := make([]domain.PriceQuote, len(quotes))
	copy(out, quotes)
	return out
}

func copyState(st *MarketState) MarketState {
	cp := *st
	cp.LatestQuotes = cloneQuotes(st.LatestQuotes)
	cp.History = make([]Snapshot, len(st.History))
	for i, snap := range st.History {
		cp.History[i] = Snapshot{Quotes: cloneQuotes(snap.Quotes), ObservedAt: snap.ObservedAt}
	}
	return cp
}
