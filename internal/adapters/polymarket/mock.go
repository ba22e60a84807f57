package polymarket

// mock.go — mock exchange para desarrollo sin red.
//
// Genera un set fijo de mercados binarios con precios que derivan con un
// random walk sembrado. Cada pocos ciclos fuerza condiciones de arbitraje
// (asks sumando < 1, o un book invertido) para ejercitar el pipeline completo.

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/domain"
)

// MockClient implementa ports.Exchange con datos sintéticos.
type MockClient struct {
	mu      sync.Mutex
	rng     *rand.Rand
	markets []domain.Market
	mids    map[string][]float64 // marketID → mid por outcome
	calls   int
}

// NewMockClient crea un mock con n mercados binarios y el seed dado.
func NewMockClient(n int, seed int64) *MockClient {
	if n <= 0 {
		n = 8
	}
	if seed == 0 {
		seed = 42
	}
	rng := rand.New(rand.NewSource(seed))

	m := &MockClient{
		rng:  rng,
		mids: make(map[string][]float64),
	}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("mock-%03d", i)
		mid := 0.2 + rng.Float64()*0.6
		m.markets = append(m.markets, domain.Market{
			ID:        id,
			Question:  fmt.Sprintf("Mock market %d resolves YES?", i),
			Outcomes:  []string{"Yes", "No"},
			Active:    true,
			Volume:    1000 + rng.Float64()*50000,
			Liquidity: 500 + rng.Float64()*20000,
		})
		m.mids[id] = []float64{mid, 1 - mid}
	}
	return m
}

// GetMarkets devuelve la página pedida del set sintético.
func (m *MockClient) GetMarkets(_ context.Context, limit, offset int) ([]domain.Market, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if offset >= len(m.markets) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(m.markets) {
		end = len(m.markets)
	}
	out := make([]domain.Market, end-offset)
	copy(out, m.markets[offset:end])
	return out, nil
}

// GetMarket devuelve un mercado por id.
func (m *MockClient) GetMarket(_ context.Context, id string) (domain.Market, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mk := range m.markets {
		if mk.ID == id {
			return mk, nil
		}
	}
	return domain.Market{}, fmt.Errorf("mock: market %s not found", id)
}

// GetMarketPrices deriva los mids con un paso de random walk y construye
// las cotizaciones. Cada ~7 llamadas fuerza un arbitraje complementario y
// cada ~11 un book invertido.
func (m *MockClient) GetMarketPrices(_ context.Context, marketID string) ([]domain.PriceQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mids, ok := m.mids[marketID]
	if !ok {
		return nil, fmt.Errorf("mock: market %s not found", marketID)
	}
	var market domain.Market
	for _, mk := range m.markets {
		if mk.ID == marketID {
			market = mk
			break
		}
	}

	m.calls++
	halfSpread := 0.005 + m.rng.Float64()*0.01

	forceComplementary := m.calls%7 == 0
	forceInverted := m.calls%11 == 0

	var midTotal float64
	for i := range mids {
		mids[i] += (m.rng.Float64() - 0.5) * 0.02
		mids[i] = clamp(mids[i], 0.02, 0.98)
		midTotal += mids[i]
	}

	now := time.Now().UTC()
	quotes := make([]domain.PriceQuote, 0, len(mids))
	for i := range mids {
		q := domain.PriceQuote{
			MarketID:   marketID,
			Outcome:    market.Outcomes[i],
			BidPrice:   clamp(mids[i]-halfSpread, 0.01, 0.99),
			AskPrice:   clamp(mids[i]+halfSpread, 0.01, 0.99),
			LastPrice:  mids[i],
			ObservedAt: now,
		}
		if forceComplementary {
			// Asks normalizados para que sumen 0.96, pase lo que pase con los mids.
			q.AskPrice = clamp(0.96*mids[i]/midTotal, 0.01, 0.99)
		}
		if forceInverted && i == 0 {
			q.BidPrice = q.AskPrice + 0.03
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

// GetTrendingMarkets devuelve los mercados de mayor volumen del set.
func (m *MockClient) GetTrendingMarkets(ctx context.Context, limit int) ([]domain.Market, error) {
	all, err := m.GetMarkets(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[j].Volume > all[i].Volume {
				all[i], all[j] = all[j], all[i]
			}
		}
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// HealthCheck siempre responde true.
func (m *MockClient) HealthCheck(context.Context) bool {
	return true
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
