package state_test

import (
	"testing"

	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/application/state"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeMarket(id string, liquidity float64) domain.Market {
	return domain.Market{
		ID:        id,
		Question:  "Will X happen?",
		Outcomes:  []string{"Yes", "No"},
		Active:    true,
		Volume:    10000,
		Liquidity: liquidity,
	}
}

func makeQuotes(marketID string, yesLast, noLast float64) []domain.PriceQuote {
	return []domain.PriceQuote{
		{MarketID: marketID, Outcome: "Yes", BidPrice: yesLast - 0.01, AskPrice: yesLast + 0.01, LastPrice: yesLast},
		{MarketID: marketID, Outcome: "No", BidPrice: noLast - 0.01, AskPrice: noLast + 0.01, LastPrice: noLast},
	}
}

func TestStore_FirstObservation(t *testing.T) {
	s := state.NewStore(10)

	st := s.Update(makeMarket("m1", 1000), makeQuotes("m1", 0.5, 0.5))

	assert.Len(t, st.History, 1)
	assert.Equal(t, 1, st.UpdateCount)
	assert.Zero(t, st.Volatility) // un solo snapshot no define volatilidad
	assert.InDelta(t, 0.02, st.AvgSpread, 1e-9)
}

func TestStore_HistoryEviction(t *testing.T) {
	s := state.NewStore(5)
	m := makeMarket("m1", 1000)

	var st state.MarketState
	for i := 0; i < 12; i++ {
		st = s.Update(m, makeQuotes("m1", 0.5, 0.5))
	}

	// FIFO: nunca más de capacity snapshots
	assert.Len(t, st.History, 5)
	assert.Equal(t, 12, st.UpdateCount)
}

func TestStore_PriceChange(t *testing.T) {
	s := state.NewStore(10)
	m := makeMarket("m1", 1000)

	s.Update(m, makeQuotes("m1", 0.50, 0.50))

	// Con un solo snapshot no hay cambio definido
	_, ok := s.PriceChange("m1", "Yes")
	assert.False(t, ok)

	s.Update(m, makeQuotes("m1", 0.55, 0.45))

	change, ok := s.PriceChange("m1", "Yes")
	require.True(t, ok)
	assert.InDelta(t, 0.05, change, 1e-9)

	pct, ok := s.PriceChangePercent("m1", "Yes")
	require.True(t, ok)
	assert.InDelta(t, 10.0, pct, 1e-9)

	pct, ok = s.PriceChangePercent("m1", "No")
	require.True(t, ok)
	assert.InDelta(t, -10.0, pct, 1e-9)
}

func TestStore_PriceChangePercent_ZeroPrior(t *testing.T) {
	s := state.NewStore(10)
	m := makeMarket("m1", 1000)

	s.Update(m, makeQuotes("m1", 0.0, 1.0))
	s.Update(m, makeQuotes("m1", 0.1, 0.9))

	// División por cero: el cambio porcentual queda indefinido
	_, ok := s.PriceChangePercent("m1", "Yes")
	assert.False(t, ok)

	// El cambio absoluto sí está definido
	change, ok := s.PriceChange("m1", "Yes")
	require.True(t, ok)
	assert.InDelta(t, 0.1, change, 1e-9)
}

func TestStore_PriceChange_MissingOutcome(t *testing.T) {
	s := state.NewStore(10)
	m := makeMarket("m1", 1000)

	s.Update(m, makeQuotes("m1", 0.5, 0.5))
	s.Update(m, makeQuotes("m1", 0.6, 0.4))

	_, ok := s.PriceChange("m1", "Maybe")
	assert.False(t, ok)

	_, ok = s.PriceChange("unknown", "Yes")
	assert.False(t, ok)
}

func TestStore_Volatility(t *testing.T) {
	s := state.NewStore(10)
	m := makeMarket("m1", 1000)

	s.Update(m, makeQuotes("m1", 0.5, 0.5))
	st := s.Update(m, makeQuotes("m1", 0.5, 0.5))

	// Precios constantes → volatilidad cero
	assert.Zero(t, st.Volatility)

	st = s.Update(m, makeQuotes("m1", 0.9, 0.1))
	assert.Greater(t, st.Volatility, 0.0)
}

func TestStore_TopByVolatility(t *testing.T) {
	s := state.NewStore(10)

	// m1 estable, m2 volátil
	s.Update(makeMarket("m1", 1000), makeQuotes("m1", 0.5, 0.5))
	s.Update(makeMarket("m1", 1000), makeQuotes("m1", 0.5, 0.5))
	s.Update(makeMarket("m2", 1000), makeQuotes("m2", 0.2, 0.8))
	s.Update(makeMarket("m2", 1000), makeQuotes("m2", 0.8, 0.2))

	top := s.TopByVolatility(2)
	require.Len(t, top, 2)
	assert.Equal(t, "m2", top[0].Market.ID)
	assert.Equal(t, "m1", top[1].Market.ID)

	top = s.TopByVolatility(1)
	require.Len(t, top, 1)
	assert.Equal(t, "m2", top[0].Market.ID)
}

func TestStore_FilterByLiquidity(t *testing.T) {
	s := state.NewStore(10)
	s.Update(makeMarket("m1", 100), makeQuotes("m1", 0.5, 0.5))
	s.Update(makeMarket("m2", 5000), makeQuotes("m2", 0.5, 0.5))

	liquid := s.FilterByLiquidity(1000)
	require.Len(t, liquid, 1)
	assert.Equal(t, "m2", liquid[0].Market.ID)

	assert.Len(t, s.FilterByLiquidity(0), 2)
}

func TestStore_RemoveMarket(t *testing.T) {
	s := state.NewStore(10)
	s.Update(makeMarket("m1", 1000), makeQuotes("m1", 0.5, 0.5))

	s.RemoveMarket("m1")
	_, ok := s.Get("m1")
	assert.False(t, ok)

	// Idempotente
	s.RemoveMarket("m1")
	assert.Empty(t, s.Markets())
}

func TestStore_ReturnedStateIsCopy(t *testing.T) {
	s := state.NewStore(10)
	st := s.Update(makeMarket("m1", 1000), makeQuotes("m1", 0.5, 0.5))

	st.LatestQuotes[0].LastPrice = 0.99
	st.History[0].Quotes[0].LastPrice = 0.99

	fresh, ok := s.Get("m1")
	require.True(t, ok)
	assert.InDelta(t, 0.5, fresh.LatestQuotes[0].LastPrice, 1e-9)
	assert.InDelta(t, 0.5, fresh.History[0].Quotes[0].LastPrice, 1e-9)
}
