package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/adapters/httpapi"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/adapters/polymarket"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/adapters/storage"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/application/detector"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/application/executor"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/application/monitor"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/application/risk"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/application/state"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	router http.Handler
	store  *state.Store
	ledger *risk.Ledger
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	mock := polymarket.NewMockClient(4, 1)
	store := state.NewStore(100)
	ledger := risk.New(risk.Config{MaxPositionSize: 50, MaxTotalExposure: 500})
	exec := executor.New(executor.Config{TradingEnabled: false}, executor.NewSimulatedSubmitter(1.0, 1, 1), ledger)
	bus := monitor.NewBus()
	t.Cleanup(bus.Close)

	det := detector.New(detector.DefaultConfig())
	mon := monitor.New(monitor.DefaultConfig(), mock, store, det, ledger, exec, nil, nil, bus)

	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	srv := httpapi.New(":0", mock, store, ledger, exec, mon, db, false, true)
	return fixture{router: srv.Router(), store: store, ledger: ledger}
}

func get(t *testing.T, router http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	rec, body := get(t, f.router, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["mock_mode"])
	assert.Equal(t, false, body["trading_enabled"])
	assert.Equal(t, false, body["monitoring_active"])
	assert.Equal(t, true, body["exchange_reachable"])
}

func TestMarkets_Empty(t *testing.T) {
	f := newFixture(t)

	rec, body := get(t, f.router, "/api/markets")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["count"])
}

func TestMarkets_Filters(t *testing.T) {
	f := newFixture(t)

	f.store.Update(
		domain.Market{ID: "m1", Outcomes: []string{"Yes", "No"}, Liquidity: 100},
		[]domain.PriceQuote{{MarketID: "m1", Outcome: "Yes", LastPrice: 0.5}},
	)
	f.store.Update(
		domain.Market{ID: "m2", Outcomes: []string{"Yes", "No"}, Liquidity: 5000},
		[]domain.PriceQuote{{MarketID: "m2", Outcome: "Yes", LastPrice: 0.5}},
	)

	rec, body := get(t, f.router, "/api/markets?min_liquidity=1000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])

	rec, body = get(t, f.router, "/api/markets?top_volatile=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])
}

func TestMarketPrices(t *testing.T) {
	f := newFixture(t)

	market := domain.Market{ID: "m1", Question: "X?", Outcomes: []string{"Yes", "No"}, Active: true, Liquidity: 1000}
	f.store.Update(market, []domain.PriceQuote{
		{MarketID: "m1", Outcome: "Yes", BidPrice: 0.49, AskPrice: 0.51, LastPrice: 0.50},
		{MarketID: "m1", Outcome: "No", BidPrice: 0.48, AskPrice: 0.50, LastPrice: 0.49},
	})

	rec, body := get(t, f.router, "/api/markets/m1/prices")
	require.Equal(t, http.StatusOK, rec.Code)

	quotes, ok := body["quotes"].([]any)
	require.True(t, ok)
	assert.Len(t, quotes, 2)
	assert.EqualValues(t, 1, body["history_len"])

	// Mercado no seguido → 404
	rec, _ = get(t, f.router, "/api/markets/unknown/prices")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPositions(t *testing.T) {
	f := newFixture(t)

	f.ledger.RecordFill("m1", "Yes", 10, 0.5)

	rec, body := get(t, f.router, "/api/positions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])
	assert.InDelta(t, 5.0, body["total_exposure"].(float64), 1e-9)
}

func TestPendingTrades_Empty(t *testing.T) {
	f := newFixture(t)

	rec, body := get(t, f.router, "/api/trades/pending")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["count"])
}

func TestOpportunityHistory(t *testing.T) {
	f := newFixture(t)

	rec, body := get(t, f.router, "/api/opportunities/history")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["count"])

	rec, _ = get(t, f.router, "/api/opportunities/history?from=not-a-date")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrending(t *testing.T) {
	f := newFixture(t)

	rec, body := get(t, f.router, "/api/markets/trending?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["count"])
}
