package polymarket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/adapters/polymarket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gammaMarketsJSON = `[
  {
    "id": "100",
    "conditionId": "0xaaa",
    "question": "Will X happen?",
    "outcomes": "[\"Yes\", \"No\"]",
    "clobTokenIds": "[\"tok-yes\", \"tok-no\"]",
    "active": true,
    "closed": false,
    "volumeNum": 12500.5,
    "liquidityNum": 900.25
  },
  {
    "id": "101",
    "conditionId": "0xbbb",
    "question": "Broken market",
    "outcomes": "",
    "clobTokenIds": "",
    "active": true,
    "closed": false
  }
]`

const booksJSON = `[
  {
    "asset_id": "tok-yes",
    "bids": [{"price": "0.47", "size": "100"}, {"price": "0.46", "size": "50"}],
    "asks": [{"price": "0.48", "size": "80"}]
  },
  {
    "asset_id": "tok-no",
    "bids": [{"price": "0.50", "size": "120"}],
    "asks": [{"price": "0.51", "size": "90"}]
  }
]`

func TestGetMarkets(t *testing.T) {
	gamma := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("active"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(gammaMarketsJSON))
	}))
	defer gamma.Close()

	client := polymarket.NewClient("", gamma.URL)
	markets, err := client.GetMarkets(context.Background(), 50, 0)
	require.NoError(t, err)

	// El mercado sin outcomes se descarta
	require.Len(t, markets, 1)
	m := markets[0]
	assert.Equal(t, "100", m.ID)
	assert.Equal(t, []string{"Yes", "No"}, m.Outcomes)
	assert.True(t, m.Active)
	assert.InDelta(t, 12500.5, m.Volume, 0.001)
}

func TestGetMarkets_ClientError(t *testing.T) {
	gamma := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer gamma.Close()

	client := polymarket.NewClient("", gamma.URL)
	_, err := client.GetMarkets(context.Background(), 50, 0)
	assert.Error(t, err)
}

func TestGetMarketPrices(t *testing.T) {
	gamma := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(gammaMarketsJSON))
	}))
	defer gamma.Close()

	clob := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/books", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(booksJSON))
	}))
	defer clob.Close()

	client := polymarket.NewClient(clob.URL, gamma.URL)

	// Poblar el cache de tokens con un fetch de mercados
	_, err := client.GetMarkets(context.Background(), 50, 0)
	require.NoError(t, err)

	quotes, err := client.GetMarketPrices(context.Background(), "100")
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	yes := quotes[0]
	assert.Equal(t, "Yes", yes.Outcome)
	assert.InDelta(t, 0.47, yes.BidPrice, 1e-9) // mejor bid
	assert.InDelta(t, 0.48, yes.AskPrice, 1e-9)
	assert.InDelta(t, 0.475, yes.LastPrice, 1e-9) // midpoint como proxy

	no := quotes[1]
	assert.Equal(t, "No", no.Outcome)
	assert.InDelta(t, 0.50, no.BidPrice, 1e-9)
	assert.InDelta(t, 0.51, no.AskPrice, 1e-9)
}

func TestGetMarketPrices_UnknownMarket(t *testing.T) {
	gamma := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer gamma.Close()

	client := polymarket.NewClient("", gamma.URL)
	_, err := client.GetMarketPrices(context.Background(), "nope")
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	gamma := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer gamma.Close()

	client := polymarket.NewClient("", gamma.URL)
	assert.True(t, client.HealthCheck(context.Background()))

	gamma.Close()
	assert.False(t, client.HealthCheck(context.Background()))
}
