package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/application/state"
	"github.com/gin-gonic/gin"
)

// handleHealth informa del estado general del bot.
func (s *Server) handleHealth(c *gin.Context) {
	stats := s.monitor.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":              "ok",
		"exchange_reachable":  s.exchange.HealthCheck(c.Request.Context()),
		"monitoring_active":   s.monitor.Active(),
		"trading_enabled":     s.tradingEnabled,
		"mock_mode":           s.mockMode,
		"cycles":              stats.Cycles,
		"fetch_errors":        stats.FetchErrors,
		"opportunities_found": stats.OpportunitiesFound,
		"trades_executed":     stats.TradesExecuted,
	})
}

// handleMarkets lista los mercados en seguimiento con sus métricas derivadas.
// `?top_volatile=N` limita a los N más volátiles; `?min_liquidity=X` filtra
// por liquidez mínima.
func (s *Server) handleMarkets(c *gin.Context) {
	var states []state.MarketState
	switch {
	case c.Query("top_volatile") != "":
		states = s.store.TopByVolatility(intQuery(c, "top_volatile", 10))
	case c.Query("min_liquidity") != "":
		states = s.store.FilterByLiquidity(floatQuery(c, "min_liquidity", 0))
	default:
		for _, id := range s.store.Markets() {
			if st, ok := s.store.Get(id); ok {
				states = append(states, st)
			}
		}
	}

	out := make([]gin.H, 0, len(states))
	for _, st := range states {
		out = append(out, marketSummary(st))
	}
	c.JSON(http.StatusOK, gin.H{"count": len(out), "markets": out})
}

// handleTrending pide al exchange los mercados de mayor volumen.
func (s *Server) handleTrending(c *gin.Context) {
	limit := intQuery(c, "limit", 10)
	markets, err := s.exchange.GetTrendingMarkets(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(markets), "markets": markets})
}

// handleMarketPrices devuelve el estado completo de un mercado: últimas
// cotizaciones, spread medio, volatilidad y profundidad del histórico.
func (s *Server) handleMarketPrices(c *gin.Context) {
	id := c.Param("id")
	st, ok := s.store.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "market not tracked: " + id})
		return
	}

	quotes := make([]gin.H, 0, len(st.LatestQuotes))
	for _, q := range st.LatestQuotes {
		entry := gin.H{
			"outcome":    q.Outcome,
			"bid":        q.BidPrice,
			"ask":        q.AskPrice,
			"last":       q.LastPrice,
			"spread":     q.Spread(),
			"midpoint":   q.Midpoint(),
			"observedAt": q.ObservedAt,
		}
		if change, ok := s.store.PriceChangePercent(id, q.Outcome); ok {
			entry["change_pct"] = change
		}
		quotes = append(quotes, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"market":       st.Market,
		"quotes":       quotes,
		"avg_spread":   st.AvgSpread,
		"volatility":   st.Volatility,
		"history_len":  len(st.History),
		"update_count": st.UpdateCount,
		"last_update":  st.LastUpdate,
	})
}

// handlePositions devuelve las posiciones abiertas y la exposición total.
func (s *Server) handlePositions(c *gin.Context) {
	positions := s.ledger.Positions()
	c.JSON(http.StatusOK, gin.H{
		"count":          len(positions),
		"positions":      positions,
		"total_exposure": s.ledger.Exposure(),
		"total_profit":   s.executor.TotalProfit(),
		"success_rate":   s.executor.SuccessRate(),
	})
}

// handlePendingTrades devuelve los trades aún pendientes de confirmación.
func (s *Server) handlePendingTrades(c *gin.Context) {
	trades := s.executor.PendingTrades()
	c.JSON(http.StatusOK, gin.H{"count": len(trades), "trades": trades})
}

// handleOpportunityHistory consulta el histórico persistido. Rango por query
// params `hours` (default 24) o `from`/`to` RFC3339.
func (s *Server) handleOpportunityHistory(c *gin.Context) {
	if s.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage disabled"})
		return
	}

	to := time.Now().UTC()
	from := to.Add(-time.Duration(intQuery(c, "hours", 24)) * time.Hour)

	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from: " + err.Error()})
			return
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to: " + err.Error()})
			return
		}
		to = t
	}

	opps, err := s.storage.GetOpportunityHistory(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(opps), "from": from, "to": to, "opportunities": opps})
}

func marketSummary(st state.MarketState) gin.H {
	return gin.H{
		"id":          st.Market.ID,
		"question":    st.Market.Question,
		"outcomes":    st.Market.Outcomes,
		"active":      st.Market.Active,
		"volume":      st.Market.Volume,
		"liquidity":   st.Market.Liquidity,
		"avg_spread":  st.AvgSpread,
		"volatility":  st.Volatility,
		"last_update": st.LastUpdate,
	}
}

func intQuery(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func floatQuery(c *gin.Context, key string, def float64) float64 {
	v := c.Query(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
