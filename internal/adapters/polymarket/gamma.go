package polymarket

// gamma.go — Gamma API adapter: listado de mercados y metadata.

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/domain"
)

const marketsPath = "/markets"

// GetMarkets devuelve una página de mercados activos.
func (c *Client) GetMarkets(ctx context.Context, limit, offset int) ([]domain.Market, error) {
	if limit <= 0 {
		limit = 50
	}
	url := fmt.Sprintf("%s%s?limit=%d&offset=%d&active=true&closed=false",
		c.gammaBase, marketsPath, limit, offset)

	var resp []gammaMarket
	if err := c.get(ctx, c.gammaLimiter, url, &resp); err != nil {
		return nil, fmt.Errorf("polymarket.GetMarkets: %w", err)
	}

	markets := c.mapMarkets(resp)
	slog.Debug("markets fetched", "count", len(markets), "offset", offset)
	return markets, nil
}

// GetMarket devuelve un mercado por su id.
func (c *Client) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	url := fmt.Sprintf("%s%s/%s", c.gammaBase, marketsPath, id)

	var resp gammaMarket
	if err := c.get(ctx, c.gammaLimiter, url, &resp); err != nil {
		return domain.Market{}, fmt.Errorf("polymarket.GetMarket %s: %w", id, err)
	}

	market, tokens := mapMarket(resp)
	c.rememberTokens(market.ID, tokens)
	return market, nil
}

// GetTrendingMarkets devuelve los mercados con más volumen.
func (c *Client) GetTrendingMarkets(ctx context.Context, limit int) ([]domain.Market, error) {
	if limit <= 0 {
		limit = 10
	}
	url := fmt.Sprintf("%s%s?limit=%d&active=true&closed=false&order=volumeNum&ascending=false",
		c.gammaBase, marketsPath, limit)

	var resp []gammaMarket
	if err := c.get(ctx, c.gammaLimiter, url, &resp); err != nil {
		return nil, fmt.Errorf("polymarket.GetTrendingMarkets: %w", err)
	}
	return c.mapMarkets(resp), nil
}

// HealthCheck devuelve true si Gamma responde a una consulta mínima.
func (c *Client) HealthCheck(ctx context.Context) bool {
	url := fmt.Sprintf("%s%s?limit=1", c.gammaBase, marketsPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// mapMarkets convierte los DTOs y registra los token ids de cada mercado.
func (c *Client) mapMarkets(raw []gammaMarket) []domain.Market {
	markets := make([]domain.Market, 0, len(raw))
	for _, r := range raw {
		m, tokens := mapMarket(r)
		if len(m.Outcomes) < 2 {
			slog.Debug("skipping market without outcomes", "market", r.ID)
			continue
		}
		c.rememberTokens(m.ID, tokens)
		markets = append(markets, m)
	}
	return markets
}
