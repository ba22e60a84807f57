package polymarket

// clob.go — CLOB API adapter: books batch → PriceQuotes.
//
// GetMarketPrices usa los token ids cacheados por el último fetch de mercados;
// si el mercado no se ha visto aún, cae a GetMarket para poblarlos.

import (
	"context"
	"fmt"
	"time"

	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/domain"
)

const booksPath = "/books"

// GetMarketPrices devuelve las cotizaciones actuales de todos los outcomes
// del mercado, una por token CLOB.
func (c *Client) GetMarketPrices(ctx context.Context, marketID string) ([]domain.PriceQuote, error) {
	tokens := c.tokensFor(marketID)
	if len(tokens) == 0 {
		if _, err := c.GetMarket(ctx, marketID); err != nil {
			return nil, fmt.Errorf("polymarket.GetMarketPrices: resolve tokens: %w", err)
		}
		tokens = c.tokensFor(marketID)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("polymarket.GetMarketPrices: no CLOB tokens for market %s", marketID)
	}

	body := make([]orderBookRequest, len(tokens))
	for i, t := range tokens {
		body[i] = orderBookRequest{TokenID: t.TokenID}
	}

	var resp []orderBookResponse
	if err := c.post(ctx, c.booksLimiter, c.clobBase+booksPath, body, &resp); err != nil {
		return nil, fmt.Errorf("polymarket.GetMarketPrices: POST /books: %w", err)
	}

	books := make(map[string]orderBookResponse, len(resp))
	for _, b := range resp {
		books[b.AssetID] = b
	}

	now := time.Now().UTC()
	quotes := make([]domain.PriceQuote, 0, len(tokens))
	for _, t := range tokens {
		book, ok := books[t.TokenID]
		if !ok {
			continue // token sin book en esta respuesta — se omite el outcome
		}
		q := domain.PriceQuote{
			MarketID:   marketID,
			Outcome:    t.Outcome,
			ObservedAt: now,
		}
		if len(book.Bids) > 0 {
			q.BidPrice = parsePrice(book.Bids[0].Price)
		}
		if len(book.Asks) > 0 {
			q.AskPrice = parsePrice(book.Asks[0].Price)
		}
		// El CLOB no expone last trade en /books; usamos el midpoint como proxy.
		q.LastPrice = q.Midpoint()
		quotes = append(quotes, q)
	}
	return quotes, nil
}
