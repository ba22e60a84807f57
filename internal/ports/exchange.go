package ports

import (
	"context"

	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/domain"
)

// Exchange obtiene mercados y precios de la API de Polymarket.
// La implementación real y la mock se seleccionan por configuración al construir.
type Exchange interface {
	// GetMarkets devuelve una página de mercados activos.
	GetMarkets(ctx context.Context, limit, offset int) ([]domain.Market, error)

	// GetMarket devuelve un mercado por su id.
	GetMarket(ctx context.Context, id string) (domain.Market, error)

	// GetMarketPrices devuelve las cotizaciones actuales de todos los outcomes
	// de un mercado.
	GetMarketPrices(ctx context.Context, marketID string) ([]domain.PriceQuote, error)

	// GetTrendingMarkets devuelve los mercados con más volumen.
	GetTrendingMarkets(ctx context.Context, limit int) ([]domain.Market, error)

	// HealthCheck devuelve true si la API responde.
	HealthCheck(ctx context.Context) bool
}
