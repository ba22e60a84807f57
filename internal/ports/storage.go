package ports

import (
	"context"
	"time"

	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/domain"
)

// Storage persiste el histórico de oportunidades y trades completados.
type Storage interface {
	// SaveOpportunities hace upsert de las oportunidades detectadas en un ciclo.
	SaveOpportunities(ctx context.Context, opportunities []domain.Opportunity) error

	// SaveTrade añade un trade finalizado al histórico.
	SaveTrade(ctx context.Context, trade domain.Trade) error

	// GetOpportunityHistory devuelve las oportunidades vistas en el rango dado,
	// ordenadas por profit percentage descendente.
	GetOpportunityHistory(ctx context.Context, from, to time.Time) ([]domain.Opportunity, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
