package ports

import (
	"context"

	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/domain"
)

// Notifier presenta las oportunidades detectadas en un ciclo al usuario.
type Notifier interface {
	// Notify muestra las oportunidades ordenadas por profit.
	// En la implementación de consola, imprime una tabla formateada.
	Notify(ctx context.Context, opportunities []domain.Opportunity) error
}
