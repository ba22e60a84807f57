package ports

import (
	"context"

	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/domain"
)

// Submitter envía una pata de trade al exchange.
// No hay integración real de settlement: la implementación por defecto simula
// latencia de red y éxito no determinista. Inyectable para tests.
type Submitter interface {
	// Submit intenta ejecutar la pata y devuelve la referencia de transacción.
	// Un error significa que la pata puede reintentarse.
	Submit(ctx context.Context, trade domain.Trade) (txRef string, err error)
}
