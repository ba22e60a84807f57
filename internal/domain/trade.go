package domain

import "time"

// TradeSide es la dirección de una pata de trade.
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// TradeStatus es el estado de una pata. Transiciones válidas:
// Pending → Executed | Failed | Cancelled. Los estados finales no cambian.
type TradeStatus string

const (
	TradePending   TradeStatus = "pending"
	TradeExecuted  TradeStatus = "executed"
	TradeFailed    TradeStatus = "failed"
	TradeCancelled TradeStatus = "cancelled"
)

// Final devuelve true si el estado ya no puede cambiar.
func (s TradeStatus) Final() bool {
	return s == TradeExecuted || s == TradeFailed || s == TradeCancelled
}

// Trade es una pata ejecutable derivada de una Opportunity.
// Una oportunidad puede producir 1–N trades. Solo el Executor los muta;
// los reintentos conservan el ID y se cuentan en un contador externo.
type Trade struct {
	ID         string
	MarketID   string
	Outcome    string
	Side       TradeSide
	Amount     float64 // capital en USDC
	Price      float64
	Status     TradeStatus
	CreatedAt  time.Time
	ExecutedAt *time.Time
	Profit     *float64 // ganancia realizada, si se conoce
	Error      string   // último error de submission, si hubo
	TxRef      string   // referencia de la transacción simulada/real
	DryRun     bool     // true si el trade es sintético (trading deshabilitado)
}

// Position es la posición abierta en un (marketId, outcome) del risk ledger.
// AvgPrice es el precio medio ponderado por volumen de todos los fills.
type Position struct {
	MarketID  string
	Outcome   string
	Quantity  float64
	AvgPrice  float64
	UpdatedAt time.Time
}

// Exposure devuelve el capital comprometido en la posición.
func (p Position) Exposure() float64 {
	return p.Quantity * p.AvgPrice
}
