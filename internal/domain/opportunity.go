package domain

import "time"

// Strategy identifica el tipo de arbitraje detectado.
type Strategy int

const (
	// StrategyComplementary: la suma de asks de todos los outcomes es < 1.0.
	// Comprar todos los outcomes garantiza el payout de $1.00.
	StrategyComplementary Strategy = iota
	// StrategyMispricing: book invertido (bid > ask) en un outcome individual.
	StrategyMispricing
	// StrategyTemporal: en mercados binarios, la suma de bids es > 1.0.
	// Depende de convergencia futura, no de settlement instantáneo.
	StrategyTemporal
	// StrategyCrossMarket está reservada — declarada pero sin detector activo.
	StrategyCrossMarket
)

func (s Strategy) String() string {
	switch s {
	case StrategyComplementary:
		return "complementary"
	case StrategyMispricing:
		return "mispricing"
	case StrategyTemporal:
		return "temporal"
	case StrategyCrossMarket:
		return "cross_market"
	default:
		return "unknown"
	}
}

// Opportunity es un arbitraje detectado, inmutable una vez creado.
// Los componentes downstream solo la consumen, nunca la mutan.
type Opportunity struct {
	ID       string
	MarketID string
	Question string // pregunta del mercado, solo para display
	Strategy Strategy

	BuySide  string // descripción del lado de compra
	SellSide string // descripción del lado de venta, o "none"
	Outcome  string // outcome concreto para mispricing; vacío en estrategias de basket

	BuyPrice  float64
	SellPrice float64

	ExpectedProfit   float64 // ganancia absoluta en USDC por $1 de payout
	ProfitPercentage float64 // relativa al capital requerido

	Confidence        float64 // ∈ [0,1]
	RiskScore         float64 // ∈ [0,1], menor = más seguro
	RequiredCapital   float64
	EstimatedSlippage float64

	DetectedAt time.Time
	ExpiresAt  time.Time
}

// Expired devuelve true si la oportunidad ya pasó su ExpiresAt.
func (o Opportunity) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
