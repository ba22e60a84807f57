package domain

import "time"

// Market representa un mercado de predicción multi-outcome en Polymarket.
type Market struct {
	ID        string
	Question  string
	Outcomes  []string // ≥2 labels, e.g. ["Yes", "No"]
	Active    bool
	Volume    float64 // volumen agregado en USDC
	Liquidity float64 // liquidez agregada en USDC
}

// IsBinary devuelve true si el mercado tiene exactamente dos outcomes.
func (m Market) IsBinary() bool {
	return len(m.Outcomes) == 2
}

// PriceQuote es la cotización de un outcome en un instante.
// Los precios son probabilidades implícitas: 0 ≤ bid, ask ≤ 1 en condiciones
// normales. Bid > ask es un book invertido — señal de detección, no un error.
type PriceQuote struct {
	MarketID   string
	Outcome    string
	BidPrice   float64
	AskPrice   float64
	LastPrice  float64
	ObservedAt time.Time
}

// Spread devuelve ask - bid. Negativo cuando el book está invertido.
func (q PriceQuote) Spread() float64 {
	return q.AskPrice - q.BidPrice
}

// Midpoint devuelve el punto medio entre bid y ask.
func (q PriceQuote) Midpoint() float64 {
	return (q.BidPrice + q.AskPrice) / 2
}

// Inverted devuelve true si el book está invertido (bid por encima del ask).
func (q PriceQuote) Inverted() bool {
	return q.BidPrice > q.AskPrice
}

// TruncateQuestion devuelve la pregunta del mercado truncada a maxLen caracteres.
// Si la pregunta está vacía usa los primeros caracteres del marketID como fallback.
func TruncateQuestion(question, marketID string, maxLen int) string {
	q := question
	if q == "" {
		if len(marketID) > 20 {
			q = marketID[:20] + "..."
		} else {
			q = marketID
		}
	}
	if len(q) > maxLen {
		q = q[:maxLen-3] + "..."
	}
	return q
}
