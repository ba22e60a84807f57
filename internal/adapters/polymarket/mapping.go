package polymarket

import (
	"encoding/json"
	"strconv"

	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/domain"
)

// mapMarket convierte un gammaMarket DTO a domain.Market más sus tokens CLOB.
func mapMarket(r gammaMarket) (domain.Market, []marketToken) {
	m := domain.Market{
		ID:       r.ID,
		Question: r.Question,
		Active:   r.Active && !r.Closed,
	}
	if v, err := r.Volume.Float64(); err == nil {
		m.Volume = v
	}
	if v, err := r.Liquidity.Float64(); err == nil {
		m.Liquidity = v
	}

	m.Outcomes = decodeStringArray(r.Outcomes)
	tokenIDs := decodeStringArray(r.ClobTokenIDs)

	tokens := make([]marketToken, 0, len(tokenIDs))
	for i, id := range tokenIDs {
		outcome := ""
		if i < len(m.Outcomes) {
			outcome = m.Outcomes[i]
		}
		tokens = append(tokens, marketToken{TokenID: id, Outcome: outcome})
	}
	return m, tokens
}

// decodeStringArray parsea los arrays JSON-encoded-as-string de Gamma,
// e.g. `"[\"Yes\", \"No\"]"`. Devuelve nil si el campo no parsea.
func decodeStringArray(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

// parsePrice convierte un string de precio a float64.
func parsePrice(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
