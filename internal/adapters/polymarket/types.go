package polymarket

import "encoding/json"

// DTOs de las APIs Gamma y CLOB. Solo los campos que usamos.

// gammaMarket es el shape de GET /markets de Gamma.
// Gamma devuelve los arrays de outcomes y token ids como strings JSON-encoded.
type gammaMarket struct {
	ID           string      `json:"id"`
	ConditionID  string      `json:"conditionId"`
	Question     string      `json:"question"`
	Outcomes     string      `json:"outcomes"`     // `["Yes","No"]` como string
	ClobTokenIDs string      `json:"clobTokenIds"` // ídem
	Active       bool        `json:"active"`
	Closed       bool        `json:"closed"`
	Volume       json.Number `json:"volumeNum"`
	Liquidity    json.Number `json:"liquidityNum"`
}

// marketToken asocia un token id del CLOB con su outcome.
type marketToken struct {
	TokenID string
	Outcome string
}

// orderBookRequest es un elemento del body de POST /books.
type orderBookRequest struct {
	TokenID string `json:"token_id"`
}

// orderBookResponse es el book de un token devuelto por POST /books.
type orderBookResponse struct {
	AssetID string          `json:"asset_id"`
	Bids    []bookEntryResp `json:"bids"` // ordenados mayor a menor precio
	Asks    []bookEntryResp `json:"asks"` // ordenados menor a mayor precio
}

type bookEntryResp struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}
