package polymarket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMarket(t *testing.T) {
	raw := gammaMarket{
		ID:           "519683",
		Question:     "Will X happen by March?",
		Active:       true,
		Closed:       false,
		Outcomes:     `["Yes", "No"]`,
		ClobTokenIDs: `["111", "222"]`,
		Volume:       json.Number("15230.5"),
		Liquidity:    json.Number("820.25"),
	}

	m, tokens := mapMarket(raw)

	assert.Equal(t, "519683", m.ID)
	assert.True(t, m.Active)
	assert.Equal(t, []string{"Yes", "No"}, m.Outcomes)
	assert.InDelta(t, 15230.5, m.Volume, 0.001)
	assert.InDelta(t, 820.25, m.Liquidity, 0.001)

	require.Len(t, tokens, 2)
	assert.Equal(t, "111", tokens[0].TokenID)
	assert.Equal(t, "Yes", tokens[0].Outcome)
	assert.Equal(t, "222", tokens[1].TokenID)
	assert.Equal(t, "No", tokens[1].Outcome)
}

func TestMapMarket_ClosedIsInactive(t *testing.T) {
	raw := gammaMarket{ID: "1", Active: true, Closed: true, Outcomes: `["Yes", "No"]`}
	m, _ := mapMarket(raw)
	assert.False(t, m.Active)
}

func TestDecodeStringArray(t *testing.T) {
	assert.Equal(t, []string{"Yes", "No"}, decodeStringArray(`["Yes", "No"]`))
	assert.Nil(t, decodeStringArray(""))
	assert.Nil(t, decodeStringArray("not json"))
}

func TestParsePrice(t *testing.T) {
	assert.InDelta(t, 0.485, parsePrice("0.485"), 1e-9)
	assert.Zero(t, parsePrice("garbage"))
}
