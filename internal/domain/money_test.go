package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyFromDecimalRoundsHalfEven(t *testing.T) {
	assert.Equal(t, Money(1002), MoneyFromDecimal(decimal.RequireFromString("10.025")))
	assert.Equal(t, Money(1004), MoneyFromDecimal(decimal.RequireFromString("10.035")))
	assert.Equal(t, Money(-150), MoneyFromDecimal(decimal.RequireFromString("-1.5")))
}

func TestMoneyJSON(t *testing.T) {
	payload, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{Amount: 1999})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount": 19.99}`, string(payload))

	var back struct {
		Amount Money `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount": 5}`), &back))
	assert.Equal(t, Money(500), back.Amount)
}
