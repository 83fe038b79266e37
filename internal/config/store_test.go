package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStoreRulesDefaults(t *testing.T) {
	rules, err := LoadStoreRules("")
	require.NoError(t, err)

	assert.Equal(t, "USD", rules.Store.BaseCurrency)
	require.NotEmpty(t, rules.Carriers)
	assert.Equal(t, "flatrate", rules.Carriers[0].Code)
	assert.True(t, rules.Carriers[0].Methods[0].Price.Equal(decimal.RequireFromString("5")))
	assert.Equal(t, RatePerOrder, rules.Carriers[0].Methods[0].Type)
}

func TestParseStoreRulesRejectsUnknownCouponType(t *testing.T) {
	_, err := ParseStoreRules([]byte(`
store: {base_currency: eur}
coupons:
  - code: BAD
    type: bogus
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type")
}

func TestParseStoreRulesDefaultsMethodType(t *testing.T) {
	rules, err := ParseStoreRules([]byte(`
store: {base_currency: eur}
carriers:
  - code: dhl
    methods:
      - code: std
        price: 3
`))
	require.NoError(t, err)
	assert.Equal(t, "EUR", rules.Store.BaseCurrency)
	assert.Equal(t, "default", rules.Store.Code)
	assert.Equal(t, RatePerOrder, rules.Carriers[0].Methods[0].Type)
}
