package engine

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TaxPercent is the rate applied to goods shipped to country. Unknown countries are untaxed.
func (e *Engine) TaxPercent(country string) decimal.Decimal {
	return e.taxes[strings.ToUpper(country)]
}

// TaxShipping reports whether shipping is taxed at the same rate.
func (e *Engine) TaxShipping() bool {
	return e.rules.Tax.ApplyToShipping
}
