// Package engine is the commerce engine the checkout orchestrates: catalog and stock
// lookups, coupon rules, carrier rates, tax rates, payment method rules and gateway
// authorisation. Prices and rules come from the product repository and the store
// rules file.
package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"vsbridge/internal/config"
)

// Engine is safe for concurrent use; its rules are read-only after New.
type Engine struct {
	rules    config.StoreRules
	products ProductSource
	coupons  map[string]config.CouponRule
	taxes    map[string]decimal.Decimal
	gateway  Gateway
}

// New builds an Engine over rules and a product source.
func New(rules config.StoreRules, products ProductSource) *Engine {
	e := &Engine{
		rules:    rules,
		products: products,
		coupons:  make(map[string]config.CouponRule, len(rules.Coupons)),
		taxes:    make(map[string]decimal.Decimal, len(rules.Tax.Rates)),
	}
	for _, c := range rules.Coupons {
		e.coupons[strings.ToUpper(c.Code)] = c
	}
	for _, r := range rules.Tax.Rates {
		e.taxes[strings.ToUpper(r.Country)] = r.Percent
	}
	e.gateway = &rulesGateway{rules: rules.PaymentMethods}
	return e
}

// WithGateway replaces the payment gateway.
func (e *Engine) WithGateway(g Gateway) *Engine {
	e.gateway = g
	return e
}

// BaseCurrency is the currency every amount is expressed in.
func (e *Engine) BaseCurrency() string {
	return e.rules.Store.BaseCurrency
}

// FormatOrderReference turns a sequence value into the human order number.
func (e *Engine) FormatOrderReference(seq int64) string {
	return fmt.Sprintf("%s%08d", e.rules.OrderPrefix, seq)
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
