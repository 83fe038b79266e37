package engine

import (
	"strings"

	"github.com/shopspring/decimal"

	"vsbridge/internal/config"
	"vsbridge/internal/domain"
)

// Coupon is an applicable coupon rule.
type Coupon struct {
	rule config.CouponRule
}

// Code is the canonical spelling of the coupon.
func (c Coupon) Code() string { return c.rule.Code }

// FreeShipping reports whether the coupon waives shipping.
func (c Coupon) FreeShipping() bool { return c.rule.FreeShipping }

// Coupon returns the rule for code if it exists, is active and applies to subtotal.
func (e *Engine) Coupon(code string, subtotal domain.Money) (Coupon, bool) {
	rule, ok := e.coupons[strings.ToUpper(strings.TrimSpace(code))]
	if !ok || !rule.Active {
		return Coupon{}, false
	}
	if subtotal.Decimal().LessThan(rule.MinSubtotal) {
		return Coupon{}, false
	}
	return Coupon{rule: rule}, true
}

// Discounts splits the coupon discount across line totals. Percent coupons are
// rounded per line; fixed coupons are capped at the subtotal and spread
// proportionally with the remainder on the last line.
func (c Coupon) Discounts(rows []domain.Money) []domain.Money {
	out := make([]domain.Money, len(rows))
	if len(rows) == 0 {
		return out
	}
	switch c.rule.Type {
	case config.CouponPercent:
		pct := c.rule.Amount.Div(decimal.NewFromInt(100))
		for i, row := range rows {
			out[i] = domain.MoneyFromDecimal(row.Decimal().Mul(pct))
		}
	case config.CouponFixed:
		var subtotal domain.Money
		for _, row := range rows {
			subtotal += row
		}
		if subtotal == 0 {
			return out
		}
		total := domain.MoneyFromDecimal(c.rule.Amount)
		if total > subtotal {
			total = subtotal
		}
		var spent domain.Money
		for i, row := range rows {
			if i == len(rows)-1 {
				out[i] = total - spent
				break
			}
			share := domain.MoneyFromDecimal(total.Decimal().Mul(row.Decimal()).Div(subtotal.Decimal()))
			out[i] = share
			spent += share
		}
	}
	return out
}
