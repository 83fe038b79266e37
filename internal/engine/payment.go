package engine

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/oklog/ulid/v2"

	"vsbridge/internal/config"
	"vsbridge/internal/domain"
)

// MethodFree is the method offered for carts that cost nothing.
const MethodFree = "free"

// AvailablePaymentMethods lists the methods cart may be paid with. grandTotal is the
// cart's current base grand total.
func (e *Engine) AvailablePaymentMethods(cart *domain.Cart, grandTotal, subtotal domain.Money) []domain.PaymentMethod {
	country := ""
	if cart.BillingAddress != nil {
		country = cart.BillingAddress.CountryID
	}
	var out []domain.PaymentMethod
	for _, rule := range e.rules.PaymentMethods {
		if !e.canUse(rule, cart, country, grandTotal, subtotal) {
			continue
		}
		out = append(out, domain.PaymentMethod{Code: rule.Code, Title: rule.Title})
	}
	return out
}

// PaymentAvailable reports whether method is one of the available methods for cart.
func (e *Engine) PaymentAvailable(cart *domain.Cart, method string, grandTotal, subtotal domain.Money) bool {
	for _, m := range e.AvailablePaymentMethods(cart, grandTotal, subtotal) {
		if m.Code == method {
			return true
		}
	}
	return false
}

func (e *Engine) canUse(rule config.PaymentRule, cart *domain.Cart, country string, grandTotal, subtotal domain.Money) bool {
	if !rule.Active {
		return false
	}
	if subtotal == 0 {
		// zero-value carts can only be "paid" with free or, for subscriptions, a recurring-capable method
		if rule.Code != MethodFree && !(rule.Recurring && cart.HasRecurringItems()) {
			return false
		}
	} else if rule.Code == MethodFree {
		return false
	}
	if !rule.Gateway && !rule.CanUseInternal {
		return false
	}
	if len(rule.Countries) > 0 && (country == "" || !containsFold(rule.Countries, country)) {
		return false
	}
	if len(rule.Currencies) > 0 && !containsFold(rule.Currencies, e.BaseCurrency()) {
		return false
	}
	total := grandTotal.Decimal()
	if !rule.MinOrderTotal.IsZero() && total.LessThan(rule.MinOrderTotal) {
		return false
	}
	if !rule.MaxOrderTotal.IsZero() && total.GreaterThan(rule.MaxOrderTotal) {
		return false
	}
	return true
}

// Gateway authorises payments. Offline methods return an empty reference.
type Gateway interface {
	Authorize(ctx context.Context, method string, amount domain.Money, additionalData json.RawMessage) (string, error)
}

// Authorize asks the gateway to authorise amount with method.
func (e *Engine) Authorize(ctx context.Context, method string, amount domain.Money, additionalData json.RawMessage) (string, error) {
	return e.gateway.Authorize(ctx, method, amount, additionalData)
}

type rulesGateway struct {
	rules []config.PaymentRule
}

func (g *rulesGateway) Authorize(ctx context.Context, method string, amount domain.Money, _ json.RawMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", domain.Externalf("payment authorisation aborted: %v", err)
	}
	for _, rule := range g.rules {
		if !strings.EqualFold(rule.Code, method) {
			continue
		}
		if !rule.Gateway {
			return "", nil
		}
		if rule.Decline {
			return "", domain.ErrPaymentDeclined
		}
		return "txn_" + ulid.Make().String(), nil
	}
	return "", domain.ErrPaymentMethodInvalid
}
