package engine

import (
	"github.com/shopspring/decimal"

	"vsbridge/internal/config"
	"vsbridge/internal/domain"
)

// ShippingRates collects the carrier methods offered for cart when shipped to country.
// subtotal is the discounted subtotal used for free-shipping thresholds.
func (e *Engine) ShippingRates(cart *domain.Cart, country string, subtotal domain.Money) []domain.ShippingRate {
	if country == "" {
		return nil
	}
	qty := 0
	for _, it := range cart.VisibleItems() {
		if !it.IsVirtual {
			qty += it.Qty
		}
	}
	var rates []domain.ShippingRate
	for _, carrier := range e.rules.Carriers {
		if !carrier.Active {
			continue
		}
		if len(carrier.Countries) > 0 && !containsFold(carrier.Countries, country) {
			continue
		}
		free := !carrier.FreeAbove.IsZero() && !subtotal.Decimal().LessThan(carrier.FreeAbove)
		for _, m := range carrier.Methods {
			if !carrier.FreeAbove.IsZero() && !free {
				continue
			}
			price := methodPrice(m, qty)
			if free {
				price = 0
			}
			rates = append(rates, domain.ShippingRate{
				CarrierCode:  carrier.Code,
				Method:       m.Code,
				CarrierTitle: carrier.Title,
				MethodTitle:  m.Title,
				Amount:       price,
				Price:        price,
				Available:    true,
			})
		}
	}
	return rates
}

// ShippingRate finds the rate with the effective code carrier_method.
func (e *Engine) ShippingRate(cart *domain.Cart, code, country string, subtotal domain.Money) (domain.ShippingRate, bool) {
	for _, r := range e.ShippingRates(cart, country, subtotal) {
		if r.Code() == code {
			return r, true
		}
	}
	return domain.ShippingRate{}, false
}

func methodPrice(m config.CarrierMethod, qty int) domain.Money {
	price := m.Price
	if m.Type == config.RatePerItem {
		price = price.Mul(decimal.NewFromInt(int64(qty)))
	}
	return domain.MoneyFromDecimal(price)
}
