package totals

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"vsbridge/internal/domain"
	"vsbridge/internal/engine"
)

// Rules is the part of the commerce engine totals depend on.
type Rules interface {
	Coupon(code string, subtotal domain.Money) (engine.Coupon, bool)
	ShippingRate(cart *domain.Cart, code, country string, subtotal domain.Money) (domain.ShippingRate, bool)
	TaxPercent(country string) decimal.Decimal
	TaxShipping() bool
}

// Aggregator computes cart totals from the store rules.
type Aggregator struct {
	rules Rules
}

// New constructs an Aggregator.
func New(rules Rules) *Aggregator {
	return &Aggregator{rules: rules}
}

var hundred = decimal.NewFromInt(100)

// Recompute derives the totals of cart. It reads nothing but its arguments, so equal
// carts always produce equal totals. An unusable coupon yields an empty CouponCode.
func (a *Aggregator) Recompute(store domain.Store, cart *domain.Cart) domain.Totals {
	visible := cart.VisibleItems()
	rows := make([]domain.Money, len(visible))
	var subtotal domain.Money
	qty := 0
	for i, it := range visible {
		rows[i] = it.RowTotal()
		subtotal += rows[i]
		qty += it.Qty
	}

	discounts := make([]domain.Money, len(visible))
	var coupon engine.Coupon
	couponApplied := false
	if cart.CouponCode != "" {
		if c, ok := a.rules.Coupon(cart.CouponCode, subtotal); ok {
			coupon = c
			couponApplied = true
			discounts = c.Discounts(rows)
		}
	}
	var discount domain.Money
	for _, d := range discounts {
		discount += d
	}
	afterDiscount := subtotal - discount

	virtual := cart.IsVirtual()
	country := taxCountry(cart, virtual)

	var shipping domain.Money
	shippingTitle := "Shipping & Handling"
	switch {
	case virtual:
		shippingTitle = "Shipping (virtual cart)"
	case cart.ShippingMethod != "" && cart.ShippingAddress != nil:
		if rate, ok := a.rules.ShippingRate(cart, cart.ShippingMethod, cart.ShippingAddress.CountryID, afterDiscount); ok {
			shipping = rate.Amount
			shippingTitle = fmt.Sprintf("Shipping & Handling (%s - %s)", rate.CarrierTitle, rate.MethodTitle)
		}
	}
	if couponApplied && coupon.FreeShipping() {
		shipping = 0
	}

	pct := a.rules.TaxPercent(country)
	rate := pct.Div(hundred)
	items := make([]domain.TotalsItem, len(visible))
	var tax domain.Money
	for i, it := range visible {
		lineTax := domain.MoneyFromDecimal((rows[i] - discounts[i]).Decimal().Mul(rate))
		tax += lineTax
		items[i] = domain.TotalsItem{
			ItemID:          it.ID,
			SKU:             it.SKU,
			Name:            it.Name,
			ProductType:     it.ProductType,
			ParentSKU:       it.ParentSKU,
			Qty:             it.Qty,
			Price:           it.Price(),
			BasePrice:       it.Price(),
			RowTotal:        rows[i],
			BaseRowTotal:    rows[i],
			DiscountAmount:  discounts[i],
			TaxPercent:      pct.InexactFloat64(),
			TaxAmount:       lineTax,
			RowTotalInclTax: rows[i] + lineTax,
			Options:         encodeOptions(it.Options),
		}
	}
	var shippingTax domain.Money
	if a.rules.TaxShipping() && shipping > 0 {
		shippingTax = domain.MoneyFromDecimal(shipping.Decimal().Mul(rate))
		tax += shippingTax
	}

	grand := afterDiscount + shipping + tax
	out := domain.Totals{
		GrandTotal:               grand,
		BaseGrandTotal:           grand,
		Subtotal:                 subtotal,
		BaseSubtotal:             subtotal,
		DiscountAmount:           -discount,
		BaseDiscountAmount:       -discount,
		SubtotalWithDiscount:     afterDiscount,
		BaseSubtotalWithDiscount: afterDiscount,
		ShippingAmount:           shipping,
		BaseShippingAmount:       shipping,
		ShippingTaxAmount:        shippingTax,
		TaxAmount:                tax,
		BaseTaxAmount:            tax,
		BaseCurrencyCode:         store.BaseCurrency,
		QuoteCurrencyCode:        store.BaseCurrency,
		ItemsQty:                 qty,
		Items:                    items,
	}
	if couponApplied {
		out.CouponCode = coupon.Code()
	}

	out.Segments = append(out.Segments, domain.TotalSegment{Code: domain.SegmentSubtotal, Title: "Subtotal", Value: subtotal})
	if discount != 0 {
		out.Segments = append(out.Segments, domain.TotalSegment{
			Code:  domain.SegmentDiscount,
			Title: fmt.Sprintf("Discount (%s)", out.CouponCode),
			Value: -discount,
		})
	}
	out.Segments = append(out.Segments,
		domain.TotalSegment{Code: domain.SegmentShipping, Title: shippingTitle, Value: shipping},
		domain.TotalSegment{Code: domain.SegmentTax, Title: "Tax", Value: tax},
		domain.TotalSegment{Code: domain.SegmentGrandTotal, Title: "Grand Total", Value: grand},
	)
	return out
}

// taxCountry is the destination used for tax: the shipping country, or the billing
// country for carts that are never shipped.
func taxCountry(cart *domain.Cart, virtual bool) string {
	if !virtual && cart.ShippingAddress != nil && cart.ShippingAddress.CountryID != "" {
		return cart.ShippingAddress.CountryID
	}
	if cart.BillingAddress != nil {
		return cart.BillingAddress.CountryID
	}
	return ""
}

func encodeOptions(opts map[string]string) string {
	if len(opts) == 0 {
		return "[]"
	}
	// map keys are emitted sorted
	raw, err := json.Marshal(opts)
	if err != nil {
		return "[]"
	}
	return string(raw)
}
