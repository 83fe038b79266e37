package totals

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vsbridge/internal/config"
	"vsbridge/internal/domain"
	"vsbridge/internal/engine"
)

type noProducts struct{}

func (noProducts) GetBySKU(context.Context, string) (*domain.Product, error) {
	return nil, domain.ErrNotFound
}

func newAggregator(t *testing.T) *Aggregator {
	t.Helper()
	rules, err := config.LoadStoreRules("")
	require.NoError(t, err)
	return New(engine.New(rules, noProducts{}))
}

var usd = domain.Store{ID: "s1", Code: "default", BaseCurrency: "USD"}

func teeCart(country string) *domain.Cart {
	return &domain.Cart{
		ID:              "c1",
		Items:           []domain.CartItem{{ID: "i1", SKU: "A1", Name: "Tee", ProductType: domain.ProductTypeSimple, Qty: 2, PriceCents: 2000}},
		ShippingAddress: &domain.Address{ID: "a1", CountryID: country},
		ShippingMethod:  "flatrate_flatrate",
	}
}

func segmentCodes(t domain.Totals) []string {
	codes := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		codes = append(codes, s.Code)
	}
	return codes
}

func TestRecompute_CouponAndFlatRate(t *testing.T) {
	agg := newAggregator(t)
	cart := teeCart("US")
	cart.CouponCode = "save10"

	got := agg.Recompute(usd, cart)

	assert.Equal(t, domain.Money(4000), got.Subtotal)
	assert.Equal(t, domain.Money(-400), got.DiscountAmount)
	assert.Equal(t, domain.Money(3600), got.SubtotalWithDiscount)
	assert.Equal(t, domain.Money(500), got.ShippingAmount)
	assert.Equal(t, domain.Money(0), got.TaxAmount)
	assert.Equal(t, domain.Money(4100), got.GrandTotal)
	assert.Equal(t, "SAVE10", got.CouponCode)
	assert.Equal(t, "USD", got.QuoteCurrencyCode)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Qty)
	assert.Equal(t, domain.Money(400), got.Items[0].DiscountAmount)
	assert.Equal(t, "[]", got.Items[0].Options)

	assert.Equal(t, []string{"subtotal", "discount", "shipping", "tax", "grand_total"}, segmentCodes(got))
	discount, _ := got.Segment(domain.SegmentDiscount)
	assert.Equal(t, "Discount (SAVE10)", discount.Title)
	shipping, _ := got.Segment(domain.SegmentShipping)
	assert.Equal(t, "Shipping & Handling (Flat Rate - Fixed)", shipping.Title)
}

func TestRecompute_IsDeterministic(t *testing.T) {
	agg := newAggregator(t)
	cart := teeCart("DE")
	cart.CouponCode = "SAVE10"
	cart.Items[0].Options = map[string]string{"size": "M", "color": "red"}

	first := agg.Recompute(usd, cart)
	second := agg.Recompute(usd, cart.Clone())

	assert.Equal(t, first, second)
	assert.Equal(t, domain.Money(684), first.TaxAmount)
	assert.Equal(t, `{"color":"red","size":"M"}`, first.Items[0].Options)
}

func TestRecompute_VirtualCartHasNoShipping(t *testing.T) {
	agg := newAggregator(t)
	cart := teeCart("US")
	cart.Items[0].IsVirtual = true
	cart.BillingAddress = &domain.Address{CountryID: "FR"}

	got := agg.Recompute(usd, cart)

	assert.Equal(t, domain.Money(0), got.ShippingAmount)
	seg, ok := got.Segment(domain.SegmentShipping)
	require.True(t, ok)
	assert.Equal(t, domain.Money(0), seg.Value)
	assert.Equal(t, "Shipping (virtual cart)", seg.Title)
	// taxed at the billing country
	assert.Equal(t, domain.Money(800), got.TaxAmount)
}

func TestRecompute_DropsUnusableCoupon(t *testing.T) {
	agg := newAggregator(t)
	cart := teeCart("US")
	cart.Items[0].Qty = 1
	cart.Items[0].PriceCents = 1000
	cart.CouponCode = "FIVEOFF"

	got := agg.Recompute(usd, cart)

	assert.Empty(t, got.CouponCode)
	assert.Equal(t, domain.Money(0), got.DiscountAmount)
	assert.NotContains(t, segmentCodes(got), domain.SegmentDiscount)
}

func TestRecompute_FreeShippingCoupon(t *testing.T) {
	agg := newAggregator(t)
	cart := teeCart("US")
	cart.CouponCode = "SHIPFREE"

	got := agg.Recompute(usd, cart)

	assert.Equal(t, "SHIPFREE", got.CouponCode)
	assert.Equal(t, domain.Money(0), got.ShippingAmount)
	assert.Equal(t, domain.Money(4000), got.GrandTotal)
}

func TestRecompute_IgnoresHiddenChildLines(t *testing.T) {
	agg := newAggregator(t)
	parent := "i1"
	cart := &domain.Cart{Items: []domain.CartItem{
		{ID: "i1", SKU: "TEE-M", ParentSKU: "TEE", ProductType: domain.ProductTypeConfigurable, Qty: 1, PriceCents: 2500},
		{ID: "i2", SKU: "TEE-M", ProductType: domain.ProductTypeSimple, Qty: 1, PriceCents: 2500, ParentItemID: &parent},
	}}

	got := agg.Recompute(usd, cart)

	assert.Equal(t, domain.Money(2500), got.Subtotal)
	assert.Equal(t, 1, got.ItemsQty)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "TEE", got.Items[0].ParentSKU)
}
