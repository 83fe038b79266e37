package engine

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vsbridge/internal/config"
	"vsbridge/internal/domain"
)

type stubProducts map[string]*domain.Product

func (s stubProducts) GetBySKU(_ context.Context, sku string) (*domain.Product, error) {
	p, ok := s[sku]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	rules, err := config.LoadStoreRules("")
	require.NoError(t, err)
	return New(rules, stubProducts{
		"A1": {ID: "p-a1", SKU: "A1", Name: "Tee", Type: domain.ProductTypeSimple, PriceCents: 2000, ManageStock: true, StockQty: 3, InStock: true},
	})
}

func physicalCart(qty int, country string) *domain.Cart {
	return &domain.Cart{
		Items:          []domain.CartItem{{ID: "i1", SKU: "A1", Qty: qty, PriceCents: 2000}},
		BillingAddress: &domain.Address{CountryID: country},
	}
}

func TestProductLookupAndStock(t *testing.T) {
	e := newTestEngine(t)

	p, err := e.Product(context.Background(), "A1")
	require.NoError(t, err)
	assert.NoError(t, e.CheckStock(p, 3))
	assert.ErrorIs(t, e.CheckStock(p, 4), domain.ErrOutOfStock)

	_, err = e.Product(context.Background(), "NOPE")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestCouponRules(t *testing.T) {
	e := newTestEngine(t)

	c, ok := e.Coupon("save10", 4000)
	require.True(t, ok)
	assert.Equal(t, "SAVE10", c.Code())
	assert.Equal(t, []domain.Money{400, 105}, c.Discounts([]domain.Money{4000, 1050}))

	_, ok = e.Coupon("FIVEOFF", 1999)
	assert.False(t, ok, "below minimum subtotal")

	fixed, ok := e.Coupon("FIVEOFF", 3000)
	require.True(t, ok)
	assert.Equal(t, []domain.Money{333, 167}, fixed.Discounts([]domain.Money{2000, 1000}))

	_, ok = e.Coupon("UNKNOWN", 10000)
	assert.False(t, ok)
}

func TestShippingRates(t *testing.T) {
	e := newTestEngine(t)
	cart := physicalCart(2, "US")

	rates := e.ShippingRates(cart, "US", 4000)
	codes := make([]string, 0, len(rates))
	for _, r := range rates {
		codes = append(codes, r.Code())
	}
	assert.Equal(t, []string{"flatrate_flatrate", "ups_ground", "ups_express"}, codes)

	ground, ok := e.ShippingRate(cart, "ups_ground", "US", 4000)
	require.True(t, ok)
	assert.Equal(t, domain.Money(500), ground.Amount)

	rates = e.ShippingRates(cart, "DE", 4000)
	require.Len(t, rates, 1)
	assert.Equal(t, "flatrate_flatrate", rates[0].Code())

	free, ok := e.ShippingRate(cart, "freeshipping_freeshipping", "DE", 10000)
	require.True(t, ok)
	assert.Equal(t, domain.Money(0), free.Amount)

	assert.Empty(t, e.ShippingRates(cart, "", 4000))
}

func TestAvailablePaymentMethods(t *testing.T) {
	e := newTestEngine(t)

	codes := func(ms []domain.PaymentMethod) string {
		out := make([]string, 0, len(ms))
		for _, m := range ms {
			out = append(out, m.Code)
		}
		return strings.Join(out, ",")
	}

	assert.Equal(t, "checkmo,cashondelivery,braintree", codes(e.AvailablePaymentMethods(physicalCart(1, "US"), 2500, 2000)))
	assert.Equal(t, "checkmo,braintree", codes(e.AvailablePaymentMethods(physicalCart(1, "DE"), 2500, 2000)))
	assert.Equal(t, "checkmo,braintree", codes(e.AvailablePaymentMethods(physicalCart(1, "US"), 60000, 55000)), "cash on delivery is capped")

	zero := physicalCart(1, "US")
	zero.Items[0].PriceCents = 0
	assert.Equal(t, "free", codes(e.AvailablePaymentMethods(zero, 0, 0)))

	zero.Items[0].IsRecurring = true
	assert.Equal(t, "braintree,free", codes(e.AvailablePaymentMethods(zero, 0, 0)))
}

func TestAuthorize(t *testing.T) {
	rules, err := config.LoadStoreRules("")
	require.NoError(t, err)
	for i := range rules.PaymentMethods {
		if rules.PaymentMethods[i].Code == "braintree" {
			rules.PaymentMethods[i].Decline = true
		}
	}
	e := New(rules, stubProducts{})
	ctx := context.Background()

	ref, err := e.Authorize(ctx, "checkmo", 1000, nil)
	require.NoError(t, err)
	assert.Empty(t, ref)

	_, err = e.Authorize(ctx, "braintree", 1000, json.RawMessage(`{"nonce":"x"}`))
	assert.ErrorIs(t, err, domain.ErrPaymentDeclined)

	_, err = e.Authorize(ctx, "bitcoin", 1000, nil)
	assert.ErrorIs(t, err, domain.ErrPaymentMethodInvalid)

	approving := newTestEngine(t)
	ref, err = approving.Authorize(ctx, "braintree", 1000, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "txn_"))
}

func TestFormatOrderReference(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, "100000042", e.FormatOrderReference(42))
}
