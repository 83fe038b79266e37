package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"vsbridge/internal/domain"
	"vsbridge/internal/service/checkout"
	"vsbridge/internal/service/quote"
)

var errNoJSON = domain.Validationf("No JSON object found in the request body")

type handlers struct {
	deps Deps
}

// addressRequest accepts both spellings of the country field the storefront uses.
type addressRequest struct {
	Firstname  string   `json:"firstname"`
	Lastname   string   `json:"lastname"`
	Company    string   `json:"company"`
	Email      string   `json:"email"`
	Street     []string `json:"street"`
	City       string   `json:"city"`
	Region     string   `json:"region"`
	RegionCode string   `json:"regionCode"`
	CountryID  string   `json:"countryId"`
	Country    string   `json:"country_id"`
	Postcode   string   `json:"postcode"`
	Telephone  string   `json:"telephone"`
}

// applyTo overlays the non-empty fields of r on base.
func (r addressRequest) applyTo(base *domain.Address) domain.Address {
	var a domain.Address
	if base != nil {
		a = base.Clone()
	}
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&a.Firstname, r.Firstname)
	set(&a.Lastname, r.Lastname)
	set(&a.Company, r.Company)
	set(&a.Email, r.Email)
	set(&a.City, r.City)
	set(&a.Region, r.Region)
	set(&a.RegionCode, r.RegionCode)
	set(&a.CountryID, r.Country)
	set(&a.CountryID, r.CountryID)
	set(&a.Postcode, r.Postcode)
	set(&a.Telephone, r.Telephone)
	if len(r.Street) > 0 {
		a.Street = append([]string(nil), r.Street...)
	}
	return a
}

func (r addressRequest) toDomain() domain.Address {
	return r.applyTo(nil)
}

type paymentRequest struct {
	Method         string          `json:"method"`
	AdditionalData json.RawMessage `json:"additional_data"`
}

// bindOptionalJSON decodes the body into dst. An empty body leaves dst untouched.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return errNoJSON
	}
	return nil
}

func (h *handlers) identity(c *gin.Context) (quote.Identity, error) {
	raw := bearerToken(c)
	if raw == "" {
		return quote.Identity{}, nil
	}
	claims, err := h.deps.Tokens.Verify(raw)
	if err != nil {
		return quote.Identity{}, domain.ErrAccessDenied
	}
	return quote.IdentityFromClaims(claims), nil
}

// cart resolves the cart addressed by the request and writes the failure itself.
func (h *handlers) cart(c *gin.Context) (domain.Store, *domain.Cart, bool) {
	store := currentStore(c)
	id, err := h.identity(c)
	if err != nil {
		fail(c, err)
		return store, nil, false
	}
	cart, err := h.deps.Carts.Resolve(c.Request.Context(), store, id, strings.TrimSpace(c.Query("cartId")))
	if err != nil {
		fail(c, err)
		return store, nil, false
	}
	return store, cart, true
}

func (h *handlers) cartCreate(c *gin.Context) {
	id, err := h.identity(c)
	if err != nil {
		fail(c, err)
		return
	}
	cart, err := h.deps.Carts.CreateOrReuse(c.Request.Context(), currentStore(c), id.CustomerID)
	if err != nil {
		fail(c, err)
		return
	}
	token, err := h.deps.Tokens.MintCart(cart.ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, token)
}

func (h *handlers) cartPull(c *gin.Context) {
	_, cart, found := h.cart(c)
	if !found {
		return
	}
	ok(c, cart.VisibleItems())
}

type cartItemRequest struct {
	CartItem *struct {
		SKU    string `json:"sku"`
		Qty    int    `json:"qty"`
		ItemID string `json:"item_id"`
	} `json:"cartItem"`
}

func (h *handlers) cartUpdate(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errNoJSON)
		return
	}
	if req.CartItem == nil {
		fail(c, domain.Validationf("No cartItem data provided!"))
		return
	}
	store, cart, found := h.cart(c)
	if !found {
		return
	}
	item, err := h.deps.Checkout.AddOrUpdateItem(c.Request.Context(), store, cart, checkout.ItemInput{
		SKU:    strings.TrimSpace(req.CartItem.SKU),
		Qty:    req.CartItem.Qty,
		ItemID: strings.TrimSpace(req.CartItem.ItemID),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, item)
}

func (h *handlers) cartDelete(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errNoJSON)
		return
	}
	if req.CartItem == nil || strings.TrimSpace(req.CartItem.ItemID) == "" {
		fail(c, domain.Validationf("No cartItem data provided!"))
		return
	}
	store, cart, found := h.cart(c)
	if !found {
		return
	}
	if err := h.deps.Checkout.RemoveItem(c.Request.Context(), store, cart, strings.TrimSpace(req.CartItem.ItemID)); err != nil {
		fail(c, err)
		return
	}
	ok(c, true)
}

func (h *handlers) applyCoupon(c *gin.Context) {
	store, cart, found := h.cart(c)
	if !found {
		return
	}
	if _, err := h.deps.Checkout.ApplyCoupon(c.Request.Context(), store, cart, c.Query("coupon")); err != nil {
		fail(c, err)
		return
	}
	ok(c, true)
}

func (h *handlers) deleteCoupon(c *gin.Context) {
	store, cart, found := h.cart(c)
	if !found {
		return
	}
	if _, err := h.deps.Checkout.ClearCoupon(c.Request.Context(), store, cart); err != nil {
		fail(c, err)
		return
	}
	ok(c, true)
}

func (h *handlers) coupon(c *gin.Context) {
	_, cart, found := h.cart(c)
	if !found {
		return
	}
	ok(c, cart.CouponCode)
}

type totalsRequest struct {
	Methods *struct {
		PaymentMethod       paymentRequest `json:"paymentMethod"`
		ShippingCarrierCode string         `json:"shippingCarrierCode"`
		ShippingMethodCode  string         `json:"shippingMethodCode"`
	} `json:"methods"`
	AddressInformation *struct {
		ShippingAddress     *addressRequest `json:"shipping_address"`
		ShippingCarrierCode string          `json:"shipping_carrier_code"`
		ShippingMethodCode  string          `json:"shipping_method_code"`
	} `json:"addressInformation"`
}

func (h *handlers) totals(c *gin.Context) {
	var req totalsRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	store, cart, found := h.cart(c)
	if !found {
		return
	}

	var in checkout.TotalsInput
	if m := req.Methods; m != nil {
		in.PaymentMethod = strings.TrimSpace(m.PaymentMethod.Method)
		in.CarrierCode = m.ShippingCarrierCode
		in.MethodCode = m.ShippingMethodCode
	}
	if ai := req.AddressInformation; ai != nil {
		if ai.ShippingMethodCode != "" {
			in.CarrierCode = ai.ShippingCarrierCode
			in.MethodCode = ai.ShippingMethodCode
		}
		if ai.ShippingAddress != nil && !cart.IsVirtual() {
			addr := ai.ShippingAddress.applyTo(cart.ShippingAddress)
			in.ShippingAddress = &addr
		}
	}

	totals, err := h.deps.Checkout.CollectTotals(c.Request.Context(), store, cart, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, totals)
}

func (h *handlers) paymentMethods(c *gin.Context) {
	store, cart, found := h.cart(c)
	if !found {
		return
	}
	ok(c, h.deps.Checkout.PaymentMethods(c.Request.Context(), store, cart))
}

func (h *handlers) shippingMethods(c *gin.Context) {
	var req struct {
		Address *addressRequest `json:"address"`
	}
	if err := bindOptionalJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	store, cart, found := h.cart(c)
	if !found {
		return
	}
	country := ""
	if req.Address != nil {
		country = req.Address.toDomain().CountryID
	}
	rates, err := h.deps.Checkout.ShippingMethods(c.Request.Context(), store, cart, country)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, rates)
}

func (h *handlers) shippingInformation(c *gin.Context) {
	var req struct {
		AddressInformation *struct {
			ShippingAddress     *addressRequest `json:"shippingAddress"`
			BillingAddress      *addressRequest `json:"billingAddress"`
			ShippingCarrierCode string          `json:"shippingCarrierCode"`
			ShippingMethodCode  string          `json:"shippingMethodCode"`
		} `json:"addressInformation"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errNoJSON)
		return
	}
	ai := req.AddressInformation
	if ai == nil || ai.ShippingAddress == nil {
		fail(c, domain.Validationf("No addressInformation.shippingAddress provided"))
		return
	}
	store, cart, found := h.cart(c)
	if !found {
		return
	}
	in := checkout.ShippingInformation{
		ShippingAddress: ai.ShippingAddress.toDomain(),
		CarrierCode:     strings.TrimSpace(ai.ShippingCarrierCode),
		MethodCode:      strings.TrimSpace(ai.ShippingMethodCode),
	}
	if ai.BillingAddress != nil {
		billing := ai.BillingAddress.toDomain()
		in.BillingAddress = &billing
	}
	totals, err := h.deps.Checkout.SetShippingInformation(c.Request.Context(), store, cart, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, totals)
}

func (h *handlers) billingInformation(c *gin.Context) {
	var req struct {
		Address *addressRequest `json:"address"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errNoJSON)
		return
	}
	if req.Address == nil {
		fail(c, domain.Validationf("No address provided"))
		return
	}
	store, cart, found := h.cart(c)
	if !found {
		return
	}
	totals, err := h.deps.Checkout.SetBillingAddress(c.Request.Context(), store, cart, req.Address.toDomain())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, totals)
}

func (h *handlers) paymentInformation(c *gin.Context) {
	var req struct {
		PaymentMethod *paymentRequest `json:"paymentMethod"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errNoJSON)
		return
	}
	if req.PaymentMethod == nil {
		fail(c, domain.Validationf("No paymentMethod provided"))
		return
	}
	store, cart, found := h.cart(c)
	if !found {
		return
	}
	totals, err := h.deps.Checkout.SetPaymentMethod(c.Request.Context(), store, cart, req.PaymentMethod.Method, req.PaymentMethod.AdditionalData)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, totals)
}
