// Package checkout implements the cart mutations a storefront performs before placing
// an order. Steps receive the resolved cart, mutate it, recompute its totals and
// persist both in one repository call.
package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"vsbridge/internal/domain"
	"vsbridge/internal/logging"
	cartrepo "vsbridge/internal/repository/cart"
)

// Engine is the commerce engine surface used by checkout steps.
type Engine interface {
	Product(ctx context.Context, sku string) (*domain.Product, error)
	CheckStock(p *domain.Product, qty int) error
	ShippingRates(cart *domain.Cart, country string, subtotal domain.Money) []domain.ShippingRate
	AvailablePaymentMethods(cart *domain.Cart, grandTotal, subtotal domain.Money) []domain.PaymentMethod
}

// Recomputer derives totals for a cart.
type Recomputer interface {
	Recompute(store domain.Store, cart *domain.Cart) domain.Totals
}

// Observer records step outcomes.
type Observer interface {
	ObserveStep(step string, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveStep(string, time.Duration, error) {}

type Service struct {
	carts   cartrepo.Repository
	engine  Engine
	totals  Recomputer
	metrics Observer
	logger  *log.Entry
}

// New constructs a Service. metrics may be nil.
func New(carts cartrepo.Repository, engine Engine, totals Recomputer, metrics Observer, logger *log.Entry) *Service {
	if metrics == nil {
		metrics = nopObserver{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		carts:   carts,
		engine:  engine,
		totals:  totals,
		metrics: metrics,
		logger:  logger.WithField("component", "checkout"),
	}
}

// ItemInput identifies the line to add or update. ItemID takes precedence over SKU.
type ItemInput struct {
	SKU    string
	Qty    int
	ItemID string
}

// ShippingInformation is the combined shipping step of the storefront.
type ShippingInformation struct {
	ShippingAddress domain.Address
	BillingAddress  *domain.Address
	CarrierCode     string
	MethodCode      string
}

// TotalsInput carries the optional selections a totals request may make.
type TotalsInput struct {
	ShippingAddress *domain.Address
	CarrierCode     string
	MethodCode      string
	PaymentMethod   string
}

func (in TotalsInput) empty() bool {
	return in.ShippingAddress == nil && in.CarrierCode == "" && in.MethodCode == "" && in.PaymentMethod == ""
}

func (s *Service) observe(step string, cart *domain.Cart, started time.Time, err error) {
	s.metrics.ObserveStep(step, time.Since(started), err)
	if err == nil {
		return
	}
	entry := s.logger.WithFields(log.Fields{"operation": step, "cart_id": cart.ID}).WithError(err)
	switch domain.Kind(err) {
	case domain.ErrValidation, domain.ErrNotFound, domain.ErrNotAuthorized:
		entry.Info("checkout step rejected")
	default:
		entry.Error("checkout step failed")
	}
}

// persist recomputes totals, drops a coupon the engine no longer accepts and saves.
func (s *Service) persist(ctx context.Context, store domain.Store, cart *domain.Cart) (*domain.Totals, error) {
	totals := s.totals.Recompute(store, cart)
	cart.CouponCode = totals.CouponCode
	cart.Totals = totals
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return &totals, nil
}

func writable(cart *domain.Cart) error {
	if cart.IsConverted() {
		return domain.ErrCartConverted
	}
	return nil
}

// AddOrUpdateItem sets the quantity of an existing line, matched by item id or SKU, or
// appends a new one. Quantities below one are raised to one, so repeating a call
// leaves the cart unchanged.
func (s *Service) AddOrUpdateItem(ctx context.Context, store domain.Store, cart *domain.Cart, in ItemInput) (item *domain.CartItem, err error) {
	defer func(started time.Time) { s.observe("add_item", cart, started, err) }(time.Now())

	if err := writable(cart); err != nil {
		return nil, err
	}
	qty := max(1, in.Qty)
	sku := strings.TrimSpace(in.SKU)

	idx := -1
	switch {
	case in.ItemID != "":
		idx = cart.ItemIndex(in.ItemID)
		if idx < 0 || !cart.Items[idx].Visible() {
			return nil, domain.ErrItemNotFound
		}
	case sku != "":
		for i, it := range cart.Items {
			if it.Visible() && it.SKU == sku {
				idx = i
				break
			}
		}
	default:
		return nil, domain.Validationf("cartItem.sku is required")
	}

	if idx >= 0 {
		line := &cart.Items[idx]
		p, err := s.engine.Product(ctx, line.SKU)
		if err != nil {
			return nil, err
		}
		if err := s.engine.CheckStock(p, qty); err != nil {
			return nil, err
		}
		line.Qty = qty
		for i := range cart.Items {
			if parent := cart.Items[i].ParentItemID; parent != nil && *parent == line.ID {
				cart.Items[i].Qty = qty
			}
		}
	} else {
		p, err := s.engine.Product(ctx, sku)
		if err != nil {
			return nil, err
		}
		if err := s.engine.CheckStock(p, qty); err != nil {
			return nil, err
		}
		idx = len(cart.Items)
		cart.Items = append(cart.Items, newLines(cart.ID, p, qty)...)
	}
	id := cart.Items[idx].ID

	if _, err := s.persist(ctx, store, cart); err != nil {
		return nil, err
	}
	saved := cart.Items[cart.ItemIndex(id)]
	return &saved, nil
}

// newLines builds the lines for a product. A child of a configurable product becomes a
// visible configurable line carrying the child SKU plus a hidden simple line.
func newLines(cartID string, p *domain.Product, qty int) []domain.CartItem {
	now := time.Now().UTC()
	line := domain.CartItem{
		ID:          uuid.NewString(),
		CartID:      cartID,
		ProductID:   p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		ProductType: p.Type,
		Qty:         qty,
		PriceCents:  p.PriceCents,
		IsVirtual:   p.IsVirtual(),
		IsRecurring: p.IsRecurring,
		CreatedAt:   now,
	}
	if p.ParentSKU == "" {
		return []domain.CartItem{line}
	}

	parent := line
	parent.ProductID = ""
	parent.ParentSKU = p.ParentSKU
	parent.ProductType = domain.ProductTypeConfigurable
	if len(p.Attributes) > 0 {
		parent.Options = make(map[string]string, len(p.Attributes))
		for k, v := range p.Attributes {
			parent.Options[k] = v
		}
	}

	child := line
	child.ID = uuid.NewString()
	parentID := parent.ID
	child.ParentItemID = &parentID
	return []domain.CartItem{parent, child}
}

// RemoveItem deletes a visible line together with its children.
func (s *Service) RemoveItem(ctx context.Context, store domain.Store, cart *domain.Cart, itemID string) (err error) {
	defer func(started time.Time) { s.observe("remove_item", cart, started, err) }(time.Now())

	if err := writable(cart); err != nil {
		return err
	}
	idx := cart.ItemIndex(itemID)
	if itemID == "" || idx < 0 || !cart.Items[idx].Visible() {
		return domain.ErrItemNotFound
	}
	kept := cart.Items[:0]
	for _, it := range cart.Items {
		if it.ID == itemID || (it.ParentItemID != nil && *it.ParentItemID == itemID) {
			continue
		}
		kept = append(kept, it)
	}
	cart.Items = kept
	_, err = s.persist(ctx, store, cart)
	return err
}

// ApplyCoupon sets the coupon code. A code the engine rejects leaves the cart untouched.
func (s *Service) ApplyCoupon(ctx context.Context, store domain.Store, cart *domain.Cart, code string) (totals *domain.Totals, err error) {
	defer func(started time.Time) { s.observe("apply_coupon", cart, started, err) }(time.Now())

	if err := writable(cart); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.Validationf("coupon code is required")
	}
	previous := cart.CouponCode
	cart.CouponCode = code
	if s.totals.Recompute(store, cart).CouponCode == "" {
		cart.CouponCode = previous
		return nil, domain.ErrInvalidCoupon
	}
	return s.persist(ctx, store, cart)
}

// ClearCoupon removes any coupon from the cart.
func (s *Service) ClearCoupon(ctx context.Context, store domain.Store, cart *domain.Cart) (totals *domain.Totals, err error) {
	defer func(started time.Time) { s.observe("clear_coupon", cart, started, err) }(time.Now())

	if err := writable(cart); err != nil {
		return nil, err
	}
	cart.CouponCode = ""
	return s.persist(ctx, store, cart)
}

func (s *Service) attachAddress(ctx context.Context, cart *domain.Cart, addr domain.Address, typ string) error {
	if strings.TrimSpace(addr.CountryID) == "" {
		return domain.Validationf("%s address country_id is required", typ)
	}
	addr.Type = typ
	addr.CountryID = strings.ToUpper(strings.TrimSpace(addr.CountryID))
	// always a new row: the stored cart keeps pointing at its previous address until
	// persist switches it, so a step failing after this leaves the cart untouched
	addr.ID = ""
	saved, err := s.carts.SaveAddress(ctx, cart.ID, addr)
	if err != nil {
		return fmt.Errorf("save %s address: %w", typ, err)
	}
	if typ == domain.AddressTypeShipping {
		cart.ShippingAddress = saved
	} else {
		cart.BillingAddress = saved
	}
	return nil
}

// fillContact copies the contact details of an address onto a cart that has none.
func fillContact(cart *domain.Cart, addr *domain.Address) {
	if cart.CustomerEmail == "" {
		cart.CustomerEmail = addr.Email
	}
	if cart.CustomerFirstname == "" {
		cart.CustomerFirstname = addr.Firstname
	}
	if cart.CustomerLastname == "" {
		cart.CustomerLastname = addr.Lastname
	}
}

// SetShippingAddress persists the address and attaches it to the cart.
func (s *Service) SetShippingAddress(ctx context.Context, store domain.Store, cart *domain.Cart, addr domain.Address) (totals *domain.Totals, err error) {
	defer func(started time.Time) { s.observe("shipping_address", cart, started, err) }(time.Now())

	if err := writable(cart); err != nil {
		return nil, err
	}
	if err := s.attachAddress(ctx, cart, addr, domain.AddressTypeShipping); err != nil {
		return nil, err
	}
	return s.persist(ctx, store, cart)
}

// SetBillingAddress persists the address and attaches it to the cart.
func (s *Service) SetBillingAddress(ctx context.Context, store domain.Store, cart *domain.Cart, addr domain.Address) (totals *domain.Totals, err error) {
	defer func(started time.Time) { s.observe("billing_address", cart, started, err) }(time.Now())

	if err := writable(cart); err != nil {
		return nil, err
	}
	if err := s.attachAddress(ctx, cart, addr, domain.AddressTypeBilling); err != nil {
		return nil, err
	}
	fillContact(cart, cart.BillingAddress)
	return s.persist(ctx, store, cart)
}

func (s *Service) applyShippingMethod(store domain.Store, cart *domain.Cart, carrier, method string) error {
	if cart.IsVirtual() {
		return nil
	}
	addr := cart.ShippingAddress
	if addr == nil || addr.ID == "" || addr.CountryID == "" {
		return domain.ErrShippingAddressMissing
	}
	if carrier == "" || method == "" {
		return domain.Validationf("shipping carrier and method codes are required")
	}
	code := domain.ShippingMethodCode(carrier, method)
	subtotal := s.totals.Recompute(store, cart).SubtotalWithDiscount
	for _, rate := range s.engine.ShippingRates(cart, addr.CountryID, subtotal) {
		if rate.Code() == code {
			cart.ShippingMethod = code
			return nil
		}
	}
	return domain.ErrShippingMethodInvalid
}

// SetShippingMethod selects carrier_method among the rates collected for the cart's
// shipping address. Virtual carts accept the call and keep shipping at zero.
func (s *Service) SetShippingMethod(ctx context.Context, store domain.Store, cart *domain.Cart, carrier, method string) (totals *domain.Totals, err error) {
	defer func(started time.Time) { s.observe("shipping_method", cart, started, err) }(time.Now())

	if err := writable(cart); err != nil {
		return nil, err
	}
	if err := s.applyShippingMethod(store, cart, carrier, method); err != nil {
		return nil, err
	}
	return s.persist(ctx, store, cart)
}

// SetShippingInformation stores the shipping address, an optional billing address and
// the shipping method in one step. Contact details missing on the cart are taken from
// the addresses.
func (s *Service) SetShippingInformation(ctx context.Context, store domain.Store, cart *domain.Cart, in ShippingInformation) (totals *domain.Totals, err error) {
	defer func(started time.Time) { s.observe("shipping_information", cart, started, err) }(time.Now())

	if err := writable(cart); err != nil {
		return nil, err
	}
	if err := s.attachAddress(ctx, cart, in.ShippingAddress, domain.AddressTypeShipping); err != nil {
		return nil, err
	}
	fillContact(cart, cart.ShippingAddress)
	if in.BillingAddress != nil {
		if err := s.attachAddress(ctx, cart, *in.BillingAddress, domain.AddressTypeBilling); err != nil {
			return nil, err
		}
		fillContact(cart, cart.BillingAddress)
	}
	if err := s.applyShippingMethod(store, cart, in.CarrierCode, in.MethodCode); err != nil {
		return nil, err
	}
	return s.persist(ctx, store, cart)
}

// SetPaymentMethod stores the payment method. Availability is checked at submission.
func (s *Service) SetPaymentMethod(ctx context.Context, store domain.Store, cart *domain.Cart, method string, additionalData json.RawMessage) (totals *domain.Totals, err error) {
	defer func(started time.Time) { s.observe("payment_method", cart, started, err) }(time.Now())

	if err := writable(cart); err != nil {
		return nil, err
	}
	method = strings.TrimSpace(method)
	if method == "" {
		return nil, domain.Validationf("paymentMethod.method is required")
	}
	cart.Payment = domain.Payment{Method: method, AdditionalData: additionalData}
	return s.persist(ctx, store, cart)
}

// CollectTotals applies the optional selections of in and returns fresh totals. Without
// selections nothing is written.
func (s *Service) CollectTotals(ctx context.Context, store domain.Store, cart *domain.Cart, in TotalsInput) (totals *domain.Totals, err error) {
	defer func(started time.Time) { s.observe("collect_totals", cart, started, err) }(time.Now())

	if in.empty() || cart.IsConverted() {
		t := s.totals.Recompute(store, cart)
		return &t, nil
	}
	if in.ShippingAddress != nil {
		if err := s.attachAddress(ctx, cart, *in.ShippingAddress, domain.AddressTypeShipping); err != nil {
			return nil, err
		}
	}
	if in.CarrierCode != "" || in.MethodCode != "" {
		if err := s.applyShippingMethod(store, cart, in.CarrierCode, in.MethodCode); err != nil {
			return nil, err
		}
	}
	if in.PaymentMethod != "" {
		cart.Payment.Method = in.PaymentMethod
	}
	return s.persist(ctx, store, cart)
}

// ShippingMethods lists the rates for the cart. A non-empty countryID first becomes the
// country of the shipping address.
func (s *Service) ShippingMethods(ctx context.Context, store domain.Store, cart *domain.Cart, countryID string) (rates []domain.ShippingRate, err error) {
	defer func(started time.Time) { s.observe("shipping_methods", cart, started, err) }(time.Now())

	countryID = strings.ToUpper(strings.TrimSpace(countryID))
	if countryID != "" && (cart.ShippingAddress == nil || cart.ShippingAddress.CountryID != countryID) {
		if err := writable(cart); err != nil {
			return nil, err
		}
		addr := domain.Address{}
		if cart.ShippingAddress != nil {
			addr = cart.ShippingAddress.Clone()
		}
		addr.CountryID = countryID
		if err := s.attachAddress(ctx, cart, addr, domain.AddressTypeShipping); err != nil {
			return nil, err
		}
		if _, err := s.persist(ctx, store, cart); err != nil {
			return nil, err
		}
	}
	if cart.ShippingAddress == nil {
		return []domain.ShippingRate{}, nil
	}
	subtotal := s.totals.Recompute(store, cart).SubtotalWithDiscount
	rates = s.engine.ShippingRates(cart, cart.ShippingAddress.CountryID, subtotal)
	if rates == nil {
		rates = []domain.ShippingRate{}
	}
	if cart.IsVirtual() {
		for i := range rates {
			rates[i].Amount = 0
			rates[i].Price = 0
		}
	}
	return rates, nil
}

// PaymentMethods lists the methods the cart may currently be paid with.
func (s *Service) PaymentMethods(_ context.Context, store domain.Store, cart *domain.Cart) []domain.PaymentMethod {
	totals := s.totals.Recompute(store, cart)
	methods := s.engine.AvailablePaymentMethods(cart, totals.BaseGrandTotal, totals.BaseSubtotal)
	if methods == nil {
		methods = []domain.PaymentMethod{}
	}
	return methods
}
