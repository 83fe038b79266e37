package domain

import (
	"encoding/json"
	"time"
)

// Cart lifecycle states.
const (
	CartStateActive           = "active"
	CartStateSubmissionFailed = "submission_failed"
	CartStateConverted        = "converted"
)

// Cart is a customer's or guest's quote.
type Cart struct {
	ID                string     `json:"id"`
	StoreID           string     `json:"-"`
	CustomerID        *string    `json:"customer_id,omitempty"`
	IsGuest           bool       `json:"customer_is_guest"`
	State             string     `json:"state"`
	Version           int        `json:"-"`
	CustomerEmail     string     `json:"customer_email,omitempty"`
	CustomerFirstname string     `json:"customer_firstname,omitempty"`
	CustomerLastname  string     `json:"customer_lastname,omitempty"`
	CouponCode        string     `json:"coupon_code,omitempty"`
	ShippingAddress   *Address   `json:"shipping_address,omitempty"`
	BillingAddress    *Address   `json:"billing_address,omitempty"`
	ShippingMethod    string     `json:"shipping_method,omitempty"`
	Payment           Payment    `json:"payment"`
	ReservedOrderID   string     `json:"reserved_order_id,omitempty"`
	Items             []CartItem `json:"items"`
	Totals            Totals     `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Payment is the payment slot of a cart. AdditionalData is passed through untouched.
type Payment struct {
	Method         string          `json:"method,omitempty"`
	AdditionalData json.RawMessage `json:"additional_data,omitempty"`
}

// CartItem is one line of a cart. Children of configurable products are hidden lines
// pointing at their parent through ParentItemID.
type CartItem struct {
	ID           string            `json:"item_id"`
	CartID       string            `json:"quote_id"`
	ProductID    string            `json:"product_id,omitempty"`
	SKU          string            `json:"sku"`
	Name         string            `json:"name"`
	ProductType  string            `json:"product_type"`
	Qty          int               `json:"qty"`
	PriceCents   int64             `json:"-"`
	ParentItemID *string           `json:"-"`
	ParentSKU    string            `json:"parentSku,omitempty"`
	IsVirtual    bool              `json:"-"`
	IsRecurring  bool              `json:"-"`
	Options      map[string]string `json:"options,omitempty"`
	CreatedAt    time.Time         `json:"-"`
}

// Price is the unit price of the line.
func (i CartItem) Price() Money { return Money(i.PriceCents) }

// RowTotal is unit price times quantity.
func (i CartItem) RowTotal() Money { return Money(i.PriceCents * int64(i.Qty)) }

// Visible reports whether the line is shown to the client.
func (i CartItem) Visible() bool { return i.ParentItemID == nil }

// IsConverted reports whether the cart already became an order.
func (c *Cart) IsConverted() bool { return c.State == CartStateConverted }

// VisibleItems returns the lines that are not children of another line.
func (c *Cart) VisibleItems() []CartItem {
	out := make([]CartItem, 0, len(c.Items))
	for _, it := range c.Items {
		if it.Visible() {
			out = append(out, it)
		}
	}
	return out
}

// IsVirtual is true when the cart has items and none of them needs shipping.
func (c *Cart) IsVirtual() bool {
	visible := c.VisibleItems()
	if len(visible) == 0 {
		return false
	}
	for _, it := range visible {
		if !it.IsVirtual {
			return false
		}
	}
	return true
}

// HasRecurringItems reports whether any line is a subscription product.
func (c *Cart) HasRecurringItems() bool {
	for _, it := range c.Items {
		if it.IsRecurring {
			return true
		}
	}
	return false
}

// ItemIndex returns the position of the line with the given id.
func (c *Cart) ItemIndex(id string) int {
	for i, it := range c.Items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// OwnedBy reports whether the cart is bound to the given customer.
func (c *Cart) OwnedBy(customerID string) bool {
	return c.CustomerID != nil && *c.CustomerID == customerID
}

// Clone returns a deep copy of the cart.
func (c *Cart) Clone() *Cart {
	out := *c
	if c.CustomerID != nil {
		id := *c.CustomerID
		out.CustomerID = &id
	}
	if c.ShippingAddress != nil {
		a := c.ShippingAddress.Clone()
		out.ShippingAddress = &a
	}
	if c.BillingAddress != nil {
		a := c.BillingAddress.Clone()
		out.BillingAddress = &a
	}
	if c.Payment.AdditionalData != nil {
		out.Payment.AdditionalData = append(json.RawMessage(nil), c.Payment.AdditionalData...)
	}
	out.Items = make([]CartItem, len(c.Items))
	for i, it := range c.Items {
		out.Items[i] = it.clone()
	}
	out.Totals = c.Totals.Clone()
	return &out
}

func (i CartItem) clone() CartItem {
	out := i
	if i.ParentItemID != nil {
		id := *i.ParentItemID
		out.ParentItemID = &id
	}
	if i.Options != nil {
		out.Options = make(map[string]string, len(i.Options))
		for k, v := range i.Options {
			out.Options[k] = v
		}
	}
	return out
}
