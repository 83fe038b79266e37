package domain

import (
	"encoding/json"
	"time"
)

// Order statuses.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
)

// Order is created once from a cart and never changes afterwards.
type Order struct {
	ID                    string          `json:"entity_id"`
	IncrementID           string          `json:"increment_id"`
	CartID                string          `json:"quote_id"`
	StoreID               string          `json:"-"`
	CustomerID            *string         `json:"customer_id,omitempty"`
	IsGuest               bool            `json:"customer_is_guest"`
	CustomerEmail         string          `json:"customer_email"`
	CustomerFirstname     string          `json:"customer_firstname,omitempty"`
	CustomerLastname      string          `json:"customer_lastname,omitempty"`
	Status                string          `json:"status"`
	Items                 []CartItem      `json:"items"`
	ShippingAddress       *Address        `json:"shipping_address,omitempty"`
	BillingAddress        *Address        `json:"billing_address,omitempty"`
	ShippingMethod        string          `json:"shipping_method,omitempty"`
	PaymentMethod         string          `json:"payment_method"`
	PaymentAdditionalData json.RawMessage `json:"-"`
	PaymentReference      string          `json:"payment_reference,omitempty"`
	Totals                Totals          `json:"totals"`
	CreatedAt             time.Time       `json:"created_at"`
}
