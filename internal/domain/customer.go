package domain

import "time"

// Customer represents a registered storefront user.
type Customer struct {
	ID           string    `json:"id"`
	StoreID      string    `json:"-"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Firstname    string    `json:"firstname"`
	Lastname     string    `json:"lastname"`
	Addresses    []Address `json:"addresses"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DefaultBilling returns the address flagged as default billing.
func (c *Customer) DefaultBilling() *Address {
	for i := range c.Addresses {
		if c.Addresses[i].DefaultBilling {
			return &c.Addresses[i]
		}
	}
	return nil
}

// DefaultShipping returns the address flagged as default shipping.
func (c *Customer) DefaultShipping() *Address {
	for i := range c.Addresses {
		if c.Addresses[i].DefaultShipping {
			return &c.Addresses[i]
		}
	}
	return nil
}
