package quote

import "vsbridge/internal/domain"

// Authorize decides whether the caller may act on cart. Guest carts are open to any
// holder of their token; customer carts only to their owner.
func Authorize(cart *domain.Cart, customerID *string) error {
	if cart.CustomerID == nil {
		return nil
	}
	if customerID != nil && cart.OwnedBy(*customerID) {
		return nil
	}
	return domain.ErrAccessDenied
}
