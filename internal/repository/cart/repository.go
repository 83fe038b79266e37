package cart

import (
	"context"

	"vsbridge/internal/domain"
)

type CreateCartInput struct {
	StoreID    string
	CustomerID *string
}

type Repository interface {
	// Create inserts a new cart. For a customer it is a conditional insert: when the
	// customer already has a cart that is not converted, that cart is returned.
	Create(ctx context.Context, in CreateCartInput) (*domain.Cart, error)
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	GetActiveByCustomer(ctx context.Context, storeID, customerID string) (*domain.Cart, error)
	// SaveAddress inserts or updates an address row of the cart and returns it with its id.
	SaveAddress(ctx context.Context, cartID string, addr domain.Address) (*domain.Address, error)
	// Save persists the cart header, lines and totals in one transaction and bumps
	// the version. Converted carts are rejected with domain.ErrCartConverted.
	Save(ctx context.Context, cart *domain.Cart) error
}
