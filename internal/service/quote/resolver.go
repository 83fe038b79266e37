// Package quote finds the cart a request operates on and checks the caller may use it.
package quote

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"vsbridge/internal/domain"
	"vsbridge/internal/logging"
	cartrepo "vsbridge/internal/repository/cart"
	"vsbridge/internal/service/token"
)

// Identity is what the verified outer token says about the caller.
type Identity struct {
	CustomerID *string
	// CartToken is the cartId claim of the outer token. It is a signed cart token
	// itself and is verified again before use.
	CartToken string
}

// Guest reports whether the caller is anonymous.
func (i Identity) Guest() bool { return i.CustomerID == nil }

// IdentityFromClaims reads the caller identity from verified token claims.
func IdentityFromClaims(claims map[string]any) Identity {
	var id Identity
	if v, ok := claims[token.ClaimCustomer].(string); ok && v != "" {
		id.CustomerID = &v
	}
	if v, ok := claims[token.ClaimCartID].(string); ok {
		id.CartToken = v
	}
	return id
}

// CartTokens resolves signed cart tokens to cart ids.
type CartTokens interface {
	CartID(raw string) (string, error)
}

// Resolver maps a request's identity to a cart.
type Resolver struct {
	carts  cartrepo.Repository
	tokens CartTokens
	logger *log.Entry
}

// NewResolver constructs a Resolver.
func NewResolver(carts cartrepo.Repository, tokens CartTokens, logger *log.Entry) *Resolver {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Resolver{carts: carts, tokens: tokens, logger: logger.WithField("component", "quote_resolver")}
}

// Resolve returns the cart addressed by the request. The explicit cart token wins over
// the identity's cart claim, which wins over the customer's active cart. Every way of
// failing, including a cart owned by someone else, yields domain.ErrAccessDenied.
func (r *Resolver) Resolve(ctx context.Context, store domain.Store, id Identity, explicitCartToken string) (*domain.Cart, error) {
	var (
		cart *domain.Cart
		err  error
	)
	cartToken := explicitCartToken
	if cartToken == "" {
		cartToken = id.CartToken
	}
	switch {
	case cartToken != "":
		cartID, terr := r.tokens.CartID(cartToken)
		if terr != nil {
			r.logger.WithError(terr).Debug("cart token rejected")
			return nil, domain.ErrAccessDenied
		}
		cart, err = r.carts.GetByID(ctx, cartID)
	case id.CustomerID != nil:
		cart, err = r.carts.GetActiveByCustomer(ctx, store.ID, *id.CustomerID)
	default:
		return nil, domain.ErrAccessDenied
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAccessDenied
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart.StoreID != store.ID {
		return nil, domain.ErrAccessDenied
	}
	if err := Authorize(cart, id.CustomerID); err != nil {
		r.logger.WithFields(log.Fields{"cart_id": cart.ID}).Warn("cart access denied")
		return nil, err
	}
	return cart, nil
}

// CreateOrReuse returns the customer's current cart, creating it when needed. Guests
// always get a fresh cart.
func (r *Resolver) CreateOrReuse(ctx context.Context, store domain.Store, customerID *string) (*domain.Cart, error) {
	cart, err := r.carts.Create(ctx, cartrepo.CreateCartInput{StoreID: store.ID, CustomerID: customerID})
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	return cart, nil
}
