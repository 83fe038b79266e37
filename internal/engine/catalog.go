package engine

import (
	"context"
	"errors"

	"vsbridge/internal/domain"
)

// ProductSource is the catalog storage.
type ProductSource interface {
	GetBySKU(ctx context.Context, sku string) (*domain.Product, error)
}

// Product resolves a SKU to a sellable product.
func (e *Engine) Product(ctx context.Context, sku string) (*domain.Product, error) {
	if sku == "" {
		return nil, domain.ErrProductNotFound
	}
	p, err := e.products.GetBySKU(ctx, sku)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, domain.Externalf("catalog lookup for %s failed: %v", sku, err)
	}
	return p, nil
}

// CheckStock fails with ErrOutOfStock when qty units of p cannot be sold.
func (e *Engine) CheckStock(p *domain.Product, qty int) error {
	if !p.Available(qty) {
		return domain.ErrOutOfStock
	}
	return nil
}
