package product

import (
	"context"

	"vsbridge/internal/domain"
)

type Repository interface {
	GetBySKU(ctx context.Context, sku string) (*domain.Product, error)
	// Upsert inserts or replaces the product with the same SKU.
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}
