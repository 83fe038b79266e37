// Package seed loads demo data used for manual testing and in-memory runs.
package seed

import (
	"context"
	"fmt"

	"vsbridge/internal/config"
	"vsbridge/internal/domain"
)

type StoreWriter interface {
	Ensure(ctx context.Context, store domain.Store) (*domain.Store, error)
}

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// DemoProducts is the catalog Apply loads: a simple product, a configurable product
// with two variants, a downloadable product and a subscription.
var DemoProducts = []domain.Product{
	{SKU: "A1", Name: "Demo T-Shirt", Type: domain.ProductTypeSimple, PriceCents: 2000, ManageStock: true, StockQty: 100, InStock: true},
	{SKU: "MUG", Name: "Demo Mug", Type: domain.ProductTypeSimple, PriceCents: 1299, ManageStock: true, StockQty: 50, InStock: true},
	{SKU: "HOODIE-S", Name: "Demo Hoodie S", Type: domain.ProductTypeSimple, PriceCents: 4500, ParentSKU: "HOODIE", ManageStock: true, StockQty: 20, InStock: true, Attributes: map[string]string{"size": "S"}},
	{SKU: "HOODIE-M", Name: "Demo Hoodie M", Type: domain.ProductTypeSimple, PriceCents: 4500, ParentSKU: "HOODIE", ManageStock: true, StockQty: 20, InStock: true, Attributes: map[string]string{"size": "M"}},
	{SKU: "EBOOK", Name: "Demo E-Book", Type: domain.ProductTypeDownloadable, PriceCents: 1500, InStock: true},
	{SKU: "COFFEE-SUB", Name: "Coffee Subscription", Type: domain.ProductTypeVirtual, PriceCents: 2900, IsRecurring: true, InStock: true},
}

// Apply ensures the store described by rules exists and upserts the demo catalog. It
// is idempotent.
func Apply(ctx context.Context, stores StoreWriter, products ProductWriter, rules config.StoreRules) (*domain.Store, error) {
	store, err := EnsureStore(ctx, stores, rules)
	if err != nil {
		return nil, err
	}

	for _, p := range DemoProducts {
		if _, err := products.Upsert(ctx, p); err != nil {
			return nil, fmt.Errorf("upsert product %s: %w", p.SKU, err)
		}
	}
	return store, nil
}

// EnsureStore creates the store described by rules without touching the catalog.
func EnsureStore(ctx context.Context, stores StoreWriter, rules config.StoreRules) (*domain.Store, error) {
	store, err := stores.Ensure(ctx, domain.Store{
		Code:         rules.Store.Code,
		Name:         rules.Store.Name,
		BaseCurrency: rules.Store.BaseCurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure store: %w", err)
	}
	return store, nil
}
