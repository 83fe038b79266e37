// Package product answers stock questions about catalog products.
package product

import (
	"context"
	"errors"
	"strings"

	"vsbridge/internal/domain"
	productrepo "vsbridge/internal/repository/product"
)

// StockItem is the stock view of a product returned to the storefront.
type StockItem struct {
	ProductID   string `json:"product_id"`
	SKU         string `json:"sku"`
	Qty         int    `json:"qty"`
	IsInStock   bool   `json:"is_in_stock"`
	ManageStock bool   `json:"manage_stock"`
}

type Service struct {
	repo productrepo.Repository
}

func New(repo productrepo.Repository) *Service {
	return &Service{repo: repo}
}

// Stock reports the stock of sku. A product without stock management is always in
// stock.
func (s *Service) Stock(ctx context.Context, sku string) (*StockItem, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, domain.Validationf("No SKU provided")
	}
	p, err := s.repo.GetBySKU(ctx, sku)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	return &StockItem{
		ProductID:   p.ID,
		SKU:         p.SKU,
		Qty:         p.StockQty,
		IsInStock:   p.Available(1),
		ManageStock: p.ManageStock,
	}, nil
}
