package order

import (
	"context"

	"vsbridge/internal/domain"
)

type Repository interface {
	// NextReference returns the next value of the order reference sequence.
	NextReference(ctx context.Context) (int64, error)
	// Place stores the order, deducts stock for its lines and marks the source cart
	// converted, all or nothing. It fails with domain.ErrOutOfStock when a line can't
	// be fulfilled and with domain.ErrCartConverted when the cart already has an order.
	Place(ctx context.Context, order *domain.Order) error
	GetByCartID(ctx context.Context, cartID string) (*domain.Order, error)
	// ListByCustomer returns one page of the customer's orders, newest first, and the
	// total number of orders.
	ListByCustomer(ctx context.Context, customerID string, page, pageSize int) ([]domain.Order, int, error)
}

// line is the stored form of an order line.
type line struct {
	ID           string            `json:"id"`
	ProductID    string            `json:"product_id,omitempty"`
	SKU          string            `json:"sku"`
	Name         string            `json:"name"`
	ProductType  string            `json:"product_type"`
	Qty          int               `json:"qty"`
	PriceCents   int64             `json:"price_cents"`
	ParentItemID *string           `json:"parent_item_id,omitempty"`
	ParentSKU    string            `json:"parent_sku,omitempty"`
	IsVirtual    bool              `json:"is_virtual,omitempty"`
	Options      map[string]string `json:"options,omitempty"`
}

func toLines(items []domain.CartItem) []line {
	out := make([]line, len(items))
	for i, it := range items {
		out[i] = line{
			ID:           it.ID,
			ProductID:    it.ProductID,
			SKU:          it.SKU,
			Name:         it.Name,
			ProductType:  it.ProductType,
			Qty:          it.Qty,
			PriceCents:   it.PriceCents,
			ParentItemID: it.ParentItemID,
			ParentSKU:    it.ParentSKU,
			IsVirtual:    it.IsVirtual,
			Options:      it.Options,
		}
	}
	return out
}

func fromLines(lines []line, cartID string) []domain.CartItem {
	out := make([]domain.CartItem, len(lines))
	for i, l := range lines {
		out[i] = domain.CartItem{
			ID:           l.ID,
			CartID:       cartID,
			ProductID:    l.ProductID,
			SKU:          l.SKU,
			Name:         l.Name,
			ProductType:  l.ProductType,
			Qty:          l.Qty,
			PriceCents:   l.PriceCents,
			ParentItemID: l.ParentItemID,
			ParentSKU:    l.ParentSKU,
			IsVirtual:    l.IsVirtual,
			Options:      l.Options,
		}
	}
	return out
}

// stockLines sums the quantity to deduct per SKU. Lines without a catalog product
// (configurable parents) carry no stock.
func stockLines(items []domain.CartItem) map[string]int {
	out := make(map[string]int)
	for _, it := range items {
		if it.ProductID == "" {
			continue
		}
		out[it.SKU] += it.Qty
	}
	return out
}
