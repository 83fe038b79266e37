package domain

import "time"

// Product types.
const (
	ProductTypeSimple       = "simple"
	ProductTypeConfigurable = "configurable"
	ProductTypeVirtual      = "virtual"
	ProductTypeDownloadable = "downloadable"
)

// Product is the catalog entry a cart line is created from. A product with ParentSKU
// is a variant of a configurable product.
type Product struct {
	ID          string            `json:"id"`
	SKU         string            `json:"sku"`
	Name        string            `json:"name"`
	Type        string            `json:"type_id"`
	PriceCents  int64             `json:"-"`
	ParentSKU   string            `json:"parent_sku,omitempty"`
	IsRecurring bool              `json:"is_recurring"`
	ManageStock bool              `json:"manage_stock"`
	StockQty    int               `json:"qty"`
	InStock     bool              `json:"is_in_stock"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// IsVirtual reports whether the product needs no shipping.
func (p *Product) IsVirtual() bool {
	return p.Type == ProductTypeVirtual || p.Type == ProductTypeDownloadable
}

// Available reports whether qty units can be sold.
func (p *Product) Available(qty int) bool {
	if !p.InStock {
		return false
	}
	return !p.ManageStock || p.StockQty >= qty
}
