package product

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"vsbridge/internal/domain"
)

// Memory keeps products in a map. Stock is adjusted by the memory order repository.
type Memory struct {
	mu    sync.RWMutex
	bySKU map[string]domain.Product
}

func NewMemory() *Memory {
	return &Memory{bySKU: make(map[string]domain.Product)}
}

func (m *Memory) GetBySKU(_ context.Context, sku string) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.bySKU[sku]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *Memory) Upsert(_ context.Context, product domain.Product) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.bySKU[product.SKU]; ok {
		product.ID = existing.ID
		product.CreatedAt = existing.CreatedAt
	} else {
		product.ID = uuid.NewString()
		product.CreatedAt = time.Now().UTC()
	}
	m.bySKU[product.SKU] = product
	return &product, nil
}

// Deduct removes qty units of every SKU in lines, all or nothing.
func (m *Memory) Deduct(lines map[string]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sku, qty := range lines {
		p, ok := m.bySKU[sku]
		if !ok {
			continue
		}
		if p.ManageStock && p.StockQty < qty {
			return domain.ErrOutOfStock
		}
	}
	for sku, qty := range lines {
		p, ok := m.bySKU[sku]
		if !ok || !p.ManageStock {
			continue
		}
		p.StockQty -= qty
		m.bySKU[sku] = p
	}
	return nil
}
