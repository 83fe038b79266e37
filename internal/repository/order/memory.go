package order

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"vsbridge/internal/domain"
	"vsbridge/internal/repository/cart"
	"vsbridge/internal/repository/product"
)

// Memory keeps orders in process memory. Placement goes through the memory cart
// repository so the cart conversion and the order insert happen under one lock.
type Memory struct {
	carts    *cart.Memory
	products *product.Memory
	seq      atomic.Int64

	mu     sync.RWMutex
	orders []domain.Order
}

func NewMemory(carts *cart.Memory, products *product.Memory) *Memory {
	return &Memory{carts: carts, products: products}
}

func (m *Memory) NextReference(context.Context) (int64, error) {
	return m.seq.Add(1), nil
}

func (m *Memory) Place(ctx context.Context, order *domain.Order) error {
	return m.carts.Convert(ctx, order.CartID, func(*domain.Cart) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		for _, existing := range m.orders {
			if existing.IncrementID == order.IncrementID {
				return domain.ErrAlreadyExists
			}
		}
		if err := m.products.Deduct(stockLines(order.Items)); err != nil {
			return err
		}
		order.ID = uuid.NewString()
		order.CreatedAt = time.Now().UTC()
		stored := *order
		stored.Items = fromLines(toLines(order.Items), order.CartID)
		stored.Totals = order.Totals.Clone()
		m.orders = append(m.orders, stored)
		return nil
	})
}

func (m *Memory) GetByCartID(_ context.Context, cartID string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if o.CartID == cartID {
			return &o, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *Memory) ListByCustomer(_ context.Context, customerID string, page, pageSize int) ([]domain.Order, int, error) {
	m.mu.RLock()
	var mine []domain.Order
	for _, o := range m.orders {
		if o.CustomerID != nil && *o.CustomerID == customerID {
			mine = append(mine, o)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(mine, func(i, j int) bool {
		if mine[i].CreatedAt.Equal(mine[j].CreatedAt) {
			return mine[i].IncrementID > mine[j].IncrementID
		}
		return mine[i].CreatedAt.After(mine[j].CreatedAt)
	})
	total := len(mine)
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return mine[start:end], total, nil
}
