package cart

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"vsbridge/internal/domain"
)

// Memory is an in-process Repository. Carts are deep-copied on the way in and out so
// callers never share state. It also exposes the hooks the memory order repository
// needs to convert a cart atomically.
type Memory struct {
	mu        sync.Mutex
	carts     map[string]*domain.Cart
	addresses map[string]domain.Address
	addrCart  map[string]string
	active    map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		carts:     make(map[string]*domain.Cart),
		addresses: make(map[string]domain.Address),
		addrCart:  make(map[string]string),
		active:    make(map[string]string),
	}
}

func activeKey(storeID, customerID string) string {
	return storeID + "/" + customerID
}

func (m *Memory) Create(_ context.Context, in CreateCartInput) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in.CustomerID != nil {
		if id, ok := m.active[activeKey(in.StoreID, *in.CustomerID)]; ok {
			return m.loadLocked(m.carts[id]), nil
		}
	}
	now := time.Now().UTC()
	cart := &domain.Cart{
		ID:        uuid.NewString(),
		StoreID:   in.StoreID,
		IsGuest:   in.CustomerID == nil,
		State:     domain.CartStateActive,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.CustomerID != nil {
		id := *in.CustomerID
		cart.CustomerID = &id
		m.active[activeKey(in.StoreID, id)] = cart.ID
	}
	m.carts[cart.ID] = cart
	return cart.Clone(), nil
}

func (m *Memory) GetByID(_ context.Context, id string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.loadLocked(cart), nil
}

// loadLocked copies stored and reads its addresses from the address table, the way
// the postgres repository joins them.
func (m *Memory) loadLocked(stored *domain.Cart) *domain.Cart {
	cart := stored.Clone()
	cart.ShippingAddress = m.addressLocked(cart.ShippingAddress)
	cart.BillingAddress = m.addressLocked(cart.BillingAddress)
	return cart
}

func (m *Memory) addressLocked(ref *domain.Address) *domain.Address {
	if ref == nil {
		return nil
	}
	a, ok := m.addresses[ref.ID]
	if !ok {
		return ref
	}
	out := a.Clone()
	return &out
}

func (m *Memory) GetActiveByCustomer(_ context.Context, storeID, customerID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.active[activeKey(storeID, customerID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.loadLocked(m.carts[id]), nil
}

func (m *Memory) SaveAddress(_ context.Context, cartID string, addr domain.Address) (*domain.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[cartID]; !ok {
		return nil, domain.ErrCartNotFound
	}
	out := addr.Clone()
	if out.ID != "" {
		if m.addrCart[out.ID] != cartID {
			return nil, domain.ErrAddressNotFound
		}
	} else {
		out.ID = uuid.NewString()
	}
	m.addresses[out.ID] = out.Clone()
	m.addrCart[out.ID] = cartID
	return &out, nil
}

func (m *Memory) Save(ctx context.Context, cart *domain.Cart) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(cart)
}

func (m *Memory) saveLocked(cart *domain.Cart) error {
	existing, ok := m.carts[cart.ID]
	if !ok {
		return domain.ErrCartNotFound
	}
	if existing.IsConverted() {
		return domain.ErrCartConverted
	}
	for _, a := range []*domain.Address{cart.ShippingAddress, cart.BillingAddress} {
		if a != nil && a.ID != "" && m.addrCart[a.ID] != cart.ID {
			return domain.ErrAddressNotFound
		}
	}
	now := time.Now().UTC()
	for i := range cart.Items {
		if cart.Items[i].CreatedAt.IsZero() {
			cart.Items[i].CreatedAt = now
		}
		cart.Items[i].CartID = cart.ID
	}
	cart.Version = existing.Version + 1
	cart.UpdatedAt = now
	stored := cart.Clone()
	m.carts[cart.ID] = stored
	if stored.CustomerID != nil {
		key := activeKey(stored.StoreID, *stored.CustomerID)
		if stored.IsConverted() {
			delete(m.active, key)
		} else {
			m.active[key] = stored.ID
		}
	}
	return nil
}

// Convert runs fn while holding the store lock and, if it succeeds, marks the cart
// converted. fn sees the current stored cart.
func (m *Memory) Convert(ctx context.Context, cartID string, fn func(*domain.Cart) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.carts[cartID]
	if !ok {
		return domain.ErrCartNotFound
	}
	if existing.IsConverted() {
		return domain.ErrCartConverted
	}
	current := m.loadLocked(existing)
	if err := fn(current); err != nil {
		return err
	}
	current.State = domain.CartStateConverted
	return m.saveConvertedLocked(current)
}

func (m *Memory) saveConvertedLocked(cart *domain.Cart) error {
	existing := m.carts[cart.ID]
	cart.Version = existing.Version + 1
	cart.UpdatedAt = time.Now().UTC()
	m.carts[cart.ID] = cart.Clone()
	if cart.CustomerID != nil {
		delete(m.active, activeKey(cart.StoreID, *cart.CustomerID))
	}
	return nil
}
