package customer

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vsbridge/internal/domain"
)

type memoryRepo struct {
	mu   sync.RWMutex
	byID map[string]domain.Customer
}

// NewMemory returns a Repository that keeps customers in process memory.
func NewMemory() Repository {
	return &memoryRepo{byID: make(map[string]domain.Customer)}
}

func (r *memoryRepo) Create(_ context.Context, c domain.Customer) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.Email = strings.ToLower(c.Email)
	for _, existing := range r.byID {
		if existing.Email == c.Email {
			return nil, domain.ErrAlreadyExists
		}
	}
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	c.Addresses = cloneAddresses(c.Addresses)
	r.byID[c.ID] = c
	out := c
	out.Addresses = cloneAddresses(c.Addresses)
	return &out, nil
}

func (r *memoryRepo) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	email = strings.ToLower(email)
	for _, c := range r.byID {
		if c.Email == email {
			c.Addresses = cloneAddresses(c.Addresses)
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c.Addresses = cloneAddresses(c.Addresses)
	return &c, nil
}

func (r *memoryRepo) Update(_ context.Context, c domain.Customer) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[c.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	email := strings.ToLower(c.Email)
	for id, other := range r.byID {
		if id != c.ID && other.Email == email {
			return nil, domain.ErrAlreadyExists
		}
	}
	existing.Email = email
	existing.Firstname = c.Firstname
	existing.Lastname = c.Lastname
	existing.Addresses = cloneAddresses(c.Addresses)
	existing.UpdatedAt = time.Now().UTC()
	r.byID[c.ID] = existing
	existing.Addresses = cloneAddresses(existing.Addresses)
	return &existing, nil
}

func (r *memoryRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.PasswordHash = passwordHash
	c.UpdatedAt = time.Now().UTC()
	r.byID[id] = c
	return nil
}

func cloneAddresses(in []domain.Address) []domain.Address {
	out := make([]domain.Address, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}
