package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"vsbridge/internal/domain"
)

type memoryRepo struct {
	mu     sync.RWMutex
	byCode map[string]domain.Store
}

func NewMemory() Repository {
	return &memoryRepo{byCode: make(map[string]domain.Store)}
}

func (r *memoryRepo) GetByCode(_ context.Context, code string) (*domain.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byCode[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (r *memoryRepo) Ensure(_ context.Context, store domain.Store) (*domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byCode[store.Code]
	if ok {
		existing.Name = store.Name
		existing.BaseCurrency = store.BaseCurrency
	} else {
		existing = store
		existing.ID = uuid.NewString()
		existing.CreatedAt = time.Now().UTC()
	}
	r.byCode[store.Code] = existing
	return &existing, nil
}
