package token

import (
	"context"
	"sync"
	"time"

	"vsbridge/internal/domain"
)

type memoryRepo struct {
	mu     sync.Mutex
	tokens map[string]Token
}

func NewMemory() Repository {
	return &memoryRepo{tokens: make(map[string]Token)}
}

func (r *memoryRepo) Create(_ context.Context, token Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[token.Token]; ok {
		return domain.ErrAlreadyExists
	}
	token.CreatedAt = time.Now().UTC()
	r.tokens[token.Token] = token
	return nil
}

func (r *memoryRepo) Take(_ context.Context, token, kind string) (*Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok || t.Kind != kind {
		return nil, domain.ErrNotFound
	}
	delete(r.tokens, token)
	return &t, nil
}

func (r *memoryRepo) RevokeCustomer(_ context.Context, customerID, kind string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, t := range r.tokens {
		if t.CustomerID == customerID && t.Kind == kind {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}
