package store

import (
	"context"

	"vsbridge/internal/domain"
)

type Repository interface {
	GetByCode(ctx context.Context, code string) (*domain.Store, error)
	// Ensure creates the store if its code is unknown and returns the stored row.
	Ensure(ctx context.Context, store domain.Store) (*domain.Store, error)
}
