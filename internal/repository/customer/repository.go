package customer

import (
	"context"

	"vsbridge/internal/domain"
)

// Repository persists and fetches customers. Emails are unique case-insensitively.
type Repository interface {
	Create(ctx context.Context, c domain.Customer) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	// Update stores profile fields and the address book.
	Update(ctx context.Context, c domain.Customer) (*domain.Customer, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}
