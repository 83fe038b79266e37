package token

import (
	"context"
	"time"
)

// Token kinds.
const (
	KindPasswordReset = "password_reset"
)

// Token is a one-time secret issued to a customer, such as a password reset link.
type Token struct {
	Token      string
	CustomerID string
	Kind       string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Expired reports whether the token is past its expiry at now.
func (t Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Repository stores one-time tokens. Take removes the token as it reads it, so a
// token can be redeemed by one caller only.
type Repository interface {
	Create(ctx context.Context, token Token) error
	Take(ctx context.Context, token, kind string) (*Token, error)
	// RevokeCustomer drops every token of kind held by the customer and returns how
	// many were removed.
	RevokeCustomer(ctx context.Context, customerID, kind string) (int64, error)
}
