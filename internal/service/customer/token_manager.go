package customer

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"vsbridge/internal/domain"
	tokenrepo "vsbridge/internal/repository/token"
)

const issueAttempts = 5

// resetTokens hands out one-time reset links. Issuing a link revokes the customer's
// earlier ones, so only the latest email works.
type resetTokens struct {
	repo tokenrepo.Repository
	now  func() time.Time
}

func newResetTokens(repo tokenrepo.Repository) *resetTokens {
	return &resetTokens{repo: repo, now: time.Now}
}

func (m *resetTokens) Issue(ctx context.Context, customerID string, ttl time.Duration) (string, error) {
	if _, err := m.repo.RevokeCustomer(ctx, customerID, tokenrepo.KindPasswordReset); err != nil {
		return "", fmt.Errorf("revoke earlier reset tokens: %w", err)
	}
	for i := 0; i < issueAttempts; i++ {
		secret, err := randomSecret()
		if err != nil {
			return "", err
		}
		err = m.repo.Create(ctx, tokenrepo.Token{
			Token:      secret,
			CustomerID: customerID,
			Kind:       tokenrepo.KindPasswordReset,
			ExpiresAt:  m.now().Add(ttl),
		})
		if errors.Is(err, domain.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return "", err
		}
		return secret, nil
	}
	return "", fmt.Errorf("no unique reset token after %d attempts", issueAttempts)
}

// Redeem consumes secret and returns the customer it was issued to. An expired
// secret is consumed too.
func (m *resetTokens) Redeem(ctx context.Context, secret string) (string, bool) {
	if secret == "" {
		return "", false
	}
	t, err := m.repo.Take(ctx, secret, tokenrepo.KindPasswordReset)
	if err != nil || t.Expired(m.now()) {
		return "", false
	}
	return t.CustomerID, true
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
