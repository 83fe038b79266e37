// Package token signs and verifies the bearer tokens handed to storefront clients.
// Tokens are stateless HS256 JWTs: verifying one never touches storage.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrSecretMissing    = errors.New("token secret is not configured")
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrMalformed        = errors.New("token is malformed")
	ErrExpired          = errors.New("token has expired")
	// ErrClaimMissing is returned by the typed helpers when the expected claim is absent.
	ErrClaimMissing = errors.New("token claim missing")
)

// Claim names shared with storefront clients.
const (
	ClaimCartID   = "cartId"
	ClaimCustomer = "id"
	ClaimUsername = "username"
	ClaimPassword = "password"
)

// Service mints and verifies tokens. It is safe for concurrent use.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// New creates a Service. A zero ttl mints tokens without an exp claim.
func New(secret string, ttl time.Duration) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Mint signs claims. Only an empty secret makes it fail.
func (s *Service) Mint(claims map[string]any) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrSecretMissing
	}
	mc := jwt.MapClaims{}
	for k, v := range claims {
		mc[k] = v
	}
	if s.ttl > 0 {
		mc["exp"] = jwt.NewNumericDate(s.now().Add(s.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of raw and returns its claims.
func (s *Service) Verify(raw string) (map[string]any, error) {
	if len(s.secret) == 0 {
		return nil, ErrSecretMissing
	}
	if raw == "" {
		return nil, ErrMalformed
	}
	parsed, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrMalformed
		}
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrMalformed
	}
	out := make(map[string]any, len(claims))
	for k, v := range claims {
		if k == "exp" {
			continue
		}
		out[k] = v
	}
	return out, nil
}

// MintCart returns the token a client uses to address a cart.
func (s *Service) MintCart(cartID string) (string, error) {
	return s.Mint(map[string]any{ClaimCartID: cartID})
}

// MintCustomer returns the access token of a logged-in customer.
func (s *Service) MintCustomer(customerID string) (string, error) {
	return s.Mint(map[string]any{ClaimCustomer: customerID})
}

// MintRefresh wraps the credential pair so the client can log in again later.
func (s *Service) MintRefresh(username, password string) (string, error) {
	return s.Mint(map[string]any{ClaimUsername: username, ClaimPassword: password})
}

// CartID extracts the cart id from a cart token.
func (s *Service) CartID(raw string) (string, error) {
	return s.stringClaim(raw, ClaimCartID)
}

// CustomerID extracts the customer id from an access token.
func (s *Service) CustomerID(raw string) (string, error) {
	return s.stringClaim(raw, ClaimCustomer)
}

// Credentials extracts the username and password from a refresh token.
func (s *Service) Credentials(raw string) (string, string, error) {
	claims, err := s.Verify(raw)
	if err != nil {
		return "", "", err
	}
	username, _ := claims[ClaimUsername].(string)
	password, _ := claims[ClaimPassword].(string)
	if username == "" || password == "" {
		return "", "", ErrClaimMissing
	}
	return username, password, nil
}

func (s *Service) stringClaim(raw, name string) (string, error) {
	claims, err := s.Verify(raw)
	if err != nil {
		return "", err
	}
	v, ok := claims[name].(string)
	if !ok || v == "" {
		return "", ErrClaimMissing
	}
	return v, nil
}
