package customer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"vsbridge/internal/domain"
	"vsbridge/internal/logging"
	custrepo "vsbridge/internal/repository/customer"
	tokenrepo "vsbridge/internal/repository/token"
)

var (
	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = &domain.Error{Kind: domain.ErrNotAuthorized, Msg: "You did not sign in correctly or your account is temporarily disabled."}
	// ErrInvalidResetToken is returned for unknown, used or expired reset tokens.
	ErrInvalidResetToken = &domain.Error{Kind: domain.ErrValidation, Msg: "password reset link is invalid or has expired"}
	ErrWrongPassword     = &domain.Error{Kind: domain.ErrValidation, Msg: "The password doesn't match this account."}
)

// Tokens mints the bearer tokens handed out at login.
type Tokens interface {
	MintCustomer(customerID string) (string, error)
	MintRefresh(username, password string) (string, error)
	Credentials(refreshToken string) (string, string, error)
}

// Notifier delivers the password reset link.
type Notifier interface {
	PasswordReset(ctx context.Context, customer *domain.Customer, token string) error
}

// Service handles customer signup, login and account flows.
type Service struct {
	repo        custrepo.Repository
	resets      *resetTokens
	tokens      Tokens
	notifier    Notifier
	logger      *log.Entry
	resetTTL    time.Duration
	passwordMin int
	cost        int
}

// New creates a Service with sane defaults.
func New(repo custrepo.Repository, resets tokenrepo.Repository, tokens Tokens, notifier Notifier, logger *log.Entry) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		repo:        repo,
		resets:      newResetTokens(resets),
		tokens:      tokens,
		notifier:    notifier,
		logger:      logger.WithField("component", "customer"),
		resetTTL:    24 * time.Hour,
		passwordMin: 8,
		cost:        bcrypt.DefaultCost,
	}
}

// CreateInput captures fields expected by the signup endpoint.
type CreateInput struct {
	Email     string
	Password  string
	Firstname string
	Lastname  string
	Addresses []domain.Address
}

// Session is the result of a successful login.
type Session struct {
	Token        string
	RefreshToken string
	Customer     *domain.Customer
}

// Create registers a new customer within the given store.
func (s *Service) Create(ctx context.Context, store domain.Store, in CreateInput) (*domain.Customer, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Firstname) == "" || strings.TrimSpace(in.Lastname) == "" {
		return nil, domain.Validationf("firstname and lastname are required")
	}
	hashed, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	c, err := s.repo.Create(ctx, domain.Customer{
		StoreID:      store.ID,
		Email:        email,
		PasswordHash: hashed,
		Firstname:    strings.TrimSpace(in.Firstname),
		Lastname:     strings.TrimSpace(in.Lastname),
		Addresses:    normalizeAddresses(in.Addresses),
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return nil, domain.ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	s.logger.WithField("customer_id", c.ID).Info("customer registered")
	return c, nil
}

// Login validates credentials and returns the access token, a refresh token and the
// customer.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	c, err := s.repo.GetByEmail(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	access, err := s.tokens.MintCustomer(c.ID)
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}
	refresh, err := s.tokens.MintRefresh(username, password)
	if err != nil {
		return nil, fmt.Errorf("mint refresh token: %w", err)
	}
	return &Session{Token: access, RefreshToken: refresh, Customer: c}, nil
}

// Refresh logs in again with the credentials wrapped in a refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	username, password, err := s.tokens.Credentials(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.Login(ctx, username, password)
}

// RequestPasswordReset issues a reset token and publishes it to the customer. Unknown
// emails succeed silently so the endpoint can't be used to probe accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.Validationf("No e-mail provided.")
	}
	c, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Info("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}
	token, err := s.resets.Issue(ctx, c.ID, s.resetTTL)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	if err := s.notifier.PasswordReset(ctx, c, token); err != nil {
		return domain.Externalf("password reset email could not be sent: %v", err)
	}
	return nil
}

// ResetPassword sets a new password using a token from RequestPasswordReset. Tokens
// work once.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	customerID, ok := s.resets.Redeem(ctx, strings.TrimSpace(token))
	if !ok {
		return ErrInvalidResetToken
	}
	hashed, err := s.hash(password)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, customerID, hashed); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	return nil
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, customerID, current, next string) error {
	c, err := s.Me(ctx, customerID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(strings.TrimSpace(current))); err != nil {
		return ErrWrongPassword
	}
	hashed, err := s.hash(next)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, customerID, hashed)
}

// Me returns the customer bound to an access token.
func (s *Service) Me(ctx context.Context, customerID string) (*domain.Customer, error) {
	c, err := s.repo.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, err
	}
	return c, nil
}

// UpdateInput holds the profile fields a customer may change. Empty strings keep the
// current value; a non-nil Addresses replaces the address book.
type UpdateInput struct {
	Email     string
	Firstname string
	Lastname  string
	Addresses []domain.Address
}

// Update applies in to the customer's profile.
func (s *Service) Update(ctx context.Context, customerID string, in UpdateInput) (*domain.Customer, error) {
	c, err := s.Me(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if in.Email != "" {
		email, err := normalizeEmail(in.Email)
		if err != nil {
			return nil, err
		}
		c.Email = email
	}
	if v := strings.TrimSpace(in.Firstname); v != "" {
		c.Firstname = v
	}
	if v := strings.TrimSpace(in.Lastname); v != "" {
		c.Lastname = v
	}
	if in.Addresses != nil {
		c.Addresses = normalizeAddresses(in.Addresses)
	}
	updated, err := s.repo.Update(ctx, *c)
	if errors.Is(err, domain.ErrAlreadyExists) {
		return nil, domain.ErrEmailTaken
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrCustomerNotFound
	}
	return updated, err
}

func (s *Service) hash(password string) (string, error) {
	password = strings.TrimSpace(password)
	if err := validatePassword(password, s.passwordMin); err != nil {
		return "", domain.Validationf("%s", err.Error())
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(strings.ToLower(raw))
	if email == "" {
		return "", domain.Validationf("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", domain.Validationf("email %q is not valid", raw)
	}
	return email, nil
}

// normalizeAddresses gives new addresses an id and keeps at most one default of each
// kind, the first one flagged.
func normalizeAddresses(in []domain.Address) []domain.Address {
	out := make([]domain.Address, 0, len(in))
	billing, shipping := false, false
	for _, a := range in {
		a = a.Clone()
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		a.Type = ""
		if a.DefaultBilling {
			a.DefaultBilling = !billing
			billing = true
		}
		if a.DefaultShipping {
			a.DefaultShipping = !shipping
			shipping = true
		}
		out = append(out, a)
	}
	return out
}

func validatePassword(p string, min int) error {
	trimmed := strings.TrimSpace(p)
	if len(trimmed) < min {
		return fmt.Errorf("password must be at least %d characters", min)
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, r := range trimmed {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return errors.New("password must contain at least 1 uppercase letter, 1 lowercase letter, and 1 number")
	}
	return nil
}
