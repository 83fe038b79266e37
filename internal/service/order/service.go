// Package order turns a prepared cart into an order.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"vsbridge/internal/domain"
	"vsbridge/internal/logging"
	cartrepo "vsbridge/internal/repository/cart"
	orderrepo "vsbridge/internal/repository/order"
)

// Submission outcomes reported to the Observer.
const (
	OutcomePlaced   = "placed"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// Engine is the commerce engine surface used to place orders.
type Engine interface {
	PaymentAvailable(cart *domain.Cart, method string, grandTotal, subtotal domain.Money) bool
	Authorize(ctx context.Context, method string, amount domain.Money, additionalData json.RawMessage) (string, error)
	FormatOrderReference(seq int64) string
}

type Recomputer interface {
	Recompute(store domain.Store, cart *domain.Cart) domain.Totals
}

// Notifier delivers customer and operator notifications about submissions.
type Notifier interface {
	OrderPlaced(ctx context.Context, order *domain.Order) error
	SubmissionFailed(ctx context.Context, cart *domain.Cart, reason string) error
}

type Observer interface {
	ObserveSubmission(outcome string, elapsed time.Duration)
}

type Customers interface {
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
}

type nopObserver struct{}

func (nopObserver) ObserveSubmission(string, time.Duration) {}

// Deps are the collaborators of Service. Metrics and Logger are optional.
type Deps struct {
	Carts     cartrepo.Repository
	Orders    orderrepo.Repository
	Customers Customers
	Engine    Engine
	Totals    Recomputer
	Notifier  Notifier
	Metrics   Observer
	Logger    *log.Entry
	// NotifyFailures sends the customer apology and the admin alert when placement fails.
	NotifyFailures bool
}

type Service struct {
	carts          cartrepo.Repository
	orders         orderrepo.Repository
	customers      Customers
	engine         Engine
	totals         Recomputer
	notifier       Notifier
	metrics        Observer
	logger         *log.Entry
	notifyFailures bool
}

func New(d Deps) *Service {
	if d.Metrics == nil {
		d.Metrics = nopObserver{}
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	return &Service{
		carts:          d.Carts,
		orders:         d.Orders,
		customers:      d.Customers,
		engine:         d.Engine,
		totals:         d.Totals,
		notifier:       d.Notifier,
		metrics:        d.Metrics,
		logger:         d.Logger.WithField("component", "order_submission"),
		notifyFailures: d.NotifyFailures,
	}
}

// SubmitInput is the payment selection sent with the submission. Email is used for
// guest carts that carry no contact address yet.
type SubmitInput struct {
	PaymentMethod  string
	AdditionalData json.RawMessage
	Email          string
}

// Result is returned to the storefront after a successful submission. Totals is the
// order grand total.
type Result struct {
	Success bool          `json:"success"`
	OrderID string        `json:"orderId"`
	Totals  domain.Money  `json:"totals"`
	Order   *domain.Order `json:"-"`
}

// Submit places an order for cart. The order reference is reserved on the cart
// before payment, so a retry after a failure reuses it. Failures after the reservation
// mark the cart submission_failed and are returned as *domain.SubmissionError.
func (s *Service) Submit(ctx context.Context, store domain.Store, cart *domain.Cart, in SubmitInput) (*Result, error) {
	started := time.Now()
	logger := s.logger.WithFields(log.Fields{"cart_id": cart.ID, "operation": "submit"})

	if cart.IsConverted() {
		s.metrics.ObserveSubmission(OutcomeRejected, time.Since(started))
		return nil, domain.ErrCartConverted
	}
	if in.PaymentMethod != "" {
		cart.Payment = domain.Payment{Method: in.PaymentMethod, AdditionalData: in.AdditionalData}
	}
	if err := s.prepare(ctx, cart, in); err != nil {
		s.metrics.ObserveSubmission(OutcomeRejected, time.Since(started))
		logger.WithError(err).Info("cart is not ready for submission")
		return nil, err
	}

	if cart.ReservedOrderID == "" {
		seq, err := s.orders.NextReference(ctx)
		if err != nil {
			logger.WithError(err).Error("reserve order reference")
			return nil, s.fail(ctx, logger, cart, started, domain.Externalf("order reference could not be reserved"))
		}
		cart.ReservedOrderID = s.engine.FormatOrderReference(seq)
	}
	logger = logger.WithField("order_ref", cart.ReservedOrderID)

	cart.IsGuest = cart.CustomerID == nil
	totals := s.totals.Recompute(store, cart)
	cart.CouponCode = totals.CouponCode
	cart.Totals = totals
	if err := s.carts.Save(ctx, cart); err != nil {
		if errors.Is(err, domain.ErrCartConverted) {
			s.metrics.ObserveSubmission(OutcomeRejected, time.Since(started))
			return nil, err
		}
		logger.WithError(err).Error("save reserved cart")
		return nil, s.fail(ctx, logger, cart, started, domain.Externalf("cart could not be saved before payment"))
	}

	method := cart.Payment.Method
	if !s.engine.PaymentAvailable(cart, method, totals.BaseGrandTotal, totals.BaseSubtotal) {
		return nil, s.fail(ctx, logger, cart, started, domain.ErrPaymentMethodInvalid)
	}
	reference, err := s.engine.Authorize(ctx, method, totals.BaseGrandTotal, cart.Payment.AdditionalData)
	if err != nil {
		return nil, s.fail(ctx, logger, cart, started, err)
	}

	order := newOrder(store, cart, totals, reference)
	if err := s.orders.Place(ctx, order); err != nil {
		if errors.Is(err, domain.ErrCartConverted) {
			// a concurrent submission won
			s.metrics.ObserveSubmission(OutcomeRejected, time.Since(started))
			return nil, err
		}
		return nil, s.fail(ctx, logger, cart, started, err)
	}
	cart.State = domain.CartStateConverted

	if err := s.notifier.OrderPlaced(ctx, order); err != nil {
		logger.WithError(err).Warn("order confirmation not published")
	}
	s.metrics.ObserveSubmission(OutcomePlaced, time.Since(started))
	logger.WithField("grand_total", totals.GrandTotal.String()).Info("order placed")

	return &Result{Success: true, OrderID: order.IncrementID, Totals: order.Totals.GrandTotal, Order: order}, nil
}

// prepare checks the cart can be submitted and fills contact details from the
// customer account or the addresses.
func (s *Service) prepare(ctx context.Context, cart *domain.Cart, in SubmitInput) error {
	if len(cart.VisibleItems()) == 0 {
		return domain.Validationf("cart is empty")
	}
	if !cart.IsVirtual() {
		if cart.ShippingAddress == nil || cart.ShippingAddress.CountryID == "" {
			return domain.ErrShippingAddressMissing
		}
		if cart.ShippingMethod == "" {
			return domain.Validationf("shipping method is not set")
		}
	}

	if cart.CustomerID != nil {
		customer, err := s.customers.GetByID(ctx, *cart.CustomerID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrCustomerNotFound
			}
			return fmt.Errorf("load customer: %w", err)
		}
		cart.CustomerEmail = customer.Email
		cart.CustomerFirstname = customer.Firstname
		cart.CustomerLastname = customer.Lastname
		if cart.BillingAddress == nil {
			if def := customer.DefaultBilling(); def != nil {
				addr := def.Clone()
				addr.ID = ""
				addr.Type = domain.AddressTypeBilling
				saved, err := s.carts.SaveAddress(ctx, cart.ID, addr)
				if err != nil {
					return fmt.Errorf("save billing address: %w", err)
				}
				cart.BillingAddress = saved
			}
		}
	}
	if cart.BillingAddress == nil {
		return domain.Validationf("billing address is not set")
	}

	if cart.CustomerEmail == "" {
		cart.CustomerEmail = in.Email
	}
	if cart.CustomerEmail == "" {
		cart.CustomerEmail = cart.BillingAddress.Email
	}
	if cart.CustomerEmail == "" {
		return domain.Validationf("customer email is required")
	}
	if cart.CustomerFirstname == "" {
		cart.CustomerFirstname = cart.BillingAddress.Firstname
		cart.CustomerLastname = cart.BillingAddress.Lastname
	}
	if cart.Payment.Method == "" {
		return domain.Validationf("payment method is not set")
	}
	return nil
}

func (s *Service) fail(ctx context.Context, logger *log.Entry, cart *domain.Cart, started time.Time, cause error) error {
	// the bookkeeping below must survive a cancelled request
	ctx = context.WithoutCancel(ctx)
	logger.WithError(cause).Error("order submission failed")

	cart.State = domain.CartStateSubmissionFailed
	if err := s.carts.Save(ctx, cart); err != nil {
		logger.WithError(err).Error("mark cart submission_failed")
	}
	if s.notifyFailures {
		if err := s.notifier.SubmissionFailed(ctx, cart, domain.Message(cause)); err != nil {
			logger.WithError(err).Warn("submission failure notification not published")
		}
	}
	s.metrics.ObserveSubmission(OutcomeFailed, time.Since(started))
	return &domain.SubmissionError{Cause: cause}
}

func newOrder(store domain.Store, cart *domain.Cart, totals domain.Totals, paymentReference string) *domain.Order {
	snapshot := cart.Clone()
	status := domain.OrderStatusPending
	if paymentReference != "" {
		status = domain.OrderStatusProcessing
	}
	order := &domain.Order{
		IncrementID:           cart.ReservedOrderID,
		CartID:                cart.ID,
		StoreID:               store.ID,
		CustomerID:            snapshot.CustomerID,
		IsGuest:               cart.IsGuest,
		CustomerEmail:         cart.CustomerEmail,
		CustomerFirstname:     cart.CustomerFirstname,
		CustomerLastname:      cart.CustomerLastname,
		Status:                status,
		Items:                 snapshot.Items,
		ShippingAddress:       snapshot.ShippingAddress,
		BillingAddress:        snapshot.BillingAddress,
		PaymentMethod:         cart.Payment.Method,
		PaymentAdditionalData: snapshot.Payment.AdditionalData,
		PaymentReference:      paymentReference,
		Totals:                totals.Clone(),
	}
	if !cart.IsVirtual() {
		order.ShippingMethod = cart.ShippingMethod
	}
	return order
}

// History is one page of a customer's orders.
type History struct {
	Items      []domain.Order `json:"items"`
	TotalCount int            `json:"total_count"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
}

// Page size limits of History.
const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

// History lists the customer's orders, newest first. page starts at 1; pageSize
// defaults to DefaultPageSize and is capped at MaxPageSize.
func (s *Service) History(ctx context.Context, customerID string, page, pageSize int) (*History, error) {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize <= 0:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}
	orders, total, err := s.orders.ListByCustomer(ctx, customerID, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return &History{Items: orders, TotalCount: total, Page: page, PageSize: pageSize}, nil
}
