package notify

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"vsbridge/internal/domain"
	"vsbridge/internal/logging"
)

// Notifier turns checkout outcomes into events.
type Notifier struct {
	publisher  Publisher
	adminEmail string
	logger     *log.Entry
	now        func() time.Time
}

// NewNotifier builds a Notifier. Admin alerts are skipped when adminEmail is empty.
func NewNotifier(publisher Publisher, adminEmail string, logger *log.Entry) *Notifier {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Notifier{
		publisher:  publisher,
		adminEmail: adminEmail,
		logger:     logger.WithField("component", "notifier"),
		now:        time.Now,
	}
}

// OrderPlaced sends the new order email.
func (n *Notifier) OrderPlaced(ctx context.Context, order *domain.Order) error {
	event := newEvent(EventOrderPlaced, order.CustomerEmail, "Your order #"+order.IncrementID, n.now(), map[string]any{
		"order_id":       order.IncrementID,
		"firstname":      order.CustomerFirstname,
		"grand_total":    order.Totals.GrandTotal,
		"currency":       order.Totals.QuoteCurrencyCode,
		"payment_method": order.PaymentMethod,
		"items":          len(order.Items),
	})
	return n.publisher.Publish(ctx, TopicCustomerNotifications, order.IncrementID, event)
}

// SubmissionFailed apologises to the customer and alerts the store administrator.
func (n *Notifier) SubmissionFailed(ctx context.Context, cart *domain.Cart, reason string) error {
	data := map[string]any{
		"cart_id":  cart.ID,
		"order_id": cart.ReservedOrderID,
		"reason":   reason,
	}
	var errs []error
	if cart.CustomerEmail != "" {
		apology := newEvent(EventSubmissionFailed, cart.CustomerEmail, "We could not place your order", n.now(), data)
		errs = append(errs, n.publisher.Publish(ctx, TopicCustomerNotifications, cart.ID, apology))
	}
	if n.adminEmail != "" {
		alert := newEvent(EventSubmissionAlert, n.adminEmail, "Order submission failed for cart "+cart.ID, n.now(), data)
		errs = append(errs, n.publisher.Publish(ctx, TopicAdminAlerts, cart.ID, alert))
	}
	return errors.Join(errs...)
}

// PasswordReset sends the reset link token to the customer.
func (n *Notifier) PasswordReset(ctx context.Context, customer *domain.Customer, token string) error {
	event := newEvent(EventPasswordReset, customer.Email, "Reset your password", n.now(), map[string]any{
		"customer_id": customer.ID,
		"firstname":   customer.Firstname,
		"token":       token,
	})
	return n.publisher.Publish(ctx, TopicCustomerNotifications, customer.ID, event)
}
