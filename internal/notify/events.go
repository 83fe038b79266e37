// Package notify publishes the customer and operator notifications of the checkout:
// order confirmations, submission failure apologies and alerts, and password resets.
// A mailer downstream renders them.
package notify

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType names a notification.
type EventType string

const (
	EventOrderPlaced      EventType = "order.placed"
	EventSubmissionFailed EventType = "order.submission_failed"
	EventSubmissionAlert  EventType = "admin.submission_failed"
	EventPasswordReset    EventType = "customer.password_reset"
)

// Topics the events are published to.
const (
	TopicCustomerNotifications = "vsbridge.customer.notifications"
	TopicAdminAlerts           = "vsbridge.admin.alerts"
)

// Event is the payload handed to the mailer.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Recipient  string         `json:"recipient"`
	Subject    string         `json:"subject"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

func newEvent(typ EventType, recipient, subject string, at time.Time, data map[string]any) Event {
	return Event{
		ID:         ulid.Make().String(),
		Type:       typ,
		Recipient:  recipient,
		Subject:    subject,
		OccurredAt: at.UTC(),
		Data:       data,
	}
}
