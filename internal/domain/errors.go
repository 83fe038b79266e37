package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error surfaced by the services wraps exactly one of them.
var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation failed")
	ErrNotAuthorized = errors.New("not authorized")
	ErrExternal      = errors.New("commerce engine error")
	ErrSubmission    = errors.New("order submission failed")
)

// Error carries a client-facing message and the kind it belongs to.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

var (
	ErrCartConverted          = &Error{Kind: ErrValidation, Msg: "cart has already been converted to an order"}
	ErrInvalidCoupon          = &Error{Kind: ErrValidation, Msg: "coupon code is not valid"}
	ErrShippingAddressMissing = &Error{Kind: ErrValidation, Msg: "shipping address is not set"}
	ErrShippingMethodInvalid  = &Error{Kind: ErrValidation, Msg: "shipping method is not available"}
	ErrPaymentMethodInvalid   = &Error{Kind: ErrValidation, Msg: "payment method is not available"}
	ErrOutOfStock             = &Error{Kind: ErrValidation, Msg: "product is out of stock"}
	ErrProductNotFound        = &Error{Kind: ErrNotFound, Msg: "product not found"}
	ErrItemNotFound           = &Error{Kind: ErrNotFound, Msg: "cart item not found"}
	ErrCustomerNotFound       = &Error{Kind: ErrNotFound, Msg: "customer not found"}
	ErrAddressNotFound        = &Error{Kind: ErrNotFound, Msg: "address not found"}
	ErrCartNotFound           = &Error{Kind: ErrNotFound, Msg: "cart not found"}
	ErrPaymentDeclined        = &Error{Kind: ErrExternal, Msg: "payment was declined"}
	ErrEmailTaken             = &Error{Kind: ErrAlreadyExists, Msg: "a customer with this email already exists"}

	// ErrAccessDenied is the single message every authorization failure reports,
	// so callers cannot tell a missing cart from a foreign one.
	ErrAccessDenied = &Error{Kind: ErrNotAuthorized, Msg: "you don't have permission to access this cart"}
)

// Validationf builds a validation error with a formatted message.
func Validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

// Externalf builds an engine error with a formatted message.
func Externalf(format string, args ...any) error {
	return &Error{Kind: ErrExternal, Msg: fmt.Sprintf(format, args...)}
}

// Submissionf builds a submission error with a formatted message.
func Submissionf(format string, args ...any) error {
	return &Error{Kind: ErrSubmission, Msg: fmt.Sprintf(format, args...)}
}

// SubmissionError reports a failed order submission together with its cause.
type SubmissionError struct {
	Cause error
}

func (e *SubmissionError) Error() string {
	return "order could not be placed: " + Message(e.Cause)
}

func (e *SubmissionError) Unwrap() []error { return []error{ErrSubmission, e.Cause} }

// submission is checked first: a SubmissionError also matches the kind of its cause.
var kinds = []error{ErrSubmission, ErrValidation, ErrNotAuthorized, ErrNotFound, ErrAlreadyExists, ErrExternal}

// Kind returns the kind sentinel err belongs to, or nil for unclassified errors.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Message returns the client-facing text for err.
func Message(err error) string {
	var se *SubmissionError
	if errors.As(err, &se) {
		return se.Error()
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Msg
	}
	return err.Error()
}
