package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindClassifiesWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("apply coupon: %w", ErrInvalidCoupon)

	assert.Equal(t, ErrValidation, Kind(wrapped))
	assert.True(t, errors.Is(wrapped, ErrInvalidCoupon))
	assert.Equal(t, "coupon code is not valid", Message(wrapped))

	assert.Equal(t, ErrNotFound, Kind(ErrItemNotFound))
	assert.Equal(t, ErrNotAuthorized, Kind(ErrAccessDenied))
	assert.Nil(t, Kind(errors.New("boom")))
}

func TestSubmissionErrorKeepsCause(t *testing.T) {
	err := fmt.Errorf("submit: %w", &SubmissionError{Cause: ErrPaymentDeclined})

	assert.Equal(t, ErrSubmission, Kind(err))
	assert.ErrorIs(t, err, ErrPaymentDeclined)
	assert.Equal(t, "order could not be placed: payment was declined", Message(err))
}
