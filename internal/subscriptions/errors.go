package subscriptions

import (
	"errors"

	"github.com/satsignal/satsignal/internal/domain"
	"github.com/satsignal/satsignal/internal/invoices"
)

// ErrMissingPayload is reported when a stream hands the projection no
// payload at all. That means the transport is misconfigured, not that the
// invoice failed.
var ErrMissingPayload = errors.New("missing subscription payload, check the endpoint used for the subscription")

// MapError translates a domain failure into the error payload delivered to
// subscribers. Internal detail stays out of the message.
func MapError(err error) domain.SubscriptionError {
	switch {
	case errors.Is(err, invoices.ErrInvalidPaymentRequest):
		return domain.SubscriptionError{Message: "invalid payment request"}
	case errors.Is(err, invoices.ErrInvoiceNotFound):
		return domain.SubscriptionError{Message: "no invoice found for payment request"}
	case errors.Is(err, invoices.ErrNodeUnavailable):
		return domain.SubscriptionError{Message: "temporary failure contacting the lightning node, please try again later"}
	default:
		return domain.SubscriptionError{Message: "unexpected error occurred, please try again later"}
	}
}
