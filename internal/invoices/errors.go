package invoices

import "errors"

// Domain errors surfaced by payment request resolution and invoice lookups.
var (
	ErrInvalidPaymentRequest = errors.New("invalid payment request")
	ErrInvoiceNotFound       = errors.New("invoice not found")
	ErrNodeUnavailable       = errors.New("lightning node unavailable")
)
