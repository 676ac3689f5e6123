package invoices

import (
	"context"
	"time"
)

// PaymentRequestDetails is the node's decoding of a BOLT11 payment request.
type PaymentRequestDetails struct {
	PaymentHash string
	ExpiresAt   time.Time
	AmountSats  int64
	Description string
}

// Invoice is the node's view of an invoice identified by payment hash.
type Invoice struct {
	PaymentHash string
	Settled     bool
	State       string
}

// NodeClient defines the Lightning node operations the checker needs.
type NodeClient interface {
	DecodePaymentRequest(ctx context.Context, paymentRequest string) (*PaymentRequestDetails, error)
	LookupInvoice(ctx context.Context, paymentHash string) (*Invoice, error)
	Ping(ctx context.Context) error
	Close() error
}
