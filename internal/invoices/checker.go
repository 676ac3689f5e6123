// Package invoices resolves Lightning payment requests into invoice records
// through a node client.
package invoices

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ValidatePaymentRequest performs a cheap sanity check on a BOLT11 payment
// request before it is sent to the node. The node performs the
// authoritative decode; this only rejects obviously malformed input.
func ValidatePaymentRequest(paymentRequest string) error {
	if paymentRequest == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPaymentRequest)
	}
	// BOLT11 allows all-lower or all-upper, never mixed.
	req := strings.ToLower(paymentRequest)
	if req != paymentRequest && strings.ToUpper(paymentRequest) != paymentRequest {
		return fmt.Errorf("%w: mixed case", ErrInvalidPaymentRequest)
	}
	if !strings.HasPrefix(req, "ln") {
		return fmt.Errorf("%w: missing ln prefix", ErrInvalidPaymentRequest)
	}
	for _, r := range req {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return fmt.Errorf("%w: invalid character %q", ErrInvalidPaymentRequest, r)
		}
	}
	return nil
}

// InvoiceRecord is a resolved invoice: its stable identity, its deadline,
// and a settlement predicate backed by a fresh node lookup.
type InvoiceRecord struct {
	PaymentHash string
	ExpiresAt   time.Time

	paid func(ctx context.Context) (bool, error)
}

// NewInvoiceRecord builds a record with the given settlement predicate.
func NewInvoiceRecord(paymentHash string, expiresAt time.Time, paid func(ctx context.Context) (bool, error)) *InvoiceRecord {
	return &InvoiceRecord{
		PaymentHash: paymentHash,
		ExpiresAt:   expiresAt,
		paid:        paid,
	}
}

// IsExpired reports whether the invoice deadline has passed.
func (r *InvoiceRecord) IsExpired() bool {
	return !time.Now().Before(r.ExpiresAt)
}

// IsPaid checks settlement with a fresh lookup against the node. The result
// is not cached; every call is a new round trip.
func (r *InvoiceRecord) IsPaid(ctx context.Context) (bool, error) {
	return r.paid(ctx)
}

// Checker resolves payment requests against a Lightning node.
type Checker struct {
	node NodeClient
}

// NewChecker creates a checker backed by the given node client.
func NewChecker(node NodeClient) *Checker {
	return &Checker{node: node}
}

// Resolve decodes the payment request at the node and returns the invoice
// record. Failures are returned as-is; the caller decides how they surface.
func (c *Checker) Resolve(ctx context.Context, paymentRequest string) (*InvoiceRecord, error) {
	details, err := c.node.DecodePaymentRequest(ctx, paymentRequest)
	if err != nil {
		return nil, fmt.Errorf("decode payment request: %w", err)
	}

	paymentHash := details.PaymentHash
	return NewInvoiceRecord(paymentHash, details.ExpiresAt, func(ctx context.Context) (bool, error) {
		invoice, err := c.node.LookupInvoice(ctx, paymentHash)
		if err != nil {
			return false, fmt.Errorf("lookup invoice: %w", err)
		}
		return invoice.Settled, nil
	}), nil
}
