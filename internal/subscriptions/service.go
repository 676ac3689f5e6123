// Package subscriptions implements payment status subscriptions: resolving
// an invoice's current status, binding the caller to its event stream, and
// arming the expiry timer that emits the terminal EXPIRED event.
package subscriptions

import (
	"context"

	"github.com/satsignal/satsignal/internal/domain"
	"github.com/satsignal/satsignal/internal/invoices"
	"github.com/satsignal/satsignal/internal/pkg/ctxlog"
	"github.com/satsignal/satsignal/internal/pubsub"
)

// PaymentStatusChecker resolves a payment request into an invoice record.
type PaymentStatusChecker interface {
	Resolve(ctx context.Context, paymentRequest string) (*invoices.InvoiceRecord, error)
}

// Service is the subscription entry point.
type Service struct {
	checker PaymentStatusChecker
	broker  *pubsub.Broker
	expiry  *ExpiryScheduler
}

// NewService creates a subscription service.
func NewService(checker PaymentStatusChecker, broker *pubsub.Broker, expiry *ExpiryScheduler) *Service {
	return &Service{
		checker: checker,
		broker:  broker,
		expiry:  expiry,
	}
}

// Subscribe binds the caller to the payment status stream of the invoice
// identified by paymentRequest. The initial status (or a resolution error)
// is published deferred, so the returned stream always observes it as its
// first event. A malformed payment request fails the call itself instead of
// producing an event.
//
// Runtime failures past validation never fail the call: they are delivered
// as a terminal errors event on the stream and are not retried here.
func (s *Service) Subscribe(ctx context.Context, paymentRequest string) (*pubsub.Stream, error) {
	if err := invoices.ValidatePaymentRequest(paymentRequest); err != nil {
		return nil, err
	}

	record, err := s.checker.Resolve(ctx, paymentRequest)
	if err != nil {
		// Payment hash unknown, fall back to the raw request as the
		// trigger suffix.
		ctxlog.FromContext(ctx).Debug("payment request resolution failed", "error", err)
		trigger := pubsub.BuildTrigger(pubsub.EventLnPaymentStatus, paymentRequest)
		s.broker.PublishDeferred(trigger, domain.NewErrorsEvent(MapError(err)))
		recordSubscription(firstEventError)
		return s.broker.CreateStream(trigger), nil
	}

	trigger := pubsub.BuildTrigger(pubsub.EventLnPaymentStatus, record.PaymentHash)

	paid, err := record.IsPaid(ctx)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("invoice paid check failed", "payment_hash", record.PaymentHash, "error", err)
		s.broker.PublishDeferred(trigger, domain.NewErrorsEvent(MapError(err)))
		recordSubscription(firstEventError)
		return s.broker.CreateStream(trigger), nil
	}

	if paid {
		s.broker.PublishDeferred(trigger, domain.NewStatusEvent(domain.PaymentStatusPaid))
		recordSubscription(firstEventPaid)
		return s.broker.CreateStream(trigger), nil
	}

	status := domain.PaymentStatusPending
	if record.IsExpired() {
		status = domain.PaymentStatusExpired
	}
	s.broker.PublishDeferred(trigger, domain.NewStatusEvent(status))

	if status == domain.PaymentStatusPending {
		s.expiry.Arm(trigger, record.ExpiresAt)
		recordSubscription(firstEventPending)
	} else {
		recordSubscription(firstEventExpired)
	}

	return s.broker.CreateStream(trigger), nil
}
