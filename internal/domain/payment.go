// Package domain contains the core types shared across the service.
package domain

// PaymentStatus is a lifecycle state of a Lightning invoice.
type PaymentStatus string

// Payment statuses as delivered on the wire.
const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusExpired PaymentStatus = "EXPIRED"
)

// Terminal reports whether the status ends the invoice's notification
// lifecycle. PENDING is informational and may repeat; PAID and EXPIRED are
// final.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusExpired
}

// SubscriptionError is a single error as delivered to a subscriber.
type SubscriptionError struct {
	Message string `json:"message"`
}

// EventKind selects which case of a StatusEvent is populated.
type EventKind int

// StatusEvent cases.
const (
	EventKindStatus EventKind = iota
	EventKindErrors
)

// StatusEvent is the payload delivered over a payment status trigger.
// It is a two-case variant: either a payment status or a list of errors,
// never both. Kind selects the populated case.
type StatusEvent struct {
	Kind   EventKind
	Status PaymentStatus
	Errors []SubscriptionError
}

// NewStatusEvent builds the status case.
func NewStatusEvent(status PaymentStatus) StatusEvent {
	return StatusEvent{Kind: EventKindStatus, Status: status}
}

// NewErrorsEvent builds the errors case.
func NewErrorsEvent(errs ...SubscriptionError) StatusEvent {
	return StatusEvent{Kind: EventKindErrors, Errors: errs}
}

// Terminal reports whether no further meaningful events follow this one on
// the same trigger. Consumers must ignore anything delivered after the first
// terminal event.
func (e StatusEvent) Terminal() bool {
	return e.Kind == EventKindErrors || e.Status.Terminal()
}
