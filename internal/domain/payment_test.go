package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentStatus_Terminal(t *testing.T) {
	tests := []struct {
		status   PaymentStatus
		terminal bool
	}{
		{PaymentStatusPending, false},
		{PaymentStatusPaid, true},
		{PaymentStatusExpired, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.Terminal())
		})
	}
}

func TestStatusEvent_Terminal(t *testing.T) {
	tests := []struct {
		name     string
		event    StatusEvent
		terminal bool
	}{
		{"pending", NewStatusEvent(PaymentStatusPending), false},
		{"paid", NewStatusEvent(PaymentStatusPaid), true},
		{"expired", NewStatusEvent(PaymentStatusExpired), true},
		{"errors", NewErrorsEvent(SubscriptionError{Message: "boom"}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.event.Terminal())
		})
	}
}

func TestNewErrorsEvent_KeepsMessages(t *testing.T) {
	event := NewErrorsEvent(
		SubscriptionError{Message: "first"},
		SubscriptionError{Message: "second"},
	)

	assert.Equal(t, EventKindErrors, event.Kind)
	assert.Len(t, event.Errors, 2)
	assert.Equal(t, "first", event.Errors[0].Message)
}
