package subscriptions

import (
	"time"

	"github.com/satsignal/satsignal/internal/domain"
	"github.com/satsignal/satsignal/internal/pubsub"
)

// DefaultExpiryGrace absorbs clock skew between this process and the node
// before an invoice is declared expired.
const DefaultExpiryGrace = time.Second

// ExpiryScheduler arms one-shot timers that publish a terminal EXPIRED
// event when an invoice's deadline passes.
type ExpiryScheduler struct {
	broker *pubsub.Broker
	grace  time.Duration
}

// NewExpiryScheduler creates a scheduler publishing through the given
// broker. A non-positive grace falls back to DefaultExpiryGrace.
func NewExpiryScheduler(broker *pubsub.Broker, grace time.Duration) *ExpiryScheduler {
	if grace <= 0 {
		grace = DefaultExpiryGrace
	}
	return &ExpiryScheduler{broker: broker, grace: grace}
}

// Arm schedules an EXPIRED publish for the trigger at expiresAt plus the
// grace period. Timers fire exactly once and are never cancelled: when the
// invoice is paid first, the late EXPIRED publish is ignored by consumers
// that already saw a terminal event. The returned handle is informational.
func (s *ExpiryScheduler) Arm(trigger pubsub.Trigger, expiresAt time.Time) *time.Timer {
	delay := time.Until(expiresAt)
	if delay < 0 {
		delay = 0
	}
	delay += s.grace

	recordTimerArmed()
	return time.AfterFunc(delay, func() {
		s.broker.Publish(trigger, domain.NewStatusEvent(domain.PaymentStatusExpired))
		recordTimerFired()
	})
}
