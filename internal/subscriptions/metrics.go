package subscriptions

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "satsignal"

const (
	firstEventPending = "pending"
	firstEventPaid    = "paid"
	firstEventExpired = "expired"
	firstEventError   = "error"
)

var (
	subscriptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscriptions",
			Name:      "total",
			Help:      "Total subscribe calls by first delivered event",
		},
		[]string{"first_event"},
	)

	expiryTimersArmed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscriptions",
			Name:      "expiry_timers_armed_total",
			Help:      "Total expiry timers armed",
		},
	)

	expiryTimersFired = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscriptions",
			Name:      "expiry_timers_fired_total",
			Help:      "Total expiry timers that fired",
		},
	)
)

func recordSubscription(firstEvent string) {
	subscriptionsTotal.WithLabelValues(firstEvent).Inc()
}

func recordTimerArmed() {
	expiryTimersArmed.Inc()
}

func recordTimerFired() {
	expiryTimersFired.Inc()
}
