package pubsub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "satsignal"

const (
	dropReasonNoSubscribers = "no_subscribers"
	dropReasonSlowConsumer  = "slow_consumer"
)

var (
	activeStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pubsub",
			Name:      "active_streams",
			Help:      "Number of currently registered event streams",
		},
	)

	eventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pubsub",
			Name:      "events_delivered_total",
			Help:      "Total events delivered to streams",
		},
	)

	eventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pubsub",
			Name:      "events_dropped_total",
			Help:      "Total events dropped instead of delivered",
		},
		[]string{"reason"},
	)
)

func recordEventPublished() {
	eventsPublished.Inc()
}

func recordEventDropped(reason string) {
	eventsDropped.WithLabelValues(reason).Inc()
}
