package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "tracking", Name: "sessions_active", Help: "Open tracking sessions"})

	EventsOut = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tracking", Name: "events_out_total", Help: "Events fanned out to subscribers"},
		[]string{"event"},
	)

	JoinsDenied       = promauto.NewCounter(prometheus.CounterOpts{Namespace: "tracking", Name: "joins_denied_total", Help: "Channel join requests denied"})
	LocationUpdates   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "tracking", Name: "location_updates_total", Help: "Driver location updates accepted"})
	LocationsRejected = promauto.NewCounter(prometheus.CounterOpts{Namespace: "tracking", Name: "location_updates_rejected_total", Help: "Driver location updates rejected for invalid coordinates"})

	OrderEventsIn = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tracking", Name: "order_events_in_total", Help: "Order lifecycle events received from order management"},
		[]string{"event", "transport"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tracking", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tracking",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
