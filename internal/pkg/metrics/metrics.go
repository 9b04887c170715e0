package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venuebook_http_requests_total",
			Help: "Total handled HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "venuebook_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ReservationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venuebook_reservations_created_total",
			Help: "Reservations created, by admission outcome",
		},
		[]string{"outcome"}, // direct | waitlist
	)

	WaitlistJoins = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "venuebook_waitlist_joins_total",
			Help: "Explicit waitlist entries created",
		},
	)

	WaitlistPromotions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venuebook_waitlist_promotions_total",
			Help: "Promotion attempts, by result",
		},
		[]string{"result"}, // offered | no_candidate | skipped
	)

	OffersExpired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venuebook_waitlist_offers_expired_total",
			Help: "Waitlist offers expired, by detection path",
		},
		[]string{"path"}, // lazy | sweep
	)

	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venuebook_outbox_jobs_total",
			Help: "Outbox jobs drained, by result",
		},
		[]string{"result"}, // published | retried | failed
	)
)
