package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code", "method"},
	)

	ReservationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_reservations_total",
			Help: "Total number of reservations created",
		},
	)

	CommitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_commits_total",
			Help: "Total number of fulfillment commits by result",
		},
		[]string{"result"},
	)

	OversellRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_oversell_rejections_total",
			Help: "Commits rejected because stock ran out between hold and commit",
		},
	)

	TicketsMinted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_minted_total",
			Help: "Total number of tickets minted",
		},
	)

	ValidationScans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_validation_scans_total",
			Help: "Ticket validation scans by outcome",
		},
		[]string{"outcome"},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tickets_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tickets_outbox_lag_seconds",
			Help: "Age of the oldest unpublished outbox record",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)
