package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notetree_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notetree_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	NotesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notetree_notes_created_total",
			Help: "Total notes accepted for indexing",
		},
	)

	SearchJobsQueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notetree_search_jobs_queued_total",
			Help: "Total search jobs queued",
		},
	)

	EnqueueFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notetree_enqueue_failures_total",
			Help: "Total stream append failures",
		},
		[]string{"stream"},
	)

	// Notification relay metrics
	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notetree_notifications_dispatched_total",
			Help: "Total notifications routed to live connections",
		},
		[]string{"event"},
	)

	NotificationsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notetree_notifications_dropped_total",
			Help: "Total broadcast messages discarded",
		},
		[]string{"reason"},
	)

	// Websocket metrics
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notetree_ws_connections_active",
			Help: "Currently connected websocket clients",
		},
	)

	ConnectionsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notetree_ws_connections_rejected_total",
			Help: "Websocket handshakes rejected at authentication",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notetree_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)
)
