package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total messages persisted",
		},
		[]string{"room_kind"}, // "SUPPORT" or "NEGOTIATION"
	)

	RoomsOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_rooms_opened_total",
			Help: "Total rooms created",
		},
		[]string{"room_kind"},
	)

	RoomsClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_rooms_closed_total",
			Help: "Total rooms closed",
		},
	)

	NegotiationsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_negotiations_started_total",
			Help: "Total negotiations started (order + room pairs created)",
		},
	)

	// Transport metrics
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_connections_active",
			Help: "Currently connected websocket clients",
		},
	)

	BroadcastsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_ws_broadcasts_delivered_total",
			Help: "Messages delivered to individual subscribers",
		},
	)

	SubscribersDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_ws_subscribers_dropped_total",
			Help: "Subscribers disconnected because their outbound buffer overflowed",
		},
	)

	// Rate limit metrics
	SendsThrottled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_sends_throttled_total",
			Help: "Message sends rejected by the rate limiter",
		},
	)

	// Infrastructure metrics
	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_store_latency_seconds",
			Help:    "Store operation latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1},
		},
		[]string{"op"},
	)
)
