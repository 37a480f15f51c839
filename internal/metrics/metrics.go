package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whiteboard_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "whiteboard_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Connection metrics
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "whiteboard_ws_connections",
			Help: "Open websocket connections",
		},
	)

	AuthFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "whiteboard_ws_auth_failures_total",
			Help: "Websocket handshakes refused for a bad credential",
		},
	)

	DroppedFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whiteboard_ws_dropped_frames_total",
			Help: "Frames dropped by the server",
		},
		[]string{"reason"}, // "rate_limited", "slow_consumer", "malformed"
	)

	// Room metrics
	RoomEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whiteboard_room_events_total",
			Help: "Room operations applied",
		},
		[]string{"event"},
	)

	RoomErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whiteboard_room_errors_total",
			Help: "Room operations rejected",
		},
		[]string{"event", "kind"},
	)

	RoomStates = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "whiteboard_room_states",
			Help: "Rooms with in-memory state",
		},
	)

	// Chat metrics
	ChatMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "whiteboard_chat_messages_total",
			Help: "Chat messages persisted",
		},
	)

	ChatCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whiteboard_chat_cache_lookups_total",
			Help: "Recent chat lookups against the cache",
		},
		[]string{"result"}, // "hit", "miss", "error"
	)

	// Infrastructure metrics
	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "whiteboard_store_latency_seconds",
			Help:    "Durable store call latency",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25},
		},
		[]string{"op"},
	)
)
