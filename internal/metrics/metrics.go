package metrics

import (
	"time"

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
			Help: "Total messages accepted by the write path",
		},
		[]string{"kind"}, // "text", "image" or "video"
	)

	JobsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_ai_jobs_dispatched_total",
			Help: "Total AI jobs handed to the scheduler",
		},
		[]string{"job_kind"},
	)

	JobReplies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_ai_replies_total",
			Help: "Total AI replies written, by outcome",
		},
		[]string{"outcome"}, // "success", "empty", "provider_error", "unsupported"
	)

	JobsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_ai_jobs_skipped_total",
			Help: "Jobs dropped because they were already claimed",
		},
	)

	ProviderLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_ai_provider_latency_seconds",
			Help:    "Generation provider call latency",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	SenderLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_sender_lookups_total",
			Help: "Sender resolutions during message reads",
		},
		[]string{"result"}, // "hit" or "miss"
	)

	WebhookVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_webhook_verifications_total",
			Help: "Webhook signature verifications",
		},
		[]string{"result"}, // "verified", "rejected" or "replayed"
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	StreamSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_stream_subscribers",
			Help: "Connected realtime subscribers",
		},
	)

	// Infrastructure metrics
	RedisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_redis_latency_seconds",
			Help:    "Redis operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)

	PostgresLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_postgres_latency_seconds",
			Help:    "PostgreSQL query latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1},
		},
	)
)

// ObserveSince records the time elapsed since start. Use with defer.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}
