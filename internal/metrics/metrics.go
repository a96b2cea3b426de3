package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion pipeline counters, exposed on the consumer health server.
var (
	WebhooksEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "botmetrics",
		Name:      "webhooks_enqueued_total",
		Help:      "Webhook payloads accepted by the API and enqueued.",
	}, []string{"provider"})

	WebhooksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "botmetrics",
		Name:      "webhooks_received_total",
		Help:      "Webhook payloads received from the ingestion queue.",
	}, []string{"provider"})

	NormalizeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "botmetrics",
		Name:      "normalize_failures_total",
		Help:      "Webhook payloads that could not be normalized.",
	}, []string{"provider"})

	EventsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "botmetrics",
		Name:      "events_written_total",
		Help:      "Normalized events written to the analytics store.",
	})

	UsersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "botmetrics",
		Name:      "bot_users_created_total",
		Help:      "Bot users created on first inbound event.",
	})
)
