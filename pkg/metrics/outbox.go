package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics tracks the publisher loop per destination topic. The two
// AccountActionDone topics carry the same saga step to different consumers,
// so event_type alone cannot tell a stuck finalizer feed from a stuck
// history feed.
type OutboxMetrics struct {
	published  *prometheus.CounterVec
	failed     *prometheus.CounterVec
	deadLetter *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sagabank_outbox_published_total",
		Help: "Saga events acknowledged by Pub/Sub.",
	}, []string{"event_type", "topic"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sagabank_outbox_publish_failures_total",
		Help: "Publish attempts that failed and will be retried.",
	}, []string{"event_type", "topic"})
	deadLetter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sagabank_outbox_dead_lettered_total",
		Help: "Saga events moved to outbox_dlq.",
	}, []string{"event_type", "reason"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sagabank_outbox_publish_seconds",
		Help:    "Time until Pub/Sub acknowledged a publish, per topic.",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
	reg.MustRegister(published, failed, deadLetter, latency)
	return &OutboxMetrics{published: published, failed: failed, deadLetter: deadLetter, latency: latency}
}

// ObservePublish records one publish attempt against topic.
func (o *OutboxMetrics) ObservePublish(eventType, topic string, elapsed time.Duration, err error) {
	if o == nil || o.published == nil {
		return
	}
	topic = normalizeLabel(topic)
	o.latency.WithLabelValues(topic).Observe(elapsed.Seconds())
	if err != nil {
		o.failed.WithLabelValues(normalizeLabel(eventType), topic).Inc()
		return
	}
	o.published.WithLabelValues(normalizeLabel(eventType), topic).Inc()
}

func (o *OutboxMetrics) IncDeadLettered(eventType, reason string) {
	if o == nil || o.deadLetter == nil {
		return
	}
	o.deadLetter.WithLabelValues(normalizeLabel(eventType), normalizeLabel(reason)).Inc()
}
