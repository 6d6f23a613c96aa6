package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Consumer results.
const (
	ResultProcessed = "processed"
	ResultDuplicate = "duplicate"
	ResultRetried   = "retried"
	ResultDropped   = "dropped"
	ResultNacked    = "nacked"
	ResultSkipped   = "skipped"
)

// ConsumerMetrics tracks message handling per consumer.
type ConsumerMetrics struct {
	messages *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewConsumerMetrics(reg prometheus.Registerer) *ConsumerMetrics {
	if reg == nil {
		return &ConsumerMetrics{}
	}
	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sagabank_consumer_messages_total",
		Help: "Messages handled by saga consumers, by result.",
	}, []string{"consumer", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sagabank_consumer_handler_duration_seconds",
		Help:    "Time spent in consumer handlers, retries included.",
		Buckets: prometheus.DefBuckets,
	}, []string{"consumer"})
	reg.MustRegister(messages, duration)
	return &ConsumerMetrics{messages: messages, duration: duration}
}

func (c *ConsumerMetrics) Inc(consumer, result string) {
	if c == nil || c.messages == nil {
		return
	}
	c.messages.WithLabelValues(normalizeLabel(consumer), normalizeLabel(result)).Inc()
}

func (c *ConsumerMetrics) ObserveDuration(consumer string, d time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(consumer)).Observe(d.Seconds())
}
