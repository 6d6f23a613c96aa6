package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/sagabank-backend/pkg/correlation"
	"github.com/angelmondragon/sagabank-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sagabank-backend/pkg/errors"
	"github.com/angelmondragon/sagabank-backend/pkg/logger"
	"github.com/angelmondragon/sagabank-backend/pkg/metrics"
	"github.com/angelmondragon/sagabank-backend/pkg/outbox"
	"github.com/angelmondragon/sagabank-backend/pkg/outbox/registry"
)

// Message is a decoded saga message handed to a Handler.
type Message struct {
	ID         string
	EventType  enums.OutboxEventType
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
	Attributes map[string]string
}

// Handler applies one message. Returning an error requests a retry unless the
// error is marked Permanent or carries a non-retryable code.
type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

type HandlerFunc func(ctx context.Context, msg Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg Message) error { return f(ctx, msg) }

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type deduper interface {
	Seen(ctx context.Context, consumer, key string) (bool, error)
	MarkProcessed(ctx context.Context, consumer, key string) error
}

type decoder interface {
	Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (interface{}, error)
}

// Options wires a Runner.
type Options struct {
	Name          string
	EventTypes    []enums.OutboxEventType
	Handler       Handler
	Subscription  receiver
	Idempotency   deduper
	Decoders      decoder
	Logger        *logger.Logger
	Metrics       *metrics.ConsumerMetrics
	RetryLimit    int
	RetryInterval time.Duration
}

// Runner receives from one subscription and applies the retry policy around a
// Handler.
type Runner struct {
	name          string
	accepts       map[enums.OutboxEventType]struct{}
	handler       Handler
	subscription  receiver
	idempotency   deduper
	decoders      decoder
	logg          *logger.Logger
	metrics       *metrics.ConsumerMetrics
	retryLimit    int
	retryInterval time.Duration
	sleep         func(ctx context.Context, d time.Duration) error
}

func NewRunner(opts Options) (*Runner, error) {
	if strings.TrimSpace(opts.Name) == "" {
		return nil, fmt.Errorf("consumer name required")
	}
	if opts.Handler == nil {
		return nil, fmt.Errorf("%s: handler required", opts.Name)
	}
	if opts.Subscription == nil {
		return nil, fmt.Errorf("%s: subscription required", opts.Name)
	}
	if len(opts.EventTypes) == 0 {
		return nil, fmt.Errorf("%s: at least one event type required", opts.Name)
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("%s: logger required", opts.Name)
	}
	if opts.RetryLimit < 0 {
		return nil, fmt.Errorf("%s: retry limit must be non-negative", opts.Name)
	}
	decoders := opts.Decoders
	if decoders == nil {
		decoders = registry.NewBankingDecoders()
	}
	accepts := make(map[enums.OutboxEventType]struct{}, len(opts.EventTypes))
	for _, eventType := range opts.EventTypes {
		accepts[eventType] = struct{}{}
	}
	return &Runner{
		name:          opts.Name,
		accepts:       accepts,
		handler:       opts.Handler,
		subscription:  opts.Subscription,
		idempotency:   opts.Idempotency,
		decoders:      decoders,
		logg:          opts.Logger,
		metrics:       opts.Metrics,
		retryLimit:    opts.RetryLimit,
		retryInterval: opts.RetryInterval,
		sleep:         sleepContext,
	}, nil
}

func (r *Runner) Name() string { return r.name }

// Run blocks until ctx is canceled or the subscription fails.
func (r *Runner) Run(ctx context.Context) error {
	r.logg.Info(r.logg.WithField(ctx, "consumer", r.name), "consumer started")
	return r.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if r.process(ctx, msg) == outcomeNack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeNack
)

func (r *Runner) process(ctx context.Context, msg *pubsub.Message) outcome {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	ctx = r.logg.WithFields(ctx, map[string]any{
		"consumer":   r.name,
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	if _, ok := r.accepts[eventType]; !ok {
		r.logg.Debug(ctx, "skipping unrelated event")
		r.metrics.Inc(r.name, metrics.ResultSkipped)
		return outcomeAck
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		r.logg.Error(ctx, "failed to decode envelope", err)
		r.metrics.Inc(r.name, metrics.ResultDropped)
		return outcomeAck
	}
	if strings.TrimSpace(envelope.EventID) == "" {
		r.logg.Error(ctx, "envelope missing event id", errors.New("event id required"))
		r.metrics.Inc(r.name, metrics.ResultDropped)
		return outcomeAck
	}

	correlationID := envelope.CorrelationID
	if correlationID == "" {
		correlationID = msg.Attributes[correlation.Attribute]
	}
	ctx = correlation.WithID(ctx, correlationID)
	ctx = r.logg.WithCorrelationID(ctx, correlationID)
	ctx = r.logg.WithField(ctx, "event_id", envelope.EventID)

	payload, err := r.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		r.logg.Error(ctx, "failed to decode payload", err)
		r.metrics.Inc(r.name, metrics.ResultDropped)
		return outcomeAck
	}
	if txID := transactionIDOf(payload); txID != "" {
		ctx = r.logg.WithTransactionID(ctx, txID)
	}

	if r.idempotency != nil {
		already, err := r.idempotency.Seen(ctx, r.name, envelope.EventID)
		if err != nil {
			r.logg.Error(ctx, "idempotency check failed", err)
			r.metrics.Inc(r.name, metrics.ResultNacked)
			return outcomeNack
		}
		if already {
			r.logg.Info(ctx, "event already processed")
			r.metrics.Inc(r.name, metrics.ResultDuplicate)
			return outcomeAck
		}
	}

	message := Message{
		ID:         msg.ID,
		EventType:  eventType,
		Envelope:   envelope,
		Payload:    payload,
		Attributes: msg.Attributes,
	}

	started := time.Now()
	err = r.handleWithRetry(ctx, message)
	r.metrics.ObserveDuration(r.name, time.Since(started))
	if err == nil {
		r.markProcessed(ctx, envelope.EventID)
		r.metrics.Inc(r.name, metrics.ResultProcessed)
		return outcomeAck
	}

	var panicked *handlerPanic
	if errors.As(err, &panicked) {
		r.logg.Error(ctx, "handler panicked; returning message to subscription", err)
		r.metrics.Inc(r.name, metrics.ResultNacked)
		return outcomeNack
	}

	if !isRetryable(err) {
		r.logg.Error(ctx, "dropping message after non-retryable error", err)
		r.metrics.Inc(r.name, metrics.ResultDropped)
		return outcomeAck
	}

	r.logg.Error(ctx, "retries exhausted; returning message to subscription", err)
	r.metrics.Inc(r.name, metrics.ResultNacked)
	return outcomeNack
}

// markProcessed runs only after the handler committed. A lost marker costs a
// redundant delivery, which the handlers absorb.
func (r *Runner) markProcessed(ctx context.Context, eventID string) {
	if r.idempotency == nil {
		return
	}
	if err := r.idempotency.MarkProcessed(context.WithoutCancel(ctx), r.name, eventID); err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "mark_error", err.Error()), "failed to record processed event")
	}
}

// handleWithRetry runs the handler once plus up to retryLimit retries,
// retryInterval apart.
func (r *Runner) handleWithRetry(ctx context.Context, msg Message) error {
	var err error
	for attempt := 0; attempt <= r.retryLimit; attempt++ {
		if attempt > 0 {
			r.metrics.Inc(r.name, metrics.ResultRetried)
			if sleepErr := r.sleep(ctx, r.retryInterval); sleepErr != nil {
				return err
			}
		}
		err = r.safeHandle(ctx, msg)
		var panicked *handlerPanic
		if err == nil || errors.As(err, &panicked) || !isRetryable(err) {
			return err
		}
		r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
			"attempt": attempt + 1,
			"error":   err.Error(),
		}), "handler failed")
	}
	return err
}

type handlerPanic struct {
	value any
}

func (p *handlerPanic) Error() string {
	return fmt.Sprintf("handler panic: %v", p.value)
}

func (r *Runner) safeHandle(ctx context.Context, msg Message) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &handlerPanic{value: rec}
		}
	}()
	return r.handler.Handle(ctx, msg)
}

func isRetryable(err error) bool {
	if IsPermanent(err) {
		return false
	}
	return pkgerrors.IsRetryable(err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type transactionIdentified interface {
	GetTransactionID() string
}

func transactionIDOf(payload interface{}) string {
	if identified, ok := payload.(transactionIdentified); ok {
		return identified.GetTransactionID()
	}
	return ""
}
