package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/sagabank-backend/pkg/correlation"
	"github.com/angelmondragon/sagabank-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sagabank-backend/pkg/errors"
	"github.com/angelmondragon/sagabank-backend/pkg/logger"
	"github.com/angelmondragon/sagabank-backend/pkg/outbox"
	"github.com/angelmondragon/sagabank-backend/pkg/outbox/payloads"
)

type stubReceiver struct{}

func (stubReceiver) Receive(context.Context, func(context.Context, *pubsub.Message)) error {
	return nil
}

type memoryDeduper struct {
	marked map[string]bool
	err    error
}

func newMemoryDeduper() *memoryDeduper {
	return &memoryDeduper{marked: map[string]bool{}}
}

func (m *memoryDeduper) Seen(_ context.Context, consumer, key string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.marked[consumer+":"+key], nil
}

func (m *memoryDeduper) MarkProcessed(_ context.Context, consumer, key string) error {
	m.marked[consumer+":"+key] = true
	return nil
}

type harness struct {
	runner *Runner
	dedupe *memoryDeduper
	calls  int
	last   Message
	ctx    context.Context
	slept  []time.Duration
}

func newHarness(t *testing.T, handle func(calls int) error) *harness {
	t.Helper()
	h := &harness{dedupe: newMemoryDeduper()}
	runner, err := NewRunner(Options{
		Name:       "history-created",
		EventTypes: []enums.OutboxEventType{enums.EventTransactionCreated},
		Handler: HandlerFunc(func(ctx context.Context, msg Message) error {
			h.calls++
			h.last = msg
			h.ctx = ctx
			return handle(h.calls)
		}),
		Subscription:  stubReceiver{},
		Idempotency:   h.dedupe,
		Logger:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		RetryLimit:    3,
		RetryInterval: 500 * time.Millisecond,
	})
	require.NoError(t, err)
	runner.sleep = func(_ context.Context, d time.Duration) error {
		h.slept = append(h.slept, d)
		return nil
	}
	h.runner = runner
	return h
}

func createdMessage(t *testing.T, eventID string, version int) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(payloads.TransactionCreatedEvent{TransactionMessage: payloads.TransactionMessage{
		TransactionID:   "tx-1",
		AccountNumber:   "acc-1",
		TransactionType: enums.TransactionTypeDeposit,
	}})
	require.NoError(t, err)
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:       version,
		EventID:       eventID,
		OccurredAt:    time.Now().UTC(),
		CorrelationID: "corr-1",
		Data:          data,
	})
	require.NoError(t, err)
	return &pubsub.Message{
		ID:         "msg-" + eventID,
		Data:       envelope,
		Attributes: map[string]string{"event_type": string(enums.EventTransactionCreated)},
	}
}

func TestProcessDeliversDecodedPayload(t *testing.T) {
	h := newHarness(t, func(int) error { return nil })

	result := h.runner.process(context.Background(), createdMessage(t, "evt-1", payloads.SchemaVersion))

	assert.Equal(t, outcomeAck, result)
	require.Equal(t, 1, h.calls)
	payload, ok := h.last.Payload.(*payloads.TransactionCreatedEvent)
	require.True(t, ok, "unexpected payload %T", h.last.Payload)
	assert.Equal(t, "tx-1", payload.TransactionID)
	assert.Equal(t, "evt-1", h.last.Envelope.EventID)
	assert.Equal(t, "corr-1", correlation.FromContext(h.ctx))
}

func TestProcessSkipsDuplicates(t *testing.T) {
	h := newHarness(t, func(int) error { return nil })
	msg := createdMessage(t, "evt-dup", payloads.SchemaVersion)

	assert.Equal(t, outcomeAck, h.runner.process(context.Background(), msg))
	assert.Equal(t, outcomeAck, h.runner.process(context.Background(), msg))
	assert.Equal(t, 1, h.calls)
}

func TestProcessIgnoresOtherEventTypes(t *testing.T) {
	h := newHarness(t, func(int) error { return nil })
	msg := createdMessage(t, "evt-2", payloads.SchemaVersion)
	msg.Attributes["event_type"] = string(enums.EventTransactionCompleted)

	assert.Equal(t, outcomeAck, h.runner.process(context.Background(), msg))
	assert.Zero(t, h.calls)
}

func TestProcessDropsUnknownSchemaVersion(t *testing.T) {
	h := newHarness(t, func(int) error { return nil })

	assert.Equal(t, outcomeAck, h.runner.process(context.Background(), createdMessage(t, "evt-3", payloads.SchemaVersion+1)))
	assert.Zero(t, h.calls)
}

func TestProcessDropsMalformedEnvelope(t *testing.T) {
	h := newHarness(t, func(int) error { return nil })
	msg := &pubsub.Message{
		ID:         "bad",
		Data:       []byte("{not json"),
		Attributes: map[string]string{"event_type": string(enums.EventTransactionCreated)},
	}
	assert.Equal(t, outcomeAck, h.runner.process(context.Background(), msg))
	assert.Zero(t, h.calls)
}

func TestProcessRetriesThenSucceeds(t *testing.T) {
	h := newHarness(t, func(calls int) error {
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})

	assert.Equal(t, outcomeAck, h.runner.process(context.Background(), createdMessage(t, "evt-4", payloads.SchemaVersion)))
	assert.Equal(t, 3, h.calls)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}, h.slept)
	assert.True(t, h.dedupe.marked["history-created:evt-4"])
}

func TestProcessNacksAfterRetriesExhausted(t *testing.T) {
	h := newHarness(t, func(int) error {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db down"), "save failed")
	})
	msg := createdMessage(t, "evt-5", payloads.SchemaVersion)

	assert.Equal(t, outcomeNack, h.runner.process(context.Background(), msg))
	assert.Equal(t, 4, h.calls, "one attempt plus three retries")
	assert.Len(t, h.slept, 3)
	assert.Empty(t, h.dedupe.marked)

	assert.Equal(t, outcomeNack, h.runner.process(context.Background(), msg))
	assert.Equal(t, 8, h.calls)
}

func TestProcessMarksOnlyAfterHandlerSucceeds(t *testing.T) {
	var h *harness
	h = newHarness(t, func(int) error {
		assert.Empty(t, h.dedupe.marked, "marker must not exist while the handler runs")
		return nil
	})

	assert.Equal(t, outcomeAck, h.runner.process(context.Background(), createdMessage(t, "evt-7", payloads.SchemaVersion)))
	assert.True(t, h.dedupe.marked["history-created:evt-7"])
}

func TestProcessAppliesRedeliveryAfterHandlerPanic(t *testing.T) {
	h := newHarness(t, func(calls int) error {
		if calls == 1 {
			panic("worker lost mid-handler")
		}
		return nil
	})
	msg := createdMessage(t, "evt-8", payloads.SchemaVersion)

	assert.Equal(t, outcomeNack, h.runner.process(context.Background(), msg))
	assert.Equal(t, 1, h.calls, "a panic is not retried in process")
	assert.Empty(t, h.dedupe.marked)

	assert.Equal(t, outcomeAck, h.runner.process(context.Background(), msg))
	assert.Equal(t, 2, h.calls)
	assert.True(t, h.dedupe.marked["history-created:evt-8"])

	assert.Equal(t, outcomeAck, h.runner.process(context.Background(), msg))
	assert.Equal(t, 2, h.calls, "completed events are filtered")
}

func TestProcessDoesNotRetryPermanentErrors(t *testing.T) {
	cases := map[string]error{
		"permanent":  Permanent(errors.New("poison")),
		"validation": pkgerrors.New(pkgerrors.CodeValidation, "bad input"),
		"override":   pkgerrors.New(pkgerrors.CodeInternal, "no retry").WithRetry(false),
	}
	for name, handlerErr := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, func(int) error { return handlerErr })
			assert.Equal(t, outcomeAck, h.runner.process(context.Background(), createdMessage(t, "evt-"+name, payloads.SchemaVersion)))
			assert.Equal(t, 1, h.calls)
			assert.Empty(t, h.slept)
		})
	}
}

func TestProcessNacksWhenIdempotencyStoreFails(t *testing.T) {
	h := newHarness(t, func(int) error { return nil })
	h.dedupe.err = errors.New("redis unavailable")

	assert.Equal(t, outcomeNack, h.runner.process(context.Background(), createdMessage(t, "evt-6", payloads.SchemaVersion)))
	assert.Zero(t, h.calls)
}

func TestNewRunnerValidation(t *testing.T) {
	logg := logger.New(logger.Options{Output: io.Discard})
	handler := HandlerFunc(func(context.Context, Message) error { return nil })
	base := Options{
		Name:         "x",
		EventTypes:   []enums.OutboxEventType{enums.EventUserCreated},
		Handler:      handler,
		Subscription: stubReceiver{},
		Logger:       logg,
	}

	_, err := NewRunner(base)
	require.NoError(t, err)

	for name, mutate := range map[string]func(*Options){
		"name":         func(o *Options) { o.Name = "" },
		"handler":      func(o *Options) { o.Handler = nil },
		"subscription": func(o *Options) { o.Subscription = nil },
		"event types":  func(o *Options) { o.EventTypes = nil },
		"logger":       func(o *Options) { o.Logger = nil },
		"retry limit":  func(o *Options) { o.RetryLimit = -1 },
	} {
		opts := base
		mutate(&opts)
		_, err := NewRunner(opts)
		assert.Error(t, err, name)
	}
}

func TestSleepContextHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, sleepContext(ctx, time.Hour))
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
}
