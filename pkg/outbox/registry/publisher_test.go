package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sagabank-backend/pkg/config"
	"github.com/angelmondragon/sagabank-backend/pkg/db/models"
	"github.com/angelmondragon/sagabank-backend/pkg/enums"
	"github.com/angelmondragon/sagabank-backend/pkg/outbox"
	"github.com/angelmondragon/sagabank-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/sagabank-backend/pkg/types"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := newTestEventRegistry(t)

	txID := uuid.New()
	payloadBytes := mustMarshal(t, payloads.AccountActionDoneEvent{
		TransactionMessage: payloads.TransactionMessage{
			TransactionID:     txID.String(),
			AccountNumber:     uuid.NewString(),
			Amount:            types.MustParseAmount("25.00"),
			TransactionType:   enums.TransactionTypeDeposit,
			TransactionStatus: enums.TransactionStatusAccepted,
		},
	})

	event := models.OutboxEvent{
		EventType:     enums.EventAccountActionDoneFinalizer,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   txID,
		Payload:       mustEnvelope(t, payloads.SchemaVersion, payloadBytes),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "finalizer-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.AccountActionDoneEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.TransactionID != txID.String() || !payload.Amount.Equal(types.AmountFromInt(25)) {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" || resolved.Envelope.OccurredAt.IsZero() {
		t.Fatalf("envelope metadata missing: %+v", resolved.Envelope)
	}
}

func TestAccountActionDoneRoutesByDestination(t *testing.T) {
	reg := newTestEventRegistry(t)
	payload := mustEnvelope(t, payloads.SchemaVersion, []byte(`{"transactionId":"x","amount":"1"}`))

	history, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventAccountActionDoneHistory,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   uuid.New(),
		Payload:       payload,
	})
	if err != nil {
		t.Fatalf("resolve history: %v", err)
	}
	if history.Descriptor.Topic != "history-topic" {
		t.Fatalf("history leg routed to %q", history.Descriptor.Topic)
	}
}

func TestEventRegistryRejectsBadRows(t *testing.T) {
	reg := newTestEventRegistry(t)
	validData := []byte(`{"transactionId":"x","amount":"1"}`)

	cases := map[string]models.OutboxEvent{
		"unknown event": {
			EventType:     enums.OutboxEventType("money_printed"),
			AggregateType: enums.AggregateTransaction,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, payloads.SchemaVersion, validData),
		},
		"aggregate mismatch": {
			EventType:     enums.EventTransactionCreated,
			AggregateType: enums.AggregateAccount,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, payloads.SchemaVersion, validData),
		},
		"missing aggregate id": {
			EventType:     enums.EventTransactionCreated,
			AggregateType: enums.AggregateTransaction,
			Payload:       mustEnvelope(t, payloads.SchemaVersion, validData),
		},
		"null payload": {
			EventType:     enums.EventTransactionCreated,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, payloads.SchemaVersion, []byte("null")),
		},
		"future schema": {
			EventType:     enums.EventTransactionCreated,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, payloads.SchemaVersion+1, validData),
		},
		"bad amount": {
			EventType:     enums.EventTransactionCompleted,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, payloads.SchemaVersion, []byte(`{"amount":"lots"}`)),
		},
	}

	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			if err == nil {
				t.Fatalf("expected error")
			}
			var nonRetry NonRetryableError
			if !errors.As(err, &nonRetry) {
				t.Fatalf("expected non-retryable error, got %T", err)
			}
		})
	}
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{}); err == nil {
		t.Fatal("expected missing topic error")
	}
}

func TestUserCreatedIsOptional(t *testing.T) {
	cfg := testPubSubConfig()
	cfg.UserCreatedTopic = ""
	reg, err := NewEventRegistry(cfg)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	if len(reg.Topics()) != 4 {
		t.Fatalf("expected 4 topics, got %v", reg.Topics())
	}
	_, err = reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventUserCreated,
		AggregateType: enums.AggregateUser,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, payloads.SchemaVersion, []byte(`{"userId":"u"}`)),
	})
	if err == nil {
		t.Fatal("user_created should be unsupported without a topic")
	}
}

func testPubSubConfig() config.PubSubConfig {
	return config.PubSubConfig{
		TransactionCreatedTopic:         "created-topic",
		HistoryAccountActionDoneTopic:   "history-topic",
		FinalizerAccountActionDoneTopic: "finalizer-topic",
		TransactionCompletedTopic:       "completed-topic",
		UserCreatedTopic:                "users-topic",
	}
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(testPubSubConfig())
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func mustEnvelope(t *testing.T, version int, payload []byte) json.RawMessage {
	t.Helper()
	envelope := outbox.PayloadEnvelope{
		Version:    version,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return data
}
