package history

import (
	"context"
	"fmt"

	"github.com/angelmondragon/sagabank-backend/internal/consumers"
	"github.com/angelmondragon/sagabank-backend/pkg/db/models"
	"github.com/angelmondragon/sagabank-backend/pkg/enums"
	"github.com/angelmondragon/sagabank-backend/pkg/logger"
	"github.com/angelmondragon/sagabank-backend/pkg/outbox/payloads"
)

// Consumer names, one per subscription.
const (
	ConsumerTransactionCreated   = "history-transaction-created"
	ConsumerAccountActionDone    = "history-account-action-done"
	ConsumerTransactionCompleted = "history-transaction-completed"
)

// Exporter mirrors appended events to a secondary sink.
type Exporter interface {
	Export(ctx context.Context, event models.HistoryEvent) error
}

// Recorder appends exactly one history row per consumed message.
type Recorder struct {
	repo     Repository
	exporter Exporter
	logg     *logger.Logger
}

// NewRecorder wires the recorder. exporter may be nil.
func NewRecorder(repo Repository, exporter Exporter, logg *logger.Logger) (*Recorder, error) {
	if repo == nil {
		return nil, fmt.Errorf("history repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Recorder{repo: repo, exporter: exporter, logg: logg}, nil
}

func (r *Recorder) TransactionCreated() consumers.Handler {
	return consumers.HandlerFunc(func(ctx context.Context, msg consumers.Message) error {
		evt, ok := msg.Payload.(*payloads.TransactionCreatedEvent)
		if !ok || evt == nil {
			return consumers.Permanent(fmt.Errorf("unexpected payload %T", msg.Payload))
		}
		return r.record(ctx, toEvent(evt.TransactionMessage, enums.HistoryEventTransactionCreated, msg.Envelope.EventID))
	})
}

func (r *Recorder) AccountActionDone() consumers.Handler {
	return consumers.HandlerFunc(func(ctx context.Context, msg consumers.Message) error {
		evt, ok := msg.Payload.(*payloads.AccountActionDoneEvent)
		if !ok || evt == nil {
			return consumers.Permanent(fmt.Errorf("unexpected payload %T", msg.Payload))
		}
		eventType := actionEventType(evt.TransactionMessage, evt.IsError)
		return r.record(ctx, toEvent(evt.TransactionMessage, eventType, msg.Envelope.EventID))
	})
}

func (r *Recorder) TransactionCompleted() consumers.Handler {
	return consumers.HandlerFunc(func(ctx context.Context, msg consumers.Message) error {
		evt, ok := msg.Payload.(*payloads.TransactionCompletedEvent)
		if !ok || evt == nil {
			return consumers.Permanent(fmt.Errorf("unexpected payload %T", msg.Payload))
		}
		return r.record(ctx, toEvent(evt.TransactionMessage, enums.HistoryEventTransactionCompleted, msg.Envelope.EventID))
	})
}

func (r *Recorder) record(ctx context.Context, event *models.HistoryEvent) error {
	if err := r.repo.Append(ctx, event); err != nil {
		return fmt.Errorf("append history event: %w", err)
	}
	ctx = r.logg.WithFields(ctx, map[string]any{
		"history_event_id":   event.ID.String(),
		"history_event_type": event.EventType.String(),
	})
	r.logg.Info(ctx, "history event recorded")

	if r.exporter != nil {
		if err := r.exporter.Export(ctx, *event); err != nil {
			r.logg.Warn(r.logg.WithField(ctx, "export_error", err.Error()), "history export failed")
		}
	}
	return nil
}
