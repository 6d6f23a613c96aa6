package transactions

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sagabank-backend/internal/consumers"
	"github.com/angelmondragon/sagabank-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sagabank-backend/pkg/errors"
	"github.com/angelmondragon/sagabank-backend/pkg/logger"
	"github.com/angelmondragon/sagabank-backend/pkg/outbox"
	"github.com/angelmondragon/sagabank-backend/pkg/outbox/payloads"
)

// FinalizerConsumerName identifies the finalizer in idempotency keys and metrics.
const FinalizerConsumerName = "transaction-finalizer"

const detailAccepted = "Transaction Completed and accepted"

// ErrTransactionNotFound is returned when AccountActionDone names a
// transaction this service never stored. It is retryable so the message is
// redelivered and finally dead-lettered instead of being dropped.
var ErrTransactionNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found").WithRetry(true)

// Finalizer applies the ledger outcome to the local transaction row and
// closes the saga with TransactionCompleted.
type Finalizer struct {
	tx     txRunner
	repo   Repository
	outbox outbox.Emitter
	logg   *logger.Logger
}

func NewFinalizer(tx txRunner, repo Repository, emitter outbox.Emitter, logg *logger.Logger) (*Finalizer, error) {
	if tx == nil || repo == nil || emitter == nil {
		return nil, fmt.Errorf("finalizer dependencies required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Finalizer{tx: tx, repo: repo, outbox: emitter, logg: logg}, nil
}

func (f *Finalizer) Handle(ctx context.Context, msg consumers.Message) error {
	evt, ok := msg.Payload.(*payloads.AccountActionDoneEvent)
	if !ok || evt == nil {
		return consumers.Permanent(fmt.Errorf("unexpected payload %T", msg.Payload))
	}
	return f.Finalize(ctx, *evt, msg.Envelope.Actor)
}

// Finalize transitions the Pending row to Accepted when the ledger accepted
// the transaction and to Rejected otherwise. A row that is already terminal
// is left alone and nothing is emitted.
func (f *Finalizer) Finalize(ctx context.Context, evt payloads.AccountActionDoneEvent, actor *outbox.ActorRef) error {
	id, err := uuid.Parse(strings.TrimSpace(evt.TransactionID))
	if err != nil {
		return consumers.Permanent(fmt.Errorf("transaction id %q is not a uuid: %w", evt.TransactionID, err))
	}
	ctx = f.logg.WithTransactionID(ctx, id.String())

	status := enums.TransactionStatusRejected
	details := "Transaction rejected: " + evt.Details
	if evt.TransactionStatus == enums.TransactionStatusAccepted && !evt.IsError {
		status = enums.TransactionStatusAccepted
		details = detailAccepted
	}

	var skipped bool
	err = f.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := f.repo.WithTx(tx)
		updated, err := repo.CompletePending(ctx, id, status, details)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete transaction")
		}
		if !updated {
			current, err := repo.FindByID(ctx, id)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
			}
			if current == nil {
				return ErrTransactionNotFound
			}
			f.logg.Warn(f.logg.WithField(ctx, "current_status", current.Status.String()), "transaction already finalized")
			skipped = true
			return nil
		}

		completed := payloads.TransactionCompletedEvent{TransactionMessage: evt.TransactionMessage, IsError: evt.IsError}
		completed.TransactionStatus = status
		completed.PerformedByService = payloads.ServiceTransaction
		completed.Details = details
		return f.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransactionCompleted,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   id,
			Actor:         actor,
			Data:          completed,
		})
	})
	if err != nil {
		return err
	}
	if !skipped {
		f.logg.Info(f.logg.WithField(ctx, "transaction_status", status.String()), "transaction finalized")
	}
	return nil
}
