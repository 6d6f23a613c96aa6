package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sagabank-backend/internal/consumers"
	"github.com/angelmondragon/sagabank-backend/internal/repo"
	"github.com/angelmondragon/sagabank-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sagabank-backend/pkg/errors"
	"github.com/angelmondragon/sagabank-backend/pkg/logger"
	"github.com/angelmondragon/sagabank-backend/pkg/metrics"
	"github.com/angelmondragon/sagabank-backend/pkg/outbox"
	"github.com/angelmondragon/sagabank-backend/pkg/outbox/payloads"
)

// ConsumerName keys the ledger's processed_messages rows and Redis markers.
const ConsumerName = "ledger-processor"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Processor applies TransactionCreated messages to account balances and
// reports the outcome through the outbox.
type Processor struct {
	tx        txRunner
	repo      Repository
	processed *repo.ProcessedMessages
	outbox    outbox.Emitter
	logg      *logger.Logger
	metrics   *metrics.LedgerMetrics
}

func NewProcessor(tx txRunner, accounts Repository, processed *repo.ProcessedMessages, emitter outbox.Emitter, logg *logger.Logger, m *metrics.LedgerMetrics) (*Processor, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if accounts == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if processed == nil {
		return nil, fmt.Errorf("processed message repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Processor{
		tx:        tx,
		repo:      accounts,
		processed: processed,
		outbox:    emitter,
		logg:      logg,
		metrics:   m,
	}, nil
}

// Handle adapts Process to the consumer runtime.
func (p *Processor) Handle(ctx context.Context, msg consumers.Message) error {
	evt, ok := msg.Payload.(*payloads.TransactionCreatedEvent)
	if !ok || evt == nil {
		return consumers.Permanent(fmt.Errorf("unexpected payload %T", msg.Payload))
	}
	return p.Process(ctx, *evt, msg.Envelope.Actor)
}

// outcome is what one TransactionCreated produces: the history copies (one per
// leg, or the single rejection) and the copy for the finalizer.
type outcome struct {
	history []payloads.AccountActionDoneEvent
	final   payloads.AccountActionDoneEvent
	mutated bool
}

// Process runs the ledger step for evt inside one local transaction. The
// transaction id is claimed in processed_messages first, so a redelivered
// message that already committed changes nothing.
func (p *Processor) Process(ctx context.Context, evt payloads.TransactionCreatedEvent, actor *outbox.ActorRef) error {
	aggregateID, err := uuid.Parse(strings.TrimSpace(evt.TransactionID))
	if err != nil {
		return consumers.Permanent(fmt.Errorf("transaction id %q is not a uuid: %w", evt.TransactionID, err))
	}
	ctx = p.logg.WithTransactionID(ctx, aggregateID.String())

	var (
		result  *outcome
		already bool
	)
	err = p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		claimed, err := p.processed.WithTx(tx).Claim(ctx, ConsumerName, aggregateID.String())
		if err != nil {
			return err
		}
		if !claimed {
			already = true
			return nil
		}
		out, err := p.decide(ctx, p.repo.WithTx(tx), evt)
		if err != nil {
			return err
		}
		for _, leg := range out.history {
			if err := p.emit(ctx, tx, enums.EventAccountActionDoneHistory, aggregateID, actor, leg); err != nil {
				return err
			}
		}
		if err := p.emit(ctx, tx, enums.EventAccountActionDoneFinalizer, aggregateID, actor, out.final); err != nil {
			return err
		}
		result = out
		return nil
	})
	if err != nil {
		p.logg.Error(ctx, "ledger update failed; rolled back", err)
		p.reportFailure(ctx, evt, aggregateID, actor)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, detailSaveFailure)
	}
	if already {
		p.logg.Info(ctx, "transaction already applied")
		return nil
	}

	p.metrics.Observe(result.final.TransactionType.String(), result.final.TransactionStatus.String())
	p.logg.Info(p.logg.WithFields(ctx, map[string]any{
		"transaction_status": result.final.TransactionStatus.String(),
		"balance_changed":    result.mutated,
		"details":            result.final.Details,
	}), "ledger step completed")
	return nil
}

// decide validates evt, mutates balances when allowed and returns what to emit.
func (p *Processor) decide(ctx context.Context, accounts Repository, evt payloads.TransactionCreatedEvent) (*outcome, error) {
	base := payloads.AccountActionDoneEvent{TransactionMessage: evt.TransactionMessage}
	base.PerformedByService = payloads.ServiceAccount
	base.Details = detailInitial

	accountID, err := uuid.Parse(strings.TrimSpace(evt.AccountNumber))
	if err != nil {
		return reject(base, detailBadAccount(evt.AccountNumber)), nil
	}
	var relatedID uuid.UUID
	if related := strings.TrimSpace(evt.RelatedAccountNumber); related != "" {
		relatedID, err = uuid.Parse(related)
		if err != nil {
			return reject(base, detailBadRelatedAccount(evt.RelatedAccountNumber)), nil
		}
	}
	if !evt.Amount.IsPositive() {
		return reject(base, detailBadAmount), nil
	}
	if !evt.Amount.Fits() {
		return reject(base, detailAmountScale), nil
	}

	locked, err := accounts.LockAccounts(ctx, accountID, relatedID)
	if err != nil {
		return nil, err
	}
	account, ok := locked[accountID]
	if !ok {
		return reject(base, detailMissingFrom(accountID.String())), nil
	}
	amount := evt.Amount

	switch evt.TransactionType {
	case enums.TransactionTypeDeposit:
		if !account.Balance.Add(amount).Fits() {
			return reject(base, detailBalanceLimit(accountID.String())), nil
		}
		if err := accounts.UpdateBalance(ctx, account.ID, account.Balance.Add(amount)); err != nil {
			return nil, err
		}
		leg := accept(base, detailDeposit(accountID.String()))
		return &outcome{history: []payloads.AccountActionDoneEvent{leg}, final: leg, mutated: true}, nil

	case enums.TransactionTypeWithdraw:
		if account.Balance.LessThan(amount) {
			return reject(base, detailInsufficient(accountID.String())), nil
		}
		if err := accounts.UpdateBalance(ctx, account.ID, account.Balance.Sub(amount)); err != nil {
			return nil, err
		}
		leg := accept(base, detailWithdraw(accountID.String()))
		return &outcome{history: []payloads.AccountActionDoneEvent{leg}, final: leg, mutated: true}, nil

	case enums.TransactionTypeTransfer:
		if account.Balance.LessThan(amount) {
			return reject(base, detailInsufficient(accountID.String())), nil
		}
		target, ok := locked[relatedID]
		if !ok || relatedID == accountID {
			return reject(base, detailMissingTo(strings.TrimSpace(evt.RelatedAccountNumber))), nil
		}
		if !target.Balance.Add(amount).Fits() {
			return reject(base, detailBalanceLimit(target.ID.String())), nil
		}
		if err := accounts.UpdateBalance(ctx, account.ID, account.Balance.Sub(amount)); err != nil {
			return nil, err
		}
		if err := accounts.UpdateBalance(ctx, target.ID, target.Balance.Add(amount)); err != nil {
			return nil, err
		}

		withdrawLeg := accept(base, detailWithdraw(accountID.String()))
		withdrawLeg.TransactionType = enums.TransactionTypeWithdraw

		depositLeg := accept(base, detailDeposit(target.ID.String()))
		depositLeg.TransactionType = enums.TransactionTypeDeposit
		depositLeg.AccountNumber = target.ID.String()
		depositLeg.RelatedAccountNumber = ""

		final := accept(base, detailTransfer(evt.AccountNumber, evt.RelatedAccountNumber))
		final.TransactionType = enums.TransactionTypeTransfer
		final.AccountNumber = evt.AccountNumber
		final.RelatedAccountNumber = evt.RelatedAccountNumber

		return &outcome{
			history: []payloads.AccountActionDoneEvent{withdrawLeg, depositLeg},
			final:   final,
			mutated: true,
		}, nil

	default:
		return reject(base, detailUnsupportedType(int(evt.TransactionType))), nil
	}
}

// reportFailure records the failed attempt in history from a fresh
// transaction. The original message is redelivered by the consumer runtime.
func (p *Processor) reportFailure(ctx context.Context, evt payloads.TransactionCreatedEvent, aggregateID uuid.UUID, actor *outbox.ActorRef) {
	failure := payloads.AccountActionDoneEvent{TransactionMessage: evt.TransactionMessage, IsError: true}
	failure.PerformedByService = payloads.ServiceAccount
	failure.TransactionStatus = enums.TransactionStatusRejected
	failure.Details = detailSaveFailure

	detached := context.WithoutCancel(ctx)
	err := p.tx.WithTx(detached, func(tx *gorm.DB) error {
		return p.emit(detached, tx, enums.EventAccountActionDoneHistory, aggregateID, actor, failure)
	})
	if err != nil {
		p.logg.Error(ctx, "failed to record ledger failure in history", err)
	}
}

func (p *Processor) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, aggregateID uuid.UUID, actor *outbox.ActorRef, data payloads.AccountActionDoneEvent) error {
	return p.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   aggregateID,
		Actor:         actor,
		Data:          data,
	})
}

func reject(base payloads.AccountActionDoneEvent, details string) *outcome {
	base.TransactionStatus = enums.TransactionStatusRejected
	base.Details = details
	base.IsError = true
	return &outcome{history: []payloads.AccountActionDoneEvent{base}, final: base}
}

func accept(base payloads.AccountActionDoneEvent, details string) payloads.AccountActionDoneEvent {
	base.TransactionStatus = enums.TransactionStatusAccepted
	base.Details = details
	base.IsError = false
	return base
}
