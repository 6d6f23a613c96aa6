package transactions

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/sagabank-backend/internal/consumers"
	"github.com/angelmondragon/sagabank-backend/pkg/db"
	"github.com/angelmondragon/sagabank-backend/pkg/db/models"
	"github.com/angelmondragon/sagabank-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sagabank-backend/pkg/errors"
	"github.com/angelmondragon/sagabank-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/sagabank-backend/pkg/types"
)

func newTestFinalizer(t *testing.T, conn *gorm.DB) *Finalizer {
	t.Helper()
	f, err := NewFinalizer(db.FromGorm(conn), NewRepository(conn), newTestEmitter(conn), testLogger())
	require.NoError(t, err)
	return f
}

func pendingRow(t *testing.T, conn *gorm.DB) models.Transaction {
	t.Helper()
	from, to := uuid.NewString(), uuid.NewString()
	row := models.Transaction{
		Type:        enums.TransactionTypeTransfer,
		Status:      enums.TransactionStatusPending,
		FromAccount: &from,
		ToAccount:   &to,
		Amount:      types.MustParseAmount("10"),
		PerformedBy: uuid.NewString(),
	}
	require.NoError(t, conn.Create(&row).Error)
	return row
}

func actionDone(row models.Transaction, status enums.TransactionStatus, details string) payloads.AccountActionDoneEvent {
	return payloads.AccountActionDoneEvent{
		TransactionMessage: payloads.TransactionMessage{
			TransactionID:        row.ID.String(),
			AccountNumber:        *row.FromAccount,
			RelatedAccountNumber: *row.ToAccount,
			Amount:               row.Amount,
			TransactionType:      row.Type,
			TransactionStatus:    status,
			PerformedBy:          row.PerformedBy,
			PerformedByService:   payloads.ServiceAccount,
			Details:              details,
		},
		IsError: status == enums.TransactionStatusRejected,
	}
}

func statusOf(t *testing.T, conn *gorm.DB, id uuid.UUID) models.Transaction {
	t.Helper()
	var row models.Transaction
	require.NoError(t, conn.First(&row, "id = ?", id).Error)
	return row
}

func TestFinalizeAccepted(t *testing.T) {
	conn := newTransactionsTestDB(t)
	f := newTestFinalizer(t, conn)
	row := pendingRow(t, conn)

	require.NoError(t, f.Finalize(context.Background(), actionDone(row, enums.TransactionStatusAccepted, "Transfer from account a to account b"), nil))

	stored := statusOf(t, conn, row.ID)
	assert.Equal(t, enums.TransactionStatusAccepted, stored.Status)
	require.NotNil(t, stored.Details)
	assert.Equal(t, "Transaction Completed and accepted", *stored.Details)

	rows, events := queued[payloads.TransactionCompletedEvent](t, conn)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventTransactionCompleted, rows[0].EventType)
	evt := events[0]
	assert.Equal(t, enums.TransactionStatusAccepted, evt.TransactionStatus)
	assert.Equal(t, enums.TransactionTypeTransfer, evt.TransactionType)
	assert.Equal(t, payloads.ServiceTransaction, evt.PerformedByService)
	assert.Equal(t, "Transaction Completed and accepted", evt.Details)
	assert.False(t, evt.IsError)
}

func TestFinalizeRejected(t *testing.T) {
	conn := newTransactionsTestDB(t)
	f := newTestFinalizer(t, conn)
	row := pendingRow(t, conn)

	require.NoError(t, f.Finalize(context.Background(), actionDone(row, enums.TransactionStatusRejected, "There are not enough balance in the account id x"), nil))

	stored := statusOf(t, conn, row.ID)
	assert.Equal(t, enums.TransactionStatusRejected, stored.Status)

	_, events := queued[payloads.TransactionCompletedEvent](t, conn)
	require.Len(t, events, 1)
	assert.Equal(t, enums.TransactionStatusRejected, events[0].TransactionStatus)
	assert.Equal(t, "Transaction rejected: There are not enough balance in the account id x", events[0].Details)
	assert.True(t, events[0].IsError)
}

func TestFinalizeTerminalRowEmitsNothing(t *testing.T) {
	conn := newTransactionsTestDB(t)
	f := newTestFinalizer(t, conn)
	row := pendingRow(t, conn)
	ctx := context.Background()

	require.NoError(t, f.Finalize(ctx, actionDone(row, enums.TransactionStatusAccepted, "ok"), nil))
	require.NoError(t, f.Finalize(ctx, actionDone(row, enums.TransactionStatusRejected, "late"), nil))

	assert.Equal(t, enums.TransactionStatusAccepted, statusOf(t, conn, row.ID).Status)
	rows, _ := queued[payloads.TransactionCompletedEvent](t, conn)
	assert.Len(t, rows, 1)
}

func TestFinalizeMissingRowIsRetryableNotFound(t *testing.T) {
	conn := newTransactionsTestDB(t)
	f := newTestFinalizer(t, conn)
	ghost := pendingRow(t, conn)
	require.NoError(t, conn.Delete(&models.Transaction{}, "id = ?", ghost.ID).Error)

	err := f.Finalize(context.Background(), actionDone(ghost, enums.TransactionStatusAccepted, "ok"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransactionNotFound))
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
	assert.True(t, pkgerrors.IsRetryable(err), "missing rows are redelivered, never acknowledged as success")
	assert.False(t, consumers.IsPermanent(err))

	rows, _ := queued[payloads.TransactionCompletedEvent](t, conn)
	assert.Empty(t, rows)
}

func TestFinalizerHandleValidatesPayload(t *testing.T) {
	conn := newTransactionsTestDB(t)
	f := newTestFinalizer(t, conn)

	err := f.Handle(context.Background(), consumers.Message{Payload: &payloads.TransactionCreatedEvent{}})
	assert.True(t, consumers.IsPermanent(err))

	evt := payloads.AccountActionDoneEvent{}
	evt.TransactionID = "not-a-uuid"
	err = f.Handle(context.Background(), consumers.Message{Payload: &evt})
	assert.True(t, consumers.IsPermanent(err))

	row := pendingRow(t, conn)
	done := actionDone(row, enums.TransactionStatusAccepted, "ok")
	require.NoError(t, f.Handle(context.Background(), consumers.Message{Payload: &done}))
	assert.Equal(t, enums.TransactionStatusAccepted, statusOf(t, conn, row.ID).Status)
}
