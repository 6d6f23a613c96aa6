package history

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/sagabank-backend/pkg/db/models"
	"github.com/angelmondragon/sagabank-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sagabank-backend/pkg/errors"
	"github.com/angelmondragon/sagabank-backend/pkg/types"
)

type seeded struct {
	svc  Service
	txID string
	base time.Time
}

func seedHistory(t *testing.T) seeded {
	t.Helper()
	conn := newHistoryTestDB(t)
	repo := NewRepository(conn)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	txID := uuid.NewString()

	rows := []models.HistoryEvent{
		{TransactionID: txID, AccountNumber: "from", RelatedAccountNumber: "to", EventType: enums.HistoryEventTransactionCreated, TransactionType: enums.TransactionTypeTransfer, TransactionStatus: enums.TransactionStatusPending, PerformedBy: "u1", PerformedByService: "TransactionService"},
		{TransactionID: txID, AccountNumber: "from", RelatedAccountNumber: "to", EventType: enums.HistoryEventMoneyWithdraw, TransactionType: enums.TransactionTypeWithdraw, TransactionStatus: enums.TransactionStatusAccepted, PerformedBy: "u1", PerformedByService: "AccountService"},
		{TransactionID: txID, AccountNumber: "to", EventType: enums.HistoryEventMoneyDeposited, TransactionType: enums.TransactionTypeDeposit, TransactionStatus: enums.TransactionStatusAccepted, PerformedBy: "u1", PerformedByService: "AccountService"},
		{TransactionID: txID, AccountNumber: "from", RelatedAccountNumber: "to", EventType: enums.HistoryEventTransactionCompleted, TransactionType: enums.TransactionTypeTransfer, TransactionStatus: enums.TransactionStatusAccepted, PerformedBy: "u1", PerformedByService: "TransactionService"},
		{TransactionID: uuid.NewString(), AccountNumber: "other", EventType: enums.HistoryEventError, TransactionType: enums.TransactionTypeWithdraw, TransactionStatus: enums.TransactionStatusRejected, PerformedBy: "u2", PerformedByService: "AccountService"},
	}
	for i := range rows {
		rows[i].Amount = types.MustParseAmount("40")
		rows[i].CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Append(context.Background(), &rows[i]))
	}

	svc, err := NewService(repo)
	require.NoError(t, err)
	return seeded{svc: svc, txID: txID, base: base}
}

func TestSearchFilters(t *testing.T) {
	s := seedHistory(t)
	ctx := context.Background()

	all, err := s.svc.Search(ctx, SearchFilter{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "other", all[0].AccountNumber, "newest first")

	byTx, err := s.svc.Search(ctx, SearchFilter{TransactionID: s.txID})
	require.NoError(t, err)
	assert.Len(t, byTx, 4)

	deposited := enums.HistoryEventMoneyDeposited
	deposits, err := s.svc.Search(ctx, SearchFilter{EventType: &deposited})
	require.NoError(t, err)
	require.Len(t, deposits, 1)
	assert.Equal(t, "to", deposits[0].AccountNumber)

	rejected := enums.TransactionStatusRejected
	failures, err := s.svc.Search(ctx, SearchFilter{Status: &rejected, PerformedBy: "u2"})
	require.NoError(t, err)
	assert.Len(t, failures, 1)

	related, err := s.svc.Search(ctx, SearchFilter{RelatedAccountNumber: "to", PerformedByService: "TransactionService"})
	require.NoError(t, err)
	assert.Len(t, related, 2)

	from := s.base.Add(time.Minute)
	to := s.base.Add(2 * time.Minute)
	window, err := s.svc.Search(ctx, SearchFilter{From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, window, 2)
}

func TestSearchValidationAndNotFound(t *testing.T) {
	s := seedHistory(t)
	ctx := context.Background()

	badType := enums.HistoryEventType(9)
	_, err := s.svc.Search(ctx, SearchFilter{EventType: &badType})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	badStatus := enums.TransactionStatus(0)
	_, err = s.svc.Search(ctx, SearchFilter{Status: &badStatus})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	later, earlier := s.base.Add(time.Hour), s.base
	_, err = s.svc.Search(ctx, SearchFilter{From: &later, To: &earlier})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = s.svc.Search(ctx, SearchFilter{AccountNumber: "nobody"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
	assert.Equal(t, "No history events found matching the criteria.", pkgerrors.As(err).Message())
}

func TestByTransactionIsOldestFirst(t *testing.T) {
	s := seedHistory(t)

	events, err := s.svc.ByTransaction(context.Background(), s.txID)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, enums.HistoryEventTransactionCreated, events[0].EventType)
	assert.Equal(t, enums.HistoryEventTransactionCompleted, events[3].EventType)

	_, err = s.svc.ByTransaction(context.Background(), uuid.NewString())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestByAccountIsNewestFirst(t *testing.T) {
	s := seedHistory(t)

	events, err := s.svc.ByAccount(context.Background(), "from")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, enums.HistoryEventTransactionCompleted, events[0].EventType)

	_, err = s.svc.ByAccount(context.Background(), " ")
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
