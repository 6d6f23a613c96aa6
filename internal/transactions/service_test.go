package transactions

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/sagabank-backend/pkg/auth"
	"github.com/angelmondragon/sagabank-backend/pkg/db"
	"github.com/angelmondragon/sagabank-backend/pkg/db/models"
	"github.com/angelmondragon/sagabank-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sagabank-backend/pkg/errors"
	"github.com/angelmondragon/sagabank-backend/pkg/outbox"
	"github.com/angelmondragon/sagabank-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/sagabank-backend/pkg/pagination"
	"github.com/angelmondragon/sagabank-backend/pkg/types"
)

func newTestService(t *testing.T, conn *gorm.DB, emitter outbox.Emitter) Service {
	t.Helper()
	if emitter == nil {
		emitter = newTestEmitter(conn)
	}
	svc, err := NewService(db.FromGorm(conn), NewRepository(conn), emitter, testLogger())
	require.NoError(t, err)
	return svc
}

func caller() auth.Principal {
	return auth.Principal{UserID: uuid.New(), Role: enums.RoleUser}
}

func codeOf(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	return typed.Code()
}

func TestDepositPersistsPendingAndQueuesEvent(t *testing.T) {
	conn := newTransactionsTestDB(t)
	svc := newTestService(t, conn, nil)
	who := caller()
	account := uuid.NewString()

	dto, err := svc.Deposit(context.Background(), who, DepositInput{AccountNumber: " " + account + " ", Amount: types.MustParseAmount("100")})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusPending, dto.TransactionStatus)
	assert.Equal(t, enums.TransactionTypeDeposit, dto.TransactionType)
	require.NotNil(t, dto.ToAccount)
	assert.Equal(t, account, *dto.ToAccount)
	assert.Empty(t, dto.FromAccount)
	assert.Equal(t, who.UserID.String(), dto.PerformedBy)

	var stored models.Transaction
	require.NoError(t, conn.First(&stored, "id = ?", dto.TransactionID).Error)
	assert.Equal(t, enums.TransactionStatusPending, stored.Status)

	rows, events := queued[payloads.TransactionCreatedEvent](t, conn)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventTransactionCreated, rows[0].EventType)
	assert.Equal(t, dto.TransactionID, rows[0].AggregateID)
	evt := events[0]
	assert.Equal(t, dto.TransactionID.String(), evt.TransactionID)
	assert.Equal(t, account, evt.AccountNumber)
	assert.Empty(t, evt.RelatedAccountNumber)
	assert.Equal(t, "100", evt.Amount.String())
	assert.Equal(t, enums.TransactionStatusPending, evt.TransactionStatus)
	assert.Equal(t, payloads.ServiceTransaction, evt.PerformedByService)
	assert.Equal(t, "Transaction created", evt.Details)
}

func TestWithdrawStoresFromAccount(t *testing.T) {
	conn := newTransactionsTestDB(t)
	svc := newTestService(t, conn, nil)
	account := uuid.NewString()

	dto, err := svc.Withdraw(context.Background(), caller(), WithdrawInput{AccountNumber: account, Amount: types.MustParseAmount("5.25")})
	require.NoError(t, err)
	assert.Equal(t, account, dto.FromAccount)
	assert.Nil(t, dto.ToAccount)

	_, events := queued[payloads.TransactionCreatedEvent](t, conn)
	require.Len(t, events, 1)
	assert.Equal(t, enums.TransactionTypeWithdraw, events[0].TransactionType)
	assert.Equal(t, account, events[0].AccountNumber)
}

func TestTransferCarriesRelatedAccount(t *testing.T) {
	conn := newTransactionsTestDB(t)
	svc := newTestService(t, conn, nil)
	from, to := uuid.NewString(), uuid.NewString()

	dto, err := svc.Transfer(context.Background(), caller(), TransferInput{FromAccountNumber: from, ToAccountNumber: to, Amount: types.MustParseAmount("1")})
	require.NoError(t, err)
	assert.Equal(t, from, dto.FromAccount)
	require.NotNil(t, dto.ToAccount)
	assert.Equal(t, to, *dto.ToAccount)

	_, events := queued[payloads.TransactionCreatedEvent](t, conn)
	require.Len(t, events, 1)
	assert.Equal(t, from, events[0].AccountNumber)
	assert.Equal(t, to, events[0].RelatedAccountNumber)
}

func TestOriginationValidation(t *testing.T) {
	conn := newTransactionsTestDB(t)
	svc := newTestService(t, conn, nil)
	ctx := context.Background()
	who := caller()

	cases := []struct {
		name string
		call func() error
		msg  string
	}{
		{"zero deposit", func() error {
			_, err := svc.Deposit(ctx, who, DepositInput{AccountNumber: "a", Amount: types.AmountFromInt(0)})
			return err
		}, "Amount must be greater than zero."},
		{"negative withdraw", func() error {
			_, err := svc.Withdraw(ctx, who, WithdrawInput{AccountNumber: "a", Amount: types.MustParseAmount("-3")})
			return err
		}, "Amount must be greater than zero."},
		{"three decimals", func() error {
			_, err := svc.Deposit(ctx, who, DepositInput{AccountNumber: "a", Amount: types.MustParseAmount("1.001")})
			return err
		}, "Amount must have at most two decimal places."},
		{"beyond column precision", func() error {
			_, err := svc.Deposit(ctx, who, DepositInput{AccountNumber: "a", Amount: types.MustParseAmount("1e20")})
			return err
		}, "Amount exceeds the maximum allowed value."},
		{"missing destination", func() error {
			_, err := svc.Transfer(ctx, who, TransferInput{FromAccountNumber: "a", ToAccountNumber: "  ", Amount: types.AmountFromInt(1)})
			return err
		}, "Destination account is required."},
		{"missing account", func() error {
			_, err := svc.Deposit(ctx, who, DepositInput{Amount: types.AmountFromInt(1)})
			return err
		}, "Account number is required."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, codeOf(t, err))
			assert.Equal(t, tc.msg, pkgerrors.As(err).Message())
		})
	}

	var count int64
	require.NoError(t, conn.Model(&models.Transaction{}).Count(&count).Error)
	assert.Zero(t, count, "rejected requests never persist")
	rows, _ := queued[payloads.TransactionCreatedEvent](t, conn)
	assert.Empty(t, rows)
}

type failingEmitter struct{}

func (failingEmitter) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return errors.New("outbox unavailable")
}

func TestOriginationRollsBackWhenOutboxFails(t *testing.T) {
	conn := newTransactionsTestDB(t)
	svc := newTestService(t, conn, failingEmitter{})

	_, err := svc.Deposit(context.Background(), caller(), DepositInput{AccountNumber: "a", Amount: types.AmountFromInt(1)})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, codeOf(t, err))

	var count int64
	require.NoError(t, conn.Model(&models.Transaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetHidesOtherUsersTransactions(t *testing.T) {
	conn := newTransactionsTestDB(t)
	svc := newTestService(t, conn, nil)
	ctx := context.Background()
	owner := caller()

	dto, err := svc.Deposit(ctx, owner, DepositInput{AccountNumber: "a", Amount: types.AmountFromInt(1)})
	require.NoError(t, err)

	got, err := svc.Get(ctx, owner, dto.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, dto.TransactionID, got.TransactionID)

	_, err = svc.Get(ctx, caller(), dto.TransactionID)
	assert.Equal(t, pkgerrors.CodeNotFound, codeOf(t, err))

	_, err = svc.Get(ctx, auth.Principal{UserID: uuid.New(), Role: enums.RoleAdmin}, dto.TransactionID)
	assert.NoError(t, err)

	_, err = svc.Get(ctx, owner, uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, codeOf(t, err))
}

func TestListScopesToCaller(t *testing.T) {
	conn := newTransactionsTestDB(t)
	svc := newTestService(t, conn, nil)
	ctx := context.Background()
	me, other := caller(), caller()

	for i := 0; i < 3; i++ {
		_, err := svc.Deposit(ctx, me, DepositInput{AccountNumber: "a", Amount: types.AmountFromInt(int64(i + 1))})
		require.NoError(t, err)
	}
	_, err := svc.Withdraw(ctx, other, WithdrawInput{AccountNumber: "b", Amount: types.AmountFromInt(1)})
	require.NoError(t, err)

	mine, err := svc.List(ctx, me, ListParams{})
	require.NoError(t, err)
	assert.Len(t, mine.Items, 3)
	for _, item := range mine.Items {
		assert.Equal(t, me.UserID.String(), item.PerformedBy)
	}

	withdrawals := enums.TransactionTypeWithdraw
	all, err := svc.List(ctx, auth.Principal{UserID: uuid.New(), Role: enums.RoleAdmin}, ListParams{Type: &withdrawals})
	require.NoError(t, err)
	require.Len(t, all.Items, 1)
	assert.Equal(t, other.UserID.String(), all.Items[0].PerformedBy)

	page, err := svc.List(ctx, me, ListParams{Params: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.NotEmpty(t, page.NextCursor)
}

// Account ownership lives in the account service's store, so origination
// accepts any source account and records who asked.
func TestOriginationDoesNotCheckSourceOwnership(t *testing.T) {
	conn := newTransactionsTestDB(t)
	svc := newTestService(t, conn, nil)
	ctx := context.Background()
	stranger := caller()
	someoneElses := uuid.NewString()

	withdrawal, err := svc.Withdraw(ctx, stranger, WithdrawInput{AccountNumber: someoneElses, Amount: types.AmountFromInt(5)})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusPending, withdrawal.TransactionStatus)

	_, err = svc.Transfer(ctx, stranger, TransferInput{FromAccountNumber: someoneElses, ToAccountNumber: uuid.NewString(), Amount: types.AmountFromInt(1)})
	require.NoError(t, err)

	_, events := queued[payloads.TransactionCreatedEvent](t, conn)
	require.Len(t, events, 2)
	for _, evt := range events {
		assert.Equal(t, someoneElses, evt.AccountNumber)
		assert.Equal(t, stranger.UserID.String(), evt.PerformedBy)
	}
}
