package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestFromStoreMapsSagaConstraints(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
		msg  string
	}{
		{
			name: "overdraft via pgx",
			err:  fmt.Errorf("debit: %w", &pgconn.PgError{Code: "23514", ConstraintName: "chk_accounts_balance_non_negative"}),
			code: CodeStateConflict,
			msg:  "Insufficient funds.",
		},
		{
			name: "non-positive amount via pq",
			err:  &pq.Error{Code: "23514", Constraint: "chk_transactions_amount_positive"},
			code: CodeValidation,
			msg:  "Amount must be greater than zero.",
		},
		{
			name: "numeric overflow",
			err:  &pgconn.PgError{Code: "22003", ColumnName: "balance"},
			code: CodeValidation,
			msg:  "Amount exceeds the maximum allowed value.",
		},
		{
			name: "duplicate",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "ux_outbox_dlq_event_id"},
			code: CodeConflict,
		},
		{
			name: "sqlite unique",
			err:  stdErrors.New("UNIQUE constraint failed: accounts.id"),
			code: CodeConflict,
		},
		{
			name: "sqlite check",
			err:  stdErrors.New("CHECK constraint failed: chk_accounts_balance_non_negative"),
			code: CodeStateConflict,
		},
		{
			name: "deadlock",
			err:  &pgconn.PgError{Code: "40P01"},
			code: CodeDependency,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FromStore(tc.err)
			if got == nil {
				t.Fatalf("expected a mapped error")
			}
			if got.Code() != tc.code {
				t.Fatalf("code = %s, want %s", got.Code(), tc.code)
			}
			if tc.msg != "" && got.Message() != tc.msg {
				t.Fatalf("message = %q, want %q", got.Message(), tc.msg)
			}
			if !stdErrors.Is(got, tc.err) {
				t.Fatal("cause must stay in the chain")
			}
		})
	}

	if FromStore(stdErrors.New("connection reset by peer")) != nil {
		t.Fatal("transport errors are not store constraint failures")
	}
	if FromStore(nil) != nil {
		t.Fatal("nil maps to nil")
	}
}

func TestStoreConstraintViolationsAreNotRetried(t *testing.T) {
	if IsRetryable(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("a unique violation will fail the same way on redelivery")
	}
	if !IsRetryable(&pgconn.PgError{Code: "40001"}) {
		t.Fatal("serialization failures should be redelivered")
	}
}

func TestLogFieldsCarriesStoreDiagnostics(t *testing.T) {
	err := Wrap(CodeInternal, &pgconn.PgError{Code: "23514", ConstraintName: "chk_accounts_balance_non_negative", TableName: "accounts"}, "save balance")
	fields := LogFields(err)
	if fields["pg_code"] != "23514" || fields["pg_table"] != "accounts" {
		t.Fatalf("missing postgres fields: %v", fields)
	}
	if fields["error_code"] != CodeInternal {
		t.Fatalf("missing error code: %v", fields)
	}
	if _, ok := fields["pg_column"]; ok {
		t.Fatal("empty diagnostics should be omitted")
	}
	if chain, ok := fields["error_chain"].([]string); !ok || len(chain) != 2 {
		t.Fatalf("expected two-link chain, got %v", fields["error_chain"])
	}
}
