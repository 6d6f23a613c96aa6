package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLSTATE values the saga stores raise.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgNumericOutOfRange    = "22003"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// StoreError is the driver-neutral view of a Postgres error.
type StoreError struct {
	Code       string
	Constraint string
	Table      string
	Column     string
	Detail     string
	Message    string
}

// StoreErrorOf extracts the Postgres error from either driver. SQLite
// constraint messages are recognised so repositories behave the same in tests.
func StoreErrorOf(err error) *StoreError {
	if err == nil {
		return nil
	}
	var pgxErr *pgconn.PgError
	if stdErrors.As(err, &pgxErr) {
		return &StoreError{
			Code: pgxErr.Code, Constraint: pgxErr.ConstraintName, Table: pgxErr.TableName,
			Column: pgxErr.ColumnName, Detail: pgxErr.Detail, Message: pgxErr.Message,
		}
	}
	var pqErr *pq.Error
	if stdErrors.As(err, &pqErr) {
		return &StoreError{
			Code: string(pqErr.Code), Constraint: pqErr.Constraint, Table: pqErr.Table,
			Column: pqErr.Column, Detail: pqErr.Detail, Message: pqErr.Message,
		}
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return &StoreError{Code: pgUniqueViolation, Message: msg}
	case strings.Contains(msg, "CHECK constraint failed"):
		constraint := strings.TrimSpace(msg[strings.Index(msg, "CHECK constraint failed")+len("CHECK constraint failed"):])
		return &StoreError{Code: pgCheckViolation, Constraint: strings.TrimPrefix(constraint, ": "), Message: msg}
	}
	return nil
}

// FromStore maps a store failure onto an API code. Constraint names come
// from the migrations; a violated balance or amount check means the request
// raced past the service-level validation. Returns nil for errors the stores
// did not raise.
func FromStore(err error) *Error {
	se := StoreErrorOf(err)
	if se == nil {
		return nil
	}
	switch se.Code {
	case pgUniqueViolation:
		return Wrap(CodeConflict, err, "Resource already exists.")
	case pgForeignKeyViolation:
		return Wrap(CodeNotFound, err, "Referenced resource does not exist.")
	case pgCheckViolation:
		switch se.Constraint {
		case "chk_accounts_balance_non_negative":
			return Wrap(CodeStateConflict, err, "Insufficient funds.")
		case "chk_transactions_amount_positive":
			return Wrap(CodeValidation, err, "Amount must be greater than zero.")
		}
		return Wrap(CodeValidation, err, "Value violates a data constraint.")
	case pgNumericOutOfRange:
		return Wrap(CodeValidation, err, "Amount exceeds the maximum allowed value.")
	case pgSerializationFailure, pgDeadlockDetected:
		return Wrap(CodeDependency, err, "Concurrent update, retry the request.")
	}
	return nil
}

// LogFields flattens err for a structured log entry: the wrap chain plus
// the Postgres diagnostics when present.
func LogFields(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	fields := map[string]any{"error": err.Error()}
	if typed := As(err); typed != nil {
		fields["error_code"] = typed.Code()
	}
	var chain []string
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T: %v", e, e))
	}
	fields["error_chain"] = chain
	if se := StoreErrorOf(err); se != nil {
		fields["pg_code"] = se.Code
		for key, value := range map[string]string{
			"pg_constraint": se.Constraint,
			"pg_table":      se.Table,
			"pg_column":     se.Column,
			"pg_detail":     se.Detail,
		} {
			if value != "" {
				fields[key] = value
			}
		}
	}
	return fields
}
