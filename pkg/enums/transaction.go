package enums

import (
	"fmt"
	"strconv"
	"strings"
)

// TransactionType is the integer wire value shared by every service.
type TransactionType int

const (
	TransactionTypeDeposit  TransactionType = 1
	TransactionTypeWithdraw TransactionType = 2
	TransactionTypeTransfer TransactionType = 3
)

var transactionTypeNames = map[TransactionType]string{
	TransactionTypeDeposit:  "Deposit",
	TransactionTypeWithdraw: "Withdraw",
	TransactionTypeTransfer: "Transfer",
}

// IsValid reports whether the value is a known transaction type.
func (t TransactionType) IsValid() bool {
	_, ok := transactionTypeNames[t]
	return ok
}

func (t TransactionType) String() string {
	if name, ok := transactionTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TransactionType(%d)", int(t))
}

// ParseTransactionType accepts either the name (case-insensitive) or the integer value.
func ParseTransactionType(value string) (TransactionType, error) {
	parsed, err := parseIntEnum(value, transactionTypeNames)
	if err != nil {
		return 0, fmt.Errorf("invalid transaction type %q", value)
	}
	return parsed, nil
}

// TransactionStatus tracks the saga outcome of a transaction row.
type TransactionStatus int

const (
	TransactionStatusPending  TransactionStatus = 1
	TransactionStatusAccepted TransactionStatus = 2
	TransactionStatusRejected TransactionStatus = 3
)

var transactionStatusNames = map[TransactionStatus]string{
	TransactionStatusPending:  "Pending",
	TransactionStatusAccepted: "Accepted",
	TransactionStatusRejected: "Rejected",
}

func (s TransactionStatus) IsValid() bool {
	_, ok := transactionStatusNames[s]
	return ok
}

// IsTerminal reports whether no further transition is allowed.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusAccepted || s == TransactionStatusRejected
}

func (s TransactionStatus) String() string {
	if name, ok := transactionStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("TransactionStatus(%d)", int(s))
}

func ParseTransactionStatus(value string) (TransactionStatus, error) {
	parsed, err := parseIntEnum(value, transactionStatusNames)
	if err != nil {
		return 0, fmt.Errorf("invalid transaction status %q", value)
	}
	return parsed, nil
}

func parseIntEnum[T ~int](value string, names map[T]string) (T, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("empty value")
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		if _, ok := names[T(n)]; ok {
			return T(n), nil
		}
		return 0, fmt.Errorf("unknown value %d", n)
	}
	for candidate, name := range names {
		if strings.EqualFold(name, trimmed) {
			return candidate, nil
		}
	}
	return 0, fmt.Errorf("unknown value %q", trimmed)
}
