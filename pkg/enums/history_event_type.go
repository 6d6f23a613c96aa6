package enums

import "fmt"

// HistoryEventType classifies an appended history entry.
type HistoryEventType int

const (
	HistoryEventTransactionCreated   HistoryEventType = 1
	HistoryEventMoneyWithdraw        HistoryEventType = 2
	HistoryEventMoneyDeposited       HistoryEventType = 3
	HistoryEventTransactionCompleted HistoryEventType = 4
	HistoryEventError                HistoryEventType = 5
)

var historyEventTypeNames = map[HistoryEventType]string{
	HistoryEventTransactionCreated:   "TransactionCreated",
	HistoryEventMoneyWithdraw:        "MoneyWithdraw",
	HistoryEventMoneyDeposited:       "MoneyDeposited",
	HistoryEventTransactionCompleted: "TransactionCompleted",
	HistoryEventError:                "Error",
}

func (h HistoryEventType) IsValid() bool {
	_, ok := historyEventTypeNames[h]
	return ok
}

func (h HistoryEventType) String() string {
	if name, ok := historyEventTypeNames[h]; ok {
		return name
	}
	return fmt.Sprintf("HistoryEventType(%d)", int(h))
}

func ParseHistoryEventType(value string) (HistoryEventType, error) {
	parsed, err := parseIntEnum(value, historyEventTypeNames)
	if err != nil {
		return 0, fmt.Errorf("invalid history event type %q", value)
	}
	return parsed, nil
}
