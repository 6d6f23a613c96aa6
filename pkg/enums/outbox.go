package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateTransaction OutboxAggregateType = "transaction"
	AggregateAccount     OutboxAggregateType = "account"
	AggregateUser        OutboxAggregateType = "user"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateTransaction,
	AggregateAccount,
	AggregateUser,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a saga message. The two AccountActionDone variants share
// a payload but route to different destinations.
type OutboxEventType string

const (
	EventTransactionCreated         OutboxEventType = "transaction_created"
	EventAccountActionDoneHistory   OutboxEventType = "account_action_done_history"
	EventAccountActionDoneFinalizer OutboxEventType = "account_action_done_finalizer"
	EventTransactionCompleted       OutboxEventType = "transaction_completed"
	EventUserCreated                OutboxEventType = "user_created"
)

var validOutboxEventTypes = []OutboxEventType{
	EventTransactionCreated,
	EventAccountActionDoneHistory,
	EventAccountActionDoneFinalizer,
	EventTransactionCompleted,
	EventUserCreated,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
