package payloads

import (
	"github.com/angelmondragon/sagabank-backend/pkg/enums"
	"github.com/angelmondragon/sagabank-backend/pkg/types"
)

// SchemaVersion is stamped into every envelope. Consumers reject other values.
const SchemaVersion = 1

// Service names carried in performedByService.
const (
	ServiceTransaction = "TransactionService"
	ServiceAccount     = "AccountService"
	ServiceHistory     = "HistoryService"
)

// TransactionMessage is the field set shared by every saga message.
// AccountNumber and RelatedAccountNumber stay strings because the ledger must
// be able to report malformed identifiers back to history.
type TransactionMessage struct {
	TransactionID        string                  `json:"transactionId"`
	AccountNumber        string                  `json:"accountNumber"`
	RelatedAccountNumber string                  `json:"relatedAccountNumber,omitempty"`
	Amount               types.Amount            `json:"amount"`
	TransactionType      enums.TransactionType   `json:"transactionType"`
	TransactionStatus    enums.TransactionStatus `json:"transactionStatus"`
	PerformedBy          string                  `json:"performedBy"`
	PerformedByService   string                  `json:"performedByService"`
	Details              string                  `json:"details"`
}

// TransactionCreatedEvent starts the saga.
type TransactionCreatedEvent struct {
	TransactionMessage
}

// AccountActionDoneEvent reports the ledger outcome. The same shape goes to
// history (per leg) and to the finalizer (once per transaction).
type AccountActionDoneEvent struct {
	TransactionMessage
	IsError bool `json:"isError"`
}

// TransactionCompletedEvent closes the saga.
type TransactionCompletedEvent struct {
	TransactionMessage
	IsError bool `json:"isError"`
}

// UserCreatedEvent is published by the identity service.
type UserCreatedEvent struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
}

// GetTransactionID lets consumers tag logs without knowing the concrete type.
func (m TransactionMessage) GetTransactionID() string { return m.TransactionID }
