package history

import (
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/sagabank-backend/pkg/db/models"
	"github.com/angelmondragon/sagabank-backend/pkg/enums"
	"github.com/angelmondragon/sagabank-backend/pkg/outbox/payloads"
)

// actionEventType maps an AccountActionDone leg to its history type. Errors
// win over the transaction type.
func actionEventType(msg payloads.TransactionMessage, isError bool) enums.HistoryEventType {
	if isError {
		return enums.HistoryEventError
	}
	switch msg.TransactionType {
	case enums.TransactionTypeDeposit:
		return enums.HistoryEventMoneyDeposited
	case enums.TransactionTypeWithdraw:
		return enums.HistoryEventMoneyWithdraw
	default:
		return enums.HistoryEventError
	}
}

func toEvent(msg payloads.TransactionMessage, eventType enums.HistoryEventType, sourceEventID string) *models.HistoryEvent {
	event := &models.HistoryEvent{
		TransactionID:        strings.TrimSpace(msg.TransactionID),
		AccountNumber:        strings.TrimSpace(msg.AccountNumber),
		RelatedAccountNumber: strings.TrimSpace(msg.RelatedAccountNumber),
		EventType:            eventType,
		TransactionType:      msg.TransactionType,
		TransactionStatus:    msg.TransactionStatus,
		Amount:               msg.Amount,
		PerformedBy:          msg.PerformedBy,
		PerformedByService:   msg.PerformedByService,
		Details:              msg.Details,
	}
	if id, err := uuid.Parse(sourceEventID); err == nil {
		event.SourceEventID = &id
	}
	return event
}
