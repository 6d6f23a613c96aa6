package accounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sagabank-backend/internal/consumers"
	"github.com/angelmondragon/sagabank-backend/internal/repo"
	"github.com/angelmondragon/sagabank-backend/pkg/db/models"
	"github.com/angelmondragon/sagabank-backend/pkg/logger"
	"github.com/angelmondragon/sagabank-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/sagabank-backend/pkg/types"
)

// BootstrapConsumerName keys processed_messages rows for UserCreated.
const BootstrapConsumerName = "account-user-bootstrap"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Bootstrapper opens a zero-balance account for every newly registered user.
type Bootstrapper struct {
	tx        txRunner
	repo      Repository
	processed *repo.ProcessedMessages
	logg      *logger.Logger
}

func NewBootstrapper(tx txRunner, accounts Repository, processed *repo.ProcessedMessages, logg *logger.Logger) (*Bootstrapper, error) {
	if tx == nil || accounts == nil || processed == nil {
		return nil, fmt.Errorf("bootstrapper dependencies required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Bootstrapper{tx: tx, repo: accounts, processed: processed, logg: logg}, nil
}

func (b *Bootstrapper) Handle(ctx context.Context, msg consumers.Message) error {
	evt, ok := msg.Payload.(*payloads.UserCreatedEvent)
	if !ok || evt == nil {
		return consumers.Permanent(fmt.Errorf("unexpected payload %T", msg.Payload))
	}
	userID, err := uuid.Parse(strings.TrimSpace(evt.UserID))
	if err != nil {
		return consumers.Permanent(fmt.Errorf("user id %q is not a uuid: %w", evt.UserID, err))
	}
	ctx = b.logg.WithUserID(ctx, userID.String())

	var opened *models.Account
	err = b.tx.WithTx(ctx, func(tx *gorm.DB) error {
		claimed, err := b.processed.WithTx(tx).Claim(ctx, BootstrapConsumerName, userID.String())
		if err != nil || !claimed {
			return err
		}
		account := &models.Account{UserID: userID, Balance: types.AmountFromInt(0), IsActive: true}
		if err := b.repo.WithTx(tx).Create(ctx, account); err != nil {
			return err
		}
		opened = account
		return nil
	})
	if err != nil {
		return err
	}
	if opened == nil {
		b.logg.Info(ctx, "user already bootstrapped")
		return nil
	}
	b.logg.Info(b.logg.WithField(ctx, "account_id", opened.ID.String()), "opened default account")
	return nil
}
