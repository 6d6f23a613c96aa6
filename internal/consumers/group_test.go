package consumers

import (
	"context"
	"errors"
	"io"
	"testing"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/sagabank-backend/pkg/enums"
	"github.com/angelmondragon/sagabank-backend/pkg/logger"
)

type blockingReceiver struct {
	err error
}

func (b blockingReceiver) Receive(ctx context.Context, _ func(context.Context, *pubsub.Message)) error {
	if b.err != nil {
		return b.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func newGroupRunner(t *testing.T, name string, sub receiver) *Runner {
	t.Helper()
	runner, err := NewRunner(Options{
		Name:         name,
		EventTypes:   []enums.OutboxEventType{enums.EventTransactionCreated},
		Handler:      HandlerFunc(func(context.Context, Message) error { return nil }),
		Subscription: sub,
		Logger:       logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return runner
}

func TestRunAllStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunAll(ctx,
			newGroupRunner(t, "one", blockingReceiver{}),
			newGroupRunner(t, "two", blockingReceiver{}),
		)
	}()
	cancel()
	assert.NoError(t, <-done)
}

func TestRunAllReturnsFirstFailure(t *testing.T) {
	err := RunAll(context.Background(),
		newGroupRunner(t, "healthy", blockingReceiver{}),
		newGroupRunner(t, "broken", blockingReceiver{err: errors.New("subscription deleted")}),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "consumer broken")
}

func TestRunAllRequiresRunners(t *testing.T) {
	assert.Error(t, RunAll(context.Background()))
}
