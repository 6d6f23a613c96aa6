package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/sagabank-backend/pkg/redis"
)

// Manager filters bus redeliveries using Redis markers with a TTL.
// Keys follow the `sb:idempotency:msg:<consumer>:<message_key>` pattern.
//
// A marker is written only after a handler succeeded, so a crash mid-handler
// leaves the message unmarked and the redelivery is applied. Handlers that
// move money also record the message in processed_messages inside their
// database transaction; the marker only saves them a round trip.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// Seen reports whether consumer already finished key.
func (m *Manager) Seen(ctx context.Context, consumer, key string) (bool, error) {
	storeKey, err := m.processedKey(consumer, key)
	if err != nil {
		return false, err
	}
	if _, err := m.store.Get(ctx, storeKey); err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MarkProcessed records that consumer finished key. An existing marker is kept.
func (m *Manager) MarkProcessed(ctx context.Context, consumer, key string) error {
	storeKey, err := m.processedKey(consumer, key)
	if err != nil {
		return err
	}
	_, err = m.store.SetNX(ctx, storeKey, time.Now().UTC().Format(time.RFC3339), m.ttl)
	return err
}

func (m *Manager) processedKey(consumer, key string) (string, error) {
	consumer = strings.TrimSpace(consumer)
	key = strings.TrimSpace(key)
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if key == "" {
		return "", errors.New("message key is required")
	}
	return m.store.IdempotencyKey("msg:"+consumer, key), nil
}
