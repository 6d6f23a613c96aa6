package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelmondragon/sagabank-backend/pkg/enums"
	"github.com/angelmondragon/sagabank-backend/pkg/outbox/payloads"
)

type DecoderFunc func(payload json.RawMessage) (interface{}, error)

type registryKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry stores versioned payload decoders for consumers.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	registry map[registryKey]DecoderFunc
}

// NewDecoderRegistry builds an empty decoder registry.
func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{registry: make(map[registryKey]DecoderFunc)}
}

// Register stores a decoder for the given event type and version.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder DecoderFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.registry[registryKey{eventType: eventType, version: version}] = decoder
}

// Decode runs the decoder registered for the event type and version.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (interface{}, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	if decoder, ok := r.registry[registryKey{eventType: eventType, version: version}]; ok {
		return decoder(payload)
	}
	return nil, fmt.Errorf("decoder not registered for %s@v%d", eventType, version)
}

func decodeInto[T any](payload json.RawMessage) (interface{}, error) {
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// NewBankingDecoders registers every saga payload at the current schema
// version. Decode fails for any other version.
func NewBankingDecoders() *DecoderRegistry {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventTransactionCreated, payloads.SchemaVersion, decodeInto[payloads.TransactionCreatedEvent])
	reg.Register(enums.EventAccountActionDoneHistory, payloads.SchemaVersion, decodeInto[payloads.AccountActionDoneEvent])
	reg.Register(enums.EventAccountActionDoneFinalizer, payloads.SchemaVersion, decodeInto[payloads.AccountActionDoneEvent])
	reg.Register(enums.EventTransactionCompleted, payloads.SchemaVersion, decodeInto[payloads.TransactionCompletedEvent])
	reg.Register(enums.EventUserCreated, payloads.SchemaVersion, decodeInto[payloads.UserCreatedEvent])
	return reg
}
