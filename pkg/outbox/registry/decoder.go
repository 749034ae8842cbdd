package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pasabuy/pasabuy-backend/pkg/enums"
)

type decoderFunc func(payload json.RawMessage) (any, error)

type versioned struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry holds per-version payload decoders for consumers. Decoded
// values are payload structs, not pointers.
type DecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[versioned]decoderFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: make(map[versioned]decoderFunc)}
}

// NewDefaultDecoderRegistry registers v1 of every catalog event.
func NewDefaultDecoderRegistry() *DecoderRegistry {
	reg := NewDecoderRegistry()
	for eventType, known := range catalog {
		reg.Register(eventType, 1, func(payload json.RawMessage) (any, error) {
			decoded, err := known.decode(payload)
			if err != nil {
				return nil, err
			}
			return known.value(decoded), nil
		})
	}
	return reg
}

func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder decoderFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[versioned{eventType, version}] = decoder
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error) {
	r.mu.RLock()
	decoder, ok := r.decoders[versioned{eventType, version}]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("decoder not registered for %s@v%d", eventType, version)
	}
	return decoder(payload)
}
