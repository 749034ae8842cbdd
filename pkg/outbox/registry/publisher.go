package registry

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pasabuy/pasabuy-backend/pkg/config"
	"github.com/pasabuy/pasabuy-backend/pkg/db/models"
	"github.com/pasabuy/pasabuy-backend/pkg/enums"
	"github.com/pasabuy/pasabuy-backend/pkg/outbox"
)

// EventDescriptor is where a resolved event goes.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// ResolvedEvent is a validated outbox row. Payload is a pointer to the typed
// event struct.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry resolves outbox rows against the catalog using configured
// topic names.
type EventRegistry struct {
	topics config.PubSubConfig
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	switch {
	case cfg.RequestsTopic == "":
		return nil, errors.New("requests topic is required")
	case cfg.ChatTopic == "":
		return nil, errors.New("chat topic is required")
	}
	return &EventRegistry{topics: cfg}, nil
}

// Topics lists the distinct topics events are routed to.
func (r *EventRegistry) Topics() []string {
	return []string{r.topics.RequestsTopic, r.topics.ChatTopic}
}

// Resolve checks the row against its catalog entry and decodes the payload.
// Every failure is non-retryable since the row will not change.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	resolved, err := r.resolve(event)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	return resolved, nil
}

func (r *EventRegistry) resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	known, ok := catalog[event.EventType]
	switch {
	case !ok:
		return nil, fmt.Errorf("unsupported event type %s", event.EventType)
	case known.aggregate != event.AggregateType:
		return nil, fmt.Errorf("aggregate mismatch: expected %s got %s", known.aggregate, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, errors.New("missing aggregate_id")
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("payload missing for %s", event.EventType)
	}
	payload, err := known.decode(envelope.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", event.EventType, err)
	}

	return &ResolvedEvent{
		Descriptor: EventDescriptor{
			EventType:     event.EventType,
			AggregateType: known.aggregate,
			Topic:         known.stream.topic(r.topics),
		},
		Envelope: envelope,
		Payload:  payload,
	}, nil
}
