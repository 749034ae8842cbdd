package registry

import (
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pasabuy/pasabuy-backend/pkg/config"
	"github.com/pasabuy/pasabuy-backend/pkg/db/models"
	"github.com/pasabuy/pasabuy-backend/pkg/enums"
	"github.com/pasabuy/pasabuy-backend/pkg/outbox"
	"github.com/pasabuy/pasabuy-backend/pkg/outbox/payloads"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := newTestEventRegistry(t)

	requestID := uuid.New()
	pasabuyerID := uuid.New()
	payloadBytes := mustMarshal(t, payloads.RequestLifecycleEvent{
		RequestID:   requestID,
		RequesterID: uuid.New(),
		PasabuyerID: &pasabuyerID,
		ActorID:     pasabuyerID,
		Status:      enums.RequestStatusAccepted,
	})

	event := models.OutboxEvent{
		EventType:     enums.EventRequestAccepted,
		AggregateType: enums.AggregateRequest,
		AggregateID:   requestID,
		Payload:       mustEnvelope(t, payloadBytes),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "requests-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.RequestLifecycleEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.RequestID != requestID || payload.PasabuyerID == nil || *payload.PasabuyerID != pasabuyerID {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" {
		t.Fatalf("envelope missing event id")
	}
	if resolved.Envelope.OccurredAt.IsZero() {
		t.Fatalf("envelope missing occurred_at")
	}
}

func TestEventRegistryRoutesChatToChatTopic(t *testing.T) {
	reg := newTestEventRegistry(t)
	event := models.OutboxEvent{
		EventType:     enums.EventMessageSent,
		AggregateType: enums.AggregateChatThread,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, mustMarshal(t, payloads.MessageSentEvent{ThreadID: "a_b_c"})),
	}
	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "chat-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}

	topics := reg.Topics()
	sort.Strings(topics)
	if len(topics) != 2 || topics[0] != "chat-topic" || topics[1] != "requests-topic" {
		t.Fatalf("unexpected topics %v", topics)
	}
}

func TestEventRegistryResolveRejectsBadRows(t *testing.T) {
	reg := newTestEventRegistry(t)
	valid := mustEnvelope(t, []byte(`{"request_id":"00000000-0000-0000-0000-000000000000"}`))

	tests := []struct {
		name  string
		event models.OutboxEvent
	}{
		{
			name:  "unknown event",
			event: models.OutboxEvent{EventType: "request_teleported", AggregateType: enums.AggregateRequest, AggregateID: uuid.New(), Payload: valid},
		},
		{
			name:  "aggregate mismatch",
			event: models.OutboxEvent{EventType: enums.EventRequestCreated, AggregateType: enums.AggregateChatThread, AggregateID: uuid.New(), Payload: valid},
		},
		{
			name:  "missing aggregate id",
			event: models.OutboxEvent{EventType: enums.EventRequestCreated, AggregateType: enums.AggregateRequest, Payload: valid},
		},
		{
			name:  "null payload",
			event: models.OutboxEvent{EventType: enums.EventRequestCreated, AggregateType: enums.AggregateRequest, AggregateID: uuid.New(), Payload: mustEnvelope(t, []byte("null"))},
		},
		{
			name:  "broken envelope",
			event: models.OutboxEvent{EventType: enums.EventRequestCreated, AggregateType: enums.AggregateRequest, AggregateID: uuid.New(), Payload: json.RawMessage(`{`)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Resolve(tt.event)
			if err == nil {
				t.Fatalf("expected error")
			}
			var nonRetry NonRetryableError
			if !errors.As(err, &nonRetry) {
				t.Fatalf("expected non-retryable error, got %T", err)
			}
		})
	}
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{ChatTopic: "chat"}); err == nil {
		t.Fatal("expected missing requests topic error")
	}
	if _, err := NewEventRegistry(config.PubSubConfig{RequestsTopic: "req"}); err == nil {
		t.Fatal("expected missing chat topic error")
	}
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{
		RequestsTopic: "requests-topic",
		ChatTopic:     "chat-topic",
	})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func mustEnvelope(t *testing.T, payload []byte) json.RawMessage {
	t.Helper()
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return data
}
