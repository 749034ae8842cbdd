package registry

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/pasabuy/pasabuy-backend/pkg/enums"
	"github.com/pasabuy/pasabuy-backend/pkg/outbox/payloads"
)

func TestDecoderRegistry(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventRequestUpdated, 1, func(payload json.RawMessage) (interface{}, error) {
		var decoded map[string]string
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	})

	input := json.RawMessage(`{"status":"active"}`)
	output, err := reg.Decode(enums.EventRequestUpdated, 1, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outMap, ok := output.(map[string]string); !ok || outMap["status"] != "active" {
		t.Fatalf("unexpected output %+v", output)
	}

	if _, err := reg.Decode(enums.EventRequestUpdated, 2, input); err == nil {
		t.Fatal("expected unregistered version to fail")
	}
}

func TestDefaultDecoderRegistry(t *testing.T) {
	reg := NewDefaultDecoderRegistry()
	requestID := uuid.New()

	output, err := reg.Decode(enums.EventRequestAccepted, 1, mustMarshal(t, payloads.RequestLifecycleEvent{
		RequestID: requestID,
		Status:    enums.RequestStatusAccepted,
	}))
	if err != nil {
		t.Fatalf("decode accepted: %v", err)
	}
	event, ok := output.(payloads.RequestLifecycleEvent)
	if !ok || event.RequestID != requestID || event.Status != enums.RequestStatusAccepted {
		t.Fatalf("unexpected decoded event %+v", output)
	}

	output, err = reg.Decode(enums.EventMessageSent, 1, mustMarshal(t, payloads.MessageSentEvent{ThreadID: "p_r_q", Preview: "hi"}))
	if err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg, ok := output.(payloads.MessageSentEvent); !ok || msg.ThreadID != "p_r_q" {
		t.Fatalf("unexpected decoded message %+v", output)
	}
}

func TestDefaultDecoderRegistryCoversCatalog(t *testing.T) {
	reg := NewDefaultDecoderRegistry()
	for eventType := range catalog {
		if _, err := reg.Decode(eventType, 1, json.RawMessage(`{}`)); err != nil {
			t.Fatalf("decode %s: %v", eventType, err)
		}
	}
	if _, err := reg.Decode(enums.EventMessageSent, 1, json.RawMessage(`[`)); err == nil {
		t.Fatal("expected malformed payload to fail")
	}
}
