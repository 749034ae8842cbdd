// Package registry routes outbox events to topics on the publishing side and
// decodes their payloads on the consuming side. Both sides share one catalog.
package registry

import (
	"encoding/json"

	"github.com/pasabuy/pasabuy-backend/pkg/config"
	"github.com/pasabuy/pasabuy-backend/pkg/enums"
	"github.com/pasabuy/pasabuy-backend/pkg/outbox/payloads"
)

type stream int

const (
	requestStream stream = iota
	chatStream
)

func (s stream) topic(cfg config.PubSubConfig) string {
	if s == chatStream {
		return cfg.ChatTopic
	}
	return cfg.RequestsTopic
}

// entry is one event type the service emits. fresh returns a pointer to a
// zero payload; value dereferences it for consumers.
type entry struct {
	aggregate enums.OutboxAggregateType
	stream    stream
	fresh     func() any
	value     func(any) any
}

func payloadOf[T any]() (func() any, func(any) any) {
	return func() any { return new(T) }, func(p any) any { return *p.(*T) }
}

func lifecycle() entry {
	fresh, value := payloadOf[payloads.RequestLifecycleEvent]()
	return entry{aggregate: enums.AggregateRequest, stream: requestStream, fresh: fresh, value: value}
}

func chatMessage() entry {
	fresh, value := payloadOf[payloads.MessageSentEvent]()
	return entry{aggregate: enums.AggregateChatThread, stream: chatStream, fresh: fresh, value: value}
}

var catalog = map[enums.OutboxEventType]entry{
	enums.EventRequestCreated:   lifecycle(),
	enums.EventRequestUpdated:   lifecycle(),
	enums.EventRequestAccepted:  lifecycle(),
	enums.EventRequestDelivered: lifecycle(),
	enums.EventRequestCompleted: lifecycle(),
	enums.EventRequestCancelled: lifecycle(),
	enums.EventMessageSent:      chatMessage(),
}

// decode unmarshals raw into a fresh payload of the entry's type.
func (e entry) decode(raw json.RawMessage) (any, error) {
	payload := e.fresh()
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// NonRetryableError marks a row the dispatcher should dead-letter at once.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
