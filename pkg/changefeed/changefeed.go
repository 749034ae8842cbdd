// Package changefeed fans committed request and chat mutations out over Redis
// pub/sub so websocket watchers can re-read instead of polling.
package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pasabuy/pasabuy-backend/pkg/enums"
	"github.com/pasabuy/pasabuy-backend/pkg/logger"
)

type Kind string

const (
	KindRequest Kind = "request"
	KindThread  Kind = "thread"
)

// StatusRemoved marks a request event for a deleted row.
const StatusRemoved = "removed"

// ChangeEvent is what travels over pub/sub. Participants lists the users
// allowed to see a request's Status; watchers receive VisibleTo's copy.
type ChangeEvent struct {
	Kind         Kind      `json:"kind"`
	ID           string    `json:"id"`
	Status       string    `json:"status,omitempty"`
	Participants []string  `json:"participants,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// VisibleTo returns the event as userID may see it. Non-participants learn
// only that a request changed, and nobody receives the participant list.
func (e ChangeEvent) VisibleTo(userID uuid.UUID) ChangeEvent {
	out := e
	out.Participants = nil
	if e.Kind == KindRequest && !slices.Contains(e.Participants, userID.String()) {
		out.Status = ""
	}
	return out
}

func userIDs(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != uuid.Nil {
			out = append(out, id.String())
		}
	}
	return out
}

// Channels names the pub/sub channels. *redis.Client implements it.
type Channels interface {
	RequestChangesChannel() string
	ThreadChangesChannel(threadID string) string
}

type Broker interface {
	Channels
	Publish(ctx context.Context, channel string, message any) (int64, error)
}

type Source interface {
	Channels
	Subscribe(ctx context.Context, channels ...string) (*goredis.PubSub, error)
}

// Publisher announces changes after commit. Failures are logged and dropped;
// watchers resync on reconnect.
type Publisher struct {
	broker Broker
	logg   *logger.Logger
	now    func() time.Time
}

func NewPublisher(broker Broker, logg *logger.Logger) *Publisher {
	return &Publisher{broker: broker, logg: logg, now: time.Now}
}

// RequestChanged announces a request mutation. Only participants see status.
func (p *Publisher) RequestChanged(ctx context.Context, requestID uuid.UUID, status enums.RequestStatus, participants ...uuid.UUID) {
	if p == nil || p.broker == nil {
		return
	}
	p.publish(ctx, p.broker.RequestChangesChannel(), ChangeEvent{
		Kind:         KindRequest,
		ID:           requestID.String(),
		Status:       string(status),
		Participants: userIDs(participants),
	})
}

// RequestRemoved announces a deleted request; watchers drop it on re-read.
func (p *Publisher) RequestRemoved(ctx context.Context, requestID uuid.UUID, participants ...uuid.UUID) {
	if p == nil || p.broker == nil {
		return
	}
	p.publish(ctx, p.broker.RequestChangesChannel(), ChangeEvent{
		Kind:         KindRequest,
		ID:           requestID.String(),
		Status:       StatusRemoved,
		Participants: userIDs(participants),
	})
}

func (p *Publisher) ThreadChanged(ctx context.Context, threadID string) {
	if p == nil || p.broker == nil {
		return
	}
	p.publish(ctx, p.broker.ThreadChangesChannel(threadID), ChangeEvent{
		Kind: KindThread,
		ID:   threadID,
	})
}

func (p *Publisher) publish(ctx context.Context, channel string, event ChangeEvent) {
	event.OccurredAt = p.now().UTC()
	payload, err := json.Marshal(event)
	if err != nil {
		p.warn(ctx, channel, err)
		return
	}
	if _, err := p.broker.Publish(ctx, channel, payload); err != nil {
		p.warn(ctx, channel, err)
	}
}

func (p *Publisher) warn(ctx context.Context, channel string, err error) {
	if p.logg == nil {
		return
	}
	p.logg.Warn(p.logg.WithFields(ctx, map[string]any{
		"channel": channel,
		"error":   err.Error(),
	}), "change event publish failed")
}

// Decode parses a pub/sub payload.
func Decode(payload string) (ChangeEvent, error) {
	var event ChangeEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return ChangeEvent{}, fmt.Errorf("decode change event: %w", err)
	}
	if event.Kind != KindRequest && event.Kind != KindThread {
		return ChangeEvent{}, fmt.Errorf("unknown change kind %q", event.Kind)
	}
	return event, nil
}

// Subscription streams decoded events until ctx is cancelled or Close is called.
type Subscription struct {
	pubsub *goredis.PubSub
	events chan ChangeEvent
}

// Watch subscribes to request changes plus the given chat threads.
func Watch(ctx context.Context, source Source, threadIDs []string, logg *logger.Logger) (*Subscription, error) {
	if source == nil {
		return nil, errors.New("change feed source required")
	}
	channels := []string{source.RequestChangesChannel()}
	for _, id := range threadIDs {
		if id != "" {
			channels = append(channels, source.ThreadChangesChannel(id))
		}
	}
	ps, err := source.Subscribe(ctx, channels...)
	if err != nil {
		return nil, err
	}

	sub := &Subscription{pubsub: ps, events: make(chan ChangeEvent, 16)}
	go sub.pump(ctx, logg)
	return sub, nil
}

func (s *Subscription) Events() <-chan ChangeEvent {
	return s.events
}

func (s *Subscription) Close() error {
	return s.pubsub.Close()
}

func (s *Subscription) pump(ctx context.Context, logg *logger.Logger) {
	defer close(s.events)
	messages := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			event, err := Decode(msg.Payload)
			if err != nil {
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "channel", msg.Channel), err.Error())
				}
				continue
			}
			select {
			case s.events <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}
