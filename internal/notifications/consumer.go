package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/pasabuy/pasabuy-backend/pkg/db/models"
	"github.com/pasabuy/pasabuy-backend/pkg/enums"
	"github.com/pasabuy/pasabuy-backend/pkg/logger"
	"github.com/pasabuy/pasabuy-backend/pkg/outbox"
	"github.com/pasabuy/pasabuy-backend/pkg/outbox/idempotency"
	"github.com/pasabuy/pasabuy-backend/pkg/outbox/payloads"
	"github.com/pasabuy/pasabuy-backend/pkg/outbox/registry"
)

// ConsumerName scopes idempotency markers for the notification worker.
const ConsumerName = "notifications"

type notificationWriter interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer turns request lifecycle and chat events into in-app notifications.
type Consumer struct {
	repo         notificationWriter
	subscription *pubsub.Subscriber
	guard        *idempotency.Guard
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds a notification consumer bound to one subscription.
func NewConsumer(repo notificationWriter, subscription *pubsub.Subscriber, guard *idempotency.Guard, decoders *registry.DecoderRegistry, logg *logger.Logger) (*Consumer, error) {
	switch {
	case repo == nil:
		return nil, fmt.Errorf("notifications repository required")
	case subscription == nil:
		return nil, fmt.Errorf("subscription required")
	case guard == nil:
		return nil, fmt.Errorf("idempotency guard required")
	case decoders == nil:
		return nil, fmt.Errorf("decoder registry required")
	case logg == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		guard:        guard,
		decoders:     decoders,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg) == nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type verdict int

const (
	ack verdict = iota
	nack
)

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) verdict {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	if !notifiable(eventType) {
		c.logg.Debug(logCtx, "skipping event without notification")
		return ack
	}

	envelope, err := outbox.DecodeEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return ack
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return ack
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	err = c.guard.Once(ctx, eventID, func(ctx context.Context) error {
		return c.notify(logCtx, eventType, envelope)
	})
	switch {
	case err == nil:
		return ack
	case errors.Is(err, idempotency.ErrDuplicate):
		c.logg.Info(logCtx, "event already processed")
		return ack
	case idempotency.IsPermanent(err):
		c.logg.Error(logCtx, "dropping event", err)
		return ack
	default:
		c.logg.Error(logCtx, "notification failed; will retry", err)
		return nack
	}
}

// notify decodes the payload and stores the notification. Payload problems
// are permanent since redelivery carries the same bytes.
func (c *Consumer) notify(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	version := envelope.Version
	if version == 0 {
		version = 1
	}
	decoded, err := c.decoders.Decode(eventType, version, envelope.Data)
	if err != nil {
		return idempotency.Permanent(fmt.Errorf("parse payload: %w", err))
	}
	notification, err := buildNotification(eventType, decoded)
	if err != nil {
		return idempotency.Permanent(err)
	}
	if notification == nil {
		return nil
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	c.logg.Info(c.logg.WithUserID(ctx, notification.UserID.String()), "notification created")
	return nil
}

func notifiable(eventType enums.OutboxEventType) bool {
	switch eventType {
	case enums.EventRequestAccepted,
		enums.EventRequestDelivered,
		enums.EventRequestCompleted,
		enums.EventRequestCancelled,
		enums.EventMessageSent:
		return true
	default:
		return false
	}
}

// buildNotification picks the recipient and copy for an event. A nil result
// means the event has nobody to notify.
func buildNotification(eventType enums.OutboxEventType, decoded interface{}) (*models.Notification, error) {
	switch payload := decoded.(type) {
	case payloads.RequestLifecycleEvent:
		return lifecycleNotification(eventType, payload)
	case payloads.MessageSentEvent:
		if payload.RecipientID == uuid.Nil {
			return nil, fmt.Errorf("recipient id missing")
		}
		message := strings.TrimSpace(payload.Preview)
		if name := strings.TrimSpace(payload.SenderName); name != "" {
			message = fmt.Sprintf("%s: %s", name, message)
		}
		return &models.Notification{
			UserID:  payload.RecipientID,
			Type:    enums.NotificationTypeNewMessage,
			Title:   "New Message",
			Message: message,
			Link:    stringPtr(fmt.Sprintf("/chats/%s", payload.ThreadID)),
		}, nil
	default:
		return nil, fmt.Errorf("unexpected payload %T", decoded)
	}
}

func lifecycleNotification(eventType enums.OutboxEventType, payload payloads.RequestLifecycleEvent) (*models.Notification, error) {
	if payload.RequestID == uuid.Nil {
		return nil, fmt.Errorf("request id missing")
	}
	link := stringPtr(fmt.Sprintf("/requests/%s", payload.RequestID))
	title := strings.TrimSpace(payload.Title)

	switch eventType {
	case enums.EventRequestAccepted:
		return &models.Notification{
			UserID:  payload.RequesterID,
			Type:    enums.NotificationTypeRequestAccepted,
			Title:   "Request Accepted",
			Message: fmt.Sprintf("Your request %q has been accepted by a pasabuyer.", title),
			Link:    link,
		}, nil
	case enums.EventRequestDelivered:
		return &models.Notification{
			UserID:  payload.RequesterID,
			Type:    enums.NotificationTypeRequestDelivered,
			Title:   "Delivery Completed",
			Message: fmt.Sprintf("Your request %q has been delivered. Please confirm receipt.", title),
			Link:    link,
		}, nil
	case enums.EventRequestCompleted:
		if payload.PasabuyerID == nil {
			return nil, fmt.Errorf("pasabuyer id missing")
		}
		return &models.Notification{
			UserID:  *payload.PasabuyerID,
			Type:    enums.NotificationTypeRequestCompleted,
			Title:   "Request Completed",
			Message: fmt.Sprintf("The requester confirmed receipt of %q.", title),
			Link:    link,
		}, nil
	case enums.EventRequestCancelled:
		recipient := payload.Counterparty()
		if recipient == nil {
			return nil, nil
		}
		message := fmt.Sprintf("Request %q was cancelled.", title)
		if reason := strings.TrimSpace(payload.Reason); reason != "" {
			message = fmt.Sprintf("Request %q was cancelled. Reason: %s", title, reason)
		}
		return &models.Notification{
			UserID:  *recipient,
			Type:    enums.NotificationTypeRequestCancelled,
			Title:   "Request Cancelled",
			Message: message,
			Link:    link,
		}, nil
	default:
		return nil, nil
	}
}

func stringPtr(value string) *string {
	return &value
}
