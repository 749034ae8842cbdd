package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/pasabuy/pasabuy-backend/pkg/enums"
)

// RequestLifecycleEvent is emitted for every request transition. PasabuyerID
// is set once the request has been claimed.
type RequestLifecycleEvent struct {
	RequestID   uuid.UUID           `json:"request_id"`
	RequesterID uuid.UUID           `json:"requester_id"`
	PasabuyerID *uuid.UUID          `json:"pasabuyer_id,omitempty"`
	ActorID     uuid.UUID           `json:"actor_id"`
	Title       string              `json:"title"`
	Status      enums.RequestStatus `json:"status"`
	Reason      string              `json:"reason,omitempty"`
	OccurredAt  time.Time           `json:"occurred_at"`
}

// Counterparty returns the participant who did not perform the transition,
// or nil when there is none.
func (e RequestLifecycleEvent) Counterparty() *uuid.UUID {
	if e.ActorID == e.RequesterID {
		return e.PasabuyerID
	}
	requester := e.RequesterID
	return &requester
}

// MessageSentEvent is emitted when a chat message is appended.
type MessageSentEvent struct {
	ThreadID    string    `json:"thread_id"`
	RequestID   uuid.UUID `json:"request_id"`
	MessageID   uuid.UUID `json:"message_id"`
	SenderID    uuid.UUID `json:"sender_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	SenderName  string    `json:"sender_name"`
	Preview     string    `json:"preview"`
	SentAt      time.Time `json:"sent_at"`
}
