package chats

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pasabuy/pasabuy-backend/pkg/db/models"
)

const (
	DefaultPasabuyerAvatar = "https://cdn-icons-png.flaticon.com/512/3135/3135715.png"
	DefaultRequesterAvatar = "https://cdn-icons-png.flaticon.com/512/706/706830.png"

	RequesterGreeting = "Hello! I have a question about my order."
	PasabuyerGreeting = "Magandang araw"
)

// RequestSummary is the request snapshot copied onto a thread at creation.
type RequestSummary struct {
	Title            string          `json:"title"`
	Store            string          `json:"store"`
	DeliveryLocation string          `json:"delivery_location"`
	Quantity         int             `json:"quantity"`
	Budget           decimal.Decimal `json:"budget"`
	Status           string          `json:"status"`
}

// SummaryFromRequest snapshots the fields a thread header shows.
func SummaryFromRequest(r *models.Request) RequestSummary {
	return RequestSummary{
		Title:            r.Title,
		Store:            r.StoreLocation,
		DeliveryLocation: r.DeliveryLocation,
		Quantity:         r.Quantity,
		Budget:           r.Price,
		Status:           string(r.NormalizedStatus()),
	}
}

type EnsureThreadInput struct {
	RequestID   uuid.UUID
	RequesterID uuid.UUID
	PasabuyerID uuid.UUID
	// InitiatorID is whoever opened the thread; the greeting is theirs.
	InitiatorID uuid.UUID
	Summary     RequestSummary
}

type AppendMessageInput struct {
	ThreadID string    `json:"-"`
	SenderID uuid.UUID `json:"-"`
	Text     string    `json:"text" validate:"required"`
}

type Participant struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Avatar string    `json:"avatar"`
}

type ThreadDTO struct {
	ID            string         `json:"id"`
	RequestID     uuid.UUID      `json:"request_id"`
	Requester     Participant    `json:"requester"`
	Pasabuyer     Participant    `json:"pasabuyer"`
	Request       RequestSummary `json:"request"`
	LastMessage   string         `json:"last_message"`
	Unread        int64          `json:"unread"`
	LastUpdatedAt time.Time      `json:"last_updated_at"`
	CreatedAt     time.Time      `json:"created_at"`
	Created       bool           `json:"created,omitempty"`
}

type MessageDTO struct {
	ID       uuid.UUID `json:"id"`
	ThreadID string    `json:"thread_id"`
	SenderID uuid.UUID `json:"sender_id"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sent_at"`
	Read     bool      `json:"read"`
}

type MessagePage struct {
	Items      []MessageDTO `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func threadFromModel(t *models.ChatThread) *ThreadDTO {
	return &ThreadDTO{
		ID:        t.ID,
		RequestID: t.RequestID,
		Requester: Participant{ID: t.RequesterID, Name: t.RequesterName, Avatar: t.RequesterAvatar},
		Pasabuyer: Participant{ID: t.PasabuyerID, Name: t.PasabuyerName, Avatar: t.PasabuyerAvatar},
		Request: RequestSummary{
			Title:            t.RequestTitle,
			Store:            t.RequestStore,
			DeliveryLocation: t.RequestDeliveryLocation,
			Quantity:         t.RequestQuantity,
			Budget:           t.RequestBudget,
			Status:           t.RequestStatus,
		},
		LastMessage:   t.LastMessage,
		LastUpdatedAt: t.LastUpdatedAt,
		CreatedAt:     t.CreatedAt,
	}
}

func messageFromModel(m *models.ChatMessage) MessageDTO {
	return MessageDTO{
		ID:       m.ID,
		ThreadID: m.ThreadID,
		SenderID: m.SenderID,
		Text:     m.Text,
		SentAt:   m.SentAt,
		Read:     m.Read,
	}
}
