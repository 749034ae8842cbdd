package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChatThread is keyed by the id derived from (pasabuyer, requester, request).
type ChatThread struct {
	ID          string    `gorm:"column:id;primaryKey"`
	RequestID   uuid.UUID `gorm:"column:request_id;type:uuid;not null"`
	RequesterID uuid.UUID `gorm:"column:requester_id;type:uuid;not null"`
	PasabuyerID uuid.UUID `gorm:"column:pasabuyer_id;type:uuid;not null"`

	RequesterName   string `gorm:"column:requester_name;not null"`
	RequesterAvatar string `gorm:"column:requester_avatar;not null"`
	PasabuyerName   string `gorm:"column:pasabuyer_name;not null"`
	PasabuyerAvatar string `gorm:"column:pasabuyer_avatar;not null"`

	RequestTitle            string          `gorm:"column:request_title;not null"`
	RequestStore            string          `gorm:"column:request_store;not null"`
	RequestDeliveryLocation string          `gorm:"column:request_delivery_location;not null"`
	RequestQuantity         int             `gorm:"column:request_quantity;not null"`
	RequestBudget           decimal.Decimal `gorm:"column:request_budget;type:numeric(12,2);not null"`
	RequestStatus           string          `gorm:"column:request_status;not null"`

	LastMessage   string    `gorm:"column:last_message;not null"`
	LastUpdatedAt time.Time `gorm:"column:last_updated_at"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (ChatThread) TableName() string { return "chat_threads" }

// HasParticipant reports whether userID is the requester or the pasabuyer.
func (t ChatThread) HasParticipant(userID uuid.UUID) bool {
	return t.RequesterID == userID || t.PasabuyerID == userID
}

// ChatMessage is append-only.
type ChatMessage struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	ThreadID string    `gorm:"column:thread_id;not null"`
	SenderID uuid.UUID `gorm:"column:sender_id;type:uuid;not null"`
	Text     string    `gorm:"column:text;not null"`
	SentAt   time.Time `gorm:"column:sent_at"`
	Read     bool      `gorm:"column:read;not null;default:false"`
}

func (ChatMessage) TableName() string { return "chat_messages" }
