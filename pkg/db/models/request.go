package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pasabuy/pasabuy-backend/pkg/enums"
	"github.com/pasabuy/pasabuy-backend/pkg/types"
)

// Request is a single purchase errand. Status holds the raw stored text; read
// it through NormalizedStatus.
type Request struct {
	ID               uuid.UUID             `gorm:"type:uuid;primaryKey"`
	Title            string                `gorm:"column:title;not null"`
	Category         *string               `gorm:"column:category"`
	Quantity         int                   `gorm:"column:quantity;not null"`
	Price            decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null"`
	ServiceFee       decimal.Decimal       `gorm:"column:service_fee;type:numeric(12,2);not null"`
	PlatformFee      decimal.Decimal       `gorm:"column:platform_fee;type:numeric(12,2);not null"`
	StoreLocation    string                `gorm:"column:store_location;not null"`
	StorePoint       *types.GeographyPoint `gorm:"column:store_point;type:text"`
	DeliveryLocation string                `gorm:"column:delivery_location;not null"`
	PickupTime       string                `gorm:"column:pickup_time;not null"`
	Note             *string               `gorm:"column:note"`
	ImageURL         *string               `gorm:"column:image_url"`

	RequesterID    uuid.UUID `gorm:"column:requester_id;type:uuid;not null"`
	RequesterName  string    `gorm:"column:requester_name;not null"`
	RequesterEmail string    `gorm:"column:requester_email;not null"`
	RequesterPhoto *string   `gorm:"column:requester_photo"`

	Status             string     `gorm:"column:status;not null"`
	AcceptedBy         *uuid.UUID `gorm:"column:accepted_by;type:uuid"`
	CancellationReason *string    `gorm:"column:cancellation_reason"`
	CancelledBy        *uuid.UUID `gorm:"column:cancelled_by;type:uuid"`
	ReportedBy         *uuid.UUID `gorm:"column:reported_by;type:uuid"`
	ConfirmedBy        *uuid.UUID `gorm:"column:confirmed_by;type:uuid"`

	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
	AcceptedAt  *time.Time `gorm:"column:accepted_at"`
	DeliveredAt *time.Time `gorm:"column:delivered_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`
}

func (Request) TableName() string { return "requests" }

// NormalizedStatus returns the canonical lifecycle state of the stored text.
func (r Request) NormalizedStatus() enums.RequestStatus {
	return enums.NormalizeClaimedRequestStatus(r.Status, r.AcceptedBy != nil)
}

// Participants is the requester plus the pasabuyer once one has claimed.
func (r Request) Participants() []uuid.UUID {
	if r.AcceptedBy == nil {
		return []uuid.UUID{r.RequesterID}
	}
	return []uuid.UUID{r.RequesterID, *r.AcceptedBy}
}

// IsAcceptedBy reports whether userID holds the claim.
func (r Request) IsAcceptedBy(userID uuid.UUID) bool {
	return r.AcceptedBy != nil && *r.AcceptedBy == userID
}
