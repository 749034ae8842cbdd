package requests

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pasabuy/pasabuy-backend/pkg/db/models"
	"github.com/pasabuy/pasabuy-backend/pkg/enums"
	pkgerrors "github.com/pasabuy/pasabuy-backend/pkg/errors"
	"github.com/pasabuy/pasabuy-backend/pkg/pricing"
	"github.com/pasabuy/pasabuy-backend/pkg/types"
)

// ListFilter selects listing rows by canonical state. The empty value and
// "all" match every state; "history" matches the terminal states.
type ListFilter string

const (
	ListFilterAll     ListFilter = "all"
	ListFilterHistory ListFilter = "history"
)

// ParseListFilter accepts "", all, history or a canonical state name.
func ParseListFilter(raw string) (ListFilter, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "", string(ListFilterAll):
		return ListFilterAll, nil
	case string(ListFilterHistory):
		return ListFilterHistory, nil
	}
	status, err := enums.ParseRequestStatus(value)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
	}
	return ListFilter(status), nil
}

// Statuses returns the canonical states the filter matches, or nil for all.
func (f ListFilter) Statuses() []enums.RequestStatus {
	switch f {
	case "", ListFilterAll:
		return nil
	case ListFilterHistory:
		return []enums.RequestStatus{enums.RequestStatusCompleted, enums.RequestStatusCancelled}
	}
	return []enums.RequestStatus{enums.RequestStatus(f)}
}

type ListParams struct {
	Filter ListFilter
	Limit  int
	Cursor string
}

type ListResult struct {
	Items      []RequestDTO `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

type CreateInput struct {
	RequesterID      uuid.UUID             `json:"-"`
	Title            string                `json:"title" validate:"notblank,max=200"`
	Category         *string               `json:"category,omitempty"`
	Quantity         int                   `json:"quantity" validate:"required,gt=0"`
	ItemPrice        decimal.Decimal       `json:"item_price"`
	StoreLocation    string                `json:"store_location" validate:"required"`
	StorePoint       *types.GeographyPoint `json:"store_point,omitempty"`
	DeliveryLocation string                `json:"delivery_location" validate:"required"`
	PickupTime       string                `json:"pickup_time" validate:"required"`
	Note             *string               `json:"note,omitempty"`
	ImageURL         *string               `json:"image_url,omitempty"`
}

// UpdateInput patches an active request. Nil fields are left unchanged.
type UpdateInput struct {
	RequestID        uuid.UUID             `json:"-"`
	RequesterID      uuid.UUID             `json:"-"`
	Title            *string               `json:"title,omitempty"`
	Category         *string               `json:"category,omitempty"`
	Quantity         *int                  `json:"quantity,omitempty"`
	ItemPrice        *decimal.Decimal      `json:"item_price,omitempty"`
	StoreLocation    *string               `json:"store_location,omitempty"`
	StorePoint       *types.GeographyPoint `json:"store_point,omitempty"`
	DeliveryLocation *string               `json:"delivery_location,omitempty"`
	PickupTime       *string               `json:"pickup_time,omitempty"`
	Note             *string               `json:"note,omitempty"`
	ImageURL         *string               `json:"image_url,omitempty"`
}

type CancelInput struct {
	RequestID uuid.UUID
	ActorID   uuid.UUID
}

type ReportIssueInput struct {
	RequestID   uuid.UUID
	RequesterID uuid.UUID
	Issue       string `json:"issue" validate:"required"`
}

type RequesterDTO struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	PhotoURL *string   `json:"photo_url,omitempty"`
}

type RequestDTO struct {
	ID                 uuid.UUID             `json:"id"`
	Title              string                `json:"title"`
	Category           *string               `json:"category,omitempty"`
	Quantity           int                   `json:"quantity"`
	Price              decimal.Decimal       `json:"price"`
	ServiceFee         decimal.Decimal       `json:"service_fee"`
	PlatformFee        decimal.Decimal       `json:"platform_fee"`
	EstimatedEarnings  decimal.Decimal       `json:"estimated_earnings"`
	StoreLocation      string                `json:"store_location"`
	StorePoint         *types.GeographyPoint `json:"store_point,omitempty"`
	DeliveryLocation   string                `json:"delivery_location"`
	PickupTime         string                `json:"pickup_time"`
	Note               *string               `json:"note,omitempty"`
	ImageURL           *string               `json:"image_url,omitempty"`
	Requester          RequesterDTO          `json:"requester"`
	Status             enums.RequestStatus   `json:"status"`
	AcceptedBy         *uuid.UUID            `json:"accepted_by,omitempty"`
	CancellationReason *string               `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
	AcceptedAt         *time.Time            `json:"accepted_at,omitempty"`
	DeliveredAt        *time.Time            `json:"delivered_at,omitempty"`
	CompletedAt        *time.Time            `json:"completed_at,omitempty"`
	CancelledAt        *time.Time            `json:"cancelled_at,omitempty"`
}

// FromModel maps a stored request, normalizing its status text.
func FromModel(r *models.Request) *RequestDTO {
	if r == nil {
		return nil
	}
	return &RequestDTO{
		ID:                 r.ID,
		Title:              r.Title,
		Category:           r.Category,
		Quantity:           r.Quantity,
		Price:              r.Price,
		ServiceFee:         r.ServiceFee,
		PlatformFee:        r.PlatformFee,
		EstimatedEarnings:  pricing.EstimateEarnings(r.Price),
		StoreLocation:      r.StoreLocation,
		StorePoint:         r.StorePoint,
		DeliveryLocation:   r.DeliveryLocation,
		PickupTime:         r.PickupTime,
		Note:               r.Note,
		ImageURL:           r.ImageURL,
		Requester:          RequesterDTO{ID: r.RequesterID, Name: r.RequesterName, Email: r.RequesterEmail, PhotoURL: r.RequesterPhoto},
		Status:             r.NormalizedStatus(),
		AcceptedBy:         r.AcceptedBy,
		CancellationReason: r.CancellationReason,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		AcceptedAt:         r.AcceptedAt,
		DeliveredAt:        r.DeliveredAt,
		CompletedAt:        r.CompletedAt,
		CancelledAt:        r.CancelledAt,
	}
}

func fromModels(rows []models.Request) []RequestDTO {
	out := make([]RequestDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
