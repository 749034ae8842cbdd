package matching

import (
	"github.com/google/uuid"

	"github.com/pasabuy/pasabuy-backend/internal/chats"
	"github.com/pasabuy/pasabuy-backend/internal/requests"
	"github.com/pasabuy/pasabuy-backend/pkg/types"
)

// DefaultRadiusKM is the nearby cutoff, compared against the unrounded distance.
const DefaultRadiusKM = 5.0

type NearbyInput struct {
	PasabuyerID uuid.UUID
	// Point overrides the stored presence coordinate when set.
	Point *types.GeographyPoint
}

type NearbyRequest struct {
	requests.RequestDTO
	StoreCoordinate types.GeographyPoint `json:"store_coordinate"`
	DistanceKM      float64              `json:"distance_km"`

	exactKM float64
}

type NearbyResult struct {
	Origin   types.GeographyPoint `json:"origin"`
	RadiusKM float64              `json:"radius_km"`
	Requests []NearbyRequest      `json:"requests"`
}

// AcceptResult reports a claim. ChatThreadError is set when the claim
// committed but the conversation could not be opened.
type AcceptResult struct {
	Request         *requests.RequestDTO `json:"request"`
	Idempotent      bool                 `json:"idempotent"`
	Thread          *chats.ThreadDTO     `json:"thread,omitempty"`
	ChatThreadError string               `json:"chat_thread_error,omitempty"`
}
