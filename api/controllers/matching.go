package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/pasabuy/pasabuy-backend/api/middleware"
	"github.com/pasabuy/pasabuy-backend/api/responses"
	"github.com/pasabuy/pasabuy-backend/internal/matching"
	pkgerrors "github.com/pasabuy/pasabuy-backend/pkg/errors"
	"github.com/pasabuy/pasabuy-backend/pkg/logger"
	"github.com/pasabuy/pasabuy-backend/pkg/types"
)

type matchingEngine interface {
	Nearby(ctx context.Context, input matching.NearbyInput) (*matching.NearbyResult, error)
	AcceptRequest(ctx context.Context, requestID, pasabuyerID uuid.UUID) (*matching.AcceptResult, error)
}

type nearbyResponse struct {
	LocationAvailable bool                     `json:"location_available"`
	Origin            *types.GeographyPoint    `json:"origin,omitempty"`
	RadiusKM          float64                  `json:"radius_km"`
	Requests          []matching.NearbyRequest `json:"requests"`
}

// NearbyRequests lists open requests around the caller. ?lat=&lng= override
// the stored presence coordinate. A pasabuyer with no known location gets an
// empty list rather than an error.
func NearbyRequests(engine matchingEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.AuthenticatedUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		point, err := parseCoordinate(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := engine.Nearby(r.Context(), matching.NearbyInput{PasabuyerID: userID, Point: point})
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeGeolocationUnavailable) {
				responses.WriteSuccess(w, nearbyResponse{Requests: []matching.NearbyRequest{}})
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		origin := result.Origin
		responses.WriteSuccess(w, nearbyResponse{
			LocationAvailable: true,
			Origin:            &origin,
			RadiusKM:          result.RadiusKM,
			Requests:          result.Requests,
		})
	}
}

// AcceptRequest claims an open request for the calling pasabuyer.
func AcceptRequest(engine matchingEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, requestID, err := requestCaller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithRequestRef(r.Context(), requestID.String())

		result, err := engine.AcceptRequest(ctx, requestID, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if result.ChatThreadError != "" {
			logg.Warn(ctx, "accept.chat_thread_failed")
		}
		responses.WriteSuccess(w, result)
	}
}

func parseCoordinate(r *http.Request) (*types.GeographyPoint, error) {
	rawLat := strings.TrimSpace(r.URL.Query().Get("lat"))
	rawLng := strings.TrimSpace(r.URL.Query().Get("lng"))
	if rawLat == "" && rawLng == "" {
		return nil, nil
	}
	if rawLat == "" || rawLng == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lat and lng must be provided together")
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid latitude").WithDetails(map[string]string{"lat": "must be numeric"})
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid longitude").WithDetails(map[string]string{"lng": "must be numeric"})
	}
	point, err := types.NewGeographyPoint(lat, lng)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "coordinate out of range")
	}
	return point, nil
}
