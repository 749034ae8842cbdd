package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pasabuy/pasabuy-backend/api/responses"
	"github.com/pasabuy/pasabuy-backend/api/validators"
	pkgerrors "github.com/pasabuy/pasabuy-backend/pkg/errors"
	"github.com/pasabuy/pasabuy-backend/pkg/logger"
	"github.com/pasabuy/pasabuy-backend/pkg/maps"
	"github.com/pasabuy/pasabuy-backend/pkg/types"
)

const (
	placesRegionCode   = "PH"
	placesLanguageCode = "en"
	minAutocompleteLen = 2
	maxAutocompleteLen = 200
)

type placesClient interface {
	Autocomplete(ctx context.Context, req maps.AutocompleteRequest) ([]maps.AutocompleteSuggestion, error)
	ResolvePlace(ctx context.Context, placeID string) (*maps.PlaceDetails, error)
}

type placeSuggestion struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}

type placeResponse struct {
	PlaceID          string               `json:"place_id"`
	FormattedAddress string               `json:"formatted_address"`
	Point            types.GeographyPoint `json:"point"`
	Locality         string               `json:"locality,omitempty"`
}

// PlacesAutocomplete suggests stores for ?q= so a requester can pin one.
func PlacesAutocomplete(client placesClient, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "places lookup not configured"))
			return
		}
		query := validators.SanitizeString(r.URL.Query().Get("q"), maxAutocompleteLen)
		if len(query) < minAutocompleteLen {
			responses.WriteSuccess(w, map[string]any{"items": []placeSuggestion{}})
			return
		}

		suggestions, err := client.Autocomplete(r.Context(), maps.AutocompleteRequest{
			Input:               query,
			IncludedRegionCodes: []string{placesRegionCode},
			LanguageCode:        placesLanguageCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]placeSuggestion, 0, len(suggestions))
		for _, s := range suggestions {
			items = append(items, placeSuggestion{PlaceID: s.PlaceID, Description: s.Description})
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

func ResolvePlace(client placesClient, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "places lookup not configured"))
			return
		}
		placeID := strings.TrimSpace(chi.URLParam(r, "placeId"))
		if placeID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "place id required"))
			return
		}

		details, err := client.ResolvePlace(r.Context(), placeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, placeResponse{
			PlaceID:          details.PlaceID,
			FormattedAddress: details.FormattedAddress,
			Point:            types.GeographyPoint{Lat: details.Location.Latitude, Lng: details.Location.Longitude},
			Locality:         details.Locality,
		})
	}
}
