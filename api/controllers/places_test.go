package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/pasabuy/pasabuy-backend/pkg/maps"
)

type stubPlacesClient struct {
	lastInput string
	calls     int
}

func (s *stubPlacesClient) Autocomplete(ctx context.Context, req maps.AutocompleteRequest) ([]maps.AutocompleteSuggestion, error) {
	s.calls++
	s.lastInput = req.Input
	return []maps.AutocompleteSuggestion{{PlaceID: "place-1", Description: "SM City Baguio"}}, nil
}

func (s *stubPlacesClient) ResolvePlace(ctx context.Context, placeID string) (*maps.PlaceDetails, error) {
	return &maps.PlaceDetails{
		PlaceID:          placeID,
		FormattedAddress: "Luneta Hill, Baguio",
		Location:         maps.LatLng{Latitude: 16.4089, Longitude: 120.5993},
	}, nil
}

func TestPlacesAutocomplete(t *testing.T) {
	client := &stubPlacesClient{}
	req := newAuthedRequest(http.MethodGet, "/api/v1/places/autocomplete?q=SM+Bag", "", uuid.New(), nil)
	rec := httptest.NewRecorder()

	PlacesAutocomplete(client, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if client.lastInput != "SM Bag" {
		t.Fatalf("unexpected input %q", client.lastInput)
	}
	var body struct {
		Items []placeSuggestion `json:"items"`
	}
	decodeData(t, rec, &body)
	if len(body.Items) != 1 || body.Items[0].PlaceID != "place-1" {
		t.Fatalf("unexpected items %+v", body.Items)
	}
}

func TestPlacesAutocompleteShortQuerySkipsLookup(t *testing.T) {
	client := &stubPlacesClient{}
	req := newAuthedRequest(http.MethodGet, "/api/v1/places/autocomplete?q=S", "", uuid.New(), nil)
	rec := httptest.NewRecorder()

	PlacesAutocomplete(client, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if client.calls != 0 {
		t.Fatalf("expected no lookup for short query")
	}
}

func TestPlacesUnconfigured(t *testing.T) {
	req := newAuthedRequest(http.MethodGet, "/api/v1/places/autocomplete?q=SM", "", uuid.New(), nil)
	rec := httptest.NewRecorder()

	PlacesAutocomplete(nil, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}

func TestResolvePlace(t *testing.T) {
	req := newAuthedRequest(http.MethodGet, "/api/v1/places/place-1", "", uuid.New(), map[string]string{"placeId": "place-1"})
	rec := httptest.NewRecorder()

	ResolvePlace(&stubPlacesClient{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var body placeResponse
	decodeData(t, rec, &body)
	if body.Point.Lat != 16.4089 || body.FormattedAddress == "" {
		t.Fatalf("unexpected place %+v", body)
	}
}
