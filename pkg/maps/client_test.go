package maps

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/pasabuy/pasabuy-backend/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient("test-key", WithBaseURL(srv.URL+"/v1/"), WithGeocodeURL(srv.URL+"/geocode/json"))
	require.NoError(t, err)
	return client
}

func TestAutocomplete(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/places:autocomplete", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Equal(t, autocompleteFieldMask, r.Header.Get("X-Goog-FieldMask"))

		var body AutocompleteRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "SM Megamall", body.Input)
		assert.Equal(t, []string{"PH"}, body.IncludedRegionCodes)

		_, _ = w.Write([]byte(`{"suggestions":[
			{"placePrediction":{"placeId":"place_123","text":{"text":"SM Megamall, Mandaluyong"}}},
			{"queryPrediction":{"text":{"text":"sm megamall cinema"}}}
		]}`))
	})

	got, err := client.Autocomplete(context.Background(), AutocompleteRequest{
		Input:               "SM Megamall",
		IncludedRegionCodes: []string{"PH"},
		LanguageCode:        "en",
	})
	require.NoError(t, err)
	assert.Equal(t, []AutocompleteSuggestion{{PlaceID: "place_123", Description: "SM Megamall, Mandaluyong"}}, got)
}

func TestAutocompleteRejectsBlankInput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := client.Autocomplete(context.Background(), AutocompleteRequest{Input: "  "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestResolvePlace(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/places/place_123", r.URL.Path)
		assert.Equal(t, placeResolveFieldMask, r.Header.Get("X-Goog-FieldMask"))
		_, _ = w.Write([]byte(`{"id":"place_123","formattedAddress":"SM Megamall, Mandaluyong",
			"location":{"latitude":14.5849,"longitude":121.0563},
			"addressComponents":[
				{"longText":"EDSA","types":["route"]},
				{"longText":"Mandaluyong","types":["locality","political"]}
			]}`))
	})

	details, err := client.ResolvePlace(context.Background(), "place_123")
	require.NoError(t, err)
	assert.Equal(t, &PlaceDetails{
		PlaceID:          "place_123",
		FormattedAddress: "SM Megamall, Mandaluyong",
		Location:         LatLng{Latitude: 14.5849, Longitude: 121.0563},
		Locality:         "Mandaluyong",
	}, details)
}

func TestUpstreamFailureIsDependencyError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"status":"PERMISSION_DENIED"}}`, http.StatusForbidden)
	})

	_, err := client.ResolvePlace(context.Background(), "place_123")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Contains(t, err.Error(), "status 403")
}

func TestReverseGeocode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/json", r.URL.Path)
		assert.Equal(t, "14.584900,121.056300", r.URL.Query().Get("latlng"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"formatted_address":"EDSA, Mandaluyong, Metro Manila"}]}`))
	})

	address, err := client.ReverseGeocode(context.Background(), 14.5849, 121.0563)
	require.NoError(t, err)
	assert.Equal(t, "EDSA, Mandaluyong, Metro Manila", address)
}

func TestReverseGeocodeZeroResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	})

	_, err := client.ReverseGeocode(context.Background(), 0, 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestNilAndKeylessClients(t *testing.T) {
	_, err := NewClient("  ")
	assert.ErrorIs(t, err, errAPIKeyRequired)

	var c *Client
	_, err = c.ReverseGeocode(context.Background(), 1, 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
