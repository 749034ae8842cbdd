// Package maps calls the Google Places (v1) and Geocoding APIs used to pin
// store coordinates and to label pasabuyer positions.
package maps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/pasabuy/pasabuy-backend/pkg/errors"
)

const (
	defaultBaseURL        = "https://places.googleapis.com/v1"
	defaultGeocodeURL     = "https://maps.googleapis.com/maps/api/geocode/json"
	defaultTimeout        = 10 * time.Second
	autocompleteFieldMask = "suggestions.placePrediction.placeId,suggestions.placePrediction.text"
	placeResolveFieldMask = "id,formattedAddress,location,addressComponents"

	// upstream error bodies are quoted into our error up to this many bytes
	errorBodyLimit = 1024
)

var errAPIKeyRequired = errors.New("google maps api key is required")

type Client struct {
	httpClient *http.Client
	baseURL    string
	geocodeURL string
	apiKey     string
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL points Places calls at another host, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithGeocodeURL points reverse geocoding at another endpoint.
func WithGeocodeURL(geocodeURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(geocodeURL); trimmed != "" {
			c.geocodeURL = trimmed
		}
	}
}

func NewClient(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		geocodeURL: defaultGeocodeURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

type AutocompleteRequest struct {
	Input               string   `json:"input"`
	IncludedRegionCodes []string `json:"includedRegionCodes,omitempty"`
	LanguageCode        string   `json:"languageCode,omitempty"`
}

type AutocompleteSuggestion struct {
	PlaceID     string
	Description string
}

// PlaceDetails is the subset of a Places record a request pin needs.
type PlaceDetails struct {
	PlaceID          string
	FormattedAddress string
	Location         LatLng
	// Locality is the city or municipality component, when Google has one.
	Locality string
}

type LatLng struct {
	Latitude  float64
	Longitude float64
}

// Autocomplete suggests places matching partial input.
func (c *Client) Autocomplete(ctx context.Context, req AutocompleteRequest) ([]AutocompleteSuggestion, error) {
	if c == nil {
		return nil, errNotConfigured()
	}
	if strings.TrimSpace(req.Input) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "autocomplete input is required")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode autocomplete request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:autocomplete", bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build autocomplete request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-FieldMask", autocompleteFieldMask)

	var out struct {
		Suggestions []struct {
			Prediction struct {
				PlaceID string `json:"placeId"`
				Text    struct {
					Text string `json:"text"`
				} `json:"text"`
			} `json:"placePrediction"`
		} `json:"suggestions"`
	}
	if err := c.do(httpReq, "autocomplete", &out); err != nil {
		return nil, err
	}

	suggestions := make([]AutocompleteSuggestion, 0, len(out.Suggestions))
	for _, s := range out.Suggestions {
		if s.Prediction.PlaceID == "" {
			continue
		}
		suggestions = append(suggestions, AutocompleteSuggestion{
			PlaceID:     s.Prediction.PlaceID,
			Description: s.Prediction.Text.Text,
		})
	}
	return suggestions, nil
}

// ResolvePlace loads the address and coordinate for a place id.
func (c *Client) ResolvePlace(ctx context.Context, placeID string) (*PlaceDetails, error) {
	if c == nil {
		return nil, errNotConfigured()
	}
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "place ID is required")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/places/"+url.PathEscape(placeID), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build place request")
	}
	httpReq.Header.Set("X-Goog-FieldMask", placeResolveFieldMask)

	var out struct {
		ID               string `json:"id"`
		FormattedAddress string `json:"formattedAddress"`
		Location         struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"location"`
		AddressComponents []struct {
			LongText string   `json:"longText"`
			Types    []string `json:"types"`
		} `json:"addressComponents"`
	}
	if err := c.do(httpReq, "resolve place", &out); err != nil {
		return nil, err
	}

	details := &PlaceDetails{
		PlaceID:          out.ID,
		FormattedAddress: out.FormattedAddress,
		Location:         LatLng{Latitude: out.Location.Latitude, Longitude: out.Location.Longitude},
	}
	for _, comp := range out.AddressComponents {
		if hasType(comp.Types, "locality") {
			details.Locality = comp.LongText
			break
		}
	}
	return details, nil
}

// ReverseGeocode returns the first formatted address for the coordinate, or
// CodeNotFound when Google has none.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	if c == nil {
		return "", errNotConfigured()
	}
	query := url.Values{}
	query.Set("latlng", fmt.Sprintf("%f,%f", lat, lng))
	query.Set("key", c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.geocodeURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build reverse geocode request")
	}

	var out struct {
		Status  string `json:"status"`
		Results []struct {
			FormattedAddress string `json:"formatted_address"`
		} `json:"results"`
	}
	if err := c.do(httpReq, "reverse geocode", &out); err != nil {
		return "", err
	}
	if out.Status != "OK" || len(out.Results) == 0 {
		return "", pkgerrors.Newf(pkgerrors.CodeNotFound, "no address for coordinate (%s)", out.Status)
	}
	return out.Results[0].FormattedAddress, nil
}

// do sends req with the API key and decodes a 200 body into out. Any
// transport or upstream failure is a dependency error.
func (c *Client) do(req *http.Request, op string, out any) error {
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op+" request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, op+" request failed")
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+op+" response")
	}
	return nil
}

func errNotConfigured() error {
	return pkgerrors.New(pkgerrors.CodeDependency, "google maps client not configured")
}

func hasType(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}
