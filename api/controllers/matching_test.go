package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/pasabuy/pasabuy-backend/internal/matching"
	"github.com/pasabuy/pasabuy-backend/internal/requests"
	"github.com/pasabuy/pasabuy-backend/pkg/enums"
	pkgerrors "github.com/pasabuy/pasabuy-backend/pkg/errors"
	"github.com/pasabuy/pasabuy-backend/pkg/types"
)

type stubMatchingEngine struct {
	nearbyInput matching.NearbyInput
	nearby      *matching.NearbyResult
	accept      *matching.AcceptResult
	acceptedBy  uuid.UUID
	err         error
}

func (s *stubMatchingEngine) Nearby(ctx context.Context, input matching.NearbyInput) (*matching.NearbyResult, error) {
	s.nearbyInput = input
	return s.nearby, s.err
}

func (s *stubMatchingEngine) AcceptRequest(ctx context.Context, requestID, pasabuyerID uuid.UUID) (*matching.AcceptResult, error) {
	s.acceptedBy = pasabuyerID
	return s.accept, s.err
}

func TestNearbyRequestsUsesQueryCoordinate(t *testing.T) {
	engine := &stubMatchingEngine{nearby: &matching.NearbyResult{
		Origin:   types.GeographyPoint{Lat: 16.4023, Lng: 120.596},
		RadiusKM: 5,
		Requests: []matching.NearbyRequest{},
	}}
	req := newAuthedRequest(http.MethodGet, "/api/v1/requests/nearby?lat=16.4023&lng=120.596", "", uuid.New(), nil)
	rec := httptest.NewRecorder()

	NearbyRequests(engine, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if engine.nearbyInput.Point == nil || engine.nearbyInput.Point.Lat != 16.4023 {
		t.Fatalf("expected query coordinate forwarded, got %+v", engine.nearbyInput.Point)
	}
	var body nearbyResponse
	decodeData(t, rec, &body)
	if !body.LocationAvailable || body.RadiusKM != 5 {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestNearbyRequestsWithoutLocationIsEmpty(t *testing.T) {
	engine := &stubMatchingEngine{err: pkgerrors.New(pkgerrors.CodeGeolocationUnavailable, "no location")}
	req := newAuthedRequest(http.MethodGet, "/api/v1/requests/nearby", "", uuid.New(), nil)
	rec := httptest.NewRecorder()

	NearbyRequests(engine, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if engine.nearbyInput.Point != nil {
		t.Fatalf("expected no override point")
	}
	var body nearbyResponse
	decodeData(t, rec, &body)
	if body.LocationAvailable || len(body.Requests) != 0 {
		t.Fatalf("expected empty unavailable response, got %+v", body)
	}
}

func TestNearbyRequestsRejectsPartialCoordinate(t *testing.T) {
	engine := &stubMatchingEngine{}
	req := newAuthedRequest(http.MethodGet, "/api/v1/requests/nearby?lat=16.4", "", uuid.New(), nil)
	rec := httptest.NewRecorder()

	NearbyRequests(engine, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestNearbyRequestsRejectsOutOfRange(t *testing.T) {
	engine := &stubMatchingEngine{}
	req := newAuthedRequest(http.MethodGet, "/api/v1/requests/nearby?lat=91&lng=0", "", uuid.New(), nil)
	rec := httptest.NewRecorder()

	NearbyRequests(engine, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAcceptRequest(t *testing.T) {
	pasabuyer, requestID := uuid.New(), uuid.New()
	engine := &stubMatchingEngine{accept: &matching.AcceptResult{
		Request:         &requests.RequestDTO{ID: requestID, Status: enums.RequestStatusAccepted, AcceptedBy: &pasabuyer},
		ChatThreadError: "chat unavailable",
	}}
	req := newAuthedRequest(http.MethodPost, "/accept", "", pasabuyer, map[string]string{"requestId": requestID.String()})
	rec := httptest.NewRecorder()

	AcceptRequest(engine, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if engine.acceptedBy != pasabuyer {
		t.Fatalf("expected claim by caller")
	}
	var body matching.AcceptResult
	decodeData(t, rec, &body)
	if body.ChatThreadError == "" || body.Request.Status != enums.RequestStatusAccepted {
		t.Fatalf("unexpected accept body %+v", body)
	}
}

func TestAcceptRequestAlreadyClaimed(t *testing.T) {
	requestID := uuid.New()
	engine := &stubMatchingEngine{err: pkgerrors.New(pkgerrors.CodeAlreadyClaimed, "request already accepted")}
	req := newAuthedRequest(http.MethodPost, "/accept", "", uuid.New(), map[string]string{"requestId": requestID.String()})
	rec := httptest.NewRecorder()

	AcceptRequest(engine, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != string(pkgerrors.CodeAlreadyClaimed) {
		t.Fatalf("unexpected code %s", code)
	}
}
