// Package matching finds open requests near a pasabuyer and arbitrates the
// exclusive claim on a request.
package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pasabuy/pasabuy-backend/internal/chats"
	"github.com/pasabuy/pasabuy-backend/internal/requests"
	"github.com/pasabuy/pasabuy-backend/pkg/db/models"
	"github.com/pasabuy/pasabuy-backend/pkg/enums"
	pkgerrors "github.com/pasabuy/pasabuy-backend/pkg/errors"
	"github.com/pasabuy/pasabuy-backend/pkg/geo"
	"github.com/pasabuy/pasabuy-backend/pkg/logger"
	"github.com/pasabuy/pasabuy-backend/pkg/metrics"
	"github.com/pasabuy/pasabuy-backend/pkg/outbox"
	"github.com/pasabuy/pasabuy-backend/pkg/pagination"
	"github.com/pasabuy/pasabuy-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type locator interface {
	Location(ctx context.Context, userID uuid.UUID) (*types.GeographyPoint, error)
}

type threadOpener interface {
	EnsureThread(ctx context.Context, input chats.EnsureThreadInput) (*chats.ThreadDTO, error)
}

type requestNotifier interface {
	RequestChanged(ctx context.Context, requestID uuid.UUID, status enums.RequestStatus, participants ...uuid.UUID)
}

type Params struct {
	Requests  requests.Repository
	Tx        txRunner
	Outbox    outboxPublisher
	Presence  locator
	Threads   threadOpener
	Changes   requestNotifier
	Gazetteer *geo.Gazetteer
	RadiusKM  float64
	Metrics   *metrics.ClaimMetrics
	Logger    *logger.Logger
}

type Engine struct {
	requests  requests.Repository
	tx        txRunner
	outbox    outboxPublisher
	presence  locator
	threads   threadOpener
	changes   requestNotifier
	gazetteer *geo.Gazetteer
	radiusKM  float64
	metrics   *metrics.ClaimMetrics
	logg      *logger.Logger
	now       func() time.Time
}

func NewEngine(p Params) (*Engine, error) {
	if p.Requests == nil {
		return nil, fmt.Errorf("requests repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if p.Presence == nil {
		return nil, fmt.Errorf("presence locator required")
	}
	if p.Threads == nil {
		return nil, fmt.Errorf("thread opener required")
	}
	gazetteer := p.Gazetteer
	if gazetteer == nil {
		gazetteer = geo.NewGazetteer(nil)
	}
	radius := p.RadiusKM
	if radius <= 0 {
		radius = DefaultRadiusKM
	}
	return &Engine{
		requests:  p.Requests,
		tx:        p.Tx,
		outbox:    p.Outbox,
		presence:  p.Presence,
		threads:   p.Threads,
		changes:   p.Changes,
		gazetteer: gazetteer,
		radiusKM:  radius,
		metrics:   p.Metrics,
		logg:      p.Logger,
		now:       time.Now,
	}, nil
}

// Nearby lists open requests within the radius of the pasabuyer, closest
// first. Requests whose store cannot be placed are skipped.
func (e *Engine) Nearby(ctx context.Context, input NearbyInput) (*NearbyResult, error) {
	if input.PasabuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	origin := input.Point
	if origin == nil {
		located, err := e.presence.Location(ctx, input.PasabuyerID)
		if err != nil {
			return nil, err
		}
		origin = located
	}
	if origin == nil {
		return nil, pkgerrors.New(pkgerrors.CodeGeolocationUnavailable, "no location for pasabuyer")
	}
	if !origin.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coordinate out of range")
	}

	result := &NearbyResult{Origin: *origin, RadiusKM: e.radiusKM, Requests: []NearbyRequest{}}
	// Gazetteer-placed stores have no stored point; every open request is scanned.
	var after *pagination.Cursor
	for {
		batch, err := e.requests.ListOpen(ctx, input.PasabuyerID, after, requests.OpenScanBatch)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list open requests")
		}
		for i := range batch {
			if near, ok := e.withinRadius(*origin, &batch[i]); ok {
				result.Requests = append(result.Requests, near)
			}
		}
		if len(batch) < requests.OpenScanBatch {
			break
		}
		last := batch[len(batch)-1]
		after = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	sort.SliceStable(result.Requests, func(i, j int) bool {
		return result.Requests[i].exactKM < result.Requests[j].exactKM
	})
	return result, nil
}

func (e *Engine) withinRadius(origin types.GeographyPoint, req *models.Request) (NearbyRequest, bool) {
	store, ok := e.storeCoordinate(req)
	if !ok {
		return NearbyRequest{}, false
	}
	km := geo.DistanceKM(origin, store)
	if km > e.radiusKM {
		return NearbyRequest{}, false
	}
	return NearbyRequest{
		RequestDTO:      *requests.FromModel(req),
		StoreCoordinate: store,
		DistanceKM:      geo.RoundDisplay(km),
		exactKM:         km,
	}, true
}

func (e *Engine) storeCoordinate(req *models.Request) (types.GeographyPoint, bool) {
	if req.StorePoint != nil && req.StorePoint.Valid() {
		return *req.StorePoint, true
	}
	return e.gazetteer.Resolve(req.StoreLocation)
}

// AcceptRequest claims requestID for pasabuyerID. Only one pasabuyer can
// win; a retry by the winner succeeds without writing.
func (e *Engine) AcceptRequest(ctx context.Context, requestID, pasabuyerID uuid.UUID) (*AcceptResult, error) {
	if pasabuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}

	var (
		claimed    *models.Request
		idempotent bool
	)
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.requests.WithTx(tx)
		req, err := findRequest(ctx, repo, requestID)
		if err != nil {
			return err
		}
		if ownsClaim(req, pasabuyerID) {
			claimed, idempotent = req, true
			return nil
		}
		if req.NormalizedStatus() != enums.RequestStatusActive || req.AcceptedBy != nil {
			return alreadyClaimed(req)
		}
		if req.RequesterID == pasabuyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "cannot accept your own request")
		}
		if err := requests.Transition(enums.RequestStatusActive, enums.RequestStatusAccepted, requests.ActorPasabuyer); err != nil {
			return err
		}

		now := e.now().UTC()
		rows, err := repo.Claim(ctx, req.ID, pasabuyerID, req.Status, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim request")
		}
		if rows == 0 {
			current, err := findRequest(ctx, repo, requestID)
			if err != nil {
				return err
			}
			if ownsClaim(current, pasabuyerID) {
				claimed, idempotent = current, true
				return nil
			}
			return alreadyClaimed(current)
		}

		claimed, err = findRequest(ctx, repo, requestID)
		if err != nil {
			return err
		}
		event := requests.LifecycleEvent(enums.EventRequestAccepted, claimed, pasabuyerID, enums.UserRolePasabuyer, "", now)
		if err := e.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit request accepted")
		}
		return nil
	})
	if err != nil {
		e.metrics.Inc(claimOutcome(err))
		return nil, err
	}

	if idempotent {
		e.metrics.Inc(metrics.ClaimOutcomeIdempotent)
	} else {
		e.metrics.Inc(metrics.ClaimOutcomeClaimed)
		if e.changes != nil {
			e.changes.RequestChanged(ctx, claimed.ID, claimed.NormalizedStatus(), claimed.Participants()...)
		}
	}

	result := &AcceptResult{Request: requests.FromModel(claimed), Idempotent: idempotent}
	thread, err := e.threads.EnsureThread(ctx, chats.EnsureThreadInput{
		RequestID:   claimed.ID,
		RequesterID: claimed.RequesterID,
		PasabuyerID: pasabuyerID,
		InitiatorID: pasabuyerID,
		Summary:     chats.SummaryFromRequest(claimed),
	})
	if err != nil {
		result.ChatThreadError = err.Error()
		if e.logg != nil {
			logCtx := e.logg.WithRequestRef(ctx, claimed.ID.String())
			e.logg.Error(logCtx, "open chat thread after claim failed", err)
		}
		return result, nil
	}
	result.Thread = thread
	return result, nil
}

func ownsClaim(req *models.Request, pasabuyerID uuid.UUID) bool {
	return req.IsAcceptedBy(pasabuyerID) && req.NormalizedStatus() == enums.RequestStatusAccepted
}

func alreadyClaimed(req *models.Request) error {
	return pkgerrors.New(pkgerrors.CodeAlreadyClaimed, "request is no longer available").
		WithDetails(map[string]string{"status": string(req.NormalizedStatus())})
}

func findRequest(ctx context.Context, repo requests.Repository, id uuid.UUID) (*models.Request, error) {
	req, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
	}
	return req, nil
}

func claimOutcome(err error) string {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeAlreadyClaimed):
		return metrics.ClaimOutcomeAlreadyClaimed
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		return metrics.ClaimOutcomeNotFound
	}
	return metrics.ClaimOutcomeError
}
