package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pasabuy/pasabuy-backend/internal/users"
	"github.com/pasabuy/pasabuy-backend/pkg/db/models"
	"github.com/pasabuy/pasabuy-backend/pkg/enums"
	pkgerrors "github.com/pasabuy/pasabuy-backend/pkg/errors"
	"github.com/pasabuy/pasabuy-backend/pkg/outbox"
	"github.com/pasabuy/pasabuy-backend/pkg/outbox/payloads"
	"github.com/pasabuy/pasabuy-backend/pkg/pagination"
	"github.com/pasabuy/pasabuy-backend/pkg/pricing"
)

const (
	ReasonCancelledByRequester = "Cancelled by requester"
	ReasonCancelledByPasabuyer = "Cancelled by pasabuyer"
	reportIssuePrefix          = "Issue reported by requester: "
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type identityResolver interface {
	Identity(ctx context.Context, userID uuid.UUID) (users.Identity, error)
}

// ChangePublisher announces committed mutations to watchers.
type ChangePublisher interface {
	RequestChanged(ctx context.Context, requestID uuid.UUID, status enums.RequestStatus, participants ...uuid.UUID)
	RequestRemoved(ctx context.Context, requestID uuid.UUID, participants ...uuid.UUID)
}

// Service owns every request transition except the claim, which lives in
// the matching engine.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*RequestDTO, error)
	Get(ctx context.Context, requestID uuid.UUID) (*RequestDTO, error)
	Update(ctx context.Context, input UpdateInput) (*RequestDTO, error)
	Delete(ctx context.Context, requestID, requesterID uuid.UUID) error
	ListMine(ctx context.Context, requesterID uuid.UUID, params ListParams) (*ListResult, error)
	ListAssigned(ctx context.Context, pasabuyerID uuid.UUID, params ListParams) (*ListResult, error)
	MarkDelivered(ctx context.Context, requestID, pasabuyerID uuid.UUID) (*RequestDTO, error)
	ConfirmReceipt(ctx context.Context, requestID, requesterID uuid.UUID) (*RequestDTO, error)
	Cancel(ctx context.Context, input CancelInput) (*RequestDTO, error)
	ReportIssue(ctx context.Context, input ReportIssueInput) (*RequestDTO, error)
}

type ServiceParams struct {
	Repo       Repository
	Tx         txRunner
	Outbox     outboxPublisher
	Identities identityResolver
	Changes    ChangePublisher
}

type service struct {
	repo       Repository
	tx         txRunner
	outbox     outboxPublisher
	identities identityResolver
	changes    ChangePublisher
	now        func() time.Time
}

// NewService builds the request lifecycle service. Changes may be nil.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("requests repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Identities == nil {
		return nil, fmt.Errorf("identity resolver required")
	}
	return &service{
		repo:       params.Repo,
		tx:         params.Tx,
		outbox:     params.Outbox,
		identities: params.Identities,
		changes:    params.Changes,
		now:        time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*RequestDTO, error) {
	if input.RequesterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	input.Title = strings.TrimSpace(input.Title)
	input.StoreLocation = strings.TrimSpace(input.StoreLocation)
	input.DeliveryLocation = strings.TrimSpace(input.DeliveryLocation)
	input.PickupTime = strings.TrimSpace(input.PickupTime)
	if err := validateCreate(input); err != nil {
		return nil, err
	}
	if err := Transition(StatusNone, enums.RequestStatusActive, ActorRequester); err != nil {
		return nil, err
	}

	identity, err := s.identities.Identity(ctx, input.RequesterID)
	if err != nil {
		return nil, err
	}

	quote := pricing.QuoteFor(input.ItemPrice)
	now := s.now().UTC()
	req := &models.Request{
		ID:               uuid.New(),
		Title:            input.Title,
		Category:         trimmedOrNil(input.Category),
		Quantity:         input.Quantity,
		Price:            quote.Total,
		ServiceFee:       quote.ServiceFee,
		PlatformFee:      quote.PlatformFee,
		StoreLocation:    input.StoreLocation,
		StorePoint:       input.StorePoint,
		DeliveryLocation: input.DeliveryLocation,
		PickupTime:       input.PickupTime,
		Note:             trimmedOrNil(input.Note),
		ImageURL:         trimmedOrNil(input.ImageURL),
		RequesterID:      identity.UserID,
		RequesterName:    identity.DisplayName,
		RequesterEmail:   identity.Email,
		RequesterPhoto:   identity.PhotoURL,
		Status:           string(enums.RequestStatusActive),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, req); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create request")
		}
		event := LifecycleEvent(enums.EventRequestCreated, req, req.RequesterID, enums.UserRoleRequester, "", now)
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit request created")
		}
		return nil
	}); err != nil {
		return nil, err
	}

	s.announce(ctx, req)
	return FromModel(req), nil
}

func (s *service) Get(ctx context.Context, requestID uuid.UUID) (*RequestDTO, error) {
	req, err := loadRequest(ctx, s.repo, requestID)
	if err != nil {
		return nil, err
	}
	return FromModel(req), nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*RequestDTO, error) {
	if input.RequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	if input.RequesterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := validateUpdate(input); err != nil {
		return nil, err
	}

	var updated *models.Request
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		req, err := loadRequest(ctx, repo, input.RequestID)
		if err != nil {
			return err
		}
		if req.RequesterID != input.RequesterID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the requester can edit this request")
		}
		if req.NormalizedStatus() != enums.RequestStatusActive || req.AcceptedBy != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only active requests can be edited").
				WithDetails(map[string]string{"status": string(req.NormalizedStatus())})
		}

		now := s.now().UTC()
		updates := updateFields(input)
		updates["updated_at"] = now
		rows, err := repo.UpdateFields(ctx, req.ID, req.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request changed concurrently")
		}
		updated, err = loadRequest(ctx, repo, req.ID)
		if err != nil {
			return err
		}
		event := LifecycleEvent(enums.EventRequestUpdated, updated, input.RequesterID, enums.UserRoleRequester, "", now)
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit request updated")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.announce(ctx, updated)
	return FromModel(updated), nil
}

func (s *service) Delete(ctx context.Context, requestID, requesterID uuid.UUID) error {
	if requesterID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		req, err := loadRequest(ctx, repo, requestID)
		if err != nil {
			return err
		}
		if req.RequesterID != requesterID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the requester can delete this request")
		}
		if req.NormalizedStatus() != enums.RequestStatusActive || req.AcceptedBy != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only unclaimed active requests can be deleted")
		}
		rows, err := repo.Delete(ctx, req.ID, requesterID, req.Status)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete request")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request changed concurrently")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.changes != nil {
		s.changes.RequestRemoved(ctx, requestID, requesterID)
	}
	return nil
}

func (s *service) ListMine(ctx context.Context, requesterID uuid.UUID, params ListParams) (*ListResult, error) {
	if requesterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.list(ctx, params, func(p pagination.Params) ([]models.Request, *pagination.Cursor, error) {
		return s.repo.ListByRequester(ctx, requesterID, params.Filter, p)
	})
}

func (s *service) ListAssigned(ctx context.Context, pasabuyerID uuid.UUID, params ListParams) (*ListResult, error) {
	if pasabuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.list(ctx, params, func(p pagination.Params) ([]models.Request, *pagination.Cursor, error) {
		return s.repo.ListByPasabuyer(ctx, pasabuyerID, params.Filter, p)
	})
}

func (s *service) list(ctx context.Context, params ListParams, fetch func(pagination.Params) ([]models.Request, *pagination.Cursor, error)) (*ListResult, error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := fetch(pagination.Params{Limit: params.Limit, Cursor: params.Cursor})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list requests")
	}
	result := &ListResult{Items: fromModels(rows)}
	if next != nil {
		result.NextCursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) MarkDelivered(ctx context.Context, requestID, pasabuyerID uuid.UUID) (*RequestDTO, error) {
	return s.transition(ctx, transitionRequest{
		requestID: requestID,
		actorID:   pasabuyerID,
		to:        enums.RequestStatusDelivered,
		eventType: enums.EventRequestDelivered,
		updates: func(_ *models.Request, _ Actor, now time.Time) map[string]any {
			return map[string]any{"delivered_at": now}
		},
	})
}

func (s *service) ConfirmReceipt(ctx context.Context, requestID, requesterID uuid.UUID) (*RequestDTO, error) {
	return s.transition(ctx, transitionRequest{
		requestID: requestID,
		actorID:   requesterID,
		to:        enums.RequestStatusCompleted,
		eventType: enums.EventRequestCompleted,
		check: func(_ *models.Request, from enums.RequestStatus) error {
			if from != enums.RequestStatusDelivered {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no delivered request to confirm")
			}
			return nil
		},
		updates: func(_ *models.Request, _ Actor, now time.Time) map[string]any {
			return map[string]any{"completed_at": now, "confirmed_by": requesterID}
		},
	})
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*RequestDTO, error) {
	return s.transition(ctx, transitionRequest{
		requestID: input.RequestID,
		actorID:   input.ActorID,
		to:        enums.RequestStatusCancelled,
		eventType: enums.EventRequestCancelled,
		check: func(_ *models.Request, from enums.RequestStatus) error {
			if from == enums.RequestStatusDelivered {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "delivered requests can only be cancelled by reporting an issue")
			}
			return nil
		},
		reason: func(actor Actor) string {
			if actor == ActorPasabuyer {
				return ReasonCancelledByPasabuyer
			}
			return ReasonCancelledByRequester
		},
		updates: func(_ *models.Request, _ Actor, now time.Time) map[string]any {
			return map[string]any{"cancelled_at": now, "cancelled_by": input.ActorID}
		},
	})
}

func (s *service) ReportIssue(ctx context.Context, input ReportIssueInput) (*RequestDTO, error) {
	issue := strings.TrimSpace(input.Issue)
	if issue == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"issue": "issue is required"})
	}
	return s.transition(ctx, transitionRequest{
		requestID: input.RequestID,
		actorID:   input.RequesterID,
		to:        enums.RequestStatusCancelled,
		eventType: enums.EventRequestCancelled,
		check: func(_ *models.Request, from enums.RequestStatus) error {
			if from != enums.RequestStatusDelivered {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "issues can only be reported on delivered requests")
			}
			return nil
		},
		reason: func(Actor) string { return reportIssuePrefix + issue },
		updates: func(_ *models.Request, _ Actor, now time.Time) map[string]any {
			return map[string]any{"cancelled_at": now, "reported_by": input.RequesterID}
		},
	})
}

type transitionRequest struct {
	requestID uuid.UUID
	actorID   uuid.UUID
	to        enums.RequestStatus
	eventType enums.OutboxEventType
	check     func(req *models.Request, from enums.RequestStatus) error
	reason    func(actor Actor) string
	updates   func(req *models.Request, actor Actor, now time.Time) map[string]any
}

// transition runs one guarded state change: resolve the caller's relationship,
// consult the table, compare-and-set on the observed status, emit the event.
func (s *service) transition(ctx context.Context, tr transitionRequest) (*RequestDTO, error) {
	if tr.requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	if tr.actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var updated *models.Request
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		req, err := loadRequest(ctx, repo, tr.requestID)
		if err != nil {
			return err
		}
		actor, err := actorFor(req, tr.actorID)
		if err != nil {
			return err
		}
		from := req.NormalizedStatus()
		if tr.check != nil {
			if err := tr.check(req, from); err != nil {
				return err
			}
		}
		if err := Transition(from, tr.to, actor); err != nil {
			return err
		}

		now := s.now().UTC()
		reason := ""
		if tr.reason != nil {
			reason = tr.reason(actor)
		}
		updates := map[string]any{}
		if tr.updates != nil {
			updates = tr.updates(req, actor, now)
		}
		updates["status"] = string(tr.to)
		updates["updated_at"] = now
		if reason != "" {
			updates["cancellation_reason"] = reason
		}

		rows, err := repo.UpdateFields(ctx, req.ID, req.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request status")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request changed concurrently")
		}
		updated, err = loadRequest(ctx, repo, req.ID)
		if err != nil {
			return err
		}
		event := LifecycleEvent(tr.eventType, updated, tr.actorID, actor.Role(), reason, now)
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit request event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.announce(ctx, updated)
	return FromModel(updated), nil
}

func (s *service) announce(ctx context.Context, req *models.Request) {
	if s.changes == nil || req == nil {
		return
	}
	s.changes.RequestChanged(ctx, req.ID, req.NormalizedStatus(), req.Participants()...)
}

// Role maps the relationship onto the account role recorded on events.
func (a Actor) Role() enums.UserRole {
	if a == ActorPasabuyer {
		return enums.UserRolePasabuyer
	}
	return enums.UserRoleRequester
}

func actorFor(req *models.Request, userID uuid.UUID) (Actor, error) {
	switch {
	case req.RequesterID == userID:
		return ActorRequester, nil
	case req.IsAcceptedBy(userID):
		return ActorPasabuyer, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeForbidden, "not a participant of this request")
}

// LifecycleEvent builds the outbox event for a request mutation.
func LifecycleEvent(eventType enums.OutboxEventType, req *models.Request, actorID uuid.UUID, role enums.UserRole, reason string, at time.Time) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateRequest,
		AggregateID:   req.ID,
		Actor:         &outbox.ActorRef{UserID: actorID, Role: role},
		OccurredAt:    at,
		Data: payloads.RequestLifecycleEvent{
			RequestID:   req.ID,
			RequesterID: req.RequesterID,
			PasabuyerID: req.AcceptedBy,
			ActorID:     actorID,
			Title:       req.Title,
			Status:      req.NormalizedStatus(),
			Reason:      reason,
			OccurredAt:  at,
		},
	}
}

func loadRequest(ctx context.Context, repo Repository, id uuid.UUID) (*models.Request, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	req, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
	}
	return req, nil
}

func validateCreate(input CreateInput) error {
	details := map[string]string{}
	if input.Title == "" {
		details["title"] = "title is required"
	}
	if input.StoreLocation == "" {
		details["store_location"] = "store location is required"
	}
	if input.DeliveryLocation == "" {
		details["delivery_location"] = "delivery location is required"
	}
	if input.PickupTime == "" {
		details["pickup_time"] = "pickup time is required"
	}
	if input.Quantity <= 0 {
		details["quantity"] = "quantity must be positive"
	}
	if !input.ItemPrice.GreaterThan(decimal.Zero) {
		details["item_price"] = "item price must be positive"
	}
	if input.StorePoint != nil && !input.StorePoint.Valid() {
		details["store_point"] = "coordinate out of range"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return nil
}

func validateUpdate(input UpdateInput) error {
	details := map[string]string{}
	blank := func(field string, value *string) {
		if value != nil && strings.TrimSpace(*value) == "" {
			details[field] = field + " cannot be blank"
		}
	}
	blank("title", input.Title)
	blank("store_location", input.StoreLocation)
	blank("delivery_location", input.DeliveryLocation)
	blank("pickup_time", input.PickupTime)
	if input.Quantity != nil && *input.Quantity <= 0 {
		details["quantity"] = "quantity must be positive"
	}
	if input.ItemPrice != nil && !input.ItemPrice.GreaterThan(decimal.Zero) {
		details["item_price"] = "item price must be positive"
	}
	if input.StorePoint != nil && !input.StorePoint.Valid() {
		details["store_point"] = "coordinate out of range"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return nil
}

func updateFields(input UpdateInput) map[string]any {
	updates := map[string]any{}
	setString := func(column string, value *string) {
		if value != nil {
			updates[column] = strings.TrimSpace(*value)
		}
	}
	setString("title", input.Title)
	setString("store_location", input.StoreLocation)
	setString("delivery_location", input.DeliveryLocation)
	setString("pickup_time", input.PickupTime)
	if input.Category != nil {
		updates["category"] = trimmedOrNil(input.Category)
	}
	if input.Note != nil {
		updates["note"] = trimmedOrNil(input.Note)
	}
	if input.ImageURL != nil {
		updates["image_url"] = trimmedOrNil(input.ImageURL)
	}
	if input.Quantity != nil {
		updates["quantity"] = *input.Quantity
	}
	if input.StorePoint != nil {
		updates["store_point"] = *input.StorePoint
	}
	if input.ItemPrice != nil {
		quote := pricing.QuoteFor(*input.ItemPrice)
		updates["price"] = quote.Total
		updates["service_fee"] = quote.ServiceFee
		updates["platform_fee"] = quote.PlatformFee
	}
	return updates
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
