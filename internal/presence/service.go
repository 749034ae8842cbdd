package presence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pasabuy/pasabuy-backend/pkg/db/models"
	pkgerrors "github.com/pasabuy/pasabuy-backend/pkg/errors"
	"github.com/pasabuy/pasabuy-backend/pkg/geo"
	"github.com/pasabuy/pasabuy-backend/pkg/logger"
	"github.com/pasabuy/pasabuy-backend/pkg/types"
)

const (
	// DefaultStaleAfter is how long an online row may go without an update.
	DefaultStaleAfter = 10 * time.Minute

	geocodeTimeout = 3 * time.Second
	// Moves shorter than this keep the previously resolved address.
	readdressKM = 0.05
)

type store interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.PasabuyerPresence, error)
	Upsert(ctx context.Context, row *models.PasabuyerPresence) error
	SetOffline(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	SweepStale(ctx context.Context, cutoff, at time.Time) (int64, error)
}

// Geocoder resolves a coordinate to a street address. *maps.Client implements it.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
}

type UpdateInput struct {
	UserID    uuid.UUID `json:"-"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

type PresenceDTO struct {
	UserID    uuid.UUID `json:"user_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Address   string    `json:"address"`
	Online    bool      `json:"online"`
	UpdatedAt time.Time `json:"updated_at"`
}

func fromModel(row *models.PasabuyerPresence) *PresenceDTO {
	return &PresenceDTO{
		UserID:    row.UserID,
		Latitude:  row.Latitude,
		Longitude: row.Longitude,
		Address:   row.Address,
		Online:    row.Online,
		UpdatedAt: row.UpdatedAt,
	}
}

type Service struct {
	store      store
	geocoder   Geocoder
	logg       *logger.Logger
	staleAfter time.Duration
	now        func() time.Time
}

// NewService wires presence tracking. geocoder may be nil, in which case
// addresses fall back to the raw coordinate.
func NewService(repo store, geocoder Geocoder, staleAfter time.Duration, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("presence repository required")
	}
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Service{store: repo, geocoder: geocoder, logg: logg, staleAfter: staleAfter, now: time.Now}, nil
}

// Update records the pasabuyer's coordinate and marks them online.
func (s *Service) Update(ctx context.Context, input UpdateInput) (*PresenceDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	point, err := types.NewGeographyPoint(input.Latitude, input.Longitude)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coordinate")
	}

	previous, err := s.store.FindByUserID(ctx, input.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load presence")
	}

	row := &models.PasabuyerPresence{
		UserID:    input.UserID,
		Latitude:  point.Lat,
		Longitude: point.Lng,
		Address:   s.addressFor(ctx, *point, previous),
		Online:    true,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.store.Upsert(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save presence")
	}
	return fromModel(row), nil
}

func (s *Service) GoOffline(ctx context.Context, userID uuid.UUID) (*PresenceDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.store.SetOffline(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set offline")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no presence recorded")
	}
	return s.Get(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*PresenceDTO, error) {
	row, err := s.store.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no presence recorded")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load presence")
	}
	return fromModel(row), nil
}

// Location returns the coordinate of an online pasabuyer. Offline or unknown
// users have none.
func (s *Service) Location(ctx context.Context, userID uuid.UUID) (*types.GeographyPoint, error) {
	row, err := s.store.FindByUserID(ctx, userID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load presence")
	case !row.Online:
		return nil, nil
	}
	return &types.GeographyPoint{Lat: row.Latitude, Lng: row.Longitude}, nil
}

// SweepStale flips online rows older than the stale window offline.
func (s *Service) SweepStale(ctx context.Context) (int64, error) {
	now := s.now().UTC()
	return s.store.SweepStale(ctx, now.Add(-s.staleAfter), now)
}

func (s *Service) addressFor(ctx context.Context, point types.GeographyPoint, previous *models.PasabuyerPresence) string {
	if previous != nil && strings.TrimSpace(previous.Address) != "" {
		last := types.GeographyPoint{Lat: previous.Latitude, Lng: previous.Longitude}
		if geo.DistanceKM(last, point) < readdressKM {
			return previous.Address
		}
	}
	if s.geocoder == nil {
		return point.String()
	}
	geoCtx, cancel := context.WithTimeout(ctx, geocodeTimeout)
	defer cancel()
	address, err := s.geocoder.ReverseGeocode(geoCtx, point.Lat, point.Lng)
	if err != nil || strings.TrimSpace(address) == "" {
		if err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "reverse geocode failed")
		}
		return point.String()
	}
	return address
}
