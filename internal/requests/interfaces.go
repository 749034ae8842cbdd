package requests

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pasabuy/pasabuy-backend/pkg/db/models"
	"github.com/pasabuy/pasabuy-backend/pkg/pagination"
)

// Repository defines persistence operations for the requests table. Update
// methods are compare-and-set on the raw status text the caller observed and
// report how many rows they changed.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, req *models.Request) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Request, error)
	UpdateFields(ctx context.Context, id uuid.UUID, observedStatus string, updates map[string]any) (int64, error)
	Claim(ctx context.Context, id, pasabuyerID uuid.UUID, observedStatus string, at time.Time) (int64, error)
	Delete(ctx context.Context, id, requesterID uuid.UUID, observedStatus string) (int64, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID, filter ListFilter, params pagination.Params) ([]models.Request, *pagination.Cursor, error)
	ListByPasabuyer(ctx context.Context, pasabuyerID uuid.UUID, filter ListFilter, params pagination.Params) ([]models.Request, *pagination.Cursor, error)
	ListOpen(ctx context.Context, excludeRequesterID uuid.UUID, after *pagination.Cursor, limit int) ([]models.Request, error)
}
