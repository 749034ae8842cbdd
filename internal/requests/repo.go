package requests

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pasabuy/pasabuy-backend/pkg/db/models"
	"github.com/pasabuy/pasabuy-backend/pkg/enums"
	"github.com/pasabuy/pasabuy-backend/pkg/pagination"
)

// OpenScanBatch is how many open requests ListOpen returns per call.
const OpenScanBatch = 500

type repository struct {
	db *gorm.DB
}

// NewRepository returns a requests repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, req *models.Request) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	var req models.Request
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, observedStatus string, updates map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("id = ? AND status = ?", id, observedStatus).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// Claim sets accepted_by only while the row is still unclaimed and unchanged.
func (r *repository) Claim(ctx context.Context, id, pasabuyerID uuid.UUID, observedStatus string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("id = ? AND status = ? AND accepted_by IS NULL", id, observedStatus).
		Updates(map[string]any{
			"status":      string(enums.RequestStatusAccepted),
			"accepted_by": pasabuyerID,
			"accepted_at": at,
			"updated_at":  at,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) Delete(ctx context.Context, id, requesterID uuid.UUID, observedStatus string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND requester_id = ? AND status = ? AND accepted_by IS NULL", id, requesterID, observedStatus).
		Delete(&models.Request{})
	return result.RowsAffected, result.Error
}

func (r *repository) ListByRequester(ctx context.Context, requesterID uuid.UUID, filter ListFilter, params pagination.Params) ([]models.Request, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Request{}).Where("requester_id = ?", requesterID)
	return r.page(query, filter, params)
}

func (r *repository) ListByPasabuyer(ctx context.Context, pasabuyerID uuid.UUID, filter ListFilter, params pagination.Params) ([]models.Request, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Request{}).Where("accepted_by = ?", pasabuyerID)
	return r.page(query, filter, params)
}

// ListOpen returns one newest-first batch of unclaimed active requests,
// starting after the cursor when one is given.
func (r *repository) ListOpen(ctx context.Context, excludeRequesterID uuid.UUID, after *pagination.Cursor, limit int) ([]models.Request, error) {
	if limit <= 0 || limit > OpenScanBatch {
		limit = OpenScanBatch
	}
	clause, args := statusCondition([]enums.RequestStatus{enums.RequestStatusActive})
	query := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where(clause, args...).
		Where("accepted_by IS NULL")
	if excludeRequesterID != uuid.Nil {
		query = query.Where("requester_id <> ?", excludeRequesterID)
	}
	if after != nil {
		clause, args := after.Before("created_at")
		query = query.Where(clause, args...)
	}
	var rows []models.Request
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) page(query *gorm.DB, filter ListFilter, params pagination.Params) ([]models.Request, *pagination.Cursor, error) {
	if statuses := filter.Statuses(); len(statuses) > 0 {
		clause, args := statusCondition(statuses)
		query = query.Where(clause, args...)
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, nil, err
		}
		if cursor != nil {
			clause, args := cursor.Before("created_at")
			query = query.Where(clause, args...)
		}
	}

	var rows []models.Request
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, params.Limit, func(m models.Request) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	return page, next, nil
}

// statusCondition matches every stored spelling of the given states. Empty
// text on a claimed row reads as accepted, not active.
func statusCondition(statuses []enums.RequestStatus) (string, []any) {
	parts := make([]string, 0, len(statuses))
	args := make([]any, 0, len(statuses))
	for _, status := range statuses {
		switch status {
		case enums.RequestStatusActive:
			parts = append(parts, "(LOWER(TRIM(status)) IN ? AND NOT (TRIM(status) = '' AND accepted_by IS NOT NULL))")
		case enums.RequestStatusAccepted:
			parts = append(parts, "(LOWER(TRIM(status)) IN ? OR (TRIM(status) = '' AND accepted_by IS NOT NULL))")
		default:
			parts = append(parts, "LOWER(TRIM(status)) IN ?")
		}
		args = append(args, enums.RawRequestStatuses(status))
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}
