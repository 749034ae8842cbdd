package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pasabuy/pasabuy-backend/pkg/db/models"
	"github.com/pasabuy/pasabuy-backend/pkg/pagination"
)

// Repository is the notifications table. Every read and write is scoped to
// the owning user except retention.
type Repository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, q listQuery) ([]models.Notification, *pagination.Cursor, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, at time.Time) (markOutcome, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type listQuery struct {
	UserID     uuid.UUID
	Limit      int
	After      *pagination.Cursor
	UnreadOnly bool
}

type markOutcome int

const (
	markMissing markOutcome = iota
	markApplied
	markAlreadyRead
)

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) owned(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
}

func (r *gormRepository) Create(ctx context.Context, notification *models.Notification) error {
	if !notification.Type.IsValid() {
		return fmt.Errorf("unknown notification type %q", notification.Type)
	}
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(notification).Error
}

// List returns one page newest first; the cursor points at the last row returned.
func (r *gormRepository) List(ctx context.Context, q listQuery) ([]models.Notification, *pagination.Cursor, error) {
	query := r.owned(ctx, q.UserID)
	if q.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	if q.After != nil {
		clause, args := q.After.Before("created_at")
		query = query.Where(clause, args...)
	}

	var rows []models.Notification
	err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(q.Limit)).Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, q.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return page, next, nil
}

func (r *gormRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.owned(ctx, userID).Where("read_at IS NULL").Count(&n).Error
	return n, err
}

func (r *gormRepository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, at time.Time) (markOutcome, error) {
	var row models.Notification
	err := r.owned(ctx, userID).Where("id = ?", notificationID).Select("id", "read_at").Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return markMissing, nil
	case err != nil:
		return markMissing, err
	case row.ReadAt != nil:
		return markAlreadyRead, nil
	}

	res := r.owned(ctx, userID).Where("id = ? AND read_at IS NULL", notificationID).UpdateColumn("read_at", at)
	if res.Error != nil {
		return markMissing, res.Error
	}
	if res.RowsAffected == 0 {
		// read concurrently between the lookup and the update
		return markAlreadyRead, nil
	}
	return markApplied, nil
}

func (r *gormRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	res := r.owned(ctx, userID).Where("read_at IS NULL").UpdateColumn("read_at", at)
	return res.RowsAffected, res.Error
}

func (r *gormRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("read_at IS NOT NULL AND read_at < ?", cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
