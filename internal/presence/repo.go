package presence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pasabuy/pasabuy-backend/pkg/db/models"
)

// Repository reads and writes pasabuyer_presence rows.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.PasabuyerPresence, error) {
	var row models.PasabuyerPresence
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) Upsert(ctx context.Context, row *models.PasabuyerPresence) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"latitude", "longitude", "address", "online", "updated_at"}),
		}).
		Create(row).Error
}

func (r *Repository) SetOffline(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PasabuyerPresence{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{"online": false, "updated_at": at})
	return result.RowsAffected, result.Error
}

// SweepStale flips rows that stopped reporting before cutoff offline.
func (r *Repository) SweepStale(ctx context.Context, cutoff, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PasabuyerPresence{}).
		Where("online = ? AND updated_at < ?", true, cutoff).
		Updates(map[string]any{"online": false, "updated_at": at})
	return result.RowsAffected, result.Error
}
