package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pasabuy/pasabuy-backend/pkg/db/models"
)

// Repository is gorm-backed account storage. Lookups return
// gorm.ErrRecordNotFound for missing rows.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail expects email already lower-cased.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.take(ctx, "email = ?", email)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.take(ctx, "id = ?", id)
}

func (r *Repository) take(ctx context.Context, cond string, arg any) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(cond, arg).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	// UpdateColumn keeps updated_at untouched; a login is not a profile edit.
	return r.row(ctx, id).UpdateColumn("last_login_at", at).Error
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	_, err := r.patch(ctx, id, map[string]any{"password_hash": hash})
	return err
}

// UpdateProfile writes the non-nil fields of input and returns the fresh row.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, input UpdateProfileInput) (*models.User, error) {
	changes := map[string]any{}
	for column, value := range map[string]*string{
		"display_name": input.DisplayName,
		"photo_url":    input.PhotoURL,
		"phone":        input.Phone,
	} {
		if value != nil {
			changes[column] = *value
		}
	}
	touched, err := r.patch(ctx, id, changes)
	if err != nil {
		return nil, err
	}
	if !touched {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, id)
}

// patch stamps updated_at alongside changes and reports whether a row matched.
func (r *Repository) patch(ctx context.Context, id uuid.UUID, changes map[string]any) (bool, error) {
	changes["updated_at"] = r.now()
	res := r.row(ctx, id).Updates(changes)
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) row(ctx context.Context, id uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id)
}
