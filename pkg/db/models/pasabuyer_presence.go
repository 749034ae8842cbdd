package models

import (
	"time"

	"github.com/google/uuid"
)

// PasabuyerPresence has one row per pasabuyer, written only by that pasabuyer
// and the staleness sweep.
type PasabuyerPresence struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	Latitude  float64   `gorm:"column:latitude;not null"`
	Longitude float64   `gorm:"column:longitude;not null"`
	Address   string    `gorm:"column:address;not null"`
	Online    bool      `gorm:"column:online;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (PasabuyerPresence) TableName() string { return "pasabuyer_presence" }
