package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Address is a customer's saved delivery location.
type Address struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Line1     string    `gorm:"column:line1;not null"`
	Latitude  float64   `gorm:"column:latitude;not null"`
	Longitude float64   `gorm:"column:longitude;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (a *Address) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
