package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Zone is a geographic partition; ManagerID scopes a manager's authority.
type Zone struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name      string     `gorm:"column:name;not null"`
	ManagerID *uuid.UUID `gorm:"column:manager_id;type:uuid;index"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (z *Zone) BeforeCreate(*gorm.DB) error {
	ensureID(&z.ID)
	return nil
}
