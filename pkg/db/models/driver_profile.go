package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/packdrop-backend/pkg/enums"
)

// DriverProfile is keyed by the driver's user id. Status is the dispatch lock.
type DriverProfile struct {
	UserID      uuid.UUID          `gorm:"column:user_id;type:uuid;primaryKey"`
	ZoneID      uuid.UUID          `gorm:"column:zone_id;type:uuid;not null;index"`
	Status      enums.DriverStatus `gorm:"column:status;type:text;not null"`
	VehicleType string             `gorm:"column:vehicle_type;type:text"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
