package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Vendor is read by pricing and by the vendor transition handlers.
type Vendor struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	ZoneID          uuid.UUID       `gorm:"column:zone_id;type:uuid;not null;index"`
	PlanID          *uuid.UUID      `gorm:"column:plan_id;type:uuid"`
	Name            string          `gorm:"column:name;not null"`
	Latitude        float64         `gorm:"column:latitude;not null"`
	Longitude       float64         `gorm:"column:longitude;not null"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null"`
	IsOpen          bool            `gorm:"column:is_open;not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	Plan *SubscriptionPlan `gorm:"foreignKey:PlanID;references:ID"`
}

func (v *Vendor) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}
