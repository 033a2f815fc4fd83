package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/pkg/enums"
)

// CommissionSnapshot is the immutable audit row for one commission application.
type CommissionSnapshot struct {
	ID         uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID              `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_commission_order_source"`
	Source     enums.CommissionSource `gorm:"column:source;type:text;not null;uniqueIndex:ux_commission_order_source"`
	VendorID   uuid.UUID              `gorm:"column:vendor_id;type:uuid;not null;index"`
	DriverID   *uuid.UUID             `gorm:"column:driver_id;type:uuid;index"`
	Rate       decimal.Decimal        `gorm:"column:rate;type:numeric(5,2);not null"`
	BaseAmount decimal.Decimal        `gorm:"column:base_amount;type:numeric(12,2);not null"`
	Value      decimal.Decimal        `gorm:"column:value;type:numeric(12,2);not null"`
	NetAmount  decimal.Decimal        `gorm:"column:net_amount;type:numeric(12,2);not null"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime;index"`
}

func (s *CommissionSnapshot) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
