package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SubscriptionPlan is the vendor's monetization plan. A zero price means the
// vendor pays per-order commission at the platform default rate instead.
type SubscriptionPlan struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name              string           `gorm:"column:name;not null"`
	Price             decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	CommissionRate    *decimal.Decimal `gorm:"column:commission_rate;type:numeric(5,2)"`
	MaxOrdersPerMonth int              `gorm:"column:max_orders_per_month;not null"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (p *SubscriptionPlan) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// IsFree reports whether the plan charges nothing up front.
func (p *SubscriptionPlan) IsFree() bool {
	return !p.Price.IsPositive()
}
