package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ManagerCashConfirmation records a manager receiving COD cash for one order.
type ManagerCashConfirmation struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	ManagerID   uuid.UUID       `gorm:"column:manager_id;type:uuid;not null;index"`
	DriverID    uuid.UUID       `gorm:"column:driver_id;type:uuid;not null;index"`
	ZoneID      uuid.UUID       `gorm:"column:zone_id;type:uuid;not null"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	ConfirmedAt time.Time       `gorm:"column:confirmed_at;not null;index"`
}

func (c *ManagerCashConfirmation) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// ManagerPayoutConfirmation records an admin paying a manager out for a period.
type ManagerPayoutConfirmation struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ManagerID   uuid.UUID       `gorm:"column:manager_id;type:uuid;not null;index"`
	AdminID     uuid.UUID       `gorm:"column:admin_id;type:uuid;not null"`
	PeriodStart time.Time       `gorm:"column:period_start;not null"`
	PeriodEnd   time.Time       `gorm:"column:period_end;not null"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Note        *string         `gorm:"column:note;type:text"`
	ConfirmedAt time.Time       `gorm:"column:confirmed_at;not null;index"`
}

func (p *ManagerPayoutConfirmation) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
