package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/pkg/enums"
)

// HeldBalance escrows a wallet order's total until confirmation, dispute
// resolution or auto-release. Credited is set once the portions have been
// split and credited to the parties' pending balances.
type HeldBalance struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID               `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	CustomerID      uuid.UUID               `gorm:"column:customer_id;type:uuid;not null"`
	TotalAmount     decimal.Decimal         `gorm:"column:total_amount;type:numeric(12,2);not null"`
	VendorPortion   decimal.Decimal         `gorm:"column:vendor_portion;type:numeric(12,2);not null"`
	DriverPortion   decimal.Decimal         `gorm:"column:driver_portion;type:numeric(12,2);not null"`
	AdminPortion    decimal.Decimal         `gorm:"column:admin_portion;type:numeric(12,2);not null"`
	Credited        bool                    `gorm:"column:credited;not null"`
	Status          enums.HeldBalanceStatus `gorm:"column:status;type:text;not null;index"`
	AutoReleaseDate time.Time               `gorm:"column:auto_release_date;not null;index"`
	ReleasedAt      *time.Time              `gorm:"column:released_at"`
	DisputeReason   *string                 `gorm:"column:dispute_reason;type:text"`
	DisputedAt      *time.Time              `gorm:"column:disputed_at"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (h *HeldBalance) BeforeCreate(*gorm.DB) error {
	ensureID(&h.ID)
	return nil
}
