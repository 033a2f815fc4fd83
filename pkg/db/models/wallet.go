package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/pkg/enums"
)

// PlatformOwnerID is the owner id of the single platform wallet.
var PlatformOwnerID = uuid.Nil

// Wallet holds a party's spendable balance and credits pending release.
// Driver balances may go negative while they carry collected cash.
type Wallet struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OwnerType      enums.WalletOwnerType `gorm:"column:owner_type;type:text;not null;uniqueIndex:ux_wallet_owner"`
	OwnerID        uuid.UUID             `gorm:"column:owner_id;type:uuid;not null;uniqueIndex:ux_wallet_owner"`
	Balance        decimal.Decimal       `gorm:"column:balance;type:numeric(12,2);not null"`
	PendingBalance decimal.Decimal       `gorm:"column:pending_balance;type:numeric(12,2);not null"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *Wallet) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

// WalletTransaction is the append-only journal row for one wallet mutation.
type WalletTransaction struct {
	ID           uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	WalletID     uuid.UUID                   `gorm:"column:wallet_id;type:uuid;not null;index"`
	OrderID      *uuid.UUID                  `gorm:"column:order_id;type:uuid;index"`
	Type         enums.WalletTransactionType `gorm:"column:type;type:text;not null"`
	Amount       decimal.Decimal             `gorm:"column:amount;type:numeric(12,2);not null"`
	BalanceAfter decimal.Decimal             `gorm:"column:balance_after;type:numeric(12,2);not null"`
	PendingAfter decimal.Decimal             `gorm:"column:pending_after;type:numeric(12,2);not null"`
	CreatedAt    time.Time                   `gorm:"column:created_at;autoCreateTime;index"`
}

func (t *WalletTransaction) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
