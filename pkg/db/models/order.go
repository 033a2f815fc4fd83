package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/pkg/enums"
)

// Order is the delivery order aggregate. Status only changes through the
// order coordinator's transition handlers; rows are never deleted.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null;index"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null"`

	CustomerID uuid.UUID  `gorm:"column:customer_id;type:uuid;not null;index"`
	VendorID   uuid.UUID  `gorm:"column:vendor_id;type:uuid;not null;index"`
	ZoneID     uuid.UUID  `gorm:"column:zone_id;type:uuid;not null;index"`
	AddressID  uuid.UUID  `gorm:"column:address_id;type:uuid;not null"`
	DriverID   *uuid.UUID `gorm:"column:driver_id;type:uuid;index"`
	ManagerID  *uuid.UUID `gorm:"column:manager_id;type:uuid"`

	OrderSubtotal  decimal.Decimal `gorm:"column:order_subtotal;type:numeric(12,2);not null"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	DeliveryCharge decimal.Decimal `gorm:"column:delivery_charge;type:numeric(12,2);not null"`
	TipAmount      decimal.Decimal `gorm:"column:tip_amount;type:numeric(12,2);not null"`
	OrderTotal     decimal.Decimal `gorm:"column:order_total;type:numeric(12,2);not null"`
	DistanceKm     decimal.Decimal `gorm:"column:distance_km;type:numeric(8,2);not null"`

	VendorCommissionRate    decimal.Decimal `gorm:"column:vendor_commission_rate;type:numeric(5,2);not null"`
	VendorCommissionValue   decimal.Decimal `gorm:"column:vendor_commission_value;type:numeric(12,2);not null"`
	DriverCommissionRate    decimal.Decimal `gorm:"column:driver_commission_rate;type:numeric(5,2);not null"`
	DriverCommissionValue   decimal.Decimal `gorm:"column:driver_commission_value;type:numeric(12,2);not null"`
	AdminCommissionAmount   decimal.Decimal `gorm:"column:admin_commission_amount;type:numeric(12,2);not null"`
	PlatformTotalCommission decimal.Decimal `gorm:"column:platform_total_commission;type:numeric(12,2);not null"`
	VendorNet               decimal.Decimal `gorm:"column:vendor_net;type:numeric(12,2);not null"`
	DriverNet               decimal.Decimal `gorm:"column:driver_net;type:numeric(12,2);not null"`
	VendorCommissionApplied bool            `gorm:"column:vendor_commission_applied;not null"`
	DriverCommissionApplied bool            `gorm:"column:driver_commission_applied;not null"`

	DeliveryOTP      *string    `gorm:"column:delivery_otp;type:text"`
	EstimatedReadyAt *time.Time `gorm:"column:estimated_ready_at"`
	ReadyNotifiedAt  *time.Time `gorm:"column:ready_notified_at"`
	PickedUpAt       *time.Time `gorm:"column:picked_up_at"`
	DeliveredAt      *time.Time `gorm:"column:delivered_at"`
	CashReportedAt   *time.Time `gorm:"column:cash_reported_at"`

	CancelledAt     *time.Time       `gorm:"column:cancelled_at"`
	CancelReason    *string          `gorm:"column:cancel_reason;type:text"`
	CancelledByRole *enums.ActorRole `gorm:"column:cancelled_by_role;type:text"`
	Notes           *string          `gorm:"column:notes;type:text"`

	Items []OrderItem `gorm:"foreignKey:OrderID;references:ID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// IsWallet reports whether the order was prepaid from the customer's wallet.
func (o *Order) IsWallet() bool {
	return o.PaymentMethod == enums.PaymentMethodWallet
}

// IsCash reports whether the driver collects payment on delivery.
func (o *Order) IsCash() bool {
	return o.PaymentMethod == enums.PaymentMethodCash
}

// OrderItem snapshots a product line at order time.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Name      string          `gorm:"column:name;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	LineTotal decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
