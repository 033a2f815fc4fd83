package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
)

// OrderView is the order shape pushed to realtime subscribers. It carries
// no delivery OTP and none of the commission bookkeeping flags.
type OrderView struct {
	ID            uuid.UUID           `json:"id"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`

	CustomerID uuid.UUID  `json:"customer_id"`
	VendorID   uuid.UUID  `json:"vendor_id"`
	ZoneID     uuid.UUID  `json:"zone_id"`
	DriverID   *uuid.UUID `json:"driver_id,omitempty"`

	OrderSubtotal  decimal.Decimal `json:"order_subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	TipAmount      decimal.Decimal `json:"tip_amount"`
	OrderTotal     decimal.Decimal `json:"order_total"`
	DistanceKm     decimal.Decimal `json:"distance_km"`

	EstimatedReadyAt *time.Time `json:"estimated_ready_at,omitempty"`
	ReadyNotifiedAt  *time.Time `json:"ready_notified_at,omitempty"`
	PickedUpAt       *time.Time `json:"picked_up_at,omitempty"`
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
	CancelReason     *string    `json:"cancel_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewOrderView flattens an order for broadcast.
func NewOrderView(o *models.Order) OrderView {
	return OrderView{
		ID:               o.ID,
		Status:           o.Status,
		PaymentMethod:    o.PaymentMethod,
		PaymentStatus:    o.PaymentStatus,
		CustomerID:       o.CustomerID,
		VendorID:         o.VendorID,
		ZoneID:           o.ZoneID,
		DriverID:         o.DriverID,
		OrderSubtotal:    o.OrderSubtotal,
		DiscountAmount:   o.DiscountAmount,
		DeliveryCharge:   o.DeliveryCharge,
		TipAmount:        o.TipAmount,
		OrderTotal:       o.OrderTotal,
		DistanceKm:       o.DistanceKm,
		EstimatedReadyAt: o.EstimatedReadyAt,
		ReadyNotifiedAt:  o.ReadyNotifiedAt,
		PickedUpAt:       o.PickedUpAt,
		DeliveredAt:      o.DeliveredAt,
		CancelledAt:      o.CancelledAt,
		CancelReason:     o.CancelReason,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}
