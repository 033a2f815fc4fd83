package enums

import "fmt"

// LifecycleEventType names a single order transition for analytics consumers.
type LifecycleEventType string

const (
	LifecycleOrderCreated   LifecycleEventType = "order_created"
	LifecycleVendorAccepted LifecycleEventType = "vendor_accepted"
	LifecycleVendorRejected LifecycleEventType = "vendor_rejected"
	LifecycleOrderReady     LifecycleEventType = "order_ready"
	LifecycleDriverAssigned LifecycleEventType = "driver_assigned"
	LifecycleDriverAccepted LifecycleEventType = "driver_accepted"
	LifecycleDriverRejected LifecycleEventType = "driver_rejected"
	LifecyclePickedUp       LifecycleEventType = "picked_up"
	LifecycleInTransit      LifecycleEventType = "in_transit"
	LifecycleDelivered      LifecycleEventType = "delivered"
	LifecycleDeliveryFailed LifecycleEventType = "delivery_failed"
	LifecycleOrderCancelled LifecycleEventType = "order_cancelled"
	LifecycleOTPRegenerated LifecycleEventType = "otp_regenerated"
	LifecycleCashReported   LifecycleEventType = "cash_reported"
	LifecycleCashConfirmed  LifecycleEventType = "cash_confirmed"
	LifecycleFundsReleased  LifecycleEventType = "funds_released"
	LifecycleDisputeOpened  LifecycleEventType = "dispute_opened"
)

var validLifecycleEventTypes = []LifecycleEventType{
	LifecycleOrderCreated,
	LifecycleVendorAccepted,
	LifecycleVendorRejected,
	LifecycleOrderReady,
	LifecycleDriverAssigned,
	LifecycleDriverAccepted,
	LifecycleDriverRejected,
	LifecyclePickedUp,
	LifecycleInTransit,
	LifecycleDelivered,
	LifecycleDeliveryFailed,
	LifecycleOrderCancelled,
	LifecycleOTPRegenerated,
	LifecycleCashReported,
	LifecycleCashConfirmed,
	LifecycleFundsReleased,
	LifecycleDisputeOpened,
}

// String implements fmt.Stringer.
func (l LifecycleEventType) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LifecycleEventType.
func (l LifecycleEventType) IsValid() bool {
	for _, candidate := range validLifecycleEventTypes {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLifecycleEventType converts raw input into a LifecycleEventType.
func ParseLifecycleEventType(value string) (LifecycleEventType, error) {
	for _, candidate := range validLifecycleEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lifecycle event type %q", value)
}
