package enums

import "fmt"

// HeldBalanceStatus is the escrow state of a wallet order.
type HeldBalanceStatus string

const (
	HeldBalanceStatusHeld     HeldBalanceStatus = "HELD"
	HeldBalanceStatusReleased HeldBalanceStatus = "RELEASED"
	HeldBalanceStatusDisputed HeldBalanceStatus = "DISPUTED"
	HeldBalanceStatusRefunded HeldBalanceStatus = "REFUNDED"
)

var validHeldBalanceStatuses = []HeldBalanceStatus{
	HeldBalanceStatusHeld,
	HeldBalanceStatusReleased,
	HeldBalanceStatusDisputed,
	HeldBalanceStatusRefunded,
}

// String implements fmt.Stringer.
func (h HeldBalanceStatus) String() string {
	return string(h)
}

// IsValid reports whether the value is a known HeldBalanceStatus.
func (h HeldBalanceStatus) IsValid() bool {
	for _, candidate := range validHeldBalanceStatuses {
		if candidate == h {
			return true
		}
	}
	return false
}

// ParseHeldBalanceStatus converts raw input into a HeldBalanceStatus.
func ParseHeldBalanceStatus(value string) (HeldBalanceStatus, error) {
	for _, candidate := range validHeldBalanceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid held balance status %q", value)
}
