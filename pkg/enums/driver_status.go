package enums

import "fmt"

// DriverStatus doubles as the dispatch lock; BUSY means captured by an order.
type DriverStatus string

const (
	DriverStatusOffline   DriverStatus = "OFFLINE"
	DriverStatusAvailable DriverStatus = "AVAILABLE"
	DriverStatusBusy      DriverStatus = "BUSY"
)

var validDriverStatuses = []DriverStatus{
	DriverStatusOffline,
	DriverStatusAvailable,
	DriverStatusBusy,
}

// String implements fmt.Stringer.
func (d DriverStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DriverStatus.
func (d DriverStatus) IsValid() bool {
	for _, candidate := range validDriverStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDriverStatus converts raw input into a DriverStatus.
func ParseDriverStatus(value string) (DriverStatus, error) {
	for _, candidate := range validDriverStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid driver status %q", value)
}
