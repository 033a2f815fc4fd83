package enums

import "fmt"

// CommissionSource identifies which party a commission snapshot was charged to.
type CommissionSource string

const (
	CommissionSourceVendor CommissionSource = "VENDOR"
	CommissionSourceDriver CommissionSource = "DRIVER"
)

var validCommissionSources = []CommissionSource{
	CommissionSourceVendor,
	CommissionSourceDriver,
}

// String implements fmt.Stringer.
func (c CommissionSource) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CommissionSource.
func (c CommissionSource) IsValid() bool {
	for _, candidate := range validCommissionSources {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCommissionSource converts raw input into a CommissionSource.
func ParseCommissionSource(value string) (CommissionSource, error) {
	for _, candidate := range validCommissionSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission source %q", value)
}
