package commission

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/money"
)

// VendorResult is the vendor's share of the merchandise base.
type VendorResult struct {
	Rate  decimal.Decimal `json:"rate"`
	Base  decimal.Decimal `json:"base"`
	Value decimal.Decimal `json:"value"`
	Net   decimal.Decimal `json:"net"`
}

// DriverResult is the split of a delivery fee between driver and platform.
type DriverResult struct {
	Rate  decimal.Decimal `json:"rate"`
	Fee   decimal.Decimal `json:"fee"`
	Value decimal.Decimal `json:"value"`
	Net   decimal.Decimal `json:"net"`
}

// Vendor computes round2(base*rate/100) and the remaining net. Net plus value
// always equals base.
func Vendor(base, rate decimal.Decimal) VendorResult {
	base = money.Round2(base)
	value := money.Percent(base, rate)
	return VendorResult{Rate: rate, Base: base, Value: value, Net: base.Sub(value)}
}

// Driver computes the driver's net pay from a delivery fee. The net never
// drops below minPay; when the floor exceeds the fee the platform value goes
// negative and the platform funds the difference.
func Driver(fee, rate, minPay decimal.Decimal) DriverResult {
	fee = money.Round2(fee)
	afterCut := fee.Sub(money.Percent(fee, rate))
	net := money.Max(money.Min(fee, afterCut), money.Round2(minPay))
	return DriverResult{Rate: rate, Fee: fee, Value: fee.Sub(net), Net: net}
}

// VendorRate resolves the per-order commission rate for a vendor. Paid plans
// carry their own rate (nil means none); free plans and vendors without a
// plan pay the platform default.
func VendorRate(plan *models.SubscriptionPlan, defaultRate decimal.Decimal) decimal.Decimal {
	if plan == nil || plan.IsFree() {
		return defaultRate
	}
	if plan.CommissionRate == nil {
		return decimal.Zero
	}
	return *plan.CommissionRate
}
