// Package pricing computes order quotes: line totals, vendor discount,
// distance-based delivery charge and the informative commission estimate.
package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packdrop-backend/internal/commission"
	"github.com/angelmondragon/packdrop-backend/internal/settings"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
	"github.com/angelmondragon/packdrop-backend/pkg/money"
)

// Item is one requested product line at its current catalog price.
type Item struct {
	ProductID uuid.UUID
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Point is a latitude/longitude pair.
type Point struct {
	Lat float64
	Lng float64
}

// QuoteInput carries the catalog facts a quote depends on.
type QuoteInput struct {
	Items           []Item
	DiscountPercent decimal.Decimal
	Plan            *models.SubscriptionPlan
	Origin          Point
	Destination     Point
	Tip             decimal.Decimal
}

// Line is a priced item.
type Line struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Quote is the priced order. Commission estimates are informative and are
// neither applied nor snapshotted.
type Quote struct {
	Lines          []Line                  `json:"lines"`
	Subtotal       decimal.Decimal         `json:"order_subtotal"`
	Discount       decimal.Decimal         `json:"discount_amount"`
	DistanceKm     decimal.Decimal         `json:"distance_km"`
	DeliveryCharge decimal.Decimal         `json:"delivery_charge"`
	Tip            decimal.Decimal         `json:"tip_amount"`
	Total          decimal.Decimal         `json:"order_total"`
	VendorEstimate commission.VendorResult `json:"vendor_commission_estimate"`
	DriverEstimate commission.DriverResult `json:"driver_commission_estimate"`
}

// MerchandiseBase is the amount the vendor commission applies to.
func (q Quote) MerchandiseBase() decimal.Decimal {
	return q.Subtotal.Sub(q.Discount)
}

// Engine prices orders against the current platform settings.
type Engine struct {
	settings settings.Provider
}

// NewEngine wires a pricing engine.
func NewEngine(provider settings.Provider) (*Engine, error) {
	if provider == nil {
		return nil, fmt.Errorf("settings provider required")
	}
	return &Engine{settings: provider}, nil
}

// Quote prices the input.
func (e *Engine) Quote(ctx context.Context, in QuoteInput) (Quote, error) {
	if len(in.Items) == 0 {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	if in.Tip.IsNegative() {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "tip must not be negative")
	}
	if in.DiscountPercent.IsNegative() {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "discount must not be negative")
	}

	cfg, err := e.settings.Current(ctx)
	if err != nil {
		return Quote{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settings")
	}

	q := Quote{Lines: make([]Line, 0, len(in.Items)), Tip: money.Round2(in.Tip)}
	subtotal := decimal.Zero
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return Quote{}, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity for %s must be positive", item.ProductID)
		}
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		q.Lines = append(q.Lines, Line{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: money.Round2(lineTotal),
		})
	}
	q.Subtotal = money.Round2(subtotal)
	q.Discount = money.Min(money.Percent(q.Subtotal, in.DiscountPercent), q.Subtotal)

	q.DistanceKm = DistanceKm(in.Origin.Lat, in.Origin.Lng, in.Destination.Lat, in.Destination.Lng)
	q.DeliveryCharge = money.Max(money.Round2(cfg.MinDeliveryFee), money.Round2(q.DistanceKm.Mul(cfg.PerKmRate)))
	q.Total = q.Subtotal.Sub(q.Discount).Add(q.DeliveryCharge).Add(q.Tip)

	q.VendorEstimate = commission.Vendor(q.MerchandiseBase(), commission.VendorRate(in.Plan, cfg.VendorCommissionRate))
	q.DriverEstimate = commission.Driver(q.DeliveryCharge, cfg.DriverCommissionRate, cfg.MinDeliveryPay)
	return q, nil
}
